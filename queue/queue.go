package queue

// MessageQueueMessage is one raw message pulled from the durable job queue.
type MessageQueueMessage struct {
	Message       *string
	MessageId     *string
	ReceiptHandle *string
}

// MessageQueueReader pulls fan-out jobs from the durable queue. Messages
// are redelivered until deleted, so processing must be idempotent.
type MessageQueueReader interface {
	ReceiveMessages(maxNumberOfMessages int64) ([]*MessageQueueMessage, error)
	DeleteMessage(msg *MessageQueueMessage) error
}
