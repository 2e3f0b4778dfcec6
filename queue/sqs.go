package queue

import (
	"encoding/json"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/pkg/errors"
)

// SQSMessageQueueReader reads fan-out jobs from an AWS SQS queue. Used in
// prod where the triggering request must only durably enqueue before
// responding.
type SQSMessageQueueReader struct {
	client          *sqs.SQS
	queueURL        string
	waitTimeSeconds int64
}

func NewSQSMessageQueueReader(queueName string, waitTimeSeconds int64) (*SQSMessageQueueReader, error) {
	sess, err := session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, errors.Wrap(err, "fail to create AWS session")
	}

	client := sqs.New(sess)
	urlResult, err := client.GetQueueUrl(&sqs.GetQueueUrlInput{
		QueueName: &queueName,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fail to get queue url for %s", queueName)
	}

	return &SQSMessageQueueReader{
		client:          client,
		queueURL:        *urlResult.QueueUrl,
		waitTimeSeconds: waitTimeSeconds,
	}, nil
}

func (r *SQSMessageQueueReader) ReceiveMessages(maxNumberOfMessages int64) ([]*MessageQueueMessage, error) {
	result, err := r.client.ReceiveMessage(&sqs.ReceiveMessageInput{
		QueueUrl:            &r.queueURL,
		MaxNumberOfMessages: aws.Int64(maxNumberOfMessages),
		WaitTimeSeconds:     aws.Int64(r.waitTimeSeconds),
	})
	if err != nil {
		return nil, errors.Wrap(err, "fail to receive messages")
	}

	msgs := make([]*MessageQueueMessage, 0, len(result.Messages))
	for _, m := range result.Messages {
		msgs = append(msgs, &MessageQueueMessage{
			Message:       m.Body,
			MessageId:     m.MessageId,
			ReceiptHandle: m.ReceiptHandle,
		})
	}
	return msgs, nil
}

func (r *SQSMessageQueueReader) DeleteMessage(msg *MessageQueueMessage) error {
	if msg == nil || msg.ReceiptHandle == nil {
		return errors.New("message has no receipt handle")
	}
	_, err := r.client.DeleteMessage(&sqs.DeleteMessageInput{
		QueueUrl:      &r.queueURL,
		ReceiptHandle: msg.ReceiptHandle,
	})
	return errors.Wrap(err, "fail to delete message")
}

var _ MessageQueueReader = (*SQSMessageQueueReader)(nil)

// SQSMessageQueueWriter durably enqueues fan-out jobs. The request that
// created the content only needs this send to succeed before responding.
type SQSMessageQueueWriter struct {
	client   *sqs.SQS
	queueURL string
}

func NewSQSMessageQueueWriter(queueName string) (*SQSMessageQueueWriter, error) {
	sess, err := session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, errors.Wrap(err, "fail to create AWS session")
	}

	client := sqs.New(sess)
	urlResult, err := client.GetQueueUrl(&sqs.GetQueueUrlInput{
		QueueName: &queueName,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fail to get queue url for %s", queueName)
	}

	return &SQSMessageQueueWriter{
		client:   client,
		queueURL: *urlResult.QueueUrl,
	}, nil
}

func (w *SQSMessageQueueWriter) Enqueue(topic string, payload interface{}) error {
	bytes, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "fail to marshal job payload")
	}
	body := string(bytes)
	_, err = w.client.SendMessage(&sqs.SendMessageInput{
		QueueUrl:    &w.queueURL,
		MessageBody: &body,
		MessageAttributes: map[string]*sqs.MessageAttributeValue{
			"topic": {
				DataType:    aws.String("String"),
				StringValue: aws.String(topic),
			},
		},
	})
	return errors.Wrapf(err, "fail to send message to %s", topic)
}

var _ Enqueuer = (*SQSMessageQueueWriter)(nil)
