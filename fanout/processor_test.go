package fanout

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoshi-social/feedstream/model"
	"github.com/hoshi-social/feedstream/queue"
	"github.com/hoshi-social/feedstream/utils/dotenv"
)

func TestMain(m *testing.M) {
	dotenv.LoadDotEnvsInTests()
	os.Exit(m.Run())
}

type TestMessageQueueReader struct {
	msgs    []*queue.MessageQueueMessage
	deleted []*queue.MessageQueueMessage
}

func (reader *TestMessageQueueReader) DeleteMessage(msg *queue.MessageQueueMessage) error {
	reader.deleted = append(reader.deleted, msg)
	return nil
}

// Always return all messages
func (reader *TestMessageQueueReader) ReceiveMessages(maxNumberOfMessages int64) ([]*queue.MessageQueueMessage, error) {
	return reader.msgs, nil
}

// Pass in all the content events that will be used for testing. Reader
// will return queue message objects wrapping them.
func NewTestMessageQueueReader(events []model.PostEvent) *TestMessageQueueReader {
	var res TestMessageQueueReader
	for _, ev := range events {
		bytes, _ := json.Marshal(ev)
		body := string(bytes)
		res.msgs = append(res.msgs, &queue.MessageQueueMessage{Message: &body})
	}
	return &res
}

func TestDecodeFanoutMessage(t *testing.T) {
	reader := NewTestMessageQueueReader([]model.PostEvent{
		{SourceID: "42", AuthorID: "1", TargetUserID: "2"},
	})
	processor := NewProcessor(reader, nil)

	ev, err := processor.DecodeFanoutMessage(reader.msgs[0])
	require.NoError(t, err)
	assert.Equal(t, "42", ev.SourceID)
	assert.Equal(t, "1", ev.AuthorID)
	assert.Equal(t, "2", ev.TargetUserID)
}

func TestDecodeFanoutMessageRejectsIncomplete(t *testing.T) {
	body := `{"source_id": "42"}`
	processor := NewProcessor(&TestMessageQueueReader{}, nil)

	_, err := processor.DecodeFanoutMessage(&queue.MessageQueueMessage{Message: &body})
	assert.Error(t, err)
}

func TestProcessOneMessageDropsPoison(t *testing.T) {
	body := "not json"
	reader := &TestMessageQueueReader{}
	msg := &queue.MessageQueueMessage{Message: &body}
	processor := NewProcessor(reader, nil)

	require.NoError(t, processor.ProcessOneMessage(context.Background(), msg))
	require.Len(t, reader.deleted, 1, "poison messages must be consumed, not redelivered forever")
}

func TestGetNewBackOff(t *testing.T) {
	backOff := getNewBackOff(0.0)
	assert.Equal(t, writeInitialBackOff, backOff)

	backOff = getNewBackOff(backOff)
	assert.Equal(t, 2*writeInitialBackOff, backOff)

	assert.Equal(t, writeMaxBackOffSeconds, getNewBackOff(writeMaxBackOffSeconds))
}
