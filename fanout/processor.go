package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/hoshi-social/feedstream/model"
	"github.com/hoshi-social/feedstream/queue"
	Logger "github.com/hoshi-social/feedstream/utils/log"
)

const (
	// Read batch size must be within [1, 10]
	queueReadBatchSize               = 10
	pollMaxBackOffSeconds    float64 = 2.0
	pollInitialBackOff       float64 = 0.1
)

// Processor drains fan-out jobs from the durable message queue and hands
// them to the worker. Delivery is at-least-once: a message is only deleted
// once its event has been processed, and idempotent writes make
// redelivered events harmless.
type Processor struct {
	Reader queue.MessageQueueReader
	Worker *Worker
}

func NewProcessor(reader queue.MessageQueueReader, worker *Worker) *Processor {
	return &Processor{Reader: reader, Worker: worker}
}

// DecodeFanoutMessage parses one raw queue message into a content event.
func (p *Processor) DecodeFanoutMessage(msg *queue.MessageQueueMessage) (model.PostEvent, error) {
	var ev model.PostEvent
	if msg == nil || msg.Message == nil {
		return ev, errors.New("queue message has no body")
	}
	if err := json.Unmarshal([]byte(*msg.Message), &ev); err != nil {
		return ev, errors.Wrap(err, "fail to decode fanout message")
	}
	if ev.SourceID == "" || ev.AuthorID == "" {
		return ev, errors.New("fanout message missing source or author id")
	}
	return ev, nil
}

// ProcessOneMessage runs fan-out for one queue message. Undecodable
// messages are dropped as poison; partial fan-out failure is reported but
// still consumes the message, leaving operational follow-up to metrics
// rather than endless redelivery.
func (p *Processor) ProcessOneMessage(ctx context.Context, msg *queue.MessageQueueMessage) error {
	ev, err := p.DecodeFanoutMessage(msg)
	if err != nil {
		Logger.LogV2.Error(fmt.Sprintf("dropping undecodable fanout message: %v", err))
		return p.Reader.DeleteMessage(msg)
	}

	if err := p.Worker.ProcessEvent(ctx, ev); err != nil {
		var partial *PartialFanoutError
		if errors.As(err, &partial) {
			Logger.LogV2.Error(fmt.Sprintf("partial fanout for source %s: %v", ev.SourceID, partial.FailedFeeds))
			return p.Reader.DeleteMessage(msg)
		}
		// Leave the message for redelivery.
		return err
	}
	return p.Reader.DeleteMessage(msg)
}

// Run polls the queue until the context is canceled, backing off
// protectively on read or process failure.
func (p *Processor) Run(ctx context.Context) error {
	backOff := 0.0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msgs, err := p.Reader.ReceiveMessages(queueReadBatchSize)
		if err != nil {
			Logger.LogV2.Error(fmt.Sprintf("fail to receive fanout messages: %v", err))
			backOff = getNewPollBackOff(backOff)
		} else {
			backOff = 0.0
			for _, msg := range msgs {
				if err := p.ProcessOneMessage(ctx, msg); err != nil {
					Logger.LogV2.Error(fmt.Sprintf("fail to process fanout message: %v", err))
					backOff = getNewPollBackOff(backOff)
				}
			}
		}

		time.Sleep(time.Duration(backOff * float64(time.Second)))
	}
}

func getNewPollBackOff(backOff float64) float64 {
	if backOff == 0.0 {
		return pollInitialBackOff
	} else if backOff*2 < pollMaxBackOffSeconds {
		return 2 * backOff
	}
	return pollMaxBackOffSeconds
}
