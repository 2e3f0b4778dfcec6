package fanout

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hoshi-social/feedstream/model"
	"github.com/hoshi-social/feedstream/queue"
	Logger "github.com/hoshi-social/feedstream/utils/log"
)

// RunFanoutConsumer processes content events published on the in-process
// bus. Dev deployments use this instead of the durable SQS queue.
func RunFanoutConsumer(ctx context.Context, bus *queue.JobBus, worker *Worker) error {
	messages, err := bus.Subscribe(ctx, queue.TopicFanout)
	if err != nil {
		return err
	}

	for msg := range messages {
		msg.Ack()

		var ev model.PostEvent
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			Logger.LogV2.Error(fmt.Sprintf("dropping undecodable fanout event: %v", err))
			continue
		}
		if err := worker.ProcessEvent(ctx, ev); err != nil {
			Logger.LogV2.Error(fmt.Sprintf("fanout failed for source %s: %v", ev.SourceID, err))
		}
	}
	return nil
}

// RunGroupUnreadConsumer processes the group-unread side jobs. Failures
// here only cost a counter bump, never primary fan-out.
func RunGroupUnreadConsumer(ctx context.Context, bus *queue.JobBus, worker *Worker) error {
	messages, err := bus.Subscribe(ctx, queue.TopicGroupUnread)
	if err != nil {
		return err
	}

	for msg := range messages {
		msg.Ack()

		var job queue.GroupUnreadJob
		if err := json.Unmarshal(msg.Payload, &job); err != nil {
			Logger.LogV2.Error(fmt.Sprintf("dropping undecodable group unread job: %v", err))
			continue
		}
		if err := worker.ProcessGroupUnread(ctx, job); err != nil {
			Logger.LogV2.Error(fmt.Sprintf("group unread fanout failed for group %s: %v", job.GroupID, err))
		}
	}
	return nil
}
