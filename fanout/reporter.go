package fanout

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/DataDog/datadog-go/statsd"

	"github.com/hoshi-social/feedstream/queue"
	"github.com/hoshi-social/feedstream/utils"
	Logger "github.com/hoshi-social/feedstream/utils/log"
)

const (
	// DdogFanoutResultCounter counts destination writes, tagged by feed
	// group, mode and result state.
	DdogFanoutResultCounter = "feedstream.fanout.result"
)

// Reporter listens to fan-out outcomes on the event bus and aggregates
// them into Datadog counters for monitoring purpose.
type Reporter struct {
	Statsd *statsd.Client

	Bus *queue.JobBus
}

func NewReporter(statsdClient *statsd.Client, bus *queue.JobBus) *Reporter {
	return &Reporter{
		Statsd: statsdClient,
		Bus:    bus,
	}
}

// ReportResult increments the destination-write counter, tagged with
// enough dimensions for the backend to slice it.
func (r *Reporter) ReportResult(result FanoutResult) {
	err := r.Statsd.Incr(DdogFanoutResultCounter,
		[]string{
			result.FeedGroup,
			result.Mode,
			result.State,
		}, 1)
	if err != nil {
		Logger.LogV2.Info("cannot report fanout result state")
	}
}

func (r *Reporter) ProcessFanoutResults(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	messages, err := r.Bus.Subscribe(ctx, queue.TopicFanoutResult)
	if err != nil {
		return err
	}

	for msg := range messages {
		msg.Ack()

		var result FanoutResult
		if err := json.Unmarshal(msg.Payload, &result); err != nil {
			Logger.LogV2.Error(fmt.Sprintf("reporter received undecodable result: %v", err))
			continue
		}

		// Export metrics to Datadog only if we're in prod environment, so that
		// local testing won't pollute the Datadog dashboard.
		if !utils.IsProdEnv() {
			continue
		}
		r.ReportResult(result)
	}

	return nil
}
