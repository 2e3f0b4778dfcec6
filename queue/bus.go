package queue

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
)

// Topics carried on the in-process job bus.
const (
	// TopicFanout carries PostEvent payloads awaiting fan-out.
	TopicFanout = "feed.fanout"
	// TopicGroupUnread carries the lightweight group-unread side job,
	// dispatched out of band from primary fan-out.
	TopicGroupUnread = "group.unread_fanout"
	// TopicTrendingVote carries trending votes emitted when a post
	// references a media entity. Consumed by the media popularity system,
	// outside this repository.
	TopicTrendingVote = "media.trending_vote"
	// TopicFanoutResult carries per-event fan-out outcomes for the metrics
	// reporter.
	TopicFanoutResult = "feed.fanout_result"
)

// GroupUnreadJob asks the unread worker to bump counters for every member
// of a group except the posting author.
type GroupUnreadJob struct {
	GroupID  string `json:"group_id"`
	AuthorID string `json:"author_id"`
}

// TrendingVoteJob signals a popularity vote for a media entity.
type TrendingVoteJob struct {
	MediaKind string  `json:"media_kind"`
	MediaID   string  `json:"media_id"`
	UserID    string  `json:"user_id"`
	Weight    float64 `json:"weight"`
}

// Enqueuer is the fire-and-forget contract the fan-out engine holds against
// the async job infrastructure. Delivery is at-least-once; consumers must
// be idempotent.
type Enqueuer interface {
	Enqueue(topic string, payload interface{}) error
}

// JobBus is a watermill gochannel pub/sub shared by the API server and the
// workers running in the same process. Prod deployments put SQS in front of
// the fan-out worker instead; the bus still carries side jobs and metrics.
type JobBus struct {
	channel *gochannel.GoChannel
}

func NewJobBus() *JobBus {
	return &JobBus{
		channel: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 256,
		}, watermill.NopLogger{}),
	}
}

func (b *JobBus) Enqueue(topic string, payload interface{}) error {
	bytes, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "fail to marshal job payload")
	}
	msg := message.NewMessage(watermill.NewUUID(), bytes)
	return errors.Wrapf(b.channel.Publish(topic, msg), "fail to publish to %s", topic)
}

func (b *JobBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.channel.Subscribe(ctx, topic)
}

func (b *JobBus) Close() error {
	return b.channel.Close()
}

var _ Enqueuer = (*JobBus)(nil)

// TopicRouter sends the durable fan-out topic to the durable queue and
// keeps the lightweight side jobs on the in-process bus. With no durable
// queue configured everything stays on the bus.
type TopicRouter struct {
	Durable Enqueuer
	Bus     Enqueuer
}

func (r *TopicRouter) Enqueue(topic string, payload interface{}) error {
	if topic == TopicFanout && r.Durable != nil {
		return r.Durable.Enqueue(topic, payload)
	}
	return r.Bus.Enqueue(topic, payload)
}

var _ Enqueuer = (*TopicRouter)(nil)
