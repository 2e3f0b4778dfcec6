package store

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

// UnreadStore keeps the lightweight per-member unread counters the
// group-unread fan-out job maintains. Counters live in Redis because this
// path runs on every group post and must stay off the activity write path.
type UnreadStore struct {
	client *redis.Client
}

func NewUnreadStore(client *redis.Client) *UnreadStore {
	return &UnreadStore{client: client}
}

func groupUnreadKey(groupID, userID string) string {
	return fmt.Sprintf("unread:group:%s:user:%s", groupID, userID)
}

// IncrGroupUnread bumps the unread counter of every listed member of a
// group by one, in a single pipeline round trip.
func (s *UnreadStore) IncrGroupUnread(ctx context.Context, groupID string, memberIds []string) error {
	if len(memberIds) == 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	for _, userID := range memberIds {
		pipe.Incr(ctx, groupUnreadKey(groupID, userID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "fail to increment group unread counters")
	}
	return nil
}

// GroupUnreadCount returns one member's unread counter, zero when the key
// was never written.
func (s *UnreadStore) GroupUnreadCount(ctx context.Context, groupID, userID string) (int64, error) {
	count, err := s.client.Get(ctx, groupUnreadKey(groupID, userID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "fail to read group unread counter")
	}
	return count, nil
}

// ResetGroupUnread clears one member's unread counter, typically when they
// open the group.
func (s *UnreadStore) ResetGroupUnread(ctx context.Context, groupID, userID string) error {
	if err := s.client.Del(ctx, groupUnreadKey(groupID, userID)).Err(); err != nil {
		return errors.Wrap(err, "fail to reset group unread counter")
	}
	return nil
}
