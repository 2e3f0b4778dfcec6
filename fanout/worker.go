package fanout

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/hoshi-social/feedstream/model"
	"github.com/hoshi-social/feedstream/queue"
	"github.com/hoshi-social/feedstream/store"
	Logger "github.com/hoshi-social/feedstream/utils/log"
)

const (
	maxWriteAttempts         = 3
	writeMaxBackOffSeconds   = 2.0
	writeInitialBackOff      = 0.1
	trendingVoteWeight       = 2.0
	fanoutResultStateSuccess = "success"
	fanoutResultStateFailure = "failure"
)

// FanoutResult is one destination write outcome, published for the
// metrics reporter.
type FanoutResult struct {
	SourceID  string `json:"source_id"`
	FeedKey   string `json:"feed_key"`
	FeedGroup string `json:"feed_group"`
	Mode      string `json:"mode"`
	State     string `json:"state"`
}

// PartialFanoutError reports destination feeds that failed after retries
// were exhausted. Successful destination writes are never rolled back.
type PartialFanoutError struct {
	SourceID    string
	FailedFeeds []string
}

func (e *PartialFanoutError) Error() string {
	return fmt.Sprintf("fanout for source %s failed for feeds %v", e.SourceID, e.FailedFeeds)
}

// Worker executes the write side of fan-out. Destination writes run
// concurrently and independently: one feed failing never aborts the
// others, and every write is idempotent so the whole event is safe to
// re-run on redelivery.
type Worker struct {
	db       *gorm.DB
	store    *store.ActivityStore
	unread   *store.UnreadStore
	jobs     queue.Enqueuer
	resolver Resolver
}

func NewWorker(db *gorm.DB, activityStore *store.ActivityStore, unreadStore *store.UnreadStore, jobs queue.Enqueuer) *Worker {
	return &Worker{
		db:     db,
		store:  activityStore,
		unread: unreadStore,
		jobs:   jobs,
	}
}

// ProcessEvent fans one content event out to every destination feed.
func (w *Worker) ProcessEvent(ctx context.Context, ev model.PostEvent) error {
	w.forceContentFlags(ctx, &ev)

	targets := w.resolver.Resolve(ev)
	act, err := NewActivity(ev)
	if err != nil {
		return err
	}

	// Side jobs belong to the first delivery of a source only. Counter
	// updates and redelivered events reuse the activity row, so the
	// primary destination already holding the source means no new vote
	// or unread bump. Checked before the writes below land.
	firstDelivery, seenErr := w.isFirstDelivery(ev)
	if seenErr != nil {
		Logger.LogV2.Error(fmt.Sprintf("fail to check prior delivery of source %s, skipping side jobs: %v", ev.SourceID, seenErr))
	}

	var wg sync.WaitGroup
	var failed sync.Map
	for idx := range targets {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			target := targets[i]
			err := w.writeTarget(target, act)
			w.reportResult(ev, target, err)
			if err != nil {
				Logger.LogV2.Error(fmt.Sprintf("fanout write failed for source %s feed %s: %v", ev.SourceID, target.Feed.Key(), err))
				failed.Store(target.Feed.Key(), err)
			}
		}(idx)
	}
	wg.Wait()

	if firstDelivery {
		w.dispatchSideJobs(ev)
	}

	failedFeeds := []string{}
	failed.Range(func(key, _ interface{}) bool {
		failedFeeds = append(failedFeeds, key.(string))
		return true
	})
	if len(failedFeeds) > 0 {
		sort.Strings(failedFeeds)
		return &PartialFanoutError{SourceID: ev.SourceID, FailedFeeds: failedFeeds}
	}
	return nil
}

// writeTarget writes the activity into one destination feed and, for full
// fan-out, into the feed's aggregated twin.
func (w *Worker) writeTarget(target model.Target, act model.Activity) error {
	if err := w.writeWithRetry(target.Feed, act); err != nil {
		return err
	}
	if target.Mode != model.FullFanout {
		return nil
	}
	twin, ok := target.Feed.Aggregated()
	if !ok {
		return nil
	}
	return w.writeWithRetry(twin, act)
}

func (w *Worker) writeWithRetry(feed model.FeedRef, act model.Activity) error {
	backOff := 0.0
	var err error
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		time.Sleep(time.Duration(backOff * float64(time.Second)))
		if _, err = w.store.AppendOrUpdate(feed, act); err == nil {
			return nil
		}
		if errors.Is(err, store.ErrInvalidFeedKind) {
			// Malformed destination, retrying can't help.
			return err
		}
		backOff = getNewBackOff(backOff)
	}
	return errors.Wrapf(err, "retries exhausted for feed %s", feed.Key())
}

func getNewBackOff(backOff float64) float64 {
	if backOff == 0.0 {
		return writeInitialBackOff
	} else if backOff*2 < writeMaxBackOffSeconds {
		return 2 * backOff
	}
	return writeMaxBackOffSeconds
}

// forceContentFlags forces the nsfw flag on when the referenced media or
// target group is adult-only, matching the content model's own rule.
func (w *Worker) forceContentFlags(ctx context.Context, ev *model.PostEvent) {
	if ev.Nsfw {
		return
	}
	if ev.Media != nil {
		var media model.Media
		if err := w.db.WithContext(ctx).
			Where("kind = ? AND id = ?", ev.Media.Kind, ev.Media.ID).
			First(&media).Error; err == nil && media.Nsfw {
			ev.Nsfw = true
			return
		}
	}
	if ev.TargetGroupID != "" {
		var group model.Group
		if err := w.db.WithContext(ctx).
			Where("id = ?", ev.TargetGroupID).
			First(&group).Error; err == nil && group.Nsfw {
			ev.Nsfw = true
		}
	}
}

// isFirstDelivery checks whether the event's source has already reached
// its primary destination feed. The check is a read against the same row
// the fan-out is about to upsert, so a redelivered or counter-update event
// comes back as already delivered.
func (w *Worker) isFirstDelivery(ev model.PostEvent) (bool, error) {
	seen, err := w.store.HasActivity(targetFeed(ev).Feed, ev.SourceID)
	if err != nil {
		return false, err
	}
	return !seen, nil
}

// dispatchSideJobs emits the out-of-band side effects of a content event,
// only ever on the first delivery of a source. Both are fire-and-forget:
// their failure or delay never affects primary fan-out.
func (w *Worker) dispatchSideJobs(ev model.PostEvent) {
	if ev.Media != nil {
		err := w.jobs.Enqueue(queue.TopicTrendingVote, queue.TrendingVoteJob{
			MediaKind: string(ev.Media.Kind),
			MediaID:   ev.Media.ID,
			UserID:    ev.AuthorID,
			Weight:    trendingVoteWeight,
		})
		if err != nil {
			Logger.LogV2.Error(fmt.Sprintf("fail to enqueue trending vote for source %s: %v", ev.SourceID, err))
		}
	}
	if ev.TargetGroupID != "" {
		err := w.jobs.Enqueue(queue.TopicGroupUnread, queue.GroupUnreadJob{
			GroupID:  ev.TargetGroupID,
			AuthorID: ev.AuthorID,
		})
		if err != nil {
			Logger.LogV2.Error(fmt.Sprintf("fail to enqueue group unread fanout for group %s: %v", ev.TargetGroupID, err))
		}
	}
}

func (w *Worker) reportResult(ev model.PostEvent, target model.Target, writeErr error) {
	state := fanoutResultStateSuccess
	if writeErr != nil {
		state = fanoutResultStateFailure
	}
	err := w.jobs.Enqueue(queue.TopicFanoutResult, FanoutResult{
		SourceID:  ev.SourceID,
		FeedKey:   target.Feed.Key(),
		FeedGroup: string(target.Feed.Group),
		Mode:      target.Mode.String(),
		State:     state,
	})
	if err != nil {
		Logger.LogV2.Debugf("fail to publish fanout result", err)
	}
}

// ProcessGroupUnread bumps the unread counter of every group member except
// the posting author.
func (w *Worker) ProcessGroupUnread(ctx context.Context, job queue.GroupUnreadJob) error {
	var memberIds []string
	err := w.db.WithContext(ctx).Model(&model.GroupMember{}).
		Where("group_id = ? AND user_id <> ?", job.GroupID, job.AuthorID).
		Pluck("user_id", &memberIds).Error
	if err != nil {
		return errors.Wrapf(err, "fail to load members of group %s", job.GroupID)
	}
	return w.unread.IncrGroupUnread(ctx, job.GroupID, memberIds)
}
