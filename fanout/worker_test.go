package fanout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hoshi-social/feedstream/model"
	"github.com/hoshi-social/feedstream/queue"
	"github.com/hoshi-social/feedstream/store"
	"github.com/hoshi-social/feedstream/utils"
)

func testDB(t *testing.T) *gorm.DB {
	db, err := utils.GetTestDBConnection()
	if err != nil {
		t.Skip("test database not configured: " + err.Error())
	}
	require.NoError(t, utils.DatabaseSetup(db))
	return db
}

func testWorker(t *testing.T, db *gorm.DB) (*Worker, *store.ActivityStore) {
	activityStore := store.NewActivityStore(db)
	bus := queue.NewJobBus()
	t.Cleanup(func() { bus.Close() })
	return NewWorker(db, activityStore, nil, bus), activityStore
}

func TestProcessEventIdempotent(t *testing.T) {
	db := testDB(t)
	worker, activityStore := testWorker(t, db)

	author := uuid.New().String()
	target := uuid.New().String()
	mentioned := uuid.New().String()
	ev := model.PostEvent{
		SourceID:         uuid.New().String(),
		AuthorID:         author,
		TargetUserID:     target,
		MentionedUserIDs: []string{target, mentioned},
		LikesCount:       1,
		UpdatedAt:        time.Now(),
	}

	require.NoError(t, worker.ProcessEvent(context.Background(), ev))

	// Re-delivery with fresher counters must update in place, not duplicate.
	ev.LikesCount = 10
	ev.UpdatedAt = ev.UpdatedAt.Add(time.Minute)
	require.NoError(t, worker.ProcessEvent(context.Background(), ev))

	destinations := []model.FeedRef{
		model.NotificationsFeed(target),
		model.NotificationsFeed(mentioned),
		model.UserProfileFeed(target),
		model.TimelineFeed(author),
		model.TimelineFeed(target),
	}
	for _, feed := range destinations {
		activities, err := activityStore.List([]model.FeedRef{feed}, 0, 10)
		require.NoError(t, err)
		require.Lenf(t, activities, 1, "feed %s should hold exactly one activity", feed.Key())
		assert.Equal(t, 10, activities[0].LikesCount)
	}
}

func TestProcessEventDirectedPostSkipsAggregatedTwin(t *testing.T) {
	db := testDB(t)
	worker, activityStore := testWorker(t, db)

	target := uuid.New().String()
	ev := model.PostEvent{
		SourceID:     uuid.New().String(),
		AuthorID:     uuid.New().String(),
		TargetUserID: target,
		UpdatedAt:    time.Now(),
	}
	require.NoError(t, worker.ProcessEvent(context.Background(), ev))

	onProfile, err := activityStore.List([]model.FeedRef{model.UserProfileFeed(target)}, 0, 10)
	require.NoError(t, err)
	assert.Len(t, onProfile, 1)

	onAggr, err := activityStore.List([]model.FeedRef{model.UserAggrFeed(target)}, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, onAggr, "a directed post must not fan out past the profile feed")
}

func TestProcessEventFullFanoutWritesAggregatedTwin(t *testing.T) {
	db := testDB(t)
	worker, activityStore := testWorker(t, db)

	author := uuid.New().String()
	ev := model.PostEvent{
		SourceID:  uuid.New().String(),
		AuthorID:  author,
		UpdatedAt: time.Now(),
	}
	require.NoError(t, worker.ProcessEvent(context.Background(), ev))

	for _, feed := range []model.FeedRef{model.UserProfileFeed(author), model.UserAggrFeed(author)} {
		activities, err := activityStore.List([]model.FeedRef{feed}, 0, 10)
		require.NoError(t, err)
		assert.Lenf(t, activities, 1, "feed %s missing the fanned out activity", feed.Key())
	}
}

func TestProcessEventForcesNsfwFromMedia(t *testing.T) {
	db := testDB(t)
	worker, activityStore := testWorker(t, db)

	mediaID := uuid.New().String()
	require.NoError(t, db.Create(&model.Media{Kind: model.MediaKindAnime, Id: mediaID, Title: "t", Nsfw: true}).Error)

	ev := model.PostEvent{
		SourceID:  uuid.New().String(),
		AuthorID:  uuid.New().String(),
		Media:     &model.MediaRef{Kind: model.MediaKindAnime, ID: mediaID},
		UpdatedAt: time.Now(),
	}
	require.NoError(t, worker.ProcessEvent(context.Background(), ev))

	mediaFeed := model.MediaFeed(*ev.Media)
	activities, err := activityStore.List([]model.FeedRef{mediaFeed}, 0, 10)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.True(t, activities[0].Nsfw)
}

// recordingEnqueuer counts enqueued jobs per topic. Enqueue is hit from
// the concurrent destination writers, so it locks.
type recordingEnqueuer struct {
	mu     sync.Mutex
	topics map[string]int
}

func (r *recordingEnqueuer) Enqueue(topic string, payload interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.topics == nil {
		r.topics = map[string]int{}
	}
	r.topics[topic]++
	return nil
}

func (r *recordingEnqueuer) count(topic string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.topics[topic]
}

func TestSideJobsFireOnlyOnFirstDelivery(t *testing.T) {
	db := testDB(t)
	jobs := &recordingEnqueuer{}
	worker := NewWorker(db, store.NewActivityStore(db), nil, jobs)

	mediaID := uuid.New().String()
	require.NoError(t, db.Create(&model.Media{Kind: model.MediaKindManga, Id: mediaID, Title: "t"}).Error)

	ev := model.PostEvent{
		SourceID:      uuid.New().String(),
		AuthorID:      uuid.New().String(),
		TargetGroupID: uuid.New().String(),
		Media:         &model.MediaRef{Kind: model.MediaKindManga, ID: mediaID},
		UpdatedAt:     time.Now(),
	}
	require.NoError(t, worker.ProcessEvent(context.Background(), ev))

	// A counter update and a plain redelivery reuse the activity rows, so
	// neither may vote trending or bump unread counters again.
	ev.LikesCount = 3
	ev.UpdatedAt = ev.UpdatedAt.Add(time.Minute)
	require.NoError(t, worker.ProcessEvent(context.Background(), ev))
	require.NoError(t, worker.ProcessEvent(context.Background(), ev))

	assert.Equal(t, 1, jobs.count(queue.TopicTrendingVote), "trending vote must fire once per source")
	assert.Equal(t, 1, jobs.count(queue.TopicGroupUnread), "group unread fanout must fire once per source")
}

func TestPartialFanoutErrorReportsFailedFeeds(t *testing.T) {
	err := &PartialFanoutError{SourceID: "42", FailedFeeds: []string{"user:1", "user:2"}}
	assert.Contains(t, err.Error(), "42")
	assert.Contains(t, err.Error(), "user:1")
}
