package query

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hoshi-social/feedstream/model"
	"github.com/hoshi-social/feedstream/utils"
	"github.com/hoshi-social/feedstream/utils/dotenv"
	"github.com/hoshi-social/feedstream/visibility"
)

func TestMain(m *testing.M) {
	dotenv.LoadDotEnvsInTests()
	os.Exit(m.Run())
}

// Paths below never reach the database, a nil connection keeps them honest.
func pureService() *FeedQueryService {
	return NewFeedQueryService(nil, nil)
}

func TestResolveGlobalAlwaysVisible(t *testing.T) {
	refs, err := pureService().ResolveFeed(context.Background(), "global", "anything", nil)
	require.NoError(t, err)
	assert.Equal(t, []model.FeedRef{model.GlobalFeed()}, refs)
}

func TestResolveUnknownGroupFailsClosed(t *testing.T) {
	_, err := pureService().ResolveFeed(context.Background(), "bogus", "1", nil)
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestResolveNotificationsOnlyForSelf(t *testing.T) {
	svc := pureService()
	ctx := context.Background()

	_, err := svc.ResolveFeed(ctx, "notifications", "42", nil)
	assert.ErrorIs(t, err, ErrAccessDenied, "anonymous caller is denied")

	_, err = svc.ResolveFeed(ctx, "notifications", "42", &model.User{Id: "7"})
	assert.ErrorIs(t, err, ErrAccessDenied, "other users are denied")

	refs, err := svc.ResolveFeed(ctx, "notifications", "42", &model.User{Id: "42"})
	require.NoError(t, err)
	assert.Equal(t, []model.FeedRef{model.NotificationsFeed("42")}, refs)
}

func TestResolveTimelineOnlyForSelf(t *testing.T) {
	svc := pureService()

	_, err := svc.ResolveFeed(context.Background(), "timeline", "42", &model.User{Id: "7"})
	assert.ErrorIs(t, err, ErrAccessDenied)

	refs, err := svc.ResolveFeed(context.Background(), "timeline", "42", &model.User{Id: "42"})
	require.NoError(t, err)
	assert.Equal(t, []model.FeedRef{model.TimelineFeed("42")}, refs)
}

func TestResolveMalformedMediaIdFailsClosed(t *testing.T) {
	svc := pureService()

	for _, bad := range []string{"Movie-1", "Anime", ""} {
		_, err := svc.ResolveFeed(context.Background(), "media", bad, nil)
		assert.ErrorIsf(t, err, ErrAccessDenied, "media id %q must be denied", bad)
	}
}

func dbService(t *testing.T) (*FeedQueryService, *gorm.DB) {
	db, err := utils.GetTestDBConnection()
	if err != nil {
		t.Skip("test database not configured: " + err.Error())
	}
	require.NoError(t, utils.DatabaseSetup(db))
	return NewFeedQueryService(db, visibility.NewPolicy(db)), db
}

func TestResolveMissingUserFailsClosed(t *testing.T) {
	svc, _ := dbService(t)

	_, err := svc.ResolveFeed(context.Background(), "user", uuid.New().String(), nil)
	assert.ErrorIs(t, err, ErrAccessDenied, "missing entity must not leak as a distinct error")
}

func TestResolveUserAndAggregatedTwin(t *testing.T) {
	svc, db := dbService(t)

	userID := uuid.New().String()
	require.NoError(t, db.Create(&model.User{Id: userID, Name: "n"}).Error)

	refs, resolveErr := svc.ResolveFeed(context.Background(), "user", userID, nil)
	require.NoError(t, resolveErr)
	assert.Equal(t, []model.FeedRef{model.UserProfileFeed(userID)}, refs)

	refs, resolveErr = svc.ResolveFeed(context.Background(), "user_aggr", userID, nil)
	require.NoError(t, resolveErr)
	assert.Equal(t, []model.FeedRef{model.UserAggrFeed(userID), model.UserProfileFeed(userID)}, refs)
}

func TestResolveNsfwMediaHiddenFromFilteredCaller(t *testing.T) {
	svc, db := dbService(t)

	mediaID := uuid.New().String()
	require.NoError(t, db.Create(&model.Media{Kind: model.MediaKindAnime, Id: mediaID, Title: "t", Nsfw: true}).Error)

	composite := "Anime-" + mediaID
	_, err := svc.ResolveFeed(context.Background(), "media", composite, nil)
	assert.ErrorIs(t, err, ErrAccessDenied, "anonymous callers never see nsfw media")

	filtered := &model.User{Id: uuid.New().String(), SfwFilter: true}
	_, err = svc.ResolveFeed(context.Background(), "media", composite, filtered)
	assert.ErrorIs(t, err, ErrAccessDenied)

	unfiltered := &model.User{Id: uuid.New().String()}
	refs, err := svc.ResolveFeed(context.Background(), "media", composite, unfiltered)
	require.NoError(t, err)
	assert.Len(t, refs, 1)
}
