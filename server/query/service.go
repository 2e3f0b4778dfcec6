package query

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/hoshi-social/feedstream/model"
	"github.com/hoshi-social/feedstream/visibility"
)

// ErrAccessDenied covers every reason a feed can't be read: policy denial,
// missing entity, malformed or unrecognized feed address. Callers must not
// be able to tell those apart.
var ErrAccessDenied = errors.New("not allowed to access that feed")

// FeedQueryService resolves a (group, id) feed address into the concrete
// feed refs to read, enforcing the per-group visibility rules. Anything
// it does not positively recognize and authorize is denied.
type FeedQueryService struct {
	db   *gorm.DB
	gate visibility.Gate
}

func NewFeedQueryService(db *gorm.DB, gate visibility.Gate) *FeedQueryService {
	return &FeedQueryService{db: db, gate: gate}
}

// ResolveFeed returns the feed refs backing one addressable feed. The
// aggregated groups resolve to the twin plus the concrete feed, merged
// lazily at read time. A nil caller is anonymous.
func (s *FeedQueryService) ResolveFeed(ctx context.Context, group, id string, caller *model.User) ([]model.FeedRef, error) {
	switch model.FeedGroup(group) {
	case model.FeedGroupMedia, model.FeedGroupMediaAggr:
		ref, ok := model.ParseMediaRef(id)
		if !ok {
			return nil, ErrAccessDenied
		}
		var media model.Media
		if err := s.db.WithContext(ctx).
			Where("kind = ? AND id = ?", ref.Kind, ref.ID).
			First(&media).Error; err != nil {
			return nil, ErrAccessDenied
		}
		if !s.gate.Authorize(ctx, caller, &media) {
			return nil, ErrAccessDenied
		}
		if model.FeedGroup(group) == model.FeedGroupMediaAggr {
			return []model.FeedRef{model.MediaAggrFeed(ref), model.MediaFeed(ref)}, nil
		}
		return []model.FeedRef{model.MediaFeed(ref)}, nil

	case model.FeedGroupUser, model.FeedGroupUserAggr:
		var user model.User
		if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
			return nil, ErrAccessDenied
		}
		if !s.gate.Authorize(ctx, caller, &user) {
			return nil, ErrAccessDenied
		}
		if model.FeedGroup(group) == model.FeedGroupUserAggr {
			return []model.FeedRef{model.UserAggrFeed(id), model.UserProfileFeed(id)}, nil
		}
		return []model.FeedRef{model.UserProfileFeed(id)}, nil

	case model.FeedGroupNotifications, model.FeedGroupTimeline:
		// Only visible to the identified user themself.
		if caller == nil || caller.Id != id {
			return nil, ErrAccessDenied
		}
		if model.FeedGroup(group) == model.FeedGroupNotifications {
			return []model.FeedRef{model.NotificationsFeed(id)}, nil
		}
		return []model.FeedRef{model.TimelineFeed(id)}, nil

	case model.FeedGroupGlobal:
		return []model.FeedRef{model.GlobalFeed()}, nil
	}

	// Unrecognized group is a fail-closed default, not an error.
	return nil, ErrAccessDenied
}
