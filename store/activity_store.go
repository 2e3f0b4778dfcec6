package store

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hoshi-social/feedstream/model"
)

const (
	defaultListLimit = 20
	maxListLimit     = 300
)

var (
	// ErrInvalidFeedKind is returned on writes or reads addressing a feed
	// group outside the known set.
	ErrInvalidFeedKind = errors.New("invalid feed kind")
)

// StateFlag names a per-activity boolean the client may set. Flags only
// ever transition false -> true.
type StateFlag string

const (
	FlagRead StateFlag = "read"
	FlagSeen StateFlag = "seen"
)

func (f StateFlag) column() (string, error) {
	switch f {
	case FlagRead:
		return "read", nil
	case FlagSeen:
		return "seen", nil
	}
	return "", errors.Errorf("unknown activity state flag %q", string(f))
}

// ActivityStore is the durable per-feed activity storage. Feeds are never
// materialized as rows; a feed exists as soon as its key appears on an
// activity.
type ActivityStore struct {
	db *gorm.DB
}

func NewActivityStore(db *gorm.DB) *ActivityStore {
	return &ActivityStore{db: db}
}

// AppendOrUpdate writes one activity into a feed, idempotent on
// (feed, source). A second write for the same source updates the
// denormalized fields in place, keeps the existing cursor and read/seen
// state, and only applies when its updated_at is not older than the stored
// one, so concurrent retries converge on the last writer.
func (s *ActivityStore) AppendOrUpdate(feed model.FeedRef, act model.Activity) (*model.Activity, error) {
	if !feed.Group.IsValid() {
		return nil, ErrInvalidFeedKind
	}
	act.FeedID = feed.Key()
	act.Cursor = 0
	act.Read = false
	act.Seen = false
	if act.UpdatedAt.IsZero() {
		act.UpdatedAt = time.Now()
	}

	result := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "feed_id"}, {Name: "source_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"likes_count", "comments_count", "nsfw", "mentioned_user_ids", "updated_at",
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Lte{Column: clause.Column{Table: "activities", Name: "updated_at"}, Value: act.UpdatedAt},
		}},
	}).Create(&act)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "fail to upsert activity")
	}

	var stored model.Activity
	if err := s.db.Where("feed_id = ? AND source_id = ?", act.FeedID, act.SourceID).
		First(&stored).Error; err != nil {
		return nil, errors.Wrap(err, "fail to read back upserted activity")
	}
	return &stored, nil
}

// HasActivity reports whether the source has already landed in the feed.
func (s *ActivityStore) HasActivity(feed model.FeedRef, sourceID string) (bool, error) {
	if !feed.Group.IsValid() {
		return false, ErrInvalidFeedKind
	}
	var count int64
	err := s.db.Model(&model.Activity{}).
		Where("feed_id = ? AND source_id = ?", feed.Key(), sourceID).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "fail to check for existing activity")
	}
	return count > 0, nil
}

// Mark sets the given flag on the named activities within the given feeds
// (a single concrete feed, or a feed plus its aggregated twin). Activity
// ids not present in those feeds are silently skipped. The updated set of
// activities is returned for the caller to re-serialize.
func (s *ActivityStore) Mark(refs []model.FeedRef, flag StateFlag, activityIds []int64) ([]*model.Activity, error) {
	keys := make([]string, 0, len(refs))
	for _, ref := range refs {
		if !ref.Group.IsValid() {
			return nil, ErrInvalidFeedKind
		}
		keys = append(keys, ref.Key())
	}
	col, err := flag.column()
	if err != nil {
		return nil, err
	}
	if len(activityIds) == 0 || len(keys) == 0 {
		return []*model.Activity{}, nil
	}

	// Only false -> true, a re-mark is a no-op rather than a reset.
	if err := s.db.Model(&model.Activity{}).
		Where("feed_id IN ? AND cursor IN ?", keys, activityIds).
		Update(col, true).Error; err != nil {
		return nil, errors.Wrap(err, "fail to mark activities")
	}

	var updated []*model.Activity
	if err := s.db.Where("feed_id IN ? AND cursor IN ?", keys, activityIds).
		Order("cursor desc").
		Find(&updated).Error; err != nil {
		return nil, errors.Wrap(err, "fail to load marked activities")
	}
	return updated, nil
}

// List returns activities newest first, paginated by an exclusive cursor
// boundary; cursor <= 0 starts from the newest. Multiple refs are merged
// for lazily aggregated reads: the same source appearing in more than one
// of the refs is returned once, keeping its most recent delivery.
func (s *ActivityStore) List(refs []model.FeedRef, cursor int64, limit int) ([]*model.Activity, error) {
	if len(refs) == 0 {
		return []*model.Activity{}, nil
	}
	keys := make([]string, 0, len(refs))
	for _, ref := range refs {
		if !ref.Group.IsValid() {
			return nil, ErrInvalidFeedKind
		}
		keys = append(keys, ref.Key())
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var rows []*model.Activity
	if len(refs) == 1 {
		query := s.db.Where("feed_id = ?", keys[0])
		if cursor > 0 {
			query = query.Where("cursor < ?", cursor)
		}
		if err := query.Order("cursor desc").Limit(limit).Find(&rows).Error; err != nil {
			return nil, errors.Wrap(err, "fail to list activities")
		}
		return rows, nil
	}

	// The dedup must happen before the cursor bound: applying the bound
	// first would let a source's lower-cursor copy resurface on the next
	// page whenever the boundary falls between its two rows.
	merged := s.db.Model(&model.Activity{}).
		Select("DISTINCT ON (source_id) *").
		Where("feed_id IN ?", keys).
		Order("source_id, cursor desc")
	query := s.db.Table("(?) AS merged", merged)
	if cursor > 0 {
		query = query.Where("cursor < ?", cursor)
	}
	if err := query.Order("cursor desc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "fail to list merged activities")
	}
	return rows, nil
}
