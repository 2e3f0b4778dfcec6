package model

import "fmt"

// FeedGroup tags the kind of a feed. Feeds are never created or deleted,
// they exist implicitly as addressable containers keyed by (group, id).
type FeedGroup string

const (
	FeedGroupMedia         FeedGroup = "media"
	FeedGroupMediaAggr     FeedGroup = "media_aggr"
	FeedGroupUser          FeedGroup = "user"
	FeedGroupUserAggr      FeedGroup = "user_aggr"
	FeedGroupNotifications FeedGroup = "notifications"
	FeedGroupTimeline      FeedGroup = "timeline"
	FeedGroupGlobal        FeedGroup = "global"
	FeedGroupGroup         FeedGroup = "group"
	FeedGroupInterest      FeedGroup = "interest"
	FeedGroupUnit          FeedGroup = "unit"
)

var validFeedGroups = map[FeedGroup]bool{
	FeedGroupMedia:         true,
	FeedGroupMediaAggr:     true,
	FeedGroupUser:          true,
	FeedGroupUserAggr:      true,
	FeedGroupNotifications: true,
	FeedGroupTimeline:      true,
	FeedGroupGlobal:        true,
	FeedGroupGroup:         true,
	FeedGroupInterest:      true,
	FeedGroupUnit:          true,
}

func (g FeedGroup) IsValid() bool {
	return validFeedGroups[g]
}

// FeedRef identifies one feed. The zero Id is only legal for the global feed.
type FeedRef struct {
	Group FeedGroup
	ID    string
}

// Key is the storage key for this feed, used as activities.feed_id.
func (f FeedRef) Key() string {
	if f.Group == FeedGroupGlobal {
		return string(FeedGroupGlobal)
	}
	return fmt.Sprintf("%s:%s", f.Group, f.ID)
}

// Aggregated returns the aggregated twin of this feed if it has one.
// Only user and media feeds carry an aggregated representation. A full
// fan-out write lands in the concrete feed and its twin; a no-fanout
// write lands in the concrete feed only. Aggregated reads merge the twin
// with the concrete feed lazily, so no-fanout activities still surface
// there.
func (f FeedRef) Aggregated() (FeedRef, bool) {
	switch f.Group {
	case FeedGroupUser:
		return FeedRef{Group: FeedGroupUserAggr, ID: f.ID}, true
	case FeedGroupMedia:
		return FeedRef{Group: FeedGroupMediaAggr, ID: f.ID}, true
	}
	return FeedRef{}, false
}

func UserProfileFeed(userID string) FeedRef {
	return FeedRef{Group: FeedGroupUser, ID: userID}
}

func UserAggrFeed(userID string) FeedRef {
	return FeedRef{Group: FeedGroupUserAggr, ID: userID}
}

func NotificationsFeed(userID string) FeedRef {
	return FeedRef{Group: FeedGroupNotifications, ID: userID}
}

func TimelineFeed(userID string) FeedRef {
	return FeedRef{Group: FeedGroupTimeline, ID: userID}
}

func GlobalFeed() FeedRef {
	return FeedRef{Group: FeedGroupGlobal}
}

func GroupFeed(groupID string) FeedRef {
	return FeedRef{Group: FeedGroupGroup, ID: groupID}
}

func InterestGlobalFeed(interest string) FeedRef {
	return FeedRef{Group: FeedGroupInterest, ID: interest}
}

func MediaFeed(ref MediaRef) FeedRef {
	return FeedRef{Group: FeedGroupMedia, ID: ref.Key()}
}

func MediaAggrFeed(ref MediaRef) FeedRef {
	return FeedRef{Group: FeedGroupMediaAggr, ID: ref.Key()}
}

func UnitFeed(ref UnitRef) FeedRef {
	return FeedRef{Group: FeedGroupUnit, ID: ref.Key()}
}

// FanoutMode selects how a destination feed receives an activity.
type FanoutMode int

const (
	// NoFanout writes only into the destination feed itself, skipping the
	// aggregated twin. Used for direct-message style delivery and for media
	// feeds whose aggregation is computed lazily at read time.
	NoFanout FanoutMode = iota
	// FullFanout writes into the destination feed and its aggregated twin.
	FullFanout
)

func (m FanoutMode) String() string {
	if m == FullFanout {
		return "full"
	}
	return "no_fanout"
}

// Target is one (feed, mode) pair computed by the fan-out resolver.
type Target struct {
	Feed FeedRef
	Mode FanoutMode
}
