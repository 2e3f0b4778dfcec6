package fanout

import (
	"github.com/hoshi-social/feedstream/model"
)

// Resolver computes the destination feed set for one content event. It is
// pure: the result depends only on the event snapshot, so re-running it
// during retries is always safe.
type Resolver struct{}

// Resolve returns the ordered, deduplicated list of (feed, mode) targets
// for a content event. When the same feed is reachable through more than
// one path, full fan-out wins over no-fanout so a feed never silently
// loses a delivery it was explicitly granted elsewhere.
func (Resolver) Resolve(ev model.PostEvent) []model.Target {
	targets := make([]model.Target, 0, 8)
	targets = append(targets, otherFeeds(ev)...)
	targets = append(targets, notifiedFeeds(ev)...)
	targets = append(targets, targetFeed(ev))
	targets = append(targets, targetTimelines(ev)...)
	return dedupe(targets)
}

// otherFeeds are the secondary destinations derived from the event's
// content associations. Media feeds never fan out beyond their aggregated
// representation.
func otherFeeds(ev model.PostEvent) []model.Target {
	feeds := []model.Target{}
	if ev.TargetInterest != "" {
		feeds = append(feeds, model.Target{Feed: model.InterestGlobalFeed(ev.TargetInterest), Mode: model.FullFanout})
	}
	if ev.Media != nil {
		feeds = append(feeds, model.Target{Feed: model.MediaFeed(*ev.Media), Mode: model.NoFanout})
	}
	if ev.SpoiledUnit != nil {
		feeds = append(feeds, model.Target{Feed: model.UnitFeed(*ev.SpoiledUnit), Mode: model.FullFanout})
	}
	return feeds
}

// notifiedFeeds are the notification feeds of the explicit target user and
// every mentioned user. Authors never notify themselves.
func notifiedFeeds(ev model.PostEvent) []model.Target {
	feeds := []model.Target{}
	if ev.TargetUserID != "" && ev.TargetUserID != ev.AuthorID {
		feeds = append(feeds, model.Target{Feed: model.NotificationsFeed(ev.TargetUserID), Mode: model.FullFanout})
	}
	for _, userID := range ev.MentionedUserIDs {
		if userID == ev.AuthorID {
			continue
		}
		feeds = append(feeds, model.Target{Feed: model.NotificationsFeed(userID), Mode: model.FullFanout})
	}
	return feeds
}

// targetFeed is the primary destination. A post directed at another user
// lands on that user's profile without fan-out (direct-message
// semantics), a group post lands on the group feed, everything else on the
// author's own profile.
func targetFeed(ev model.PostEvent) model.Target {
	if ev.TargetUserID != "" {
		return model.Target{Feed: model.UserProfileFeed(ev.TargetUserID), Mode: model.NoFanout}
	}
	if ev.TargetGroupID != "" {
		return model.Target{Feed: model.GroupFeed(ev.TargetGroupID), Mode: model.FullFanout}
	}
	return model.Target{Feed: model.UserProfileFeed(ev.AuthorID), Mode: model.FullFanout}
}

// targetTimelines adds both parties' timeline feeds when the post is
// directed at a user. The timeline merges direct-interaction content and
// is distinct from the profile feed.
func targetTimelines(ev model.PostEvent) []model.Target {
	if ev.TargetUserID == "" {
		return nil
	}
	return []model.Target{
		{Feed: model.TimelineFeed(ev.AuthorID), Mode: model.FullFanout},
		{Feed: model.TimelineFeed(ev.TargetUserID), Mode: model.FullFanout},
	}
}

// dedupe keeps the first occurrence of each feed, upgrading its mode to
// full fan-out if any later occurrence requests it.
func dedupe(targets []model.Target) []model.Target {
	seen := map[string]int{}
	out := make([]model.Target, 0, len(targets))
	for _, target := range targets {
		key := target.Feed.Key()
		if idx, ok := seen[key]; ok {
			if target.Mode == model.FullFanout {
				out[idx].Mode = model.FullFanout
			}
			continue
		}
		seen[key] = len(out)
		out = append(out, target)
	}
	return out
}
