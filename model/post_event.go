package model

import "time"

/*

PostEvent is the content-change record handed to the fan-out engine
whenever a post is created or its denormalized fields change. It carries a
snapshot of the post's current associations; fan-out destinations are
derived from it at execution time, never cached.

SourceID: the originating post's id
AuthorID: the posting user's id
TargetUserID: explicit target user, empty when the post is not directed
TargetGroupID: explicit target group, empty when not posted to a group
TargetInterest: interest tag the post was published under, empty when none
Media: referenced media entity, nil when none
SpoiledUnit: spoiled sub-unit distinct from the media itself, nil when none
MentionedUserIDs: user ids referenced in the post's content, resolved
upstream by the content pipeline

LikesCount, CommentsCount: denormalized counters at event time
Nsfw: content flag; the worker additionally forces it on when the
referenced media or target group is nsfw
UpdatedAt: the post's last relevant change time

*/

type PostEvent struct {
	SourceID         string    `json:"source_id"`
	AuthorID         string    `json:"author_id"`
	TargetUserID     string    `json:"target_user_id,omitempty"`
	TargetGroupID    string    `json:"target_group_id,omitempty"`
	TargetInterest   string    `json:"target_interest,omitempty"`
	Media            *MediaRef `json:"media,omitempty"`
	SpoiledUnit      *UnitRef  `json:"spoiled_unit,omitempty"`
	MentionedUserIDs []string  `json:"mentioned_user_ids,omitempty"`
	LikesCount       int       `json:"likes_count"`
	CommentsCount    int       `json:"comments_count"`
	Nsfw             bool      `json:"nsfw"`
	UpdatedAt        time.Time `json:"updated_at"`
}
