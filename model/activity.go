package model

import (
	"time"

	"gorm.io/datatypes"
)

/*

Activity is one propagated reference to a content item inside one
destination feed. The same source content appears at most once per feed:
(FeedID, SourceID) is the identity key and a re-delivered content event
updates the existing row in place.

FeedID: owning feed's storage key, part of the primary key
SourceID: the originating content's id, part of the primary key
Cursor: monotonically increasing id, unique across all activities. Serves
as the per-feed activity id and as the pagination cursor, newest first.
CreatedAt: time when the activity was first fanned out
UpdatedAt: timestamp of the source content's last relevant change

LikesCount: like count of the source content captured at write time
CommentsCount: comment count of the source content captured at write time
Nsfw: content flag captured at write time
MentionedUserIds: JSON array of user ids referenced by the content

Read, Seen: per-(feed, activity) state, only ever transitions false -> true

*/

type Activity struct {
	FeedID           string         `json:"feed_id" gorm:"primaryKey"`
	SourceID         string         `json:"source_id" gorm:"primaryKey"`
	Cursor           int64          `json:"activity_id" gorm:"autoIncrement;uniqueIndex"`
	CreatedAt        time.Time      `json:"created_at" gorm:"<-:create"`
	UpdatedAt        time.Time      `json:"updated_at"`
	LikesCount       int            `json:"likes_count"`
	CommentsCount    int            `json:"comments_count"`
	Nsfw             bool           `json:"nsfw"`
	MentionedUserIds datatypes.JSON `json:"mentioned_user_ids"`
	Read             bool           `json:"read"`
	Seen             bool           `json:"seen"`
}
