package model

import (
	"time"

	"gorm.io/gorm"
)

/*

User is a data model for a feed owner

Id: primary key, use to identify a user
CreatedAt: time when entity is created
DeletedAt: time when entity is deleted

Name: name of a user, can be changed, don't need to be unique
AvatarUrl: user's icon URL
SfwFilter: when set the user never sees nsfw-flagged content
Groups: groups this user is a member of, "many-to-many" relation

*/

type User struct {
	Id        string `gorm:"primaryKey"`
	CreatedAt time.Time
	DeletedAt gorm.DeletedAt
	Name      string
	AvatarUrl string
	SfwFilter bool
	Groups    []*Group `json:"groups" gorm:"many2many:group_members;constraint:OnDelete:CASCADE;"`
}

func (u User) ProfileFeed() FeedRef {
	return UserProfileFeed(u.Id)
}

func (u User) Notifications() FeedRef {
	return NotificationsFeed(u.Id)
}

func (u User) Timeline() FeedRef {
	return TimelineFeed(u.Id)
}
