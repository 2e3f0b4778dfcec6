package model

import (
	"time"

	"gorm.io/gorm"
)

// GroupPrivacy is the named privacy level of a group. Public and Restricted
// group feeds are visible to everyone, Private only to members.
type GroupPrivacy string

const (
	GroupPrivacyPublic     GroupPrivacy = "PUBLIC"
	GroupPrivacyRestricted GroupPrivacy = "RESTRICTED"
	GroupPrivacyPrivate    GroupPrivacy = "PRIVATE"
)

// OpenToNonMembers reports whether the group's content is visible without
// a membership check.
func (p GroupPrivacy) OpenToNonMembers() bool {
	return p == GroupPrivacyPublic || p == GroupPrivacyRestricted
}

/*

Group is a data model for a posting group

Id: primary key, use to identify a group
CreatedAt: time when entity is created
DeletedAt: time when entity is deleted

Name: group's display name
Privacy: named privacy level, defaults to PUBLIC
Nsfw: adult-only flag, forces nsfw onto posts targeting this group
Members: users belonging to this group, "many-to-many" relation

*/

type Group struct {
	Id        string `gorm:"primaryKey"`
	CreatedAt time.Time
	DeletedAt gorm.DeletedAt
	Name      string
	Privacy   GroupPrivacy `json:"privacy" gorm:"default:'PUBLIC';"`
	Nsfw      bool
	Members   []*User `json:"members" gorm:"many2many:group_members;constraint:OnDelete:CASCADE;"`
}

func (g Group) Feed() FeedRef {
	return GroupFeed(g.Id)
}
