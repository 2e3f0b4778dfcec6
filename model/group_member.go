package model

import (
	"time"

	"gorm.io/gorm"
)

/*

GroupMember is a "many-to-many" relation of a user belonging to a group

GroupID: group id
UserID: user id
CreatedAt: time when relation is created
DeletedAt: time when relation is deleted

*/

type GroupMember struct {
	GroupID   string `gorm:"primaryKey"`
	UserID    string `gorm:"primaryKey"`
	CreatedAt time.Time
	DeletedAt gorm.DeletedAt
}
