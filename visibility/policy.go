package visibility

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/hoshi-social/feedstream/model"
	Logger "github.com/hoshi-social/feedstream/utils/log"
)

// Policy is the bundled Gate implementation. Anything it does not
// recognize is denied.
//
// User profiles are public. Media is hidden from sfw-filtered and
// anonymous callers when flagged nsfw. Group content is visible when the
// group is open to non-members, otherwise only to members.
type Policy struct {
	db *gorm.DB
}

func NewPolicy(db *gorm.DB) *Policy {
	return &Policy{db: db}
}

func (p *Policy) Authorize(ctx context.Context, caller *model.User, resource interface{}) bool {
	switch r := resource.(type) {
	case *model.User:
		return r != nil
	case *model.Media:
		if r == nil {
			return false
		}
		if !r.Nsfw {
			return true
		}
		return caller != nil && !caller.SfwFilter
	case *model.Group:
		if r == nil {
			return false
		}
		if r.Privacy.OpenToNonMembers() {
			return true
		}
		if caller == nil {
			return false
		}
		return p.isMember(ctx, r.Id, caller.Id)
	}
	Logger.LogV2.Error(fmt.Sprintf("visibility check on unknown resource type %T, denying", resource))
	return false
}

func (p *Policy) isMember(ctx context.Context, groupID, userID string) bool {
	var count int64
	if err := p.db.WithContext(ctx).Model(&model.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error; err != nil {
		Logger.LogV2.Error(fmt.Sprintf("fail to check group membership, denying: %v", err))
		return false
	}
	return count > 0
}

var _ Gate = (*Policy)(nil)
