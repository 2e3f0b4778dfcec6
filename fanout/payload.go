package fanout

import (
	"encoding/json"

	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
	"gorm.io/datatypes"

	"github.com/hoshi-social/feedstream/model"
)

// NewActivity builds the activity payload written into every destination
// feed of one event. The denormalized fields share names with the event,
// only the mentioned-user set needs an explicit JSON encode.
func NewActivity(ev model.PostEvent) (model.Activity, error) {
	var act model.Activity
	if err := copier.Copy(&act, &ev); err != nil {
		return model.Activity{}, errors.Wrap(err, "fail to copy event fields into activity")
	}

	mentioned := ev.MentionedUserIDs
	if mentioned == nil {
		mentioned = []string{}
	}
	bytes, err := json.Marshal(mentioned)
	if err != nil {
		return model.Activity{}, errors.Wrap(err, "fail to encode mentioned user ids")
	}
	act.MentionedUserIds = datatypes.JSON(bytes)
	return act, nil
}
