package fanout

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoshi-social/feedstream/model"
)

func TestNewActivityCopiesDenormalizedFields(t *testing.T) {
	now := time.Now()
	ev := model.PostEvent{
		SourceID:         "42",
		AuthorID:         "1",
		MentionedUserIDs: []string{"2", "3"},
		LikesCount:       7,
		CommentsCount:    3,
		Nsfw:             true,
		UpdatedAt:        now,
	}

	act, err := NewActivity(ev)
	require.NoError(t, err)

	assert.Equal(t, "42", act.SourceID)
	assert.Equal(t, 7, act.LikesCount)
	assert.Equal(t, 3, act.CommentsCount)
	assert.True(t, act.Nsfw)
	assert.Equal(t, now, act.UpdatedAt)

	var mentioned []string
	require.NoError(t, json.Unmarshal(act.MentionedUserIds, &mentioned))
	assert.Equal(t, []string{"2", "3"}, mentioned)
}

func TestNewActivityWithoutMentions(t *testing.T) {
	act, err := NewActivity(model.PostEvent{SourceID: "42", AuthorID: "1"})
	require.NoError(t, err)

	var mentioned []string
	require.NoError(t, json.Unmarshal(act.MentionedUserIds, &mentioned))
	assert.Empty(t, mentioned)
}
