package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-workers/internal/models"
)

func TestCreateNewSession(t *testing.T) {
	session := CreateNewSession("u-42")

	assert.NotEmpty(t, session.ID)
	assert.Equal(t, "u-42", session.UserID)
	assert.Empty(t, session.Messages)
	assert.False(t, session.CreatedAt.IsZero())
	assert.Equal(t, session.CreatedAt, session.UpdatedAt)

	other := CreateNewSession("")
	assert.NotEqual(t, session.ID, other.ID)
	assert.Empty(t, other.UserID)
}

func TestAddMessageToSessionAppendsWithoutMutating(t *testing.T) {
	session := CreateNewSession("u-42")
	first := models.ChatMessage{
		ID:        "m-1",
		Role:      models.RoleUser,
		Content:   "hello",
		Timestamp: time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC),
	}
	second := models.ChatMessage{
		ID:        "m-2",
		Role:      models.RoleAssistant,
		Content:   "hi there",
		Timestamp: time.Date(2024, time.June, 1, 10, 0, 5, 0, time.UTC),
	}

	withFirst := AddMessageToSession(session, first)
	withBoth := AddMessageToSession(withFirst, second)

	assert.Empty(t, session.Messages, "original session stays untouched")
	require.Len(t, withFirst.Messages, 1)
	require.Len(t, withBoth.Messages, 2)
	assert.Equal(t, "m-1", withBoth.Messages[0].ID)
	assert.Equal(t, "m-2", withBoth.Messages[1].ID)
	assert.Equal(t, second.Timestamp, withBoth.UpdatedAt)
}

func TestAddMessageToSessionDoesNotShareBackingArray(t *testing.T) {
	session := CreateNewSession("u-42")
	base := AddMessageToSession(session, models.ChatMessage{ID: "m-1", Role: models.RoleUser, Content: "a", Timestamp: time.Now()})

	left := AddMessageToSession(base, models.ChatMessage{ID: "left", Role: models.RoleAssistant, Content: "b", Timestamp: time.Now()})
	right := AddMessageToSession(base, models.ChatMessage{ID: "right", Role: models.RoleAssistant, Content: "c", Timestamp: time.Now()})

	assert.Equal(t, "left", left.Messages[1].ID)
	assert.Equal(t, "right", right.Messages[1].ID)
	require.Len(t, base.Messages, 1)
}
