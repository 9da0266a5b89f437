package processusermessage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-workers/internal/common/logger"
	"storefront-workers/internal/models"
)

type fakeConversation struct {
	reply       models.ChatMessage
	calls       int
	lastUser    *models.UserContext
	lastHistory []models.ChatMessage
}

func (f *fakeConversation) ProcessUserMessage(_ context.Context, _ string, user *models.UserContext, history []models.ChatMessage) models.ChatMessage {
	f.calls++
	f.lastUser = user
	f.lastHistory = history
	return f.reply
}

type fakeProfiles struct {
	user *models.UserContext
	err  error
}

func (f *fakeProfiles) GetUserContext(_ context.Context, _ string) (*models.UserContext, error) {
	return f.user, f.err
}

type fakeHistory struct {
	turns     []models.ChatMessage
	readErr   error
	writeErr  error
	appended  []models.ChatMessage
	sessions  []string
}

func (f *fakeHistory) AppendMessage(_ context.Context, sessionID string, msg models.ChatMessage) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.sessions = append(f.sessions, sessionID)
	f.appended = append(f.appended, msg)
	return nil
}

func (f *fakeHistory) RecentTurns(_ context.Context, _ string, _ int) ([]models.ChatMessage, error) {
	return f.turns, f.readErr
}

func assistantReply(content string) models.ChatMessage {
	return models.ChatMessage{
		ID:        "r-1",
		Role:      models.RoleAssistant,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

func newTestHandler(t *testing.T, conv *fakeConversation, profiles *fakeProfiles, history *fakeHistory) *Handler {
	t.Helper()
	return NewHandler(LoadConfig(), conv, profiles, history, logger.NewTestLogger(t))
}

func TestExecuteFullTurn(t *testing.T) {
	conv := &fakeConversation{reply: assistantReply("Here are some laptops.")}
	profiles := &fakeProfiles{user: &models.UserContext{UserID: "u-42", DisplayName: "Wanjiku"}}
	history := &fakeHistory{turns: []models.ChatMessage{
		{Role: models.RoleUser, Content: "hello"},
	}}
	h := newTestHandler(t, conv, profiles, history)

	output, err := h.Execute(context.Background(), &Input{
		Message:   "show me laptops",
		UserID:    "u-42",
		SessionID: "s-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "s-1", output.SessionID)
	assert.Equal(t, "Here are some laptops.", output.Reply.Content)

	require.NotNil(t, conv.lastUser)
	assert.Equal(t, "Wanjiku", conv.lastUser.DisplayName)
	require.Len(t, conv.lastHistory, 1)

	// Both the user turn and the assistant reply are persisted, in order.
	require.Len(t, history.appended, 2)
	assert.Equal(t, models.RoleUser, history.appended[0].Role)
	assert.Equal(t, "show me laptops", history.appended[0].Content)
	assert.Equal(t, models.RoleAssistant, history.appended[1].Role)
}

func TestExecuteMintsSessionIDWhenMissing(t *testing.T) {
	conv := &fakeConversation{reply: assistantReply("hi")}
	history := &fakeHistory{}
	h := newTestHandler(t, conv, &fakeProfiles{}, history)

	output, err := h.Execute(context.Background(), &Input{Message: "hello"})

	require.NoError(t, err)
	assert.NotEmpty(t, output.SessionID)
	// A brand-new session has no history to read.
	assert.Empty(t, conv.lastHistory)
	require.Len(t, history.sessions, 2)
	assert.Equal(t, output.SessionID, history.sessions[0])
}

func TestExecuteProfileFailureDegradesToAnonymous(t *testing.T) {
	conv := &fakeConversation{reply: assistantReply("hi")}
	profiles := &fakeProfiles{err: errors.New("db down")}
	h := newTestHandler(t, conv, profiles, &fakeHistory{})

	output, err := h.Execute(context.Background(), &Input{
		Message: "show me laptops",
		UserID:  "u-42",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, conv.calls)
	assert.Nil(t, conv.lastUser)
	assert.NotEmpty(t, output.Reply.Content)
}

func TestExecuteHistoryReadFailureStartsEmpty(t *testing.T) {
	conv := &fakeConversation{reply: assistantReply("hi")}
	history := &fakeHistory{readErr: errors.New("redis down")}
	h := newTestHandler(t, conv, &fakeProfiles{}, history)

	_, err := h.Execute(context.Background(), &Input{
		Message:   "show me laptops",
		SessionID: "s-1",
	})

	require.NoError(t, err)
	assert.Empty(t, conv.lastHistory)
}

func TestExecuteHistoryWriteFailureIsSwallowed(t *testing.T) {
	conv := &fakeConversation{reply: assistantReply("hi")}
	history := &fakeHistory{writeErr: errors.New("redis down")}
	h := newTestHandler(t, conv, &fakeProfiles{}, history)

	output, err := h.Execute(context.Background(), &Input{
		Message:   "show me laptops",
		SessionID: "s-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "hi", output.Reply.Content)
}

func TestExecuteEmptyMessage(t *testing.T) {
	h := newTestHandler(t, &fakeConversation{}, &fakeProfiles{}, &fakeHistory{})

	_, err := h.Execute(context.Background(), &Input{Message: "  "})

	assert.ErrorIs(t, err, ErrEmptyMessage)
}
