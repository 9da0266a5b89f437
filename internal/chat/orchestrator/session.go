package orchestrator

import (
	"time"

	"github.com/google/uuid"

	"storefront-workers/internal/models"
)

// CreateNewSession starts an empty session for a user. The user id may be
// empty for anonymous sessions.
func CreateNewSession(userID string) models.ChatSession {
	now := time.Now().UTC()
	return models.ChatSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Messages:  []models.ChatMessage{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddMessageToSession appends a message, producing a new session value.
// The input session is left untouched, including its backing array.
func AddMessageToSession(session models.ChatSession, msg models.ChatMessage) models.ChatSession {
	messages := make([]models.ChatMessage, len(session.Messages), len(session.Messages)+1)
	copy(messages, session.Messages)

	session.Messages = append(messages, msg)
	session.UpdatedAt = msg.Timestamp
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = time.Now().UTC()
	}
	return session
}
