package processusermessage

import "storefront-workers/internal/models"

type Input struct {
	Message   string `json:"message"`
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
}

type Output struct {
	SessionID string             `json:"sessionId"`
	Reply     models.ChatMessage `json:"reply"`
}
