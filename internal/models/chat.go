package models

import "time"

// ChatRole tags who produced a chat turn.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage is one turn in a conversation. Analysis, Products and
// ExternalResults are only populated on assistant turns that triggered
// a search.
type ChatMessage struct {
	ID              string            `json:"id"`
	Role            ChatRole          `json:"role"`
	Content         string            `json:"content"`
	Timestamp       time.Time         `json:"timestamp"`
	Analysis        *QueryAnalysis    `json:"analysis,omitempty"`
	Products        []Product         `json:"products,omitempty"`
	ExternalResults []ExternalListing `json:"externalResults,omitempty"`
}

// ChatSession is an append-only, time-ordered list of messages tied to one
// conversation. Sessions are never mutated in place; appends produce a new
// session value.
type ChatSession struct {
	ID        string        `json:"id"`
	UserID    string        `json:"userId,omitempty"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}
