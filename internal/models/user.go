package models

import "time"

// ActivityWindow caps each recent-history list in a UserContext.
const ActivityWindow = 10

// UserPreferences is the rolling preference document for a user.
// Categories is a bounded histogram of resolved categories, not an
// ever-growing list.
type UserPreferences struct {
	Interactions int            `json:"interactions"`
	Categories   map[string]int `json:"categories"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// UserContext is the per-request read model assembled from the profile store.
type UserContext struct {
	UserID      string          `json:"userId"`
	DisplayName string          `json:"displayName"`
	Birthdate   time.Time       `json:"birthdate"`
	Gender      string          `json:"gender,omitempty"`
	Preferences UserPreferences `json:"preferences"`

	// Bounded recent-activity windows, newest first, each capped at
	// ActivityWindow entries.
	RecentSearches  []string `json:"recentSearches"`
	LikedItems      []string `json:"likedItems"`
	CartItems       []string `json:"cartItems"`
	RecentPurchases []string `json:"recentPurchases"`
}

// SearchRecord is one persisted search-history entry.
type SearchRecord struct {
	UserID    string    `json:"userId" db:"user_id"`
	Query     string    `json:"query" db:"query"`
	Category  string    `json:"category" db:"category"`
	Timestamp time.Time `json:"timestamp" db:"created_at"`
}
