// Package personalization records what a conversation turn taught us about
// the user: the raw search and a rolled-up category preference count. It is
// fire and forget; nothing here may fail the conversational turn.
package personalization

import (
	"context"
	"time"

	"storefront-workers/internal/common/logger"
	"storefront-workers/internal/models"
)

const (
	defaultMaxCategories = 16
	generalCategory      = "general"
)

// ProfileWriter is the slice of the profile store this package needs.
type ProfileWriter interface {
	AppendSearchRecord(ctx context.Context, rec models.SearchRecord) error
	ReplacePreferences(ctx context.Context, userID string, prefs models.UserPreferences) error
}

// Updater rolls conversation turns into the user's preference document.
// Category counts form a bounded histogram: at the cap, the lowest-count
// entry is evicted to make room, so the document cannot grow without bound.
type Updater struct {
	store         ProfileWriter
	maxCategories int
	logger        logger.Logger
}

func NewUpdater(store ProfileWriter, maxCategories int, log logger.Logger) *Updater {
	if maxCategories <= 0 {
		maxCategories = defaultMaxCategories
	}
	return &Updater{store: store, maxCategories: maxCategories, logger: log}
}

// UpdateUserLearning persists the search record and the incremented
// preference document, returning the new document. Persistence failures are
// logged and swallowed; the prior document is returned unchanged in that
// case.
func (u *Updater) UpdateUserLearning(ctx context.Context, user *models.UserContext, message string, analysis *models.QueryAnalysis) models.UserPreferences {
	category := analysis.Filters.Category
	if category == "" {
		category = generalCategory
	}
	now := time.Now().UTC()

	if err := u.store.AppendSearchRecord(ctx, models.SearchRecord{
		UserID:    user.UserID,
		Query:     message,
		Category:  category,
		Timestamp: now,
	}); err != nil {
		u.logger.Warn("search history write failed", map[string]interface{}{
			"userId": user.UserID,
			"error":  err.Error(),
		})
		return user.Preferences
	}

	next := models.UserPreferences{
		Interactions: user.Preferences.Interactions + 1,
		Categories:   bumpCategory(user.Preferences.Categories, category, u.maxCategories),
		UpdatedAt:    now,
	}

	if err := u.store.ReplacePreferences(ctx, user.UserID, next); err != nil {
		u.logger.Warn("preference write failed", map[string]interface{}{
			"userId": user.UserID,
			"error":  err.Error(),
		})
		return user.Preferences
	}

	return next
}

// bumpCategory returns a fresh histogram with category incremented. At the
// size cap the lowest-count entry is evicted first; count ties break on the
// lexicographically smallest name so eviction is deterministic.
func bumpCategory(counts map[string]int, category string, limit int) map[string]int {
	next := make(map[string]int, len(counts)+1)
	for k, v := range counts {
		next[k] = v
	}

	if _, ok := next[category]; !ok && len(next) >= limit {
		victim := ""
		for name, count := range next {
			if victim == "" || count < next[victim] || (count == next[victim] && name < victim) {
				victim = name
			}
		}
		delete(next, victim)
	}

	next[category]++
	return next
}
