// Package profile reads and writes user profile data: identity fields, the
// rolling preference document, and the bounded recent-activity lists that
// feed prompt personalization.
package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"storefront-workers/internal/common/database"
	stderrors "storefront-workers/internal/common/errors"
	"storefront-workers/internal/common/logger"
	"storefront-workers/internal/models"
)

const (
	userQuery = `SELECT display_name, birthdate, gender FROM users WHERE id = $1`

	preferencesQuery = `SELECT interactions, categories, updated_at FROM user_preferences WHERE user_id = $1`

	upsertPreferences = `INSERT INTO user_preferences (user_id, interactions, categories, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET interactions = EXCLUDED.interactions,
		    categories = EXCLUDED.categories,
		    updated_at = EXCLUDED.updated_at`

	insertSearchRecord = `INSERT INTO search_history (user_id, query, category, created_at)
		VALUES ($1, $2, $3, $4)`

	recentSearchesQuery = `SELECT query FROM search_history
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`

	likedItemsQuery = `SELECT product_name FROM liked_items
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`

	cartItemsQuery = `SELECT product_name FROM cart_items
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`

	recentPurchasesQuery = `SELECT product_name FROM order_items
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`
)

// Store is the Postgres-backed profile collaborator.
type Store struct {
	db     *database.PostgresClient
	logger logger.Logger
}

func NewStore(db *database.PostgresClient, log logger.Logger) *Store {
	return &Store{db: db, logger: log}
}

// GetUserContext assembles the per-request read model for one user. A user
// without a preference row gets an empty preferences document; missing
// activity history yields empty lists, not errors.
func (s *Store) GetUserContext(ctx context.Context, userID string) (*models.UserContext, error) {
	user := &models.UserContext{UserID: userID}

	var birthdate sql.NullTime
	var gender sql.NullString
	row := s.db.QueryRow(ctx, userQuery, userID)
	if err := row.Scan(&user.DisplayName, &birthdate, &gender); err != nil {
		if err == sql.ErrNoRows {
			return nil, stderrors.NewQueryExecutionFailedError("get user", fmt.Errorf("user %s not found", userID))
		}
		return nil, stderrors.NewQueryExecutionFailedError("get user", err)
	}
	if birthdate.Valid {
		user.Birthdate = birthdate.Time
	}
	if gender.Valid {
		user.Gender = gender.String
	}

	prefs, err := s.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Preferences = prefs

	lists := []struct {
		query string
		dest  *[]string
	}{
		{recentSearchesQuery, &user.RecentSearches},
		{likedItemsQuery, &user.LikedItems},
		{cartItemsQuery, &user.CartItems},
		{recentPurchasesQuery, &user.RecentPurchases},
	}
	for _, l := range lists {
		values, err := s.fetchRecentList(ctx, l.query, userID)
		if err != nil {
			return nil, err
		}
		*l.dest = values
	}

	return user, nil
}

// GetPreferences loads the preference document, returning an empty one when
// the user has no row yet.
func (s *Store) GetPreferences(ctx context.Context, userID string) (models.UserPreferences, error) {
	prefs := models.UserPreferences{Categories: map[string]int{}}

	var rawCategories []byte
	row := s.db.QueryRow(ctx, preferencesQuery, userID)
	err := row.Scan(&prefs.Interactions, &rawCategories, &prefs.UpdatedAt)
	if err == sql.ErrNoRows {
		return prefs, nil
	}
	if err != nil {
		return prefs, stderrors.NewQueryExecutionFailedError("get preferences", err)
	}

	if len(rawCategories) > 0 {
		if err := json.Unmarshal(rawCategories, &prefs.Categories); err != nil {
			s.logger.Warn("preference categories not parseable, starting fresh", map[string]interface{}{
				"userId": userID,
				"error":  err.Error(),
			})
			prefs.Categories = map[string]int{}
		}
	}
	return prefs, nil
}

// ReplacePreferences overwrites the user's preference document.
func (s *Store) ReplacePreferences(ctx context.Context, userID string, prefs models.UserPreferences) error {
	rawCategories, err := json.Marshal(prefs.Categories)
	if err != nil {
		return stderrors.NewQueryExecutionFailedError("replace preferences", err)
	}
	if _, err := s.db.Exec(ctx, upsertPreferences, userID, prefs.Interactions, rawCategories, prefs.UpdatedAt); err != nil {
		return stderrors.NewQueryExecutionFailedError("replace preferences", err)
	}
	return nil
}

// AppendSearchRecord persists one search-history entry.
func (s *Store) AppendSearchRecord(ctx context.Context, rec models.SearchRecord) error {
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	if _, err := s.db.Exec(ctx, insertSearchRecord, rec.UserID, rec.Query, rec.Category, ts); err != nil {
		return stderrors.NewQueryExecutionFailedError("append search record", err)
	}
	return nil
}

func (s *Store) fetchRecentList(ctx context.Context, query, userID string) ([]string, error) {
	rows, err := s.db.Query(ctx, query, userID, models.ActivityWindow)
	if err != nil {
		return nil, stderrors.NewQueryExecutionFailedError("fetch activity list", err)
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, stderrors.NewQueryExecutionFailedError("scan activity list", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, stderrors.NewQueryExecutionFailedError("iterate activity list", err)
	}
	return values, nil
}
