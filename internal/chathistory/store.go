// Package chathistory persists conversation turns in Redis. Each session is
// an append-only list keyed by session id; entries expire together after the
// configured idle TTL.
package chathistory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront-workers/internal/common/database"
	stderrors "storefront-workers/internal/common/errors"
	"storefront-workers/internal/common/logger"
	"storefront-workers/internal/models"
)

const keyPrefix = "chat:session:"

// Store is the Redis-backed chat-history collaborator.
type Store struct {
	rdb    *database.RedisClient
	ttl    time.Duration
	logger logger.Logger
}

func NewStore(rdb *database.RedisClient, ttl time.Duration, log logger.Logger) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{rdb: rdb, ttl: ttl, logger: log}
}

func sessionKey(sessionID string) string {
	return keyPrefix + sessionID
}

// AppendMessage appends one turn to the session list and refreshes its TTL.
func (s *Store) AppendMessage(ctx context.Context, sessionID string, msg models.ChatMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return stderrors.NewSessionStoreFailedError(fmt.Errorf("encode message: %w", err))
	}

	key := sessionKey(sessionID)
	if err := s.rdb.Client.RPush(ctx, key, payload).Err(); err != nil {
		return stderrors.NewSessionStoreFailedError(err)
	}
	if err := s.rdb.Client.Expire(ctx, key, s.ttl).Err(); err != nil {
		return stderrors.NewSessionStoreFailedError(err)
	}
	return nil
}

// RecentTurns returns the last n turns of a session in chronological order.
// An unknown session yields an empty slice. Entries that no longer decode
// are skipped with a warning rather than failing the whole read.
func (s *Store) RecentTurns(ctx context.Context, sessionID string, n int) ([]models.ChatMessage, error) {
	if n <= 0 {
		return []models.ChatMessage{}, nil
	}

	raw, err := s.rdb.Client.LRange(ctx, sessionKey(sessionID), int64(-n), -1).Result()
	if err != nil {
		return nil, stderrors.NewSessionStoreFailedError(err)
	}

	turns := make([]models.ChatMessage, 0, len(raw))
	for _, entry := range raw {
		var msg models.ChatMessage
		if err := json.Unmarshal([]byte(entry), &msg); err != nil {
			s.logger.Warn("skipping undecodable chat turn", map[string]interface{}{
				"sessionId": sessionID,
				"error":     err.Error(),
			})
			continue
		}
		turns = append(turns, msg)
	}
	return turns, nil
}

// TurnCount reports how many turns a session currently holds.
func (s *Store) TurnCount(ctx context.Context, sessionID string) (int64, error) {
	count, err := s.rdb.Client.LLen(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return 0, stderrors.NewSessionStoreFailedError(err)
	}
	return count, nil
}
