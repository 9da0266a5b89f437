package chathistory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-workers/internal/common/database"
	"storefront-workers/internal/common/logger"
	"storefront-workers/internal/models"
)

func newMiniStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	store := NewStore(&database.RedisClient{Client: client}, time.Hour, logger.NewTestLogger(t))
	return store, mr
}

func turn(role models.ChatRole, content string) models.ChatMessage {
	return models.ChatMessage{
		ID:        content,
		Role:      role,
		Content:   content,
		Timestamp: time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestAppendAndReadBack(t *testing.T) {
	store, _ := newMiniStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendMessage(ctx, "s-1", turn(models.RoleUser, "hello")))
	require.NoError(t, store.AppendMessage(ctx, "s-1", turn(models.RoleAssistant, "hi, how can I help?")))

	turns, err := store.RecentTurns(ctx, "s-1", 10)

	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, models.RoleUser, turns[0].Role)
	assert.Equal(t, "hello", turns[0].Content)
	assert.Equal(t, models.RoleAssistant, turns[1].Role)
}

func TestRecentTurnsWindowsFromTheEnd(t *testing.T) {
	store, _ := newMiniStore(t)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		require.NoError(t, store.AppendMessage(ctx, "s-1", turn(models.RoleUser, fmt.Sprintf("turn %d", i))))
	}

	turns, err := store.RecentTurns(ctx, "s-1", 10)

	require.NoError(t, err)
	require.Len(t, turns, 10)
	assert.Equal(t, "turn 5", turns[0].Content)
	assert.Equal(t, "turn 14", turns[9].Content)
}

func TestRecentTurnsUnknownSession(t *testing.T) {
	store, _ := newMiniStore(t)

	turns, err := store.RecentTurns(context.Background(), "nope", 10)

	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestAppendRefreshesTTL(t *testing.T) {
	store, mr := newMiniStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendMessage(ctx, "s-1", turn(models.RoleUser, "hello")))

	assert.Greater(t, mr.TTL("chat:session:s-1"), time.Duration(0))
}

func TestRecentTurnsSkipsCorruptEntries(t *testing.T) {
	store, mr := newMiniStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendMessage(ctx, "s-1", turn(models.RoleUser, "hello")))
	mr.Lpush("chat:session:s-1", "not json at all")

	turns, err := store.RecentTurns(ctx, "s-1", 10)

	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "hello", turns[0].Content)
}

func TestTurnCount(t *testing.T) {
	store, _ := newMiniStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendMessage(ctx, "s-1", turn(models.RoleUser, "a")))
	require.NoError(t, store.AppendMessage(ctx, "s-1", turn(models.RoleAssistant, "b")))

	count, err := store.TurnCount(ctx, "s-1")

	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
