package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/txplain/bankrouter/internal/models"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store, err := NewRedisStore("redis://"+mr.Addr(), time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStore_GetMissingSessionReturnsZeroValue(t *testing.T) {
	store, _ := newTestRedisStore(t)

	turn, err := store.Get(context.Background(), "sess-1")
	require.NoError(t, err)
	require.True(t, turn.IsEmpty())
	require.Equal(t, "sess-1", turn.SessionID)
}

func TestRedisStore_WithLockPersistsCommit(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	err := store.WithLock(ctx, "sess-1", func(current models.LastTurn) (models.LastTurn, error) {
		current.LastIntent = "COUNT"
		current.LastBank = "SBI"
		current.LastCategory = "Credit Card"
		return current, nil
	})
	require.NoError(t, err)

	turn, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.Equal(t, "COUNT", turn.LastIntent)
	require.Equal(t, "SBI", turn.LastBank)
}

func TestRedisStore_ResetClearsSession(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.WithLock(ctx, "sess-1", func(current models.LastTurn) (models.LastTurn, error) {
		current.LastIntent = "LIST"
		return current, nil
	}))

	require.NoError(t, store.Reset(ctx, "sess-1"))

	turn, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.True(t, turn.IsEmpty())
}

func TestRedisStore_ExpiresAfterTTL(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store, err := NewRedisStore("redis://"+mr.Addr(), 50*time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	require.NoError(t, store.WithLock(ctx, "sess-1", func(current models.LastTurn) (models.LastTurn, error) {
		current.LastIntent = "COUNT"
		return current, nil
	}))

	mr.FastForward(100 * time.Millisecond)

	turn, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.True(t, turn.IsEmpty())
}
