package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, NewRedisStore(client, "refresh", time.Second)
}

func TestPutGet(t *testing.T) {
	_, store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "alice", "token-1", time.Hour))

	got, err := store.Get(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "token-1", got)
}

func TestGetAbsent(t *testing.T) {
	_, store := newTestStore(t)

	_, err := store.Get(context.Background(), "nobody")
	require.ErrorIs(t, err, ErrNoSession)
}

func TestPutOverwrites(t *testing.T) {
	_, store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "alice", "token-1", time.Hour))
	require.NoError(t, store.Put(ctx, "alice", "token-2", time.Hour))

	got, err := store.Get(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "token-2", got)
}

func TestTTLExpiry(t *testing.T) {
	mr, store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "alice", "token-1", time.Minute))

	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, "alice")
	require.ErrorIs(t, err, ErrNoSession)
}

func TestPutResetsTTL(t *testing.T) {
	mr, store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "alice", "token-1", time.Minute))
	mr.FastForward(30 * time.Second)
	require.NoError(t, store.Put(ctx, "alice", "token-2", time.Minute))
	mr.FastForward(45 * time.Second)

	got, err := store.Get(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "token-2", got)
}

func TestDelete(t *testing.T) {
	_, store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "alice", "token-1", time.Hour))
	require.NoError(t, store.Delete(ctx, "alice"))

	_, err := store.Get(ctx, "alice")
	require.ErrorIs(t, err, ErrNoSession)

	// Deleting an absent record is fine.
	require.NoError(t, store.Delete(ctx, "alice"))
}

func TestStoreUnavailable(t *testing.T) {
	mr, store := newTestStore(t)
	mr.Close()

	_, err := store.Get(context.Background(), "alice")
	require.ErrorIs(t, err, ErrStoreUnavailable)

	err = store.Put(context.Background(), "alice", "token-1", time.Hour)
	require.ErrorIs(t, err, ErrStoreUnavailable)
}
