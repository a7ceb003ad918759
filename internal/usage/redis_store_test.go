package usage_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yarasp/yarasp-go/internal/usage"
)

func newMiniredisStore(t *testing.T, opts ...usage.RedisOption) (*miniredis.Miniredis, *usage.RedisStore) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return mr, usage.NewRedisStore(rdb, "abc123", opts...)
}

func TestRedisStore_KeyLayout(t *testing.T) {
	t.Parallel()

	mr, store := newMiniredisStore(t, usage.WithRedisPrefix("custom:"))

	_, err := store.Increment(context.Background(), "2024-01-15")
	require.NoError(t, err)

	value, err := mr.Get("custom:abc123:2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, "1", value)
}

func TestRedisStore_CorruptValueRecovers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	logger := &recordingLogger{}
	mr, store := newMiniredisStore(t, usage.WithRedisLogger(logger))

	require.NoError(t, mr.Set(store.Key("2024-01-15"), "garbage"))

	count, err := store.GetCount(ctx, "2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	count, err = store.Increment(ctx, "2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	assert.NotEmpty(t, logger.Warnings())
}

func TestRedisStore_TTL(t *testing.T) {
	t.Parallel()

	mr, store := newMiniredisStore(t, usage.WithRedisTTL(48*time.Hour))

	_, err := store.Increment(context.Background(), "2024-01-15")
	require.NoError(t, err)

	assert.Equal(t, 48*time.Hour, mr.TTL(store.Key("2024-01-15")))
}

func TestRedisStore_TTLRefreshedOnEveryIncrement(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mr, store := newMiniredisStore(t, usage.WithRedisTTL(48*time.Hour))
	key := store.Key("2024-01-15")

	// A counter written without an expiry still gets one on its next increment.
	require.NoError(t, mr.Set(key, "3"))
	assert.Zero(t, mr.TTL(key))

	count, err := store.Increment(ctx, "2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.Equal(t, 48*time.Hour, mr.TTL(key))

	mr.FastForward(10 * time.Hour)
	assert.Equal(t, 38*time.Hour, mr.TTL(key))

	count, err = store.Increment(ctx, "2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, 5, count)
	assert.Equal(t, 48*time.Hour, mr.TTL(key))
}

func TestRedisStore_CorruptValueKeepsTTL(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mr, store := newMiniredisStore(t, usage.WithRedisTTL(time.Hour))
	key := store.Key("2024-01-15")

	require.NoError(t, mr.Set(key, "garbage"))

	count, err := store.Increment(ctx, "2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, time.Hour, mr.TTL(key))

	value, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "1", value)
}

func TestRedisStore_ConnectionFailure(t *testing.T) {
	t.Parallel()

	mr, store := newMiniredisStore(t)
	mr.Close()

	_, err := store.Increment(context.Background(), "2024-01-15")
	require.ErrorIs(t, err, usage.ErrStorageWrite)
}
