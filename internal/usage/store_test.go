package usage_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yarasp/yarasp-go/internal/usage"
)

type storeFactory func(t *testing.T) usage.Store

func storeBackends() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T) usage.Store {
			t.Helper()

			return usage.NewMemoryStore()
		},
		"json": func(t *testing.T) usage.Store {
			t.Helper()

			return usage.NewJSONStore(filepath.Join(t.TempDir(), "counter.json"), nil)
		},
		"sqlite": func(t *testing.T) usage.Store {
			t.Helper()

			store, err := usage.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "counter.db"), "test", nil)
			require.NoError(t, err)

			return store
		},
		"redis": func(t *testing.T) usage.Store {
			t.Helper()

			mr := miniredis.RunT(t)
			rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = rdb.Close() })

			return usage.NewRedisStore(rdb, "test")
		},
		"nats": func(t *testing.T) usage.Store {
			t.Helper()

			store, _ := newNATSStore(t, connectNATS(t, runNATSServer(t)), nil)

			return store
		},
	}
}

func TestStores_ColdStartIsZero(t *testing.T) {
	t.Parallel()

	for name, factory := range storeBackends() {
		factory := factory
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store := factory(t)
			defer func() { _ = store.Close() }()

			count, err := store.GetCount(context.Background(), "2024-01-15")
			require.NoError(t, err)
			assert.Equal(t, 0, count)
		})
	}
}

func TestStores_IncrementIsExact(t *testing.T) {
	t.Parallel()

	for name, factory := range storeBackends() {
		factory := factory
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			store := factory(t)
			defer func() { _ = store.Close() }()

			for want := 1; want <= 5; want++ {
				got, err := store.Increment(ctx, "2024-01-15")
				require.NoError(t, err)
				assert.Equal(t, want, got)
			}

			count, err := store.GetCount(ctx, "2024-01-15")
			require.NoError(t, err)
			assert.Equal(t, 5, count)
		})
	}
}

func TestStores_DatesAreIndependent(t *testing.T) {
	t.Parallel()

	for name, factory := range storeBackends() {
		factory := factory
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			store := factory(t)
			defer func() { _ = store.Close() }()

			for _, day := range []string{"2024-01-15", "2024-01-16"} {
				for iter := 0; iter < 2; iter++ {
					_, err := store.Increment(ctx, day)
					require.NoError(t, err)
				}
			}

			first, err := store.GetCount(ctx, "2024-01-15")
			require.NoError(t, err)
			second, err := store.GetCount(ctx, "2024-01-16")
			require.NoError(t, err)

			assert.Equal(t, 2, first)
			assert.Equal(t, 2, second)
		})
	}
}

func TestNewStore_Backends(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()

	store, err := usage.NewStore(ctx, usage.Config{Path: filepath.Join(dir, "c.json")})
	require.NoError(t, err)
	assert.IsType(t, &usage.JSONStore{}, store)

	store, err = usage.NewStore(ctx, usage.Config{Backend: usage.BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &usage.MemoryStore{}, store)

	store, err = usage.NewStore(ctx, usage.Config{Backend: usage.BackendSQLite, Path: filepath.Join(dir, "c.db")})
	require.NoError(t, err)
	assert.IsType(t, &usage.SQLiteStore{}, store)
	require.NoError(t, store.Close())

	mr := miniredis.RunT(t)
	store, err = usage.NewStore(ctx, usage.Config{Backend: usage.BackendRedis, RedisURL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	assert.IsType(t, &usage.RedisStore{}, store)
	require.NoError(t, store.Close())
}

func TestNewStore_FailsFast(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	_, err := usage.NewStore(ctx, usage.Config{Backend: "mongo"})
	require.ErrorIs(t, err, usage.ErrUnsupportedBackend)

	_, err = usage.NewStore(ctx, usage.Config{Backend: usage.BackendRedis})
	require.ErrorIs(t, err, usage.ErrRedisRequired)
}

func TestSQLitePath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "usage.db", usage.SQLitePath("usage.db"))
	assert.Equal(t, "usage.sqlite", usage.SQLitePath("usage.sqlite"))
	assert.Equal(t, "yarasp_counter.db", usage.SQLitePath("usage.json"))
	assert.Equal(t, "yarasp_counter.db", usage.SQLitePath(""))
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	fp := usage.Fingerprint("secret-key")
	assert.Len(t, fp, 16)
	assert.NotContains(t, fp, "secret")
	assert.Equal(t, fp, usage.Fingerprint("  secret-key "))
	assert.NotEqual(t, fp, usage.Fingerprint("other-key"))
	assert.Equal(t, "anonymous", usage.Fingerprint(""))
}
