package usage_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yarasp/yarasp-go/internal/usage"
)

func TestSQLiteStore_ScopesByKey(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "usage.db")

	first, err := usage.NewSQLiteStore(ctx, path, "key-a", nil)
	require.NoError(t, err)
	defer func() { _ = first.Close() }()

	second, err := usage.NewSQLiteStore(ctx, path, "key-b", nil)
	require.NoError(t, err)
	defer func() { _ = second.Close() }()

	_, err = first.Increment(ctx, "2024-01-15")
	require.NoError(t, err)

	count, err := second.GetCount(ctx, "2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	count, err = first.GetCount(ctx, "2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSQLiteStore_CorruptValueRecovers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "usage.db")
	logger := &recordingLogger{}

	store, err := usage.NewSQLiteStore(ctx, path, "key-a", logger)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = db.ExecContext(ctx,
		"INSERT INTO apikey_usage (key, date, counter) VALUES (?, ?, ?)",
		"key-a", "2024-01-15", "oops")
	require.NoError(t, err)

	count, err := store.GetCount(ctx, "2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	count, err = store.Increment(ctx, "2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	assert.NotEmpty(t, logger.Warnings())
}
