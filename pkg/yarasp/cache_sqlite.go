package yarasp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yarasp/yarasp-go/internal/constants"
)

// SQLiteCacheConfig configures the SQLite cache.
type SQLiteCacheConfig struct {
	// Path is the database file. Defaults to yarasp_cache.db.
	Path string
}

// SQLiteCache stores entries in a single table keyed by the hashed cache key.
type SQLiteCache struct {
	db *sql.DB
}

// NewSQLiteCache opens the database and creates the schema.
func NewSQLiteCache(ctx context.Context, config *SQLiteCacheConfig) (*SQLiteCache, error) {
	path := config.Path
	if path == "" {
		path = constants.DefaultCacheDB
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite cache: %w", err)
	}

	_, err = db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS responses (
		key TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		status_code INTEGER NOT NULL,
		etag TEXT NOT NULL DEFAULT '',
		data BLOB NOT NULL,
		stored_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL DEFAULT 0
	)`)
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("migrating sqlite cache: %w", err)
	}

	return &SQLiteCache{db: db}, nil
}

// Get returns the entry stored under key.
func (c *SQLiteCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	var (
		entry     CacheEntry
		storedAt  int64
		expiresAt int64
	)

	err := c.db.QueryRowContext(ctx,
		"SELECT url, status_code, etag, data, stored_at, expires_at FROM responses WHERE key = ?",
		HashKey(key),
	).Scan(&entry.URL, &entry.StatusCode, &entry.ETag, &entry.Data, &storedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	if err != nil {
		return nil, fmt.Errorf("reading sqlite cache: %w", err)
	}

	entry.StoredAt = time.Unix(0, storedAt)
	if expiresAt > 0 {
		entry.ExpiresAt = time.Unix(0, expiresAt)
	}

	if entry.Expired(time.Now()) {
		_ = c.Delete(ctx, key)

		return nil, fmt.Errorf("%w: %s", ErrEntryExpired, key)
	}

	return &entry, nil
}

// Set upserts entry.
func (c *SQLiteCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	var expiresAt int64
	if !entry.ExpiresAt.IsZero() {
		expiresAt = entry.ExpiresAt.UnixNano()
	}

	_, err := c.db.ExecContext(ctx,
		`INSERT INTO responses (key, url, status_code, etag, data, stored_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			url = excluded.url,
			status_code = excluded.status_code,
			etag = excluded.etag,
			data = excluded.data,
			stored_at = excluded.stored_at,
			expires_at = excluded.expires_at`,
		HashKey(key), entry.URL, entry.StatusCode, entry.ETag, entry.Data, entry.StoredAt.UnixNano(), expiresAt,
	)
	if err != nil {
		return fmt.Errorf("writing sqlite cache: %w", err)
	}

	return nil
}

// Delete removes key.
func (c *SQLiteCache) Delete(ctx context.Context, key string) error {
	_, err := c.db.ExecContext(ctx, "DELETE FROM responses WHERE key = ?", HashKey(key))
	if err != nil {
		return fmt.Errorf("deleting from sqlite cache: %w", err)
	}

	return nil
}

// Clear removes every entry.
func (c *SQLiteCache) Clear(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, "DELETE FROM responses")
	if err != nil {
		return fmt.Errorf("clearing sqlite cache: %w", err)
	}

	return nil
}

// Has reports whether a fresh entry exists for key.
func (c *SQLiteCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}

// Close closes the database.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
