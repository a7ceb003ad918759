package usage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	_ "modernc.org/sqlite"

	"github.com/yarasp/yarasp-go/pkg/yarasp"
)

// SQLiteStore keeps counts in the apikey_usage table, one row per key and day.
type SQLiteStore struct {
	db     *sql.DB
	scope  string
	logger yarasp.Logger
}

// NewSQLiteStore opens path and creates the schema.
func NewSQLiteStore(ctx context.Context, path, scope string, logger yarasp.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = yarasp.NopLogger{}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening usage database: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()

		return nil, err
	}

	return &SQLiteStore{db: db, scope: scope, logger: logger}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS apikey_usage (
			key TEXT NOT NULL,
			date TEXT NOT NULL,
			counter INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (key, date)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrating usage database: %w", err)
		}
	}

	return nil
}

// GetCount returns the count for day.
func (s *SQLiteStore) GetCount(ctx context.Context, day string) (int, error) {
	var raw sql.NullString

	err := s.db.QueryRowContext(ctx,
		"SELECT counter FROM apikey_usage WHERE key = ? AND date = ?",
		s.scope, day,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}

	if err != nil {
		return 0, fmt.Errorf("reading usage counter: %w", err)
	}

	count, err := strconv.Atoi(raw.String)
	if !raw.Valid || err != nil || count < 0 {
		s.logger.Warn("Usage counter entry corrupt, treating as zero", map[string]interface{}{
			"date": day,
		})

		return 0, nil
	}

	return count, nil
}

// Increment upserts day's row and returns the new count. A corrupt value is
// treated as zero.
func (s *SQLiteStore) Increment(ctx context.Context, day string) (int, error) {
	var count int

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO apikey_usage (key, date, counter) VALUES (?, ?, 1)
		ON CONFLICT (key, date) DO UPDATE SET counter = CASE
			WHEN typeof(counter) = 'integer' AND counter >= 0 THEN counter + 1
			ELSE 1
		END
		RETURNING counter`,
		s.scope, day,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}

	return count, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
