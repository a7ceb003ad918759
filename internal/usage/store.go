// Package usage persists the daily live request counter and enforces the
// daily limit on top of it.
package usage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/yarasp/yarasp-go/internal/constants"
	"github.com/yarasp/yarasp-go/pkg/yarasp"
)

// Static errors for err113 compliance.
var (
	ErrStorageWrite       = errors.New("usage counter write failed")
	ErrUnsupportedBackend = errors.New("unsupported usage counter backend")
	ErrInvalidLimit       = errors.New("daily limit must be positive")
	ErrStoreRequired      = errors.New("usage store is required")
	ErrRedisRequired      = errors.New("redis client or URL is required for the redis backend")
)

// Store persists a count per calendar day. Implementations must never return
// a negative count and must treat unreadable data as zero.
type Store interface {
	// GetCount returns the count for day, or 0 when nothing is stored.
	GetCount(ctx context.Context, day string) (int, error)
	// Increment adds one to the count for day and returns the new value.
	Increment(ctx context.Context, day string) (int, error)
	Close() error
}

var _ yarasp.UsageStore = Store(nil)

// Backend names a Store implementation.
type Backend string

const (
	BackendJSON   Backend = "json"
	BackendMemory Backend = "memory"
	BackendRedis  Backend = "redis"
	BackendSQLite Backend = "sqlite"
	BackendNATS   Backend = "nats"
)

// Config selects and configures a Store.
type Config struct {
	Backend Backend
	// Path is the JSON file or SQLite database.
	Path string
	// APIKey scopes shared backends (redis, sqlite, nats) to one key. Only a
	// fingerprint of it is stored.
	APIKey string

	RedisClient *redis.Client
	RedisURL    string

	NATSConn   *nats.Conn
	NATSURL    string
	NATSBucket string

	Logger yarasp.Logger
}

// NewStore builds the configured Store. Unknown backends fail here.
func NewStore(ctx context.Context, cfg Config) (Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = yarasp.NopLogger{}
	}

	switch cfg.Backend {
	case BackendJSON, "":
		path := cfg.Path
		if path == "" {
			path = constants.DefaultCounterFile
		}

		return NewJSONStore(path, logger), nil

	case BackendMemory:
		return NewMemoryStore(), nil

	case BackendRedis:
		return newRedisStoreFromConfig(ctx, cfg, logger)

	case BackendSQLite:
		return NewSQLiteStore(ctx, SQLitePath(cfg.Path), Fingerprint(cfg.APIKey), logger)

	case BackendNATS:
		return newNATSStoreFromConfig(ctx, cfg, logger)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, cfg.Backend)
	}
}

func newRedisStoreFromConfig(ctx context.Context, cfg Config, logger yarasp.Logger) (Store, error) {
	rdb := cfg.RedisClient
	owned := false

	if rdb == nil {
		if cfg.RedisURL == "" {
			return nil, ErrRedisRequired
		}

		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis URL: %w", err)
		}

		rdb = redis.NewClient(opts)
		owned = true
	}

	err := rdb.Ping(ctx).Err()
	if err != nil {
		if owned {
			_ = rdb.Close()
		}

		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	store := NewRedisStore(rdb, Fingerprint(cfg.APIKey), WithRedisLogger(logger))
	store.owned = owned

	return store, nil
}

func newNATSStoreFromConfig(ctx context.Context, cfg Config, logger yarasp.Logger) (Store, error) {
	nc := cfg.NATSConn
	owned := false

	if nc == nil {
		url := cfg.NATSURL
		if url == "" {
			url = nats.DefaultURL
		}

		conn, err := nats.Connect(url, nats.Name("yarasp-usage"))
		if err != nil {
			return nil, fmt.Errorf("connecting to NATS: %w", err)
		}

		nc = conn
		owned = true
	}

	store, err := NewNATSStore(ctx, nc, cfg.NATSBucket, Fingerprint(cfg.APIKey), logger)
	if err != nil {
		if owned {
			nc.Close()
		}

		return nil, err
	}

	store.owned = owned

	return store, nil
}

// SQLitePath returns path when it names a SQLite file, otherwise the default
// counter database.
func SQLitePath(path string) string {
	if strings.HasSuffix(path, ".db") || strings.HasSuffix(path, ".sqlite") {
		return path
	}

	return constants.DefaultCounterDB
}

// DayKey renders t as the counter key in t's location.
func DayKey(t time.Time) string {
	return t.Format(constants.DayKeyLayout)
}

// Today returns the key for the current local date.
func Today() string {
	return DayKey(time.Now())
}

// Fingerprint derives a stable, non-reversible identifier for an API key.
func Fingerprint(apiKey string) string {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return "anonymous"
	}

	sum := sha256.Sum256([]byte(apiKey))

	return hex.EncodeToString(sum[:8])
}
