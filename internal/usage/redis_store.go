package usage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yarasp/yarasp-go/internal/constants"
	"github.com/yarasp/yarasp-go/pkg/yarasp"
)

// RedisStore keeps one integer key per API key and day.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	scope  string
	ttl    time.Duration
	logger yarasp.Logger
	owned  bool
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisPrefix sets the key namespace.
func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = strings.Trim(prefix, ":") }
}

// WithRedisTTL expires day keys after d. Zero keeps them forever.
func WithRedisTTL(d time.Duration) RedisOption {
	return func(s *RedisStore) { s.ttl = d }
}

// WithRedisLogger sets the logger for corruption warnings.
func WithRedisLogger(logger yarasp.Logger) RedisOption {
	return func(s *RedisStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewRedisStore creates a store scoped to scope, normally Fingerprint(apiKey).
func NewRedisStore(rdb *redis.Client, scope string, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		rdb:    rdb,
		prefix: constants.DefaultRedisPrefix,
		scope:  scope,
		logger: yarasp.NopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Key returns the Redis key holding day's count.
func (s *RedisStore) Key(day string) string {
	return s.prefix + ":" + s.scope + ":" + day
}

// GetCount returns the count for day.
func (s *RedisStore) GetCount(ctx context.Context, day string) (int, error) {
	raw, err := s.rdb.Get(ctx, s.Key(day)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}

	if err != nil {
		return 0, fmt.Errorf("reading usage counter: %w", err)
	}

	count, err := strconv.Atoi(raw)
	if err != nil || count < 0 {
		s.logger.Warn("Usage counter entry corrupt, treating as zero", map[string]interface{}{
			"key": s.Key(day),
		})

		return 0, nil
	}

	return count, nil
}

// Increment atomically adds one to day's count and, when a TTL is set,
// refreshes the key's expiry in the same transaction. A non-integer value
// is replaced by 1.
func (s *RedisStore) Increment(ctx context.Context, day string) (int, error) {
	key := s.Key(day)

	var incr *redis.IntCmd

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}

		return nil
	})
	if incr != nil && incr.Err() != nil && isNotInteger(incr.Err()) {
		s.logger.Warn("Usage counter entry corrupt, resetting", map[string]interface{}{
			"key": key,
		})

		return s.reset(ctx, key)
	}

	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}

	count := incr.Val()
	if count < 1 {
		s.logger.Warn("Usage counter entry negative, resetting", map[string]interface{}{
			"key": key,
		})

		return s.reset(ctx, key)
	}

	return int(count), nil
}

func (s *RedisStore) reset(ctx context.Context, key string) (int, error) {
	err := s.rdb.Set(ctx, key, 1, s.ttl).Err()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}

	return 1, nil
}

// Close closes the client if the store created it.
func (s *RedisStore) Close() error {
	if s.owned {
		return s.rdb.Close()
	}

	return nil
}

func isNotInteger(err error) bool {
	return strings.Contains(err.Error(), "not an integer")
}
