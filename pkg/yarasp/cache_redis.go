package yarasp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yarasp/yarasp-go/internal/constants"
)

// RedisCacheConfig configures the Redis cache.
type RedisCacheConfig struct {
	// URL is parsed with redis.ParseURL when Client is nil.
	URL    string
	Client *redis.Client
	// Prefix namespaces the keys. Defaults to "yarasp:cache".
	Prefix string
}

// RedisCache stores entries as JSON strings with a Redis TTL.
type RedisCache struct {
	rdb    *redis.Client
	prefix string
	owned  bool
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, config *RedisCacheConfig) (*RedisCache, error) {
	rdb := config.Client
	owned := false

	if rdb == nil {
		opts, err := redis.ParseURL(config.URL)
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

	prefix := strings.Trim(config.Prefix, ":")
	if prefix == "" {
		prefix = constants.DefaultRedisCachePrefix
	}

	return &RedisCache{rdb: rdb, prefix: prefix, owned: owned}, nil
}

func (c *RedisCache) key(key string) string {
	return c.prefix + ":" + HashKey(key)
}

// Get returns the entry stored under key.
func (c *RedisCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	data, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	if err != nil {
		return nil, fmt.Errorf("reading from redis: %w", err)
	}

	var entry CacheEntry

	err = json.Unmarshal(data, &entry)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: corrupt entry", ErrKeyNotFound, key)
	}

	return &entry, nil
}

// Set stores entry with a TTL derived from ExpiresAt.
func (c *RedisCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	var ttl time.Duration
	if !entry.ExpiresAt.IsZero() {
		ttl = time.Until(entry.ExpiresAt)
		if ttl <= 0 {
			return nil
		}
	}

	err = c.rdb.Set(ctx, c.key(key), data, ttl).Err()
	if err != nil {
		return fmt.Errorf("writing to redis: %w", err)
	}

	return nil
}

// Delete removes key.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, c.key(key)).Err()
}

// Clear removes every key under the prefix.
func (c *RedisCache) Clear(ctx context.Context) error {
	iter := c.rdb.Scan(ctx, 0, c.prefix+":*", 0).Iterator()

	pipe := c.rdb.Pipeline()
	for iter.Next(ctx) {
		pipe.Del(ctx, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("scanning redis keys: %w", err)
	}

	_, err := pipe.Exec(ctx)
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("clearing redis cache: %w", err)
	}

	return nil
}

// Has reports whether key exists.
func (c *RedisCache) Has(ctx context.Context, key string) bool {
	n, err := c.rdb.Exists(ctx, c.key(key)).Result()

	return err == nil && n > 0
}

// Close closes the client if the cache created it.
func (c *RedisCache) Close() error {
	if c.owned {
		return c.rdb.Close()
	}

	return nil
}
