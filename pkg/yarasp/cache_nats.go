package yarasp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/yarasp/yarasp-go/internal/constants"
)

// NATSKVConfig configures the NATS JetStream key-value cache.
type NATSKVConfig struct {
	// URL is dialed when Conn is nil.
	URL  string
	Conn *nats.Conn
	// Bucket defaults to "yarasp_cache".
	Bucket string
	// TTL is the bucket-wide maximum age. Zero keeps entries until they
	// expire by ExpiresAt.
	TTL      time.Duration
	Replicas int
}

// NATSKVCache stores entries in a JetStream KV bucket.
type NATSKVCache struct {
	nc    *nats.Conn
	kv    jetstream.KeyValue
	owned bool
}

// NewNATSKVCache connects and creates or updates the bucket.
func NewNATSKVCache(ctx context.Context, config *NATSKVConfig) (*NATSKVCache, error) {
	nc := config.Conn
	owned := false

	if nc == nil {
		url := config.URL
		if url == "" {
			url = nats.DefaultURL
		}

		conn, err := nats.Connect(url, nats.Name("yarasp-cache"))
		if err != nil {
			return nil, fmt.Errorf("connecting to NATS: %w", err)
		}

		nc = conn
		owned = true
	}

	kv, err := openKeyValue(ctx, nc, jetstream.KeyValueConfig{
		Bucket:       bucketOrDefault(config.Bucket, constants.DefaultNATSCacheBucket),
		Description:  "yarasp response cache",
		TTL:          config.TTL,
		MaxValueSize: constants.MaxCacheValueSize,
		Replicas:     config.Replicas,
	})
	if err != nil {
		if owned {
			nc.Close()
		}

		return nil, err
	}

	return &NATSKVCache{nc: nc, kv: kv, owned: owned}, nil
}

func bucketOrDefault(bucket, fallback string) string {
	if bucket == "" {
		return fallback
	}

	return bucket
}

func openKeyValue(ctx context.Context, nc *nats.Conn, cfg jetstream.KeyValueConfig) (jetstream.KeyValue, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating KV bucket %s: %w", cfg.Bucket, err)
	}

	return kv, nil
}

// Get returns the entry stored under key.
func (c *NATSKVCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	kve, err := c.kv.Get(ctx, HashKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	if err != nil {
		return nil, fmt.Errorf("reading from NATS KV: %w", err)
	}

	var entry CacheEntry

	err = json.Unmarshal(kve.Value(), &entry)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: corrupt entry", ErrKeyNotFound, key)
	}

	if entry.Expired(time.Now()) {
		_ = c.Delete(ctx, key)

		return nil, fmt.Errorf("%w: %s", ErrEntryExpired, key)
	}

	return &entry, nil
}

// Set stores entry. Values larger than the bucket limit are skipped.
func (c *NATSKVCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	if len(data) > constants.MaxCacheValueSize {
		return nil
	}

	_, err = c.kv.Put(ctx, HashKey(key), data)
	if err != nil {
		return fmt.Errorf("writing to NATS KV: %w", err)
	}

	return nil
}

// Delete removes key.
func (c *NATSKVCache) Delete(ctx context.Context, key string) error {
	err := c.kv.Delete(ctx, HashKey(key))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("deleting from NATS KV: %w", err)
	}

	return nil
}

// Clear purges every key in the bucket.
func (c *NATSKVCache) Clear(ctx context.Context) error {
	lister, err := c.kv.ListKeys(ctx)
	if err != nil {
		return fmt.Errorf("listing NATS KV keys: %w", err)
	}

	defer func() { _ = lister.Stop() }()

	for key := range lister.Keys() {
		err = c.kv.Purge(ctx, key)
		if err != nil {
			return fmt.Errorf("purging NATS KV key: %w", err)
		}
	}

	return nil
}

// Has reports whether a fresh entry exists for key.
func (c *NATSKVCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}

// Close drains the connection if the cache opened it.
func (c *NATSKVCache) Close() error {
	if c.owned {
		return c.nc.Drain()
	}

	return nil
}

// OpenKeyValue exposes bucket creation for other NATS-backed stores.
func OpenKeyValue(ctx context.Context, nc *nats.Conn, cfg jetstream.KeyValueConfig) (jetstream.KeyValue, error) {
	return openKeyValue(ctx, nc, cfg)
}
