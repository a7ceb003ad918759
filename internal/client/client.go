package client

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/yarasp/yarasp-go/internal/constants"
	"github.com/yarasp/yarasp-go/internal/http"
	"github.com/yarasp/yarasp-go/internal/usage"
	"github.com/yarasp/yarasp-go/pkg/yarasp"
)

// Client implements the yarasp.Client interface.
type Client struct {
	httpClient *http.Client
	gate       *usage.Gate
	cache      *yarasp.CacheManager
	policy     *yarasp.CachingPolicy
	chain      *yarasp.InterceptorChain
	metrics    *yarasp.MetricsCollector
	config     yarasp.Config
	logger     yarasp.Logger

	// ownsStore is false when the store was injected through Config.UsageStore.
	ownsStore bool

	lastFromCache atomic.Bool
	closed        atomic.Bool
}

var _ yarasp.Client = (*Client)(nil)

// New creates a schedule API client. Configuration problems are reported as
// *yarasp.ConfigurationError before anything is opened.
func New(ctx context.Context, config *yarasp.Config) (*Client, error) {
	if config == nil {
		return nil, &yarasp.ConfigurationError{Field: "Config", Err: yarasp.ErrConfigRequired}
	}

	cfg := *config

	err := cfg.Normalize()
	if err != nil {
		return nil, err
	}

	cache, err := newCache(ctx, cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("creating response cache: %w", err)
	}

	store, backend, owned, err := newUsageStore(ctx, &cfg)
	if err != nil {
		_ = yarasp.CloseCache(cache)

		return nil, fmt.Errorf("creating usage counter: %w", err)
	}

	gate, err := usage.NewGate(store, usage.GateConfig{
		DailyLimit: cfg.DailyLimit,
		SafeMode:   !cfg.DisableSafeMode,
		Backend:    backend,
		Now:        cfg.Now,
		Logger:     cfg.Logger,
	})
	if err != nil {
		_ = yarasp.CloseCache(cache)
		if owned {
			_ = store.Close()
		}

		return nil, &yarasp.ConfigurationError{Field: "DailyLimit", Err: err}
	}

	var options *yarasp.CacheOptions
	if cfg.Cache != nil {
		options = cfg.Cache.Options
	}

	client := &Client{
		httpClient: http.NewClient(cfg.BaseURL, createHTTPClientOptions(&cfg)...),
		gate:       gate,
		cache:      yarasp.NewCacheManager(cache, options),
		policy:     yarasp.DefaultCachingPolicy(),
		metrics:    yarasp.NewMetricsCollector(),
		config:     cfg,
		logger:     cfg.Logger,
		ownsStore:  owned,
	}
	client.chain = client.buildInterceptorChain()

	return client, nil
}

// createHTTPClientOptions creates HTTP client options from configuration.
func createHTTPClientOptions(config *yarasp.Config) []http.Option {
	httpOpts := []http.Option{
		http.WithLogger(config.Logger),
		http.WithUserAgent(config.UserAgent),
		http.WithTimeout(config.HTTPTimeout),
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.RetryMax != 0 {
		retryWaitMin := constants.DefaultRetryWaitMin
		retryWaitMax := constants.DefaultRetryWaitMax

		if config.RetryWaitMin > 0 {
			retryWaitMin = config.RetryWaitMin
		}

		if config.RetryWaitMax > 0 {
			retryWaitMax = config.RetryWaitMax
		}

		// A negative RetryMax disables retries.
		httpOpts = append(httpOpts, http.WithRetryConfig(max(config.RetryMax, 0), retryWaitMin, retryWaitMax))
	}

	return httpOpts
}

func newCache(ctx context.Context, config *yarasp.CacheConfig) (yarasp.Cache, error) {
	if config == nil {
		return yarasp.NewNoOpCache(), nil
	}

	return yarasp.NewCacheFromConfig(ctx, config)
}

// newUsageStore returns the injected store or builds one from Config.Counter.
func newUsageStore(ctx context.Context, cfg *yarasp.Config) (usage.Store, string, bool, error) {
	if cfg.UsageStore != nil {
		return cfg.UsageStore, "custom", false, nil
	}

	storeConfig := counterConfig(cfg)

	store, err := usage.NewStore(ctx, storeConfig)
	if err != nil {
		return nil, "", false, err
	}

	return store, string(storeConfig.Backend), true, nil
}

// counterConfig maps Config.Counter to a usage.Config. Without an explicit
// backend the counter follows a Redis, SQLite or NATS response cache and
// otherwise falls back to the JSON file.
func counterConfig(cfg *yarasp.Config) usage.Config {
	counter := cfg.Counter
	if counter == nil {
		counter = &yarasp.CounterConfig{}
	}

	out := usage.Config{
		Backend:     usage.Backend(counter.Backend),
		Path:        counter.Path,
		APIKey:      cfg.APIKey,
		RedisClient: counter.RedisClient,
		RedisURL:    counter.RedisURL,
		NATSURL:     counter.NATSURL,
		NATSBucket:  counter.NATSBucket,
		Logger:      cfg.Logger,
	}

	if out.Backend != "" || cfg.Cache == nil {
		if out.Backend == "" {
			out.Backend = usage.BackendJSON
		}

		return out
	}

	switch cfg.Cache.Type {
	case yarasp.CacheTypeRedis:
		out.Backend = usage.BackendRedis
		if cfg.Cache.Redis != nil && out.RedisClient == nil && out.RedisURL == "" {
			out.RedisClient = cfg.Cache.Redis.Client
			out.RedisURL = cfg.Cache.Redis.URL
		}

	case yarasp.CacheTypeSQLite:
		out.Backend = usage.BackendSQLite
		if out.Path == "" && cfg.Cache.SQLite != nil {
			out.Path = cfg.Cache.SQLite.Path
		}

	case yarasp.CacheTypeNATS:
		out.Backend = usage.BackendNATS
		if cfg.Cache.NATS != nil && out.NATSURL == "" {
			out.NATSConn = cfg.Cache.NATS.Conn
			out.NATSURL = cfg.Cache.NATS.URL
		}

	default:
		out.Backend = usage.BackendJSON
	}

	return out
}

func (c *Client) buildInterceptorChain() *yarasp.InterceptorChain {
	chain := yarasp.NewInterceptorChain()

	if c.config.RequestsPerSecond > 0 {
		chain.AddRequestInterceptor(yarasp.RateLimitInterceptor(c.config.RequestsPerSecond, 1))
	}

	chain.AddRequestInterceptor(yarasp.APIKeyInterceptor(c.config.APIKey))

	if len(c.config.Headers) > 0 {
		chain.AddRequestInterceptor(yarasp.HeaderInterceptor(c.config.Headers))
	}

	chain.AddRequestInterceptor(yarasp.MetricsRequestInterceptor(c.metrics))
	chain.AddRequestInterceptor(yarasp.LoggingInterceptor(c.logger))

	chain.AddResponseInterceptor(yarasp.MetricsResponseInterceptor(c.metrics))
	chain.AddResponseInterceptor(yarasp.LoggingResponseInterceptor(c.logger))

	if c.config.Verbose {
		chain.AddResponseInterceptor(yarasp.VerboseResponseInterceptor(c.logger))
	}

	return chain
}

// Usage implements yarasp.UsageClient.Usage.
func (c *Client) Usage(ctx context.Context) (*yarasp.UsageStatus, error) {
	status, err := c.gate.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting usage: %w", err)
	}

	return status, nil
}

// IsFromCache implements yarasp.UsageClient.IsFromCache.
func (c *Client) IsFromCache() bool {
	return c.lastFromCache.Load()
}

// CacheStats implements yarasp.CacheClient.CacheStats.
func (c *Client) CacheStats() yarasp.CacheStats {
	return c.cache.GetStats()
}

// ClearCache implements yarasp.CacheClient.ClearCache.
func (c *Client) ClearCache(ctx context.Context) error {
	err := c.cache.Clear(ctx)
	if err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}

	return nil
}

// Metrics returns call statistics for endpoint.
func (c *Client) Metrics(endpoint yarasp.Endpoint) (yarasp.Metrics, bool) {
	return c.metrics.GetMetrics(endpoint)
}

// Gate returns the limit gate backing this client.
func (c *Client) Gate() *usage.Gate {
	return c.gate
}

// Close releases the cache and the usage store. Calls after Close fail with
// yarasp.ErrClientClosed.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	var errs []error

	err := yarasp.CloseCache(c.cache.Cache())
	if err != nil {
		errs = append(errs, fmt.Errorf("closing cache: %w", err))
	}

	if c.ownsStore {
		err = c.gate.Close()
		if err != nil {
			errs = append(errs, fmt.Errorf("closing usage counter: %w", err))
		}
	}

	return errors.Join(errs...)
}
