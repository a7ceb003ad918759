package yarasp

import (
	"context"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
)

// EndpointClient exposes one typed method per API endpoint.
type EndpointClient interface {
	Search(ctx context.Context, req *SearchRequest, opts ...CallOption) (*Result, error)
	Schedule(ctx context.Context, req *ScheduleRequest, opts ...CallOption) (*Result, error)
	Thread(ctx context.Context, req *ThreadRequest, opts ...CallOption) (*Result, error)
	NearestStations(ctx context.Context, req *NearestStationsRequest, opts ...CallOption) (*Result, error)
	NearestSettlement(ctx context.Context, req *NearestSettlementRequest, opts ...CallOption) (*Result, error)
	Carrier(ctx context.Context, req *CarrierRequest, opts ...CallOption) (*Result, error)
	StationsList(ctx context.Context, req *StationsListRequest, opts ...CallOption) (*Result, error)
	Copyright(ctx context.Context, opts ...CallOption) (*Result, error)

	// Get calls any endpoint with raw query parameters.
	Get(ctx context.Context, endpoint Endpoint, params url.Values, opts ...CallOption) (*Result, error)
}

// UsageClient reports live request accounting.
type UsageClient interface {
	Usage(ctx context.Context) (*UsageStatus, error)
	// IsFromCache reports whether the last completed call was served
	// entirely from cache.
	IsFromCache() bool
}

// CacheClient manages the response cache.
type CacheClient interface {
	CacheStats() CacheStats
	ClearCache(ctx context.Context) error
}

// Client is the schedule API client.
type Client interface {
	EndpointClient
	UsageClient
	CacheClient

	Close() error
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// UsageStore persists the per-day live request count. Implementations live
// in the usage package; any type with this method set can be injected.
type UsageStore interface {
	GetCount(ctx context.Context, day string) (int, error)
	Increment(ctx context.Context, day string) (int, error)
	Close() error
}

// UsageStatus is a snapshot of today's accounting.
type UsageStatus struct {
	Day       string `json:"day"       yaml:"day"`
	Count     int    `json:"count"     yaml:"count"`
	Limit     int    `json:"limit"     yaml:"limit"`
	Remaining int    `json:"remaining" yaml:"remaining"`
	SafeMode  bool   `json:"safe_mode" yaml:"safe_mode"`
	Backend   string `json:"backend"   yaml:"backend"`
}

// CounterConfig selects where the daily usage counter is stored.
type CounterConfig struct {
	// Backend is one of "json", "memory", "redis", "sqlite" or "nats".
	// Empty selects a backend matching the response cache, falling back to json.
	Backend string
	// Path is the JSON counter file or the SQLite database.
	Path string
	// RedisURL is used when RedisClient is nil.
	RedisURL    string
	RedisClient *redis.Client
	// NATSURL and NATSBucket configure the JetStream key-value counter.
	NATSURL    string
	NATSBucket string
}

// Config represents client configuration.
//
// # Usage accounting
//
// Every live request that succeeds is counted against the current local date.
// With safe mode on (the default) a request is refused with a
// LimitExceededError once the count reaches DailyLimit. Responses served from
// the cache are never counted and never refused.
//
// # Caching
//
// Cache selects a response cache backend. Cache keys and stored URLs never
// include the API key. CacheOnly turns every cache miss into a CacheMissError
// without touching the network.
type Config struct {
	// APIKey is sent as the apikey query parameter. Required unless CacheOnly.
	APIKey string
	// BaseURL defaults to https://api.rasp.yandex.net/v3.0.
	BaseURL string
	// UserAgent overrides the default User-Agent header.
	UserAgent string
	// Headers are added to every live request.
	Headers map[string]string

	// DailyLimit is the number of live requests allowed per day (default 500).
	DailyLimit int
	// DisableSafeMode lets requests through past DailyLimit. They are still counted.
	DisableSafeMode bool
	// Counter configures the usage counter backend. Ignored when UsageStore is set.
	Counter *CounterConfig
	// UsageStore injects a pre-built counter store shared with other clients.
	UsageStore UsageStore

	// Cache configures the response cache. Nil disables caching.
	Cache *CacheConfig
	// CacheOnly serves responses from cache and never performs live requests.
	CacheOnly bool
	// PageLimit is the page size used when aggregating paginated endpoints.
	PageLimit int

	// HTTPTimeout bounds each HTTP attempt.
	HTTPTimeout time.Duration
	// RetryMax is the maximum number of retries for 5xx, 429 and connection errors.
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// RequestsPerSecond throttles live requests client-side. Zero disables it.
	RequestsPerSecond float64

	// Verbose logs one line per response with its size and cache status.
	Verbose bool
	// Debug enables HTTP request/response logging.
	Debug  bool
	Logger Logger

	// Now overrides the clock used to compute the day key.
	Now func() time.Time
}

// CallOptions tune a single call.
type CallOptions struct {
	// ForceLive skips the cache lookup. The fresh response still refreshes the cache.
	ForceLive bool
	// CacheOnly overrides Config.CacheOnly for this call.
	CacheOnly bool
	// NoPaginate fetches only the first page of a paginated endpoint.
	NoPaginate bool
	// PageLimit overrides Config.PageLimit for this call.
	PageLimit int
}

// CallOption configures CallOptions.
type CallOption func(*CallOptions)

// WithForceLive bypasses the cache for this call.
func WithForceLive() CallOption {
	return func(o *CallOptions) { o.ForceLive = true }
}

// WithCacheOnly forbids live requests for this call.
func WithCacheOnly() CallOption {
	return func(o *CallOptions) { o.CacheOnly = true }
}

// WithoutPagination returns only the first page.
func WithoutPagination() CallOption {
	return func(o *CallOptions) { o.NoPaginate = true }
}

// WithPageLimit sets the page size for this call.
func WithPageLimit(limit int) CallOption {
	return func(o *CallOptions) { o.PageLimit = limit }
}

// ApplyCallOptions folds opts into a CallOptions value.
func ApplyCallOptions(opts ...CallOption) CallOptions {
	var options CallOptions

	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	return options
}
