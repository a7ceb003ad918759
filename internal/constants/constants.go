package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600

	// CounterFilePerm is the permission for the usage counter file.
	CounterFilePerm = 0600

	// CacheDirPerm is the permission for file cache directories.
	CacheDirPerm = 0750
)

// API defaults.
const (
	// DefaultBaseURL is the root of the schedule API.
	DefaultBaseURL = "https://api.rasp.yandex.net/v3.0"

	// DefaultUserAgent is sent with every request unless overridden.
	DefaultUserAgent = "yarasp-go"

	// APIKeyParam is the query parameter carrying the API key.
	APIKeyParam = "apikey"

	// DefaultDailyLimit is the number of live requests allowed per day.
	DefaultDailyLimit = 500

	// DefaultPageLimit is the page size used when aggregating paginated endpoints.
	DefaultPageLimit = 100
)

// Environment variables.
const (
	// EnvPrefix is the viper environment prefix.
	EnvPrefix = "YARASP"

	// EnvAPIKey holds the API key.
	EnvAPIKey = "YARASP_API_KEY"

	// EnvDailyLimit overrides the daily live request limit.
	EnvDailyLimit = "YARASP_API_DAILY_LIMIT"

	// EnvSafeMode toggles limit enforcement.
	EnvSafeMode = "YARASP_SAFE_MODE"

	// EnvVerbose toggles per-response logging.
	EnvVerbose = "YARASP_VERBOSE"
)

// Storage defaults.
const (
	// DefaultCounterFile is the JSON usage counter file.
	DefaultCounterFile = "yarasp_counter.json"

	// DefaultCounterDB is the SQLite usage counter database.
	DefaultCounterDB = "yarasp_counter.db"

	// DefaultCacheDir is the file cache directory.
	DefaultCacheDir = ".cache/yarasp"

	// DefaultCacheDB is the SQLite response cache database.
	DefaultCacheDB = "yarasp_cache.db"

	// DefaultRedisPrefix namespaces usage counter keys in Redis.
	DefaultRedisPrefix = "yarasp:usage"

	// DefaultRedisCachePrefix namespaces cached responses in Redis.
	DefaultRedisCachePrefix = "yarasp:cache"

	// DefaultNATSUsageBucket is the KV bucket for usage counters.
	DefaultNATSUsageBucket = "yarasp_usage"

	// DefaultNATSCacheBucket is the KV bucket for cached responses.
	DefaultNATSCacheBucket = "yarasp_cache"

	// DayKeyLayout renders the per-day counter key.
	DayKeyLayout = "2006-01-02"
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultBatchConcurrency bounds the calls a BatchExecutor runs at once.
	DefaultBatchConcurrency = 5

	// ShortHTTPTimeout is used for quick operations.
	ShortHTTPTimeout = 10 * time.Second
)

// Retry limits.
const (
	// DefaultRetryMax is the default maximum number of retries.
	DefaultRetryMax = 3

	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 10 * time.Second
)

// Cache limits.
const (
	// DefaultCacheSize is the default in-memory cache size.
	DefaultCacheSize = 1000

	// DefaultCacheTTL is how long a cached response stays fresh.
	DefaultCacheTTL = 24 * time.Hour

	// MaxCacheValueSize is the maximum size for values stored in NATS KV (1MB).
	MaxCacheValueSize = 1024 * 1024

	// CASRetryMax bounds optimistic update retries against NATS KV.
	CASRetryMax = 10
)

// Response sizes.
const (
	// BytesPerKB is the size unit multiplier.
	BytesPerKB = 1024

	// SuspiciousSizeMB is the response size that triggers a warning.
	SuspiciousSizeMB = 300
)

// HTTP status ranges.
const (
	// HTTPStatusOK is the lowest successful status.
	HTTPStatusOK = 200

	// HTTPStatusMultipleChoices is the first redirect status.
	HTTPStatusMultipleChoices = 300

	// HTTPStatusBadRequest is the first client error status.
	HTTPStatusBadRequest = 400

	// HTTPStatusInternalServerError is the first server error status.
	HTTPStatusInternalServerError = 500
)

// Format constants.
const (
	// FormatTable for table output format.
	FormatTable = "table"

	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"

	// JSONIndentSize is the number of spaces for JSON and YAML indentation.
	JSONIndentSize = 2
)

// UI and display constants.
const (
	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"

	// MaskedSecret is used to hide sensitive information.
	MaskedSecret = "***"

	// StatusEnabled indicates an enabled state.
	StatusEnabled = "enabled"

	// StatusDisabled indicates a disabled state.
	StatusDisabled = "disabled"

	// MaskVisibleChars is how many trailing characters of a secret stay visible.
	MaskVisibleChars = 4

	// TitleDisplayLength truncates long titles in tables.
	TitleDisplayLength = 50

	// MinimumArgumentCount is the argument count of KEY VALUE commands.
	MinimumArgumentCount = 2
)
