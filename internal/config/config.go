// Package config loads client settings from the environment and an optional
// YAML file through viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/yarasp/yarasp-go/internal/constants"
	"github.com/yarasp/yarasp-go/pkg/yarasp"
)

// Keys understood by Load. Nested keys map to environment variables with
// dots replaced by underscores, e.g. cache.type is YARASP_CACHE_TYPE.
const (
	KeyAPIKey            = "api_key"
	KeyDailyLimit        = "api_daily_limit"
	KeySafeMode          = "safe_mode"
	KeyVerbose           = "verbose"
	KeyDebug             = "debug"
	KeyBaseURL           = "base_url"
	KeyUserAgent         = "user_agent"
	KeyHeaders           = "headers"
	KeyRetryMax          = "retry_max"
	KeyRequestsPerSecond = "requests_per_second"

	KeyCacheEnabled    = "cache.enabled"
	KeyCacheOnly       = "cache.only"
	KeyCacheType       = "cache.type"
	KeyCacheDir        = "cache.dir"
	KeyCacheTTL        = "cache.ttl"
	KeyCacheRedisURL   = "cache.redis_url"
	KeyCacheSQLitePath = "cache.sqlite_path"
	KeyCacheNATSURL    = "cache.nats_url"
	KeyCacheMemoryL1   = "cache.memory_l1"

	KeyCounterBackend    = "counter.backend"
	KeyCounterPath       = "counter.path"
	KeyCounterRedisURL   = "counter.redis_url"
	KeyCounterSQLitePath = "counter.sqlite_path"
	KeyCounterNATSURL    = "counter.nats_url"
)

// Keys lists every supported key in display order.
func Keys() []string {
	return []string{
		KeyAPIKey, KeyDailyLimit, KeySafeMode, KeyVerbose, KeyDebug,
		KeyBaseURL, KeyUserAgent, KeyHeaders, KeyRetryMax, KeyRequestsPerSecond,
		KeyCacheEnabled, KeyCacheOnly, KeyCacheType, KeyCacheDir, KeyCacheTTL,
		KeyCacheRedisURL, KeyCacheSQLitePath, KeyCacheNATSURL, KeyCacheMemoryL1,
		KeyCounterBackend, KeyCounterPath, KeyCounterRedisURL,
		KeyCounterSQLitePath, KeyCounterNATSURL,
	}
}

// IsKnownKey reports whether key is supported.
func IsKnownKey(key string) bool {
	for _, known := range Keys() {
		if known == key {
			return true
		}
	}

	return false
}

// New returns a viper instance reading YARASP_* variables with defaults set.
func New() *viper.Viper {
	v := viper.New()
	Configure(v)

	return v
}

// Configure installs the environment binding and defaults on v.
func Configure(v *viper.Viper) {
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyDailyLimit, constants.DefaultDailyLimit)
	v.SetDefault(KeySafeMode, "true")
	v.SetDefault(KeyVerbose, "false")
	v.SetDefault(KeyBaseURL, constants.DefaultBaseURL)
	v.SetDefault(KeyUserAgent, constants.DefaultUserAgent)
	v.SetDefault(KeyRetryMax, constants.DefaultRetryMax)
	v.SetDefault(KeyCacheEnabled, "true")
	v.SetDefault(KeyCacheType, string(yarasp.CacheTypeFile))
	v.SetDefault(KeyCacheDir, constants.DefaultCacheDir)
	v.SetDefault(KeyCacheTTL, constants.DefaultCacheTTL.String())
	v.SetDefault(KeyCacheSQLitePath, constants.DefaultCacheDB)
	v.SetDefault(KeyCounterPath, constants.DefaultCounterFile)
}

// DefaultDir returns ~/.yarasp.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}

	return filepath.Join(home, ".yarasp"), nil
}

// DefaultPath returns ~/.yarasp/config.yml.
func DefaultPath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, "config.yml"), nil
}

// ReadFile reads path into v. A missing file is not an error.
func ReadFile(v *viper.Viper, path string) error {
	v.SetConfigFile(path)
	v.SetConfigType("yml")

	err := v.ReadInConfig()
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}

	return fmt.Errorf("reading config file %s: %w", path, err)
}

// ReadFileValues returns only the values stored in the file at path, without
// environment overrides or defaults.
func ReadFileValues(path string) (map[string]string, error) {
	v := viper.New()

	err := ReadFile(v, path)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string)

	for _, key := range Keys() {
		if v.InConfig(key) {
			out[key] = v.GetString(key)
		}
	}

	return out, nil
}

// Load builds a client configuration from v. Malformed values fall back to
// their defaults: an unparsable daily limit becomes 500, safe mode is off only
// for "0", "false", "no" or "off", and verbose is on only for "1", "true",
// "yes" or "on".
func Load(v *viper.Viper) *yarasp.Config {
	cfg := yarasp.DefaultConfig()

	cfg.APIKey = strings.TrimSpace(v.GetString(KeyAPIKey))
	cfg.DailyLimit = ParseDailyLimit(v.GetString(KeyDailyLimit))
	cfg.DisableSafeMode = !ParseSafeMode(v.GetString(KeySafeMode))
	cfg.Verbose = ParseFlag(v.GetString(KeyVerbose))
	cfg.Debug = ParseFlag(v.GetString(KeyDebug))
	cfg.BaseURL = v.GetString(KeyBaseURL)
	cfg.UserAgent = v.GetString(KeyUserAgent)
	cfg.Headers = ParseHeaders(v.GetString(KeyHeaders))
	cfg.RetryMax = v.GetInt(KeyRetryMax)
	cfg.RequestsPerSecond = v.GetFloat64(KeyRequestsPerSecond)
	cfg.CacheOnly = ParseFlag(v.GetString(KeyCacheOnly))

	cfg.Cache = loadCache(v)
	cfg.Counter = &yarasp.CounterConfig{
		Backend:  v.GetString(KeyCounterBackend),
		Path:     v.GetString(KeyCounterPath),
		RedisURL: v.GetString(KeyCounterRedisURL),
		NATSURL:  v.GetString(KeyCounterNATSURL),
	}

	if sqlitePath := v.GetString(KeyCounterSQLitePath); sqlitePath != "" && cfg.Counter.Backend == "sqlite" {
		cfg.Counter.Path = sqlitePath
	}

	return cfg
}

func loadCache(v *viper.Viper) *yarasp.CacheConfig {
	if !enabledUnlessOff(v.GetString(KeyCacheEnabled)) {
		return nil
	}

	ttl, err := time.ParseDuration(v.GetString(KeyCacheTTL))
	if err != nil || ttl <= 0 {
		ttl = constants.DefaultCacheTTL
	}

	cacheType := yarasp.CacheType(strings.ToLower(v.GetString(KeyCacheType)))
	builder := yarasp.NewCacheBuilder().
		WithType(cacheType).
		WithOptions(&yarasp.CacheOptions{TTL: ttl})

	switch cacheType {
	case yarasp.CacheTypeMemory:
		builder.WithMemoryConfig(constants.DefaultCacheSize)
	case yarasp.CacheTypeFile:
		builder.WithFileConfig(&yarasp.FileCacheConfig{Dir: v.GetString(KeyCacheDir)})
	case yarasp.CacheTypeRedis:
		builder.WithRedisConfig(&yarasp.RedisCacheConfig{URL: v.GetString(KeyCacheRedisURL)})
	case yarasp.CacheTypeSQLite:
		builder.WithSQLiteConfig(&yarasp.SQLiteCacheConfig{Path: v.GetString(KeyCacheSQLitePath)})
	case yarasp.CacheTypeNATS:
		builder.WithNATSConfig(&yarasp.NATSKVConfig{URL: v.GetString(KeyCacheNATSURL)})
	}

	if ParseFlag(v.GetString(KeyCacheMemoryL1)) {
		builder.WithMemoryL1(constants.DefaultCacheSize)
	}

	return builder.Config()
}

// ParseDailyLimit parses a positive integer, falling back to the default.
func ParseDailyLimit(raw string) int {
	limit, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || limit <= 0 {
		return constants.DefaultDailyLimit
	}

	return limit
}

// ParseHeaders parses "Name=value,Other=value" into a header map. Entries
// without a name are skipped.
func ParseHeaders(raw string) map[string]string {
	var headers map[string]string

	for _, pair := range strings.Split(raw, ",") {
		name, value, _ := strings.Cut(pair, "=")

		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		if headers == nil {
			headers = make(map[string]string)
		}

		headers[name] = strings.TrimSpace(value)
	}

	return headers
}

// ParseSafeMode is true unless raw is an explicit "off" value.
func ParseSafeMode(raw string) bool {
	return enabledUnlessOff(raw)
}

func enabledUnlessOff(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "0", "false", "no", "off":
		return false
	default:
		return true
	}
}

// ParseFlag is true only for an explicit "on" value.
func ParseFlag(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// File is the on-disk configuration written by `yarasp config set`.
type File map[string]interface{}

// Save writes values to path as YAML, creating the directory if needed. Nested
// keys such as cache.type are written as nested maps.
func Save(path string, values map[string]string) error {
	err := os.MkdirAll(filepath.Dir(path), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	out := File{}

	for key, value := range values {
		parts := strings.SplitN(key, ".", 2)
		if len(parts) == 1 {
			out[key] = value

			continue
		}

		section, ok := out[parts[0]].(File)
		if !ok {
			section = File{}
			out[parts[0]] = section
		}

		section[parts[1]] = value
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	err = os.WriteFile(path, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Values returns the effective value of every known key that is not empty.
func Values(v *viper.Viper) map[string]string {
	out := make(map[string]string)

	for _, key := range Keys() {
		value := v.GetString(key)
		if value != "" {
			out[key] = value
		}
	}

	return out
}

// MaskSecret hides all but the last few characters of secret.
func MaskSecret(secret string) string {
	if secret == "" {
		return constants.NotAvailable
	}

	if len(secret) <= constants.MaskVisibleChars {
		return constants.MaskedSecret
	}

	return constants.MaskedSecret + secret[len(secret)-constants.MaskVisibleChars:]
}
