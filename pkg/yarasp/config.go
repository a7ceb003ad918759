package yarasp

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/yarasp/yarasp-go/internal/constants"
)

// DefaultConfig returns a configuration with safe mode on, the default daily
// limit and a file-backed response cache in the working directory.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:      constants.DefaultBaseURL,
		UserAgent:    constants.DefaultUserAgent,
		DailyLimit:   constants.DefaultDailyLimit,
		PageLimit:    constants.DefaultPageLimit,
		HTTPTimeout:  constants.DefaultHTTPTimeout,
		RetryMax:     constants.DefaultRetryMax,
		RetryWaitMin: constants.DefaultRetryWaitMin,
		RetryWaitMax: constants.DefaultRetryWaitMax,
		Counter: &CounterConfig{
			Backend: "json",
			Path:    constants.DefaultCounterFile,
		},
		Cache: &CacheConfig{
			Type: CacheTypeFile,
			File: &FileCacheConfig{Dir: constants.DefaultCacheDir},
		},
	}
}

// Normalize fills zero values with defaults and validates the result. It
// returns a ConfigurationError for values that cannot be used.
func (c *Config) Normalize() error {
	c.APIKey = strings.TrimSpace(c.APIKey)
	if c.APIKey == "" && !c.CacheOnly {
		return &ConfigurationError{Field: "APIKey", Err: ErrAPIKeyRequired}
	}

	if c.BaseURL == "" {
		c.BaseURL = constants.DefaultBaseURL
	}

	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")

	parsed, err := url.Parse(c.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return &ConfigurationError{Field: "BaseURL", Err: fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.BaseURL)}
	}

	if c.DailyLimit == 0 {
		c.DailyLimit = constants.DefaultDailyLimit
	}

	if c.DailyLimit < 0 {
		return &ConfigurationError{Field: "DailyLimit", Err: fmt.Errorf("%w: %d", ErrInvalidDailyLimit, c.DailyLimit)}
	}

	if c.PageLimit <= 0 {
		c.PageLimit = constants.DefaultPageLimit
	}

	if c.UserAgent == "" {
		c.UserAgent = constants.DefaultUserAgent
	}

	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = constants.DefaultHTTPTimeout
	}

	if c.Logger == nil {
		c.Logger = NopLogger{}
	}

	if c.Now == nil {
		c.Now = time.Now
	}

	return nil
}
