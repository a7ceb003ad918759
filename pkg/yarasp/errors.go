package yarasp

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Common static errors that can be wrapped with context.
var (
	ErrConfigRequired       = errors.New("config is required")
	ErrAPIKeyRequired       = errors.New("API key is required")
	ErrInvalidDailyLimit    = errors.New("daily limit must be positive")
	ErrInvalidBaseURL       = errors.New("invalid base URL")
	ErrLimitExceeded        = errors.New("daily API request limit exceeded")
	ErrCacheMiss            = errors.New("data not found in cache")
	ErrUnknownEndpoint      = errors.New("unknown endpoint")
	ErrInvalidResponse      = errors.New("failed to decode JSON")
	ErrKeyNotFound          = errors.New("key not found")
	ErrEntryExpired         = errors.New("entry expired")
	ErrClientClosed         = errors.New("client is closed")
	ErrRedisConfigRequired  = errors.New("redis configuration required for redis cache")
	ErrSQLiteConfigRequired = errors.New("sqlite configuration required for sqlite cache")
)

// ConfigurationError is returned by constructors when the client cannot be
// built from the given configuration.
type ConfigurationError struct {
	Field string
	Err   error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %v", e.Field, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// LimitExceededError is returned when safe mode blocks a live request because
// the daily counter reached the configured limit.
type LimitExceededError struct {
	Day   string
	Count int
	Limit int
}

// Error implements the error interface.
func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("%s: %d/%d on %s", ErrLimitExceeded, e.Count, e.Limit, e.Day)
}

// Is reports whether target is ErrLimitExceeded.
func (e *LimitExceededError) Is(target error) bool {
	return target == ErrLimitExceeded
}

// CacheMissError is returned in cache-only mode when a response is not cached.
type CacheMissError struct {
	Endpoint string
}

// Error implements the error interface.
func (e *CacheMissError) Error() string {
	return fmt.Sprintf("%s for endpoint '%s'. Set CacheOnly=false to allow API requests", ErrCacheMiss, e.Endpoint)
}

// Is reports whether target is ErrCacheMiss.
func (e *CacheMissError) Is(target error) bool {
	return target == ErrCacheMiss
}

// APIError represents an error payload returned by the schedule API.
type APIError struct {
	HTTPCode   int    `json:"http_code"  yaml:"http_code"`
	ErrorCode  string `json:"error_code" yaml:"error_code"`
	Text       string `json:"text"       yaml:"text"`
	Request    string `json:"request"    yaml:"request"`
	StatusCode int    `json:"-"          yaml:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("%s (code: %s, status: %d)", e.Text, e.ErrorCode, e.StatusCode)
	}

	return fmt.Sprintf("%s (status: %d)", e.Text, e.StatusCode)
}

// ResponseError represents the error envelope returned by the API.
type ResponseError struct {
	Err *APIError `json:"error"`
}

// DecodeError is returned when a successful response body is not valid JSON.
type DecodeError struct {
	Raw string
	Err error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %v", ErrInvalidResponse, e.Err)
}

// Unwrap returns ErrInvalidResponse so callers can match it with errors.Is.
func (e *DecodeError) Unwrap() []error {
	return []error{ErrInvalidResponse, e.Err}
}

// ParseResponseError parses an error response body. A body that does not
// carry the API error envelope still yields an APIError with the raw text.
func ParseResponseError(statusCode int, data []byte) *APIError {
	var envelope ResponseError

	err := json.Unmarshal(data, &envelope)
	if err != nil || envelope.Err == nil {
		return &APIError{
			HTTPCode:   statusCode,
			Text:       string(data),
			StatusCode: statusCode,
		}
	}

	envelope.Err.StatusCode = statusCode

	return envelope.Err
}

// IsLimitExceeded checks if the error was caused by the daily limit.
func IsLimitExceeded(err error) bool {
	return errors.Is(err, ErrLimitExceeded)
}

// IsCacheMiss checks if the error is a cache-only miss.
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

// IsNotFound checks if the error is a 404 from the API.
func IsNotFound(err error) bool {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 404
	}

	return false
}

// IsUnauthorized checks if the API rejected the key.
func IsUnauthorized(err error) bool {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 401 || apiErr.StatusCode == 403
	}

	return false
}
