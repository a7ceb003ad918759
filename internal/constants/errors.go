package constants

import "errors"

// Configuration errors.
var (
	ErrNoAPIKeyConfigured = errors.New("no API key configured, set YARASP_API_KEY or run 'yarasp config set-key'")
	ErrUnknownConfigKey   = errors.New("unknown configuration key")
	ErrEmptyAPIKey        = errors.New("API key must not be empty")
)

// Command errors.
var (
	ErrFromRequired       = errors.New("--from is required")
	ErrToRequired         = errors.New("--to is required")
	ErrStationRequired    = errors.New("--station is required")
	ErrUIDRequired        = errors.New("thread UID is required")
	ErrCoordinatesMissing = errors.New("--lat and --lng are required")
	ErrCarrierCodeMissing = errors.New("carrier code is required")
	ErrInvalidParam       = errors.New("invalid parameter, expected key=value")
	ErrUnknownEndpoint    = errors.New("unknown endpoint")
	ErrUnknownOutput      = errors.New("unknown output format")
)
