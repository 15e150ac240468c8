package dataflows

import "errors"

// Config carries the settings shared by the dataflow clients.
type Config struct {
	DataCacheDir string
	CacheEnabled bool
	UserAgent    string
}

// Errors the callers are expected to handle rather than retry.
var (
	// ErrAuth indicates the upstream rejected our credentials or blocked the
	// client (HTTP 401/403).
	ErrAuth = errors.New("forum authentication failed")

	// ErrRateLimited indicates the upstream throttled us (HTTP 429).
	ErrRateLimited = errors.New("forum rate limited")
)
