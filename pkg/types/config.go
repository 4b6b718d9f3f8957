// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make
// network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "search-gateway/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// CacheConfig holds settings for the result cache. All fields are fixed
// at construction.
type CacheConfig struct {
	// Enabled turns caching on. A disabled cache misses on every Get
	// and drops every Set.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// TTL is how long an entry stays valid after Set (default 15m).
	TTL time.Duration `json:"ttl" yaml:"ttl"`

	// CleanupInterval is the period of the background expiry sweep
	// (default 5m).
	CleanupInterval time.Duration `json:"cleanup_interval" yaml:"cleanup_interval"`

	// MaxSize caps the number of resident entries (default 1000). When
	// full, the entry with the lowest access count is evicted.
	MaxSize int `json:"max_size" yaml:"max_size"`
}

// DispatchConfig holds settings for the search dispatcher.
type DispatchConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxAttempts bounds how many providers a single search may try
	// before giving up (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`
}
