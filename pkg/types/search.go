// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds the shared data structures exchanged between the
// cache, reliability, router, and dispatch layers.
package types

import "time"

// SearchItem is a single result produced by a provider. Immutable once
// returned.
type SearchItem struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`

	// Relevance scores the item in [0,1]. Instant answers carry 1.0,
	// related topics 0.7, generic results 0.6.
	Relevance float64 `json:"relevance"`
}

// SearchResult is the unified response shape shared by all providers.
type SearchResult struct {
	Query      string       `json:"query"`
	Found      bool         `json:"found"`
	Results    []SearchItem `json:"results"`
	Confidence float64      `json:"confidence"`

	// Source is the identifier of the provider that produced the result.
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// ProviderStats is the rolling reliability record for one provider.
// RequestsTotal is always RequestsSuccess + RequestsFailed and
// FailureRate stays in [0,1].
type ProviderStats struct {
	ProviderName      string     `json:"provider_name"`
	RequestsTotal     int64      `json:"requests_total"`
	RequestsSuccess   int64      `json:"requests_success"`
	RequestsFailed    int64      `json:"requests_failed"`
	FailureRate       float64    `json:"failure_rate"`
	AvgResponseTimeMs int64      `json:"avg_response_time_ms"`
	LastSuccess       *time.Time `json:"last_success,omitempty"`
	LastFailure       *time.Time `json:"last_failure,omitempty"`
	LastError         string     `json:"last_error"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ProviderRecord describes a configured provider as stored in the
// provider registry file.
type ProviderRecord struct {
	Name             string `json:"name" yaml:"name"`
	Enabled          bool   `json:"enabled" yaml:"enabled"`
	APIKey           string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	SearchID         string `json:"search_id,omitempty" yaml:"search_id,omitempty"`
	BaseURL          string `json:"base_url" yaml:"base_url"`
	RateLimitSeconds int    `json:"rate_limit_seconds" yaml:"rate_limit_seconds"`
	Priority         int    `json:"priority" yaml:"priority"`
	Region           string `json:"region" yaml:"region"`
}

// ValidationResult is the outcome of checking a product name against web
// search results.
type ValidationResult struct {
	// Status is one of "success", "error", "not_found", "low_accuracy".
	Status    string         `json:"status"`
	Message   string         `json:"message"`
	Score     float64        `json:"score"`
	Details   map[string]any `json:"details,omitempty"`
	Found     bool           `json:"found"`
	Results   []SearchItem   `json:"results,omitempty"`
	Provider  string         `json:"provider,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
