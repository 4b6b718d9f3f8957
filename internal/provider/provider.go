// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package provider implements the search provider contract and its
// concrete backends: the DuckDuckGo Instant Answer API, the DuckDuckGo
// HTML results page, and the Google Custom Search API. Each backend
// carries its own token-bucket rate limiter and reports availability
// based on its last observed outcome.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/search-gateway/pkg/types"
)

// Failure classes surfaced to callers. Providers wrap these so the
// dispatcher can tell "too busy" from "broken" from "garbage response"
// with errors.Is.
var (
	// ErrRateLimited means the caller's wait for a request token was
	// cancelled or timed out before a request was sent.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrUnavailable means the provider could not serve the request:
	// transport failure or a non-success HTTP status.
	ErrUnavailable = errors.New("provider unavailable")

	// ErrMalformedResponse means the provider answered but the payload
	// could not be decoded.
	ErrMalformedResponse = errors.New("malformed provider response")
)

// Provider is the capability contract each search backend implements.
// Search must honor ctx cancellation both while waiting on the rate
// limiter and during the network call.
type Provider interface {
	Name() string
	IsAvailable() bool
	ValidateCredentials(ctx context.Context) error
	Search(ctx context.Context, query string) (*types.SearchResult, error)
	RateLimit() time.Duration
}

// waitErr converts a rate.Limiter wait failure into the rate-limit
// failure class while preserving the cancellation cause.
func waitErr(err error) error {
	return fmt.Errorf("%w: %w", ErrRateLimited, err)
}
