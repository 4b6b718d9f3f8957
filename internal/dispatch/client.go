// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dispatch exposes the public search entry point. A search
// sanitizes the query, consults the result cache, tries the structured
// instant-answer providers through the router, and falls back to the
// HTML scrape page when the structured path comes back empty.
package dispatch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/pdiddy/search-gateway/internal/cache"
	"github.com/pdiddy/search-gateway/internal/provider"
	"github.com/pdiddy/search-gateway/internal/router"
	"github.com/pdiddy/search-gateway/pkg/types"
)

// ErrEmptyQuery means the query had nothing left after sanitization.
// Fatal to the call, never retried.
var ErrEmptyQuery = errors.New("empty query after sanitization")

// maxQueryLength caps sanitized queries, in bytes.
const maxQueryLength = 200

// htmlNamespace prefixes the cache fingerprint of HTML-mode results so
// the two modes never collide on the same key.
const htmlNamespace = "html:"

// defaultMaxAttempts bounds structured-mode fallback per call.
const defaultMaxAttempts = 3

// Client is the search dispatcher. Construct with NewClient; safe for
// concurrent use.
type Client struct {
	router       *router.Router
	htmlFallback provider.Provider
	cache        *cache.Cache
	maxAttempts  int
}

// Config assembles a Client. Router is required. HTMLFallback and
// Cache are optional; without a cache every search goes to the network,
// without an HTML fallback empty structured results are returned as-is.
type Config struct {
	Router       *router.Router
	HTMLFallback provider.Provider
	Cache        *cache.Cache
	MaxAttempts  int
}

// NewClient builds a dispatcher from cfg.
func NewClient(cfg Config) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	return &Client{
		router:       cfg.Router,
		htmlFallback: cfg.HTMLFallback,
		cache:        cfg.Cache,
		maxAttempts:  cfg.MaxAttempts,
	}
}

// Search runs one query end to end: sanitize, cache lookup, structured
// mode, HTML fallback, cache write. A cache hit returns without any
// network activity or rate-limit consumption.
func (c *Client) Search(ctx context.Context, rawQuery string) (*types.SearchResult, error) {
	query := SanitizeQuery(rawQuery)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	key := Fingerprint(query)
	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			return &cached, nil
		}
	}

	structured, structuredErr := c.router.SearchWithFallback(ctx, query, c.maxAttempts)
	if structuredErr == nil && structured.Found && len(structured.Results) > 0 {
		if c.cache != nil {
			c.cache.Set(key, *structured)
		}
		return structured, nil
	}

	// Structured mode failed or found nothing: scrape the HTML results
	// page under its own cache namespace.
	if c.htmlFallback == nil {
		if structuredErr != nil {
			return nil, structuredErr
		}
		return structured, nil
	}

	htmlKey := Fingerprint(htmlNamespace + query)
	if c.cache != nil {
		if cached, ok := c.cache.Get(htmlKey); ok {
			return &cached, nil
		}
	}

	scraped, scrapeErr := c.htmlFallback.Search(ctx, query)
	if scrapeErr != nil {
		if structuredErr != nil {
			return nil, structuredErr
		}
		return nil, scrapeErr
	}

	if c.cache != nil {
		c.cache.Set(htmlKey, *scraped)
	}
	return scraped, nil
}

// CacheStats reports the dispatcher's cache counters, or zeroes when no
// cache is configured.
func (c *Client) CacheStats() cache.Stats {
	if c.cache == nil {
		return cache.Stats{}
	}
	return c.cache.Stats()
}

// SanitizeQuery trims, collapses internal whitespace, and caps the
// query at 200 bytes.
func SanitizeQuery(query string) string {
	query = strings.Join(strings.Fields(query), " ")
	if len(query) > maxQueryLength {
		query = query[:maxQueryLength]
	}
	return query
}

// Fingerprint derives the cache key for a query: SHA-256 over the
// lowercased text, hex encoded. Case-insensitive by construction.
func Fingerprint(query string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(query)))
	return hex.EncodeToString(sum[:])
}
