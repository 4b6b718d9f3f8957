// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/search-gateway/internal/httputil"
	"github.com/pdiddy/search-gateway/pkg/types"
)

const defaultGoogleBase = "https://www.googleapis.com/customsearch/v1"

// Google queries the Google Custom Search API. Requires an API key and
// a custom search engine ID.
type Google struct {
	apiKey    string
	searchID  string
	baseURL   string
	client    *http.Client
	userAgent string
	limiter   *rate.Limiter
	rateLimit time.Duration
	available atomic.Bool
}

// NewGoogle builds the Google Custom Search provider. The provider
// reports unavailable until both credentials are present.
func NewGoogle(apiKey, searchID, baseURL string, httpCfg types.HTTPConfig, rateLimit time.Duration) *Google {
	if baseURL == "" {
		baseURL = defaultGoogleBase
	}
	if rateLimit <= 0 {
		rateLimit = time.Second
	}

	g := &Google{
		apiKey:    apiKey,
		searchID:  searchID,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: httpCfg.Timeout},
		userAgent: httpCfg.UserAgent,
		limiter:   rate.NewLimiter(rate.Every(rateLimit), 1),
		rateLimit: rateLimit,
	}
	g.available.Store(apiKey != "" && searchID != "")
	return g
}

// Name returns the provider identifier.
func (g *Google) Name() string { return "google" }

// IsAvailable reports whether credentials are present and the last
// request succeeded.
func (g *Google) IsAvailable() bool {
	return g.available.Load() && g.apiKey != "" && g.searchID != ""
}

// ValidateCredentials checks that both the API key and search engine ID
// are configured.
func (g *Google) ValidateCredentials(_ context.Context) error {
	if g.apiKey == "" {
		return fmt.Errorf("google: API key is required")
	}
	if g.searchID == "" {
		return fmt.Errorf("google: search engine ID is required")
	}
	return nil
}

// RateLimit returns the configured request spacing.
func (g *Google) RateLimit() time.Duration { return g.rateLimit }

// Search queries the Custom Search API. Transient 429s and 503s are
// retried with backoff before the provider gives up and marks itself
// unavailable.
func (g *Google) Search(ctx context.Context, query string) (*types.SearchResult, error) {
	if !g.IsAvailable() {
		return nil, fmt.Errorf("%w: missing credentials", ErrUnavailable)
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, waitErr(err)
	}

	params := url.Values{}
	params.Add("key", g.apiKey)
	params.Add("cx", g.searchID)
	params.Add("q", query)
	params.Add("num", "10")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := httputil.DoWithRetry(ctx, g.client, req, 2)
	if err != nil {
		g.available.Store(false)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		g.available.Store(false)
		return nil, fmt.Errorf("%w: authentication failed (HTTP %d)", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		g.available.Store(false)
		return nil, fmt.Errorf("%w: quota exhausted (HTTP 429)", ErrUnavailable)
	case resp.StatusCode == http.StatusServiceUnavailable:
		g.available.Store(false)
		return nil, fmt.Errorf("%w: Google API is temporarily down (HTTP 503)", ErrUnavailable)
	case resp.StatusCode != http.StatusOK:
		var errResp googleErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errResp); decodeErr == nil && errResp.Error.Message != "" {
			g.available.Store(false)
			return nil, fmt.Errorf("%w: Google API error (code %d): %s",
				ErrUnavailable, errResp.Error.Code, errResp.Error.Message)
		}
		g.available.Store(false)
		return nil, fmt.Errorf("%w: unexpected HTTP %d", ErrUnavailable, resp.StatusCode)
	}

	var gr googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	g.available.Store(true)
	return convertGoogleResults(query, g.Name(), &gr), nil
}

// convertGoogleResults maps the API items onto the unified shape.
// Relevance decays with result position; confidence follows the result
// count tiers shared with the HTML scrape path.
func convertGoogleResults(query, source string, gr *googleResponse) *types.SearchResult {
	result := &types.SearchResult{
		Query:     query,
		Source:    source,
		Timestamp: time.Now(),
		Results:   make([]types.SearchItem, 0, len(gr.Items)),
	}

	for i, item := range gr.Items {
		relevance := 1.0 - float64(i)*0.1
		if relevance < 0.3 {
			relevance = 0.3
		}
		result.Results = append(result.Results, types.SearchItem{
			Title:     item.Title,
			URL:       item.Link,
			Snippet:   item.Snippet,
			Relevance: relevance,
		})
	}

	if len(result.Results) > 0 {
		result.Found = true
		result.Confidence = countConfidence(len(result.Results))
	}
	return result
}

// countConfidence returns the base confidence tier for a result count.
func countConfidence(n int) float64 {
	switch {
	case n >= 5:
		return 0.8
	case n >= 3:
		return 0.7
	case n >= 1:
		return 0.6
	default:
		return 0
	}
}

type googleResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
	SearchInformation struct {
		TotalResults string `json:"totalResults"`
	} `json:"searchInformation"`
}

type googleErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
