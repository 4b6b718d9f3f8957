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

	"github.com/pdiddy/search-gateway/pkg/types"
)

const defaultDuckDuckGoBase = "https://api.duckduckgo.com"

// Relevance tiers for the structured response: the primary abstract is
// authoritative, related topics and generic results progressively less so.
const (
	relevanceAbstract = 1.0
	relevanceRelated  = 0.7
	relevanceGeneric  = 0.6
)

// DuckDuckGo queries the DuckDuckGo Instant Answer API. No credentials
// required.
type DuckDuckGo struct {
	baseURL   string
	client    *http.Client
	userAgent string
	limiter   *rate.Limiter
	rateLimit time.Duration
	available atomic.Bool
}

// NewDuckDuckGo builds the instant-answer provider. rateLimit is the
// minimum spacing between outbound requests (default 1s).
func NewDuckDuckGo(baseURL string, httpCfg types.HTTPConfig, rateLimit time.Duration) *DuckDuckGo {
	if baseURL == "" {
		baseURL = defaultDuckDuckGoBase
	}
	if rateLimit <= 0 {
		rateLimit = time.Second
	}

	d := &DuckDuckGo{
		baseURL:   baseURL,
		client:    &http.Client{Timeout: httpCfg.Timeout},
		userAgent: httpCfg.UserAgent,
		limiter:   rate.NewLimiter(rate.Every(rateLimit), 1),
		rateLimit: rateLimit,
	}
	d.available.Store(true)
	return d
}

// Name returns the provider identifier.
func (d *DuckDuckGo) Name() string { return "duckduckgo" }

// IsAvailable reports whether the last request succeeded.
func (d *DuckDuckGo) IsAvailable() bool { return d.available.Load() }

// ValidateCredentials always succeeds: the Instant Answer API needs no key.
func (d *DuckDuckGo) ValidateCredentials(_ context.Context) error { return nil }

// RateLimit returns the configured request spacing.
func (d *DuckDuckGo) RateLimit() time.Duration { return d.rateLimit }

// Search queries the Instant Answer API and converts the structured
// response into a SearchResult with tiered relevance.
func (d *DuckDuckGo) Search(ctx context.Context, query string) (*types.SearchResult, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, waitErr(err)
	}

	params := url.Values{}
	params.Add("q", query)
	params.Add("format", "json")
	params.Add("no_html", "1")
	params.Add("skip_disambig", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		d.available.Store(false)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		d.available.Store(false)
		return nil, fmt.Errorf("%w: too many requests (HTTP 429)", ErrUnavailable)
	case resp.StatusCode == http.StatusServiceUnavailable:
		d.available.Store(false)
		return nil, fmt.Errorf("%w: DuckDuckGo API is temporarily down (HTTP 503)", ErrUnavailable)
	case resp.StatusCode != http.StatusOK:
		d.available.Store(false)
		return nil, fmt.Errorf("%w: unexpected HTTP %d", ErrUnavailable, resp.StatusCode)
	}

	var ddg duckDuckGoResponse
	if err := json.NewDecoder(resp.Body).Decode(&ddg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	d.available.Store(true)
	return convertInstantAnswer(query, d.Name(), &ddg), nil
}

// convertInstantAnswer maps the structured response onto the unified
// result shape. Confidence is 0.9 when a primary abstract exists,
// otherwise the best tier among the remaining entries, or 0 when
// nothing was found.
func convertInstantAnswer(query, source string, ddg *duckDuckGoResponse) *types.SearchResult {
	result := &types.SearchResult{
		Query:     query,
		Source:    source,
		Timestamp: time.Now(),
		Results:   make([]types.SearchItem, 0),
	}

	if ddg.AbstractText != "" {
		title := ddg.Heading
		if title == "" {
			title = extractTitle(ddg.AbstractText)
		}
		result.Found = true
		result.Results = append(result.Results, types.SearchItem{
			Title:     title,
			URL:       ddg.AbstractURL,
			Snippet:   ddg.AbstractText,
			Relevance: relevanceAbstract,
		})
		result.Confidence = 0.9
	}

	for _, topic := range ddg.RelatedTopics {
		if topic.Text == "" || topic.FirstURL == "" {
			continue
		}
		result.Found = true
		result.Results = append(result.Results, types.SearchItem{
			Title:     extractTitle(topic.Text),
			URL:       topic.FirstURL,
			Snippet:   topic.Text,
			Relevance: relevanceRelated,
		})
		if result.Confidence < relevanceRelated {
			result.Confidence = relevanceRelated
		}
	}

	for _, res := range ddg.Results {
		if res.Text == "" || res.FirstURL == "" {
			continue
		}
		result.Found = true
		result.Results = append(result.Results, types.SearchItem{
			Title:     extractTitle(res.Text),
			URL:       res.FirstURL,
			Snippet:   res.Text,
			Relevance: relevanceGeneric,
		})
		if result.Confidence < relevanceGeneric {
			result.Confidence = relevanceGeneric
		}
	}

	return result
}

// extractTitle derives a short title from free text.
func extractTitle(text string) string {
	if len(text) > 100 {
		return text[:100] + "..."
	}
	return text
}

// duckDuckGoResponse is the subset of the Instant Answer payload the
// gateway consumes.
type duckDuckGoResponse struct {
	Abstract      string `json:"Abstract"`
	AbstractText  string `json:"AbstractText"`
	AbstractURL   string `json:"AbstractURL"`
	Heading       string `json:"Heading"`
	RelatedTopics []struct {
		FirstURL string `json:"FirstURL"`
		Text     string `json:"Text"`
	} `json:"RelatedTopics"`
	Results []struct {
		FirstURL string `json:"FirstURL"`
		Text     string `json:"Text"`
	} `json:"Results"`
}
