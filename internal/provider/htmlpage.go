// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/pdiddy/search-gateway/pkg/types"
)

const defaultHTMLBase = "https://html.duckduckgo.com"

// Browser-looking headers: the HTML endpoint serves a degraded page to
// unknown agents.
const scrapeUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DuckDuckGoHTML scrapes the DuckDuckGo HTML results page. It serves as
// the fallback when the structured API returns nothing.
type DuckDuckGoHTML struct {
	baseURL   string
	client    *http.Client
	limiter   *rate.Limiter
	rateLimit time.Duration
	available atomic.Bool
}

// NewDuckDuckGoHTML builds the HTML-scrape provider.
func NewDuckDuckGoHTML(baseURL string, httpCfg types.HTTPConfig, rateLimit time.Duration) *DuckDuckGoHTML {
	if baseURL == "" {
		baseURL = defaultHTMLBase
	}
	if rateLimit <= 0 {
		rateLimit = time.Second
	}

	h := &DuckDuckGoHTML{
		baseURL:   baseURL,
		client:    &http.Client{Timeout: httpCfg.Timeout},
		limiter:   rate.NewLimiter(rate.Every(rateLimit), 1),
		rateLimit: rateLimit,
	}
	h.available.Store(true)
	return h
}

// Name returns the provider identifier.
func (h *DuckDuckGoHTML) Name() string { return "duckduckgo-html" }

// IsAvailable reports whether the last request succeeded.
func (h *DuckDuckGoHTML) IsAvailable() bool { return h.available.Load() }

// ValidateCredentials always succeeds: scraping needs no key.
func (h *DuckDuckGoHTML) ValidateCredentials(_ context.Context) error { return nil }

// RateLimit returns the configured request spacing.
func (h *DuckDuckGoHTML) RateLimit() time.Duration { return h.rateLimit }

// Search fetches the results page and extracts result blocks, anchors,
// and snippets.
func (h *DuckDuckGoHTML) Search(ctx context.Context, query string) (*types.SearchResult, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return nil, waitErr(err)
	}

	searchURL := fmt.Sprintf("%s/html/?q=%s", h.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", scrapeUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := h.client.Do(req)
	if err != nil {
		h.available.Store(false)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		h.available.Store(false)
		return nil, fmt.Errorf("%w: unexpected HTTP %d", ErrUnavailable, resp.StatusCode)
	}

	result, err := parseResultsPage(resp.Body, query, h.Name(), h.baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	h.available.Store(true)
	return result, nil
}

// parseResultsPage walks the HTML tree, collecting one SearchItem per
// result block. Confidence combines a result-count tier with the
// fraction of results mentioning the query.
func parseResultsPage(body io.Reader, query, source, baseURL string) (*types.SearchResult, error) {
	result := &types.SearchResult{
		Query:     query,
		Source:    source,
		Timestamp: time.Now(),
		Results:   make([]types.SearchItem, 0),
	}

	doc, err := html.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	collectResults(doc, baseURL, result)

	if len(result.Results) > 0 {
		result.Found = true
		result.Confidence = scrapeConfidence(result.Results, query)
	}
	return result, nil
}

// collectResults finds result blocks and extracts an item from each.
// A matched block is not descended into, so nested "result__*" nodes do
// not produce duplicates.
func collectResults(n *html.Node, baseURL string, result *types.SearchResult) {
	if n.Type == html.ElementNode && isResultBlock(n) {
		if item := extractItem(n, baseURL); item != nil {
			result.Results = append(result.Results, *item)
		}
		return
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		collectResults(child, baseURL, result)
	}
}

// isResultBlock matches the CSS classes DuckDuckGo uses for result
// containers. The bare "results" wrapper that holds all blocks is
// excluded so it does not swallow its children.
func isResultBlock(n *html.Node) bool {
	for _, class := range strings.Fields(attrValue(n, "class")) {
		if class == "results" {
			continue
		}
		if strings.Contains(class, "result") ||
			strings.Contains(class, "web-result") ||
			strings.Contains(class, "links_main") {
			return true
		}
	}
	return false
}

// extractItem pulls URL, title, and snippet from a result block. Blocks
// without a usable URL are discarded.
func extractItem(n *html.Node, baseURL string) *types.SearchItem {
	item := &types.SearchItem{Relevance: 0.5}

	if link := findAnchor(n, baseURL); link != nil {
		item.URL = link.url
		item.Title = link.title
	}
	item.Snippet = findSnippet(n)

	if item.Title == "" && item.Snippet != "" {
		item.Title = extractTitle(item.Snippet)
	}
	if item.URL == "" {
		return nil
	}
	return item
}

type anchorInfo struct {
	url   string
	title string
}

// findAnchor returns the first anchor beneath n, resolving DuckDuckGo's
// /l/?...uddg= redirect wrapper to the true destination and making
// relative hrefs absolute.
func findAnchor(n *html.Node, baseURL string) *anchorInfo {
	if n.Type == html.ElementNode && n.Data == "a" {
		href := attrValue(n, "href")
		if href == "" {
			return nil
		}
		href = resolveHref(href, baseURL)

		title := attrValue(n, "title")
		if title == "" {
			title = nodeText(n)
		}
		return &anchorInfo{url: href, title: strings.TrimSpace(title)}
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if link := findAnchor(child, baseURL); link != nil {
			return link
		}
	}
	return nil
}

// resolveHref unwraps redirect links and absolutizes relative ones.
func resolveHref(href, baseURL string) string {
	if strings.HasPrefix(href, "/l/") || strings.HasPrefix(href, "//duckduckgo.com/l/") {
		if parsed, err := url.Parse(href); err == nil {
			if uddg := parsed.Query().Get("uddg"); uddg != "" {
				return uddg
			}
		}
		// Malformed query string: dig uddg out by hand.
		if idx := strings.Index(href, "uddg="); idx != -1 {
			encoded := href[idx+5:]
			if amp := strings.Index(encoded, "&"); amp != -1 {
				encoded = encoded[:amp]
			}
			if decoded, err := url.QueryUnescape(encoded); err == nil {
				return decoded
			}
		}
		return href
	}

	switch {
	case strings.HasPrefix(href, "http://"), strings.HasPrefix(href, "https://"):
		return href
	case strings.HasPrefix(href, "//"):
		return "https:" + href
	case strings.HasPrefix(href, "/"):
		return baseURL + href
	default:
		return href
	}
}

// findSnippet returns the text of the first descendant carrying a
// snippet-ish class.
func findSnippet(n *html.Node) string {
	if n.Type == html.ElementNode {
		for _, class := range strings.Fields(attrValue(n, "class")) {
			if strings.Contains(class, "snippet") || strings.Contains(class, "result__body") {
				if text := nodeText(n); text != "" {
					return text
				}
			}
		}
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if snippet := findSnippet(child); snippet != "" {
			return snippet
		}
	}
	return ""
}

// nodeText concatenates all text nodes beneath n.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// scrapeConfidence is the count tier plus a bonus of up to 0.2 for the
// fraction of results whose title or snippet contains the query text,
// capped at 1.0.
func scrapeConfidence(results []types.SearchItem, query string) float64 {
	if len(results) == 0 {
		return 0
	}

	confidence := countConfidence(len(results))

	queryLower := strings.ToLower(query)
	matches := 0
	for _, r := range results {
		if strings.Contains(strings.ToLower(r.Title), queryLower) ||
			strings.Contains(strings.ToLower(r.Snippet), queryLower) {
			matches++
		}
	}
	if matches > 0 {
		confidence += float64(matches) / float64(len(results)) * 0.2
		if confidence > 1.0 {
			confidence = 1.0
		}
	}
	return confidence
}
