// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/pdiddy/search-gateway/pkg/types"
)

func testResult(query string) types.SearchResult {
	return types.SearchResult{
		Query:     query,
		Found:     true,
		Source:    "test",
		Timestamp: time.Now(),
		Results: []types.SearchItem{
			{Title: query, URL: "https://example.com/" + query, Relevance: 0.6},
		},
	}
}

func newTestCache(t *testing.T, cfg types.CacheConfig) *Cache {
	t.Helper()
	c := New(cfg)
	t.Cleanup(c.Close)
	return c
}

func TestGetSetRoundTrip(t *testing.T) {
	c := newTestCache(t, types.CacheConfig{Enabled: true})

	c.Set("k", testResult("iphone"))
	got, ok := c.Get("k")
	if !ok {
		t.Fatal("Get() miss, want hit")
	}
	if got.Query != "iphone" {
		t.Errorf("Query = %q, want %q", got.Query, "iphone")
	}
}

func TestGetExpiredEntryMisses(t *testing.T) {
	c := newTestCache(t, types.CacheConfig{
		Enabled:         true,
		TTL:             10 * time.Millisecond,
		CleanupInterval: time.Hour, // sweep must not be what expires it
	})

	c.Set("k", testResult("q"))
	if _, ok := c.Get("k"); !ok {
		t.Fatal("Get() before TTL miss, want hit")
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("Get() after TTL hit, want miss")
	}
}

func TestDisabledCacheAlwaysMisses(t *testing.T) {
	c := newTestCache(t, types.CacheConfig{Enabled: false})

	c.Set("k", testResult("q"))
	if _, ok := c.Get("k"); ok {
		t.Error("Get() on disabled cache hit, want miss")
	}

	stats := c.Stats()
	if stats.Size != 0 {
		t.Errorf("Size = %d, want 0", stats.Size)
	}
	if stats.Misses != 1 {
		t.Errorf("Misses = %d, want 1", stats.Misses)
	}
}

func TestCapacityNeverExceeded(t *testing.T) {
	const capacity = 5
	c := newTestCache(t, types.CacheConfig{Enabled: true, MaxSize: capacity})

	for i := 0; i < capacity+3; i++ {
		c.Set(fmt.Sprintf("k%d", i), testResult("q"))
	}

	if size := c.Stats().Size; size > capacity {
		t.Errorf("Size = %d, want <= %d", size, capacity)
	}
}

func TestEvictionPicksLowestAccessCount(t *testing.T) {
	c := newTestCache(t, types.CacheConfig{Enabled: true, MaxSize: 3})

	c.Set("hot", testResult("hot"))
	c.Set("warm", testResult("warm"))
	c.Set("cold", testResult("cold"))

	// Access counts: hot=3, warm=1, cold=0.
	for i := 0; i < 3; i++ {
		c.Get("hot")
	}
	c.Get("warm")

	c.Set("new", testResult("new"))

	if _, ok := c.Get("cold"); ok {
		t.Error("cold entry survived eviction, want it evicted as LFU")
	}
	if _, ok := c.Get("hot"); !ok {
		t.Error("hot entry evicted, want it retained")
	}
	if _, ok := c.Get("warm"); !ok {
		t.Error("warm entry evicted, want it retained")
	}
	if _, ok := c.Get("new"); !ok {
		t.Error("new entry missing after Set")
	}
}

func TestOverwriteDoesNotEvict(t *testing.T) {
	c := newTestCache(t, types.CacheConfig{Enabled: true, MaxSize: 2})

	c.Set("a", testResult("a"))
	c.Set("b", testResult("b"))
	c.Set("a", testResult("a2")) // overwrite, cache stays at 2

	if _, ok := c.Get("b"); !ok {
		t.Error("b evicted by overwrite of a")
	}
	got, ok := c.Get("a")
	if !ok {
		t.Fatal("a missing after overwrite")
	}
	if got.Query != "a2" {
		t.Errorf("Query = %q, want %q (overwritten value)", got.Query, "a2")
	}
}

func TestRemoveAndClear(t *testing.T) {
	c := newTestCache(t, types.CacheConfig{Enabled: true})

	c.Set("a", testResult("a"))
	c.Set("b", testResult("b"))

	c.Remove("a")
	if _, ok := c.Get("a"); ok {
		t.Error("Get() after Remove hit, want miss")
	}

	c.Clear()
	if size := c.Stats().Size; size != 0 {
		t.Errorf("Size after Clear = %d, want 0", size)
	}
}

func TestStatsCounters(t *testing.T) {
	c := newTestCache(t, types.CacheConfig{Enabled: true})

	c.Set("k", testResult("q"))
	c.Get("k")    // hit
	c.Get("k")    // hit
	c.Get("nope") // miss

	stats := c.Stats()
	if stats.Hits != 2 {
		t.Errorf("Hits = %d, want 2", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Misses = %d, want 1", stats.Misses)
	}
	if stats.Size != 1 {
		t.Errorf("Size = %d, want 1", stats.Size)
	}
}

func TestBackgroundSweepRemovesExpired(t *testing.T) {
	c := newTestCache(t, types.CacheConfig{
		Enabled:         true,
		TTL:             5 * time.Millisecond,
		CleanupInterval: 10 * time.Millisecond,
	})

	c.Set("k", testResult("q"))

	// Wait for at least one sweep tick past the TTL. The sweep must
	// reclaim the entry without any Get touching it.
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if c.Stats().Size == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("expired entry still resident, sweep never reclaimed it")
}
