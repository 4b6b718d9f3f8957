// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache implements a time-bounded, capacity-bounded in-memory
// store for search results keyed by query fingerprint.
//
// Eviction is least-frequently-used: when the cache is full the entry
// with the lowest access count is dropped, so entries that keep proving
// valuable survive over merely recent ones. A background sweep removes
// expired entries on a fixed interval regardless of access patterns.
package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pdiddy/search-gateway/pkg/types"
)

const (
	defaultTTL             = 15 * time.Minute
	defaultCleanupInterval = 5 * time.Minute
	defaultMaxSize         = 1000
)

type entry struct {
	result     types.SearchResult
	expiration time.Time

	// accessCount is atomic so concurrent Gets can bump it while
	// holding only the read lock.
	accessCount int64
}

// Cache is a TTL + LFU bounded result cache. Safe for concurrent use:
// Gets proceed in parallel, mutations take the write lock.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry

	enabled         bool
	ttl             time.Duration
	cleanupInterval time.Duration
	maxSize         int

	hits   int64
	misses int64

	stop     chan struct{}
	stopOnce sync.Once
}

// Stats reports cache effectiveness counters and current occupancy.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Size   int   `json:"size"`
}

// New creates a cache from cfg and starts the expiry sweep when the
// cache is enabled. Call Close to stop the sweep.
func New(cfg types.CacheConfig) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = defaultCleanupInterval
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = defaultMaxSize
	}

	c := &Cache{
		entries:         make(map[string]*entry),
		enabled:         cfg.Enabled,
		ttl:             cfg.TTL,
		cleanupInterval: cfg.CleanupInterval,
		maxSize:         cfg.MaxSize,
		stop:            make(chan struct{}),
	}

	if c.enabled {
		go c.sweep()
	}
	return c
}

// Get returns the cached result for key. Expired entries and lookups on
// a disabled cache count as misses. A hit increments the entry's access
// count.
func (c *Cache) Get(key string) (types.SearchResult, bool) {
	if !c.enabled {
		atomic.AddInt64(&c.misses, 1)
		return types.SearchResult{}, false
	}

	c.mu.RLock()
	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expiration) {
		c.mu.RUnlock()
		atomic.AddInt64(&c.misses, 1)
		return types.SearchResult{}, false
	}
	atomic.AddInt64(&e.accessCount, 1)
	result := e.result
	c.mu.RUnlock()

	atomic.AddInt64(&c.hits, 1)
	return result, true
}

// Set inserts or overwrites the entry for key with a fresh TTL. When the
// cache is at capacity the entry with the lowest access count is evicted
// first, so the size never exceeds MaxSize after Set returns.
func (c *Cache) Set(key string, result types.SearchResult) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictLFU()
	}

	c.entries[key] = &entry{
		result:     result,
		expiration: time.Now().Add(c.ttl),
	}
}

// evictLFU removes the entry with the lowest access count. Ties are
// broken by map iteration order. Caller holds the write lock.
func (c *Cache) evictLFU() {
	var victim string
	lowest := int64(-1)
	for key, e := range c.entries {
		count := atomic.LoadInt64(&e.accessCount)
		if lowest < 0 || count < lowest {
			lowest = count
			victim = key
		}
	}
	if lowest >= 0 {
		delete(c.entries, victim)
	}
}

// Remove deletes the entry for key, if present.
func (c *Cache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes all entries. Hit/miss counters are preserved.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

// Stats returns the current counters and entry count.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	size := len(c.entries)
	c.mu.RUnlock()

	return Stats{
		Hits:   atomic.LoadInt64(&c.hits),
		Misses: atomic.LoadInt64(&c.misses),
		Size:   size,
	}
}

// Close stops the background sweep. Idempotent.
func (c *Cache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// sweep periodically drops expired entries so memory stays bounded even
// when nothing reads the cache.
func (c *Cache) sweep() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *Cache) removeExpired() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if now.After(e.expiration) {
			delete(c.entries, key)
		}
	}
}
