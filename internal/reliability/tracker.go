// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reliability tracks per-provider success/failure statistics and
// derives selection weights from them. A durable variant mirrors every
// update to a SQLite store on a background worker.
package reliability

import (
	"sync"
	"time"

	"github.com/pdiddy/search-gateway/pkg/types"
)

// excludeThreshold is the failure rate at which a provider is excluded
// from weighted selection.
const excludeThreshold = 0.9

// Tracker holds rolling statistics for every provider it has observed.
// Records are created lazily on the first recorded outcome and never
// deleted during the process lifetime. Safe for concurrent use.
type Tracker struct {
	mu    sync.RWMutex
	stats map[string]*types.ProviderStats
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{stats: make(map[string]*types.ProviderStats)}
}

// Seed loads previously persisted statistics, replacing any record with
// the same provider name. Intended for startup.
func (t *Tracker) Seed(stats []types.ProviderStats) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range stats {
		copied := s
		t.stats[s.ProviderName] = &copied
	}
}

// RecordSuccess registers a successful call and folds elapsed into the
// running mean response time.
func (t *Tracker) RecordSuccess(provider string, elapsed time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.getOrCreate(provider)
	s.RequestsTotal++
	s.RequestsSuccess++

	// Incremental running mean over successful calls only.
	ms := elapsed.Milliseconds()
	s.AvgResponseTimeMs = (s.AvgResponseTimeMs*(s.RequestsSuccess-1) + ms) / s.RequestsSuccess

	s.FailureRate = float64(s.RequestsFailed) / float64(s.RequestsTotal)

	now := time.Now()
	s.LastSuccess = &now
	s.UpdatedAt = now
}

// RecordFailure registers a failed call. err may be nil.
func (t *Tracker) RecordFailure(provider string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.getOrCreate(provider)
	s.RequestsTotal++
	s.RequestsFailed++
	if err != nil {
		s.LastError = err.Error()
	} else {
		s.LastError = ""
	}

	s.FailureRate = float64(s.RequestsFailed) / float64(s.RequestsTotal)

	now := time.Now()
	s.LastFailure = &now
	s.UpdatedAt = now
}

// getOrCreate returns the record for provider, creating it if absent.
// Caller holds the write lock.
func (t *Tracker) getOrCreate(provider string) *types.ProviderStats {
	if s, ok := t.stats[provider]; ok {
		return s
	}
	s := &types.ProviderStats{ProviderName: provider, UpdatedAt: time.Now()}
	t.stats[provider] = s
	return s
}

// GetStats returns a copy of the record for provider. ok is false when
// the provider has never been observed.
func (t *Tracker) GetStats(provider string) (types.ProviderStats, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.stats[provider]
	if !ok {
		return types.ProviderStats{}, false
	}
	return *s, true
}

// GetAllStats returns a copy of every record keyed by provider name.
func (t *Tracker) GetAllStats() map[string]types.ProviderStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]types.ProviderStats, len(t.stats))
	for name, s := range t.stats {
		out[name] = *s
	}
	return out
}

// GetWeight derives a selection weight from basePriority and the
// provider's observed failure rate. An unobserved provider keeps its
// base priority (optimistic default); a provider failing at or above
// the exclusion threshold weighs zero.
func (t *Tracker) GetWeight(provider string, basePriority int) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.stats[provider]
	if !ok || s.RequestsTotal == 0 {
		return float64(basePriority)
	}
	if s.FailureRate >= excludeThreshold {
		return 0
	}

	weight := float64(basePriority) * (1.0 - s.FailureRate)
	if weight < 0 {
		weight = 0
	}
	return weight
}
