// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package router selects candidate providers per request and drives
// sequential fallback across them, feeding every outcome back into the
// reliability tracker.
package router

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pdiddy/search-gateway/internal/provider"
	"github.com/pdiddy/search-gateway/pkg/types"
)

// Strategy names a candidate-selection policy.
type Strategy string

const (
	// StrategyRoundRobin rotates a persistent cursor through the
	// available providers, guaranteeing fairness across calls.
	StrategyRoundRobin Strategy = "round_robin"

	// StrategyWeighted ranks providers by observed reliability and
	// skips any failing at 90% or more.
	StrategyWeighted Strategy = "weighted"

	// StrategyRandom takes the first N providers in iteration order.
	// Despite the name it does not shuffle; kept for compatibility
	// with persisted configurations that already select it.
	StrategyRandom Strategy = "random"
)

// Config holds the router's selection policy.
type Config struct {
	Strategy Strategy
}

// Recorder receives outcome feedback and serves reliability lookups.
// *reliability.Tracker and *reliability.DurableTracker implement it.
type Recorder interface {
	RecordSuccess(provider string, elapsed time.Duration)
	RecordFailure(provider string, err error)
	GetStats(provider string) (types.ProviderStats, bool)
}

// Failure classes for an exhausted call.
var (
	// ErrNoProviders means no provider reported available; nothing was
	// attempted.
	ErrNoProviders = errors.New("no providers available")

	// ErrAllProvidersFailed means every attempted candidate failed; the
	// last underlying cause is wrapped alongside.
	ErrAllProvidersFailed = errors.New("all providers failed")
)

// Router routes searches across a dynamic provider set with sequential
// fallback. Safe for concurrent use.
type Router struct {
	mu        sync.RWMutex
	providers map[string]provider.Provider
	recorder  Recorder
	cfg       Config
	cursor    int
}

// New creates a router. recorder may be nil, in which case no outcome
// feedback is recorded and the weighted strategy degrades to
// round-robin.
func New(providers map[string]provider.Provider, recorder Recorder, cfg Config) *Router {
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyRoundRobin
	}
	return &Router{
		providers: providers,
		recorder:  recorder,
		cfg:       cfg,
	}
}

// SearchWithFallback tries up to maxAttempts providers sequentially and
// returns the first success. Failures are recorded against the
// offending provider and the next candidate is tried; the first success
// short-circuits the rest so no duplicate billed calls are made.
func (r *Router) SearchWithFallback(ctx context.Context, query string, maxAttempts int) (*types.SearchResult, error) {
	available := r.availableProviders()
	if len(available) == 0 {
		return nil, ErrNoProviders
	}

	candidates := r.selectCandidates(available, maxAttempts)

	var lastErr error
	for _, p := range candidates {
		start := time.Now()
		result, err := p.Search(ctx, query)
		elapsed := time.Since(start)

		if err == nil && result != nil {
			if r.recorder != nil {
				r.recorder.RecordSuccess(p.Name(), elapsed)
			}
			return result, nil
		}

		if err == nil {
			err = fmt.Errorf("provider %s returned nil result", p.Name())
		}
		if r.recorder != nil {
			r.recorder.RecordFailure(p.Name(), err)
		}
		lastErr = err
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrAllProvidersFailed, lastErr)
	}
	return nil, ErrNoProviders
}

// availableProviders snapshots the providers reporting available,
// sorted by name so the round-robin rotation is stable.
func (r *Router) availableProviders() []provider.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name, p := range r.providers {
		if p.IsAvailable() {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	available := make([]provider.Provider, len(names))
	for i, name := range names {
		available[i] = r.providers[name]
	}
	return available
}

// selectCandidates picks up to count providers per the configured
// strategy.
func (r *Router) selectCandidates(available []provider.Provider, count int) []provider.Provider {
	if count > len(available) {
		count = len(available)
	}
	if count <= 0 {
		return nil
	}

	switch r.cfg.Strategy {
	case StrategyWeighted:
		return r.selectWeighted(available, count)
	case StrategyRandom:
		return r.selectRandom(available, count)
	default:
		return r.selectRoundRobin(available, count)
	}
}

// selectRoundRobin takes count providers in circular order starting at
// the persistent cursor, then advances the cursor by count. The cursor
// is serialized under the write lock so rotation stays deterministic.
func (r *Router) selectRoundRobin(available []provider.Provider, count int) []provider.Provider {
	r.mu.Lock()
	start := r.cursor % len(available)
	r.cursor = (r.cursor + count) % len(available)
	r.mu.Unlock()

	selected := make([]provider.Provider, 0, count)
	for i := 0; i < count; i++ {
		selected = append(selected, available[(start+i)%len(available)])
	}
	return selected
}

// selectWeighted ranks by observed reliability, skipping providers at
// or above the exclusion threshold. When the filter leaves fewer than
// count candidates, the remainder is backfilled with not-yet-selected
// providers (excluded ones included) so the call still gets count
// attempts.
func (r *Router) selectWeighted(available []provider.Provider, count int) []provider.Provider {
	if r.recorder == nil {
		return r.selectRoundRobin(available, count)
	}

	type ranked struct {
		p        provider.Provider
		failRate float64
		excluded bool
	}

	rankedAll := make([]ranked, 0, len(available))
	for _, p := range available {
		stats, ok := r.recorder.GetStats(p.Name())
		entry := ranked{p: p}
		if ok && stats.RequestsTotal > 0 {
			entry.failRate = stats.FailureRate
			entry.excluded = stats.FailureRate >= 0.9
		}
		rankedAll = append(rankedAll, entry)
	}

	// Stable sort keeps name order among equally reliable providers.
	sort.SliceStable(rankedAll, func(i, j int) bool {
		return rankedAll[i].failRate < rankedAll[j].failRate
	})

	selected := make([]provider.Provider, 0, count)
	taken := make(map[string]bool)
	for _, entry := range rankedAll {
		if len(selected) == count {
			break
		}
		if entry.excluded {
			continue
		}
		selected = append(selected, entry.p)
		taken[entry.p.Name()] = true
	}

	// Backfill with whatever is left, excluded providers last resort.
	for _, entry := range rankedAll {
		if len(selected) == count {
			break
		}
		if !taken[entry.p.Name()] {
			selected = append(selected, entry.p)
			taken[entry.p.Name()] = true
		}
	}

	return selected
}

// selectRandom returns the first count providers in iteration order.
// See StrategyRandom for why this does not shuffle.
func (r *Router) selectRandom(available []provider.Provider, count int) []provider.Provider {
	return available[:count]
}

// UpdateProviders atomically replaces the provider set, e.g. on
// credential rotation. The round-robin cursor is reset.
func (r *Router) UpdateProviders(providers map[string]provider.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = providers
	r.cursor = 0
}

// GetProviders returns a defensive copy of the provider set.
func (r *Router) GetProviders() map[string]provider.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]provider.Provider, len(r.providers))
	for name, p := range r.providers {
		out[name] = p
	}
	return out
}
