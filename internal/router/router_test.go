// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pdiddy/search-gateway/internal/provider"
	"github.com/pdiddy/search-gateway/internal/reliability"
	"github.com/pdiddy/search-gateway/pkg/types"
)

// --- mock provider ---

type mockProvider struct {
	name      string
	available bool
	result    *types.SearchResult
	err       error
	calls     int
}

func (m *mockProvider) Name() string                                 { return m.name }
func (m *mockProvider) IsAvailable() bool                            { return m.available }
func (m *mockProvider) ValidateCredentials(_ context.Context) error  { return nil }
func (m *mockProvider) RateLimit() time.Duration                     { return time.Second }

func (m *mockProvider) Search(_ context.Context, query string) (*types.SearchResult, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func okProvider(name string) *mockProvider {
	return &mockProvider{
		name:      name,
		available: true,
		result:    &types.SearchResult{Query: "q", Found: true, Source: name, Timestamp: time.Now()},
	}
}

func failingProvider(name string) *mockProvider {
	return &mockProvider{name: name, available: true, err: errors.New(name + " down")}
}

func providerMap(ps ...*mockProvider) map[string]provider.Provider {
	m := make(map[string]provider.Provider, len(ps))
	for _, p := range ps {
		m[p.name] = p
	}
	return m
}

// --- fallback ---

func TestFallbackThirdProviderSucceeds(t *testing.T) {
	// Sorted order: a, b, c. First two fail, third succeeds.
	a := failingProvider("a")
	b := failingProvider("b")
	c := okProvider("c")

	tracker := reliability.NewTracker()
	r := New(providerMap(a, b, c), tracker, Config{Strategy: StrategyRoundRobin})

	result, err := r.SearchWithFallback(context.Background(), "q", 3)
	if err != nil {
		t.Fatalf("SearchWithFallback() error = %v", err)
	}
	if result.Source != "c" {
		t.Errorf("Source = %q, want c", result.Source)
	}

	// Exactly 2 failures and 1 success recorded.
	for name, wantFailed := range map[string]int64{"a": 1, "b": 1, "c": 0} {
		s, ok := tracker.GetStats(name)
		if !ok {
			t.Fatalf("no stats for %s", name)
		}
		if s.RequestsFailed != wantFailed {
			t.Errorf("%s RequestsFailed = %d, want %d", name, s.RequestsFailed, wantFailed)
		}
	}
	if s, _ := tracker.GetStats("c"); s.RequestsSuccess != 1 {
		t.Errorf("c RequestsSuccess = %d, want 1", s.RequestsSuccess)
	}
}

func TestFirstSuccessShortCircuits(t *testing.T) {
	a := okProvider("a")
	b := okProvider("b")
	r := New(providerMap(a, b), reliability.NewTracker(), Config{})

	if _, err := r.SearchWithFallback(context.Background(), "q", 2); err != nil {
		t.Fatalf("SearchWithFallback() error = %v", err)
	}
	if a.calls != 1 {
		t.Errorf("a.calls = %d, want 1", a.calls)
	}
	if b.calls != 0 {
		t.Errorf("b.calls = %d, want 0 (short-circuit)", b.calls)
	}
}

func TestAllProvidersFail(t *testing.T) {
	a := failingProvider("a")
	b := failingProvider("b")
	r := New(providerMap(a, b), reliability.NewTracker(), Config{})

	result, err := r.SearchWithFallback(context.Background(), "q", 2)
	if result != nil {
		t.Error("result != nil, want nil on exhaustion")
	}
	if !errors.Is(err, ErrAllProvidersFailed) {
		t.Errorf("error = %v, want ErrAllProvidersFailed", err)
	}
	// The last cause is preserved.
	if err == nil || !errors.Is(err, b.err) && !errors.Is(err, a.err) {
		t.Errorf("error %v does not wrap an underlying cause", err)
	}
}

func TestNoAvailableProviders(t *testing.T) {
	a := failingProvider("a")
	a.available = false
	r := New(providerMap(a), reliability.NewTracker(), Config{})

	_, err := r.SearchWithFallback(context.Background(), "q", 3)
	if !errors.Is(err, ErrNoProviders) {
		t.Errorf("error = %v, want ErrNoProviders", err)
	}
	if a.calls != 0 {
		t.Errorf("a.calls = %d, want 0 (no network call)", a.calls)
	}
}

func TestNilResultCountsAsFailure(t *testing.T) {
	a := &mockProvider{name: "a", available: true} // err nil, result nil
	tracker := reliability.NewTracker()
	r := New(providerMap(a), tracker, Config{})

	_, err := r.SearchWithFallback(context.Background(), "q", 1)
	if !errors.Is(err, ErrAllProvidersFailed) {
		t.Errorf("error = %v, want ErrAllProvidersFailed", err)
	}
	if s, _ := tracker.GetStats("a"); s.RequestsFailed != 1 {
		t.Errorf("RequestsFailed = %d, want 1", s.RequestsFailed)
	}
}

// --- round-robin ---

func TestRoundRobinFairness(t *testing.T) {
	a := okProvider("a")
	b := okProvider("b")
	c := okProvider("c")
	r := New(providerMap(a, b, c), nil, Config{Strategy: StrategyRoundRobin})

	// 9 single-candidate calls over 3 providers: each serves exactly 3,
	// in stable rotation order a, b, c, a, b, c, ...
	var order []string
	for i := 0; i < 9; i++ {
		result, err := r.SearchWithFallback(context.Background(), "q", 1)
		if err != nil {
			t.Fatalf("call %d error = %v", i, err)
		}
		order = append(order, result.Source)
	}

	for name, p := range map[string]*mockProvider{"a": a, "b": b, "c": c} {
		if p.calls != 3 {
			t.Errorf("%s served %d calls, want 3", name, p.calls)
		}
	}
	want := []string{"a", "b", "c", "a", "b", "c", "a", "b", "c"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestRoundRobinCursorAdvancesByCount(t *testing.T) {
	a := failingProvider("a")
	b := failingProvider("b")
	c := okProvider("c")
	d := okProvider("d")
	r := New(providerMap(a, b, c, d), nil, Config{Strategy: StrategyRoundRobin})

	// First call takes candidates a, b (both fail). Cursor moves to c.
	if _, err := r.SearchWithFallback(context.Background(), "q", 2); !errors.Is(err, ErrAllProvidersFailed) {
		t.Fatalf("first call error = %v, want ErrAllProvidersFailed", err)
	}

	// Second call starts at c and succeeds immediately.
	result, err := r.SearchWithFallback(context.Background(), "q", 2)
	if err != nil {
		t.Fatalf("second call error = %v", err)
	}
	if result.Source != "c" {
		t.Errorf("Source = %q, want c (cursor advanced)", result.Source)
	}
}

// --- weighted ---

func TestWeightedSkipsUnreliableProvider(t *testing.T) {
	bad := okProvider("bad") // available and would succeed, but unreliable
	good := okProvider("good")

	tracker := reliability.NewTracker()
	for i := 0; i < 10; i++ {
		tracker.RecordFailure("bad", errors.New("boom"))
	}
	tracker.RecordSuccess("good", 10*time.Millisecond)

	r := New(providerMap(bad, good), tracker, Config{Strategy: StrategyWeighted})

	result, err := r.SearchWithFallback(context.Background(), "q", 1)
	if err != nil {
		t.Fatalf("SearchWithFallback() error = %v", err)
	}
	if result.Source != "good" {
		t.Errorf("Source = %q, want good (bad is excluded at failureRate 1.0)", result.Source)
	}
	if bad.calls != 0 {
		t.Errorf("bad.calls = %d, want 0", bad.calls)
	}
}

func TestWeightedBackfillsWithExcluded(t *testing.T) {
	bad := okProvider("bad")
	good := okProvider("good")

	tracker := reliability.NewTracker()
	for i := 0; i < 10; i++ {
		tracker.RecordFailure("bad", errors.New("boom"))
	}

	r := New(providerMap(bad, good), tracker, Config{Strategy: StrategyWeighted})

	// Two candidates requested but only one passes the filter: the
	// excluded provider backfills the second slot.
	good.err = errors.New("good down")
	good.result = nil
	if _, err := r.SearchWithFallback(context.Background(), "q", 2); err != nil {
		// bad succeeds as the backfill candidate
		t.Fatalf("SearchWithFallback() error = %v", err)
	}
	if bad.calls != 1 {
		t.Errorf("bad.calls = %d, want 1 (backfill attempt)", bad.calls)
	}
}

func TestWeightedWithoutRecorderFallsBackToRoundRobin(t *testing.T) {
	a := okProvider("a")
	b := okProvider("b")
	r := New(providerMap(a, b), nil, Config{Strategy: StrategyWeighted})

	first, err := r.SearchWithFallback(context.Background(), "q", 1)
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.SearchWithFallback(context.Background(), "q", 1)
	if err != nil {
		t.Fatal(err)
	}
	if first.Source == second.Source {
		t.Errorf("both calls served by %q, want rotation", first.Source)
	}
}

// --- random (compatibility behavior) ---

func TestRandomTakesFirstInOrder(t *testing.T) {
	a := okProvider("a")
	b := okProvider("b")
	r := New(providerMap(a, b), nil, Config{Strategy: StrategyRandom})

	for i := 0; i < 3; i++ {
		result, err := r.SearchWithFallback(context.Background(), "q", 1)
		if err != nil {
			t.Fatal(err)
		}
		if result.Source != "a" {
			t.Errorf("Source = %q, want a (first in iteration order)", result.Source)
		}
	}
}

// --- dynamic reconfiguration ---

func TestUpdateProvidersReplacesSet(t *testing.T) {
	a := okProvider("a")
	r := New(providerMap(a), nil, Config{})

	b := okProvider("b")
	r.UpdateProviders(providerMap(b))

	result, err := r.SearchWithFallback(context.Background(), "q", 1)
	if err != nil {
		t.Fatal(err)
	}
	if result.Source != "b" {
		t.Errorf("Source = %q, want b after UpdateProviders", result.Source)
	}
}

func TestGetProvidersReturnsCopy(t *testing.T) {
	a := okProvider("a")
	r := New(providerMap(a), nil, Config{})

	got := r.GetProviders()
	delete(got, "a")

	if len(r.GetProviders()) != 1 {
		t.Error("mutating the returned map affected the router's set")
	}
}
