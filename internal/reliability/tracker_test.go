// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reliability

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/pdiddy/search-gateway/pkg/types"
)

func TestRecordSuccessUpdatesCounters(t *testing.T) {
	tr := NewTracker()
	tr.RecordSuccess("ddg", 100*time.Millisecond)
	tr.RecordSuccess("ddg", 300*time.Millisecond)

	s, ok := tr.GetStats("ddg")
	if !ok {
		t.Fatal("GetStats() ok = false, want true")
	}
	if s.RequestsTotal != 2 || s.RequestsSuccess != 2 || s.RequestsFailed != 0 {
		t.Errorf("counters = %d/%d/%d, want 2/2/0", s.RequestsTotal, s.RequestsSuccess, s.RequestsFailed)
	}
	if s.AvgResponseTimeMs != 200 {
		t.Errorf("AvgResponseTimeMs = %d, want 200", s.AvgResponseTimeMs)
	}
	if s.FailureRate != 0 {
		t.Errorf("FailureRate = %v, want 0", s.FailureRate)
	}
	if s.LastSuccess == nil {
		t.Error("LastSuccess = nil, want timestamp")
	}
}

func TestRecordFailureUpdatesCounters(t *testing.T) {
	tr := NewTracker()
	tr.RecordFailure("ddg", errors.New("connection refused"))
	tr.RecordSuccess("ddg", 50*time.Millisecond)
	tr.RecordFailure("ddg", nil)

	s, _ := tr.GetStats("ddg")
	if s.RequestsTotal != 3 || s.RequestsSuccess != 1 || s.RequestsFailed != 2 {
		t.Errorf("counters = %d/%d/%d, want 3/1/2", s.RequestsTotal, s.RequestsSuccess, s.RequestsFailed)
	}
	if want := 2.0 / 3.0; math.Abs(s.FailureRate-want) > 1e-9 {
		t.Errorf("FailureRate = %v, want %v", s.FailureRate, want)
	}
	// nil error clears the last error text.
	if s.LastError != "" {
		t.Errorf("LastError = %q, want empty after nil-error failure", s.LastError)
	}
	if s.LastFailure == nil {
		t.Error("LastFailure = nil, want timestamp")
	}
}

func TestTotalAlwaysSumOfSuccessAndFailed(t *testing.T) {
	tr := NewTracker()
	for i := 0; i < 20; i++ {
		if i%3 == 0 {
			tr.RecordFailure("p", errors.New("boom"))
		} else {
			tr.RecordSuccess("p", time.Millisecond)
		}
		s, _ := tr.GetStats("p")
		if s.RequestsTotal != s.RequestsSuccess+s.RequestsFailed {
			t.Fatalf("total %d != success %d + failed %d", s.RequestsTotal, s.RequestsSuccess, s.RequestsFailed)
		}
	}
}

func TestGetStatsUnknownProvider(t *testing.T) {
	tr := NewTracker()
	if _, ok := tr.GetStats("nobody"); ok {
		t.Error("GetStats() ok = true for unobserved provider, want false")
	}
	if n := len(tr.GetAllStats()); n != 0 {
		t.Errorf("GetAllStats() len = %d, want 0", n)
	}
}

func TestGetWeight(t *testing.T) {
	tests := []struct {
		name      string
		successes int
		failures  int
		base      int
		want      float64
	}{
		{"unobserved keeps base priority", 0, 0, 10, 10},
		{"all successes keeps base", 10, 0, 10, 10},
		{"half failures halves weight", 5, 5, 10, 5},
		{"excluded at 90 percent", 1, 9, 10, 0},
		{"excluded at 100 percent", 0, 5, 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker()
			for i := 0; i < tt.successes; i++ {
				tr.RecordSuccess("p", time.Millisecond)
			}
			for i := 0; i < tt.failures; i++ {
				tr.RecordFailure("p", nil)
			}
			got := tr.GetWeight("p", tt.base)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("GetWeight() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWeightNonIncreasingInFailureRate(t *testing.T) {
	const base = 10
	prev := math.Inf(1)
	// failureRate sweeps 0/10 .. 10/10 across separate trackers.
	for failed := 0; failed <= 10; failed++ {
		tr := NewTracker()
		for i := 0; i < 10-failed; i++ {
			tr.RecordSuccess("p", time.Millisecond)
		}
		for i := 0; i < failed; i++ {
			tr.RecordFailure("p", nil)
		}
		w := tr.GetWeight("p", base)
		if w > prev {
			t.Errorf("weight increased from %v to %v at failed=%d", prev, w, failed)
		}
		prev = w
	}
}

func TestSeedReplacesRecords(t *testing.T) {
	tr := NewTracker()
	tr.RecordSuccess("p", time.Millisecond)

	tr.Seed([]types.ProviderStats{{ProviderName: "p", RequestsTotal: 7, RequestsSuccess: 7}})

	s, _ := tr.GetStats("p")
	if s.RequestsTotal != 7 {
		t.Errorf("RequestsTotal = %d, want 7 (seeded)", s.RequestsTotal)
	}
}

func TestConcurrentRecording(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			name := fmt.Sprintf("p%d", g%2)
			for i := 0; i < 100; i++ {
				if i%2 == 0 {
					tr.RecordSuccess(name, time.Millisecond)
				} else {
					tr.RecordFailure(name, nil)
				}
			}
		}(g)
	}
	wg.Wait()

	var total int64
	for _, s := range tr.GetAllStats() {
		if s.RequestsTotal != s.RequestsSuccess+s.RequestsFailed {
			t.Errorf("%s: total %d != success %d + failed %d",
				s.ProviderName, s.RequestsTotal, s.RequestsSuccess, s.RequestsFailed)
		}
		total += s.RequestsTotal
	}
	if total != 800 {
		t.Errorf("recorded %d outcomes, want 800 (lost updates)", total)
	}
}
