package probe

import (
	"math"
	"testing"
	"time"
)

func TestComputeStabilityScore_SteadyFastStream(t *testing.T) {
	now := time.Now()
	results := []Result{
		Reachable(testEntry, now, 500*time.Millisecond, nil),
		Reachable(testEntry, now.Add(-30*time.Minute), 500*time.Millisecond, nil),
	}

	m, err := NewMetrics(testEntry.URI, results)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	score := ComputeStabilityScore(m, 10000)

	// uptime=1.0, latency=0.95, jitter=1.0 → 0.70 + 0.19 + 0.10
	if math.Abs(score-0.99) > 0.001 {
		t.Errorf("score = %f, want ~0.99", score)
	}
}

func TestComputeStabilityScore_DeadStream(t *testing.T) {
	now := time.Now()
	results := []Result{
		Failed(testEntry, now, ReasonUnreachable, nil),
		Failed(testEntry, now.Add(-30*time.Minute), ReasonHTTPFailure, nil),
	}

	m, err := NewMetrics(testEntry.URI, results)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if score := ComputeStabilityScore(m, 10000); score != 0.0 {
		t.Errorf("score = %f, want 0.0", score)
	}
}

func TestComputeStabilityScore_Ordering(t *testing.T) {
	now := time.Now()
	steady, _ := NewMetrics(testEntry.URI, []Result{
		Reachable(testEntry, now, 300*time.Millisecond, nil),
		Reachable(testEntry, now.Add(-time.Hour), 300*time.Millisecond, nil),
	})
	flaky, _ := NewMetrics(testEntry.URI, []Result{
		Reachable(testEntry, now, 100*time.Millisecond, nil),
		Failed(testEntry, now.Add(-time.Hour), ReasonUnreachable, nil),
	})

	if ComputeStabilityScore(steady, 10000) <= ComputeStabilityScore(flaky, 10000) {
		t.Error("an always-up endpoint should outscore a flaky faster one")
	}
}

func TestClamp(t *testing.T) {
	tests := []struct{ v, want float64 }{
		{-0.5, 0},
		{0.3, 0.3},
		{1.7, 1},
	}
	for _, tt := range tests {
		if got := clamp(tt.v, 0, 1); got != tt.want {
			t.Errorf("clamp(%f) = %f, want %f", tt.v, got, tt.want)
		}
	}
}
