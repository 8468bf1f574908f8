package probe

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestNewMetrics_EmptyResults(t *testing.T) {
	_, err := NewMetrics(testEntry.URI, nil)
	if !errors.Is(err, ErrNoProbeData) {
		t.Errorf("expected ErrNoProbeData, got %v", err)
	}

	onlyCancelled := []Result{Failed(testEntry, time.Now(), ReasonCancelled, nil)}
	_, err = NewMetrics(testEntry.URI, onlyCancelled)
	if !errors.Is(err, ErrNoProbeData) {
		t.Errorf("expected ErrNoProbeData for inconclusive history, got %v", err)
	}
}

func TestNewMetrics_AllSuccessful(t *testing.T) {
	now := time.Now()
	results := []Result{
		Reachable(testEntry, now, 200*time.Millisecond, nil),
		Reachable(testEntry, now.Add(-30*time.Minute), 300*time.Millisecond, nil),
		Reachable(testEntry, now.Add(-60*time.Minute), 100*time.Millisecond, nil),
	}

	m, err := NewMetrics(testEntry.URI, results)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if m.URI() != testEntry.URI {
		t.Errorf("URI() = %q, want %q", m.URI(), testEntry.URI)
	}
	if m.TotalProbes() != 3 {
		t.Errorf("TotalProbes() = %d, want 3", m.TotalProbes())
	}
	if m.UptimeRatio() != 1.0 {
		t.Errorf("UptimeRatio() = %f, want 1.0", m.UptimeRatio())
	}
	if m.FailureRate() != 0.0 {
		t.Errorf("FailureRate() = %f, want 0.0", m.FailureRate())
	}
	if m.AvgLatency() != 200.0 {
		t.Errorf("AvgLatency() = %f, want 200.0", m.AvgLatency())
	}

	// diffs: 0, 100, -100 → mean of squares 20000/3
	expectedStdDev := math.Sqrt(20000.0 / 3)
	if math.Abs(m.LatencyStdDev()-expectedStdDev) > 0.01 {
		t.Errorf("LatencyStdDev() = %f, want %f", m.LatencyStdDev(), expectedStdDev)
	}
}

func TestNewMetrics_Mixed(t *testing.T) {
	now := time.Now()
	results := []Result{
		Reachable(testEntry, now, 400*time.Millisecond, nil),
		Failed(testEntry, now.Add(-time.Hour), ReasonUnreachable, nil),
		Failed(testEntry, now.Add(-2*time.Hour), ReasonSegmentFailure, nil),
		Reachable(testEntry, now.Add(-3*time.Hour), 200*time.Millisecond, nil),
		Failed(testEntry, now.Add(-4*time.Hour), ReasonCancelled, nil),
	}

	m, err := NewMetrics(testEntry.URI, results)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if m.TotalProbes() != 4 {
		t.Errorf("TotalProbes() = %d, want 4 (cancelled ignored)", m.TotalProbes())
	}
	if m.SuccessfulProbes() != 2 {
		t.Errorf("SuccessfulProbes() = %d, want 2", m.SuccessfulProbes())
	}
	if m.UptimeRatio() != 0.5 {
		t.Errorf("UptimeRatio() = %f, want 0.5", m.UptimeRatio())
	}
	if m.AvgLatency() != 300.0 {
		t.Errorf("AvgLatency() = %f, want 300.0", m.AvgLatency())
	}
}
