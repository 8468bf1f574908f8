package probe

import (
	"strings"
	"time"

	"github.com/alorle/iptv-livecheck/internal/catalog"
)

// Result is the verdict of one liveness probe of one entry.
// It is an immutable value object.
type Result struct {
	entry     catalog.Entry
	timestamp time.Time
	reachable bool
	latency   time.Duration
	attempts  []Attempt
	reason    FailureReason
}

// NewResult creates a new probe result with validation. A reachable result
// carries no failure reason; an unreachable one must carry one.
func NewResult(
	entry catalog.Entry,
	timestamp time.Time,
	reachable bool,
	latency time.Duration,
	attempts []Attempt,
	reason FailureReason,
) (Result, error) {
	if strings.TrimSpace(entry.URI) == "" {
		return Result{}, ErrEmptyURI
	}
	if timestamp.IsZero() {
		return Result{}, ErrInvalidTimestamp
	}
	if reachable && reason != ReasonNone {
		return Result{}, ErrUnexpectedReason
	}
	if !reachable && reason == ReasonNone {
		return Result{}, ErrMissingReason
	}
	if _, err := ParseFailureReason(string(reason)); err != nil {
		return Result{}, err
	}
	return ReconstructResult(entry, timestamp, reachable, latency, attempts, reason), nil
}

// ReconstructResult rebuilds a Result from persisted state.
// Intended for repository adapters and the prober only, bypasses validation.
func ReconstructResult(
	entry catalog.Entry,
	timestamp time.Time,
	reachable bool,
	latency time.Duration,
	attempts []Attempt,
	reason FailureReason,
) Result {
	return Result{
		entry:     entry,
		timestamp: timestamp,
		reachable: reachable,
		latency:   latency,
		attempts:  append([]Attempt(nil), attempts...),
		reason:    reason,
	}
}

// Reachable builds a passing result.
func Reachable(entry catalog.Entry, at time.Time, latency time.Duration, attempts []Attempt) Result {
	return ReconstructResult(entry, at, true, latency, attempts, ReasonNone)
}

// Failed builds a failing result.
func Failed(entry catalog.Entry, at time.Time, reason FailureReason, attempts []Attempt) Result {
	return ReconstructResult(entry, at, false, 0, attempts, reason)
}

func (r Result) Entry() catalog.Entry         { return r.entry }
func (r Result) URI() string                  { return r.entry.URI }
func (r Result) Timestamp() time.Time         { return r.timestamp }
func (r Result) Reachable() bool              { return r.reachable }
func (r Result) Latency() time.Duration       { return r.latency }
func (r Result) FailureReason() FailureReason { return r.reason }

// Attempts returns a copy of the attempt log in execution order.
func (r Result) Attempts() []Attempt { return append([]Attempt(nil), r.attempts...) }

// Conclusive reports whether the result says something about the endpoint.
func (r Result) Conclusive() bool { return r.reachable || r.reason.Conclusive() }

// AttemptSummary renders the attempt log on one line.
func (r Result) AttemptSummary() string { return SummarizeAttempts(r.attempts) }
