package probe

import (
	"fmt"
	"strings"
	"time"
)

// Stage is one step of the liveness cascade.
type Stage string

const (
	StageHead       Stage = "HEAD"
	StageGet        Stage = "GET"
	StagePlaylist   Stage = "PLAYLIST"
	StageSegment    Stage = "SEGMENT"
	StageDeepDecode Stage = "DEEP_DECODE"
)

// Outcome is the typed result of a single attempt.
type Outcome string

const (
	OutcomeSuccess    Outcome = "success"
	OutcomeTimeout    Outcome = "timeout"
	OutcomeError      Outcome = "error"
	OutcomeHTTPStatus Outcome = "http_status"
	// OutcomeSkipped marks a stage that could not run at all.
	OutcomeSkipped    Outcome = "skipped"
)

// Attempt records one try of one stage.
type Attempt struct {
	Stage      Stage
	Outcome    Outcome
	StatusCode int
	Elapsed    time.Duration
	Note       string
}

func (a Attempt) Succeeded() bool { return a.Outcome == OutcomeSuccess }

// String renders the attempt for ledgers and logs, e.g.
// "SEGMENT:http_status 404 35ms".
func (a Attempt) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:%s", a.Stage, a.Outcome)
	if a.StatusCode != 0 {
		fmt.Fprintf(&b, " %d", a.StatusCode)
	}
	fmt.Fprintf(&b, " %dms", a.Elapsed.Milliseconds())
	if a.Note != "" {
		fmt.Fprintf(&b, " (%s)", a.Note)
	}
	return b.String()
}

// SummarizeAttempts joins attempts with " | ".
func SummarizeAttempts(attempts []Attempt) string {
	parts := make([]string, len(attempts))
	for i, a := range attempts {
		parts[i] = a.String()
	}
	return strings.Join(parts, " | ")
}
