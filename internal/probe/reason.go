package probe

import "fmt"

// FailureReason classifies why an entry was judged unreachable.
// The zero value means no failure.
type FailureReason string

const (
	ReasonNone                  FailureReason = ""
	ReasonUnreachable           FailureReason = "Unreachable"
	ReasonHTTPFailure           FailureReason = "HTTPFailure"
	ReasonEmptyStream           FailureReason = "EmptyStream"
	ReasonPlaylistUnresolvable  FailureReason = "PlaylistUnresolvable"
	ReasonSegmentFailure        FailureReason = "SegmentFailure"
	ReasonUndecodable           FailureReason = "Undecodable"
	ReasonCapabilityUnavailable FailureReason = "CapabilityUnavailable"
	ReasonCancelled             FailureReason = "Cancelled"
	ReasonInternal              FailureReason = "Internal"
)

var knownReasons = map[FailureReason]bool{
	ReasonUnreachable:           true,
	ReasonHTTPFailure:           true,
	ReasonEmptyStream:           true,
	ReasonPlaylistUnresolvable:  true,
	ReasonSegmentFailure:        true,
	ReasonUndecodable:           true,
	ReasonCapabilityUnavailable: true,
	ReasonCancelled:             true,
	ReasonInternal:              true,
}

// ParseFailureReason converts a persisted string back to a FailureReason.
func ParseFailureReason(s string) (FailureReason, error) {
	r := FailureReason(s)
	if r == ReasonNone || knownReasons[r] {
		return r, nil
	}
	return ReasonNone, fmt.Errorf("%w: %q", ErrUnknownFailureReason, s)
}

// Conclusive reports whether the verdict reflects the endpoint rather than
// the run. Cancelled and Internal results say nothing about the stream.
func (r FailureReason) Conclusive() bool {
	return r != ReasonCancelled && r != ReasonInternal
}
