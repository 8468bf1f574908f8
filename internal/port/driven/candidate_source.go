package driven

import (
	"context"

	"github.com/alorle/iptv-livecheck/internal/catalog"
)

// CandidateSource supplies entries to verify for a group, in the order they
// should be considered.
type CandidateSource interface {
	Candidates(ctx context.Context, tag string) ([]catalog.Entry, error)
}
