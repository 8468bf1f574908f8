package driven

import (
	"context"
	"time"

	"github.com/alorle/iptv-livecheck/internal/catalog"
	"github.com/alorle/iptv-livecheck/internal/probe"
)

// StreamProber decides whether one entry is currently live.
type StreamProber interface {
	// Probe runs the liveness cascade for e. It never returns an error:
	// every failure is classified in the result. Implementations must
	// honour ctx cancellation.
	Probe(ctx context.Context, e catalog.Entry) probe.Result
}

// DecoderProbe is an external media decoder used as the last, most
// expensive liveness check.
type DecoderProbe interface {
	// Available reports whether the decoder can be invoked at all.
	Available() bool

	// Probe tries to decode uri within budget. It returns true when at least
	// one media stream was recognized.
	Probe(ctx context.Context, uri string, budget time.Duration) (bool, error)
}
