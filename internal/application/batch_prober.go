package application

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alorle/iptv-livecheck/internal/catalog"
	"github.com/alorle/iptv-livecheck/internal/port/driven"
	"github.com/alorle/iptv-livecheck/internal/probe"
	"github.com/alorle/iptv-livecheck/metrics"
)

// BatchProber runs a StreamProber over many entries with bounded
// parallelism.
type BatchProber struct {
	prober  driven.StreamProber
	width   int
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewBatchProber creates a pool of the given width. A zero timeout means
// the batch only ends with its context.
func NewBatchProber(prober driven.StreamProber, width int, timeout time.Duration, logger *slog.Logger) *BatchProber {
	if width < 1 {
		width = 1
	}
	return &BatchProber{
		prober:  prober,
		width:   width,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// ProbeAll probes every entry and returns exactly one result per entry in
// completion order. onResult, when set, is called from the collecting
// goroutine as each result arrives.
//
// Entries that had not started when the context ended are reported as
// Cancelled. A panicking probe is reported as Internal and does not
// affect the other entries.
func (b *BatchProber) ProbeAll(ctx context.Context, entries []catalog.Entry, onResult func(probe.Result)) []probe.Result {
	if len(entries) == 0 {
		return nil
	}
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	out := make(chan probe.Result, len(entries))
	var g errgroup.Group
	g.SetLimit(b.width)

	go func() {
		for _, e := range entries {
			if ctx.Err() != nil {
				out <- probe.Failed(e, b.now(), probe.ReasonCancelled, nil)
				continue
			}
			g.Go(func() error {
				out <- b.probeOne(ctx, e)
				return nil
			})
		}
		_ = g.Wait()
		close(out)
	}()

	results := make([]probe.Result, 0, len(entries))
	for r := range out {
		if onResult != nil {
			onResult(r)
		}
		results = append(results, r)
	}
	return results
}

func (b *BatchProber) probeOne(ctx context.Context, e catalog.Entry) (result probe.Result) {
	metrics.ProbeStarted()
	defer metrics.ProbeFinished()

	defer func() {
		if rec := recover(); rec != nil {
			b.logger.Error("probe panicked",
				"name", e.Name,
				"uri", e.URI,
				"panic", fmt.Sprint(rec),
				"stack", string(debug.Stack()),
			)
			result = probe.Failed(e, b.now(), probe.ReasonInternal, nil)
		}
	}()

	return b.prober.Probe(ctx, e)
}
