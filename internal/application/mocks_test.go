package application

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/alorle/iptv-livecheck/internal/catalog"
	"github.com/alorle/iptv-livecheck/internal/port/driven"
	"github.com/alorle/iptv-livecheck/internal/probe"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// mockProbeRepository implements driven.ProbeRepository for testing.
type mockProbeRepository struct {
	saveAllFunc        func(ctx context.Context, rs []probe.Result) error
	findByURISinceFunc func(ctx context.Context, uri string, since time.Time) ([]probe.Result, error)
	deleteBeforeFunc   func(ctx context.Context, before time.Time) error
}

func (m *mockProbeRepository) Save(ctx context.Context, r probe.Result) error {
	return m.SaveAll(ctx, []probe.Result{r})
}

func (m *mockProbeRepository) SaveAll(ctx context.Context, rs []probe.Result) error {
	if m.saveAllFunc != nil {
		return m.saveAllFunc(ctx, rs)
	}
	return nil
}

func (m *mockProbeRepository) FindByURI(ctx context.Context, uri string) ([]probe.Result, error) {
	return m.FindByURISince(ctx, uri, time.Time{})
}

func (m *mockProbeRepository) FindByURISince(ctx context.Context, uri string, since time.Time) ([]probe.Result, error) {
	if m.findByURISinceFunc != nil {
		return m.findByURISinceFunc(ctx, uri, since)
	}
	return []probe.Result{}, nil
}

func (m *mockProbeRepository) DeleteBefore(ctx context.Context, before time.Time) error {
	if m.deleteBeforeFunc != nil {
		return m.deleteBeforeFunc(ctx, before)
	}
	return nil
}

// memoryCatalogRepository keeps the catalog text in memory.
type memoryCatalogRepository struct {
	mu      sync.Mutex
	text    string
	loadErr error
	saveErr error
	saves   int
}

func (m *memoryCatalogRepository) Load(ctx context.Context) (*catalog.Catalog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return catalog.Parse(m.text), nil
}

func (m *memoryCatalogRepository) Save(ctx context.Context, c *catalog.Catalog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.text = c.String()
	return nil
}

func (m *memoryCatalogRepository) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text
}

// mockCandidateSource implements driven.CandidateSource for testing.
type mockCandidateSource struct {
	candidatesFunc func(ctx context.Context, tag string) ([]catalog.Entry, error)
}

func (m *mockCandidateSource) Candidates(ctx context.Context, tag string) ([]catalog.Entry, error) {
	if m.candidatesFunc != nil {
		return m.candidatesFunc(ctx, tag)
	}
	return nil, nil
}

// proberFunc adapts a function to driven.StreamProber.
type proberFunc func(ctx context.Context, e catalog.Entry) probe.Result

func (f proberFunc) Probe(ctx context.Context, e catalog.Entry) probe.Result { return f(ctx, e) }

// verdicts returns a prober answering from a URI -> reason table.
// ReasonNone means reachable; unknown URIs are Unreachable.
func verdicts(table map[string]probe.FailureReason) driven.StreamProber {
	return proberFunc(func(ctx context.Context, e catalog.Entry) probe.Result {
		reason, ok := table[e.URI]
		if !ok {
			reason = probe.ReasonUnreachable
		}
		if reason == probe.ReasonNone {
			return probe.Reachable(e, time.Now(), 10*time.Millisecond, nil)
		}
		return probe.Failed(e, time.Now(), reason, nil)
	})
}

// recordingLedger captures every run written to it.
type recordingLedger struct {
	runs []driven.LedgerRun
	err  error
}

func (l *recordingLedger) Write(ctx context.Context, run driven.LedgerRun) error {
	l.runs = append(l.runs, run)
	return l.err
}

// stubDecoder implements driven.DecoderProbe.
type stubDecoder struct{ available bool }

func (d stubDecoder) Available() bool { return d.available }
func (d stubDecoder) Probe(context.Context, string, time.Duration) (bool, error) {
	return d.available, nil
}
