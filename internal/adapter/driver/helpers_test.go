package driver

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/alorle/iptv-livecheck/internal/catalog"
	"github.com/alorle/iptv-livecheck/internal/probe"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockCatalogRepository is a mock implementation for health check testing.
type mockCatalogRepository struct {
	loadFunc func(ctx context.Context) (*catalog.Catalog, error)
}

func (m *mockCatalogRepository) Load(ctx context.Context) (*catalog.Catalog, error) {
	if m.loadFunc != nil {
		return m.loadFunc(ctx)
	}
	return catalog.Parse("News,#genre#\na,http://a.example/1\n"), nil
}

func (m *mockCatalogRepository) Save(ctx context.Context, c *catalog.Catalog) error {
	return nil
}

// mockProbeRepository serves a fixed history per URI.
type mockProbeRepository struct {
	history map[string][]probe.Result
	err     error
}

func (m *mockProbeRepository) Save(ctx context.Context, r probe.Result) error { return nil }

func (m *mockProbeRepository) SaveAll(ctx context.Context, rs []probe.Result) error { return nil }

func (m *mockProbeRepository) FindByURI(ctx context.Context, uri string) ([]probe.Result, error) {
	return m.FindByURISince(ctx, uri, time.Time{})
}

func (m *mockProbeRepository) FindByURISince(ctx context.Context, uri string, since time.Time) ([]probe.Result, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.history[uri], nil
}

func (m *mockProbeRepository) DeleteBefore(ctx context.Context, before time.Time) error { return nil }

type availableDecoder bool

func (d availableDecoder) Available() bool { return bool(d) }
func (d availableDecoder) Probe(context.Context, string, time.Duration) (bool, error) {
	return bool(d), nil
}
