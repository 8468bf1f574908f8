package driven

import (
	"context"
	"time"

	"github.com/alorle/iptv-livecheck/internal/probe"
)

// ProbeRepository defines the interface for probe history persistence.
// This is a driven port implemented by concrete adapters (e.g., BoltDB).
type ProbeRepository interface {
	// Save persists a probe result.
	Save(ctx context.Context, r probe.Result) error

	// SaveAll persists a batch of probe results in one transaction.
	SaveAll(ctx context.Context, rs []probe.Result) error

	// FindByURI retrieves all probe results for an endpoint,
	// ordered by timestamp descending (most recent first).
	FindByURI(ctx context.Context, uri string) ([]probe.Result, error)

	// FindByURISince retrieves probe results for an endpoint since the
	// given time, ordered by timestamp descending. This supports the
	// rolling window used for uptime figures.
	FindByURISince(ctx context.Context, uri string, since time.Time) ([]probe.Result, error)

	// DeleteBefore removes all probe results older than the given time.
	// This is used for retention/cleanup.
	DeleteBefore(ctx context.Context, before time.Time) error
}
