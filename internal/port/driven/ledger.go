package driven

import (
	"context"
	"time"

	"github.com/alorle/iptv-livecheck/internal/probe"
)

// LedgerRow is the diagnostic record of one probed entry.
type LedgerRow struct {
	Group  string
	Result probe.Result
	// Uptime is the historical uptime ratio, set only when HasUptime is true.
	Uptime    float64
	HasUptime bool
}

// LedgerRun is everything a ledger receives at the end of a run.
type LedgerRun struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Rows       []LedgerRow
}

// Ledger records per-entry diagnostics. It is written once per run,
// whether or not the catalog changed.
type Ledger interface {
	Write(ctx context.Context, run LedgerRun) error
}
