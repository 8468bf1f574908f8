package driven

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/alorle/iptv-livecheck/internal/port/driven"
)

var ledgerColumns = []string{
	"run_id", "group", "name", "uri", "reachable",
	"latency_ms", "failure_reason", "attempts", "uptime", "checked_at",
}

// CSVLedger rewrites a CSV report of the latest run on every Write.
type CSVLedger struct {
	path string
}

// NewCSVLedger creates a ledger writing to path. Parent directories are
// created on first write.
func NewCSVLedger(path string) *CSVLedger {
	return &CSVLedger{path: path}
}

// Write implements driven.Ledger.
func (l *CSVLedger) Write(ctx context.Context, run driven.LedgerRun) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(ledgerColumns); err != nil {
		return err
	}
	for _, row := range run.Rows {
		if err := w.Write(csvRecord(run.RunID, row)); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}
	return writeFileAtomic(l.path, buf.Bytes(), 0o644)
}

func csvRecord(runID string, row driven.LedgerRow) []string {
	r := row.Result
	latency := ""
	if r.Reachable() {
		latency = strconv.FormatInt(r.Latency().Milliseconds(), 10)
	}
	uptime := ""
	if row.HasUptime {
		uptime = strconv.FormatFloat(row.Uptime, 'f', 3, 64)
	}
	return []string{
		runID,
		row.Group,
		r.Entry().Name,
		r.URI(),
		strconv.FormatBool(r.Reachable()),
		latency,
		string(r.FailureReason()),
		r.AttemptSummary(),
		uptime,
		r.Timestamp().UTC().Format("2006-01-02T15:04:05Z"),
	}
}
