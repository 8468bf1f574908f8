package driven

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/alorle/iptv-livecheck/internal/port/driven"
)

// SQLiteLedger appends every run to the probe_ledger table.
type SQLiteLedger struct {
	db *sql.DB
}

// OpenSQLiteLedger opens (or creates) the database at path and ensures the
// schema exists.
func OpenSQLiteLedger(path string) (*SQLiteLedger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("sqlite ledger: mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite ledger: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if err := initLedgerSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite ledger: init schema: %w", err)
	}
	return &SQLiteLedger{db: db}, nil
}

func initLedgerSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS probe_ledger (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id         TEXT NOT NULL,
		group_tag      TEXT NOT NULL,
		name           TEXT NOT NULL,
		uri            TEXT NOT NULL,
		reachable      INTEGER NOT NULL,
		latency_ms     INTEGER,
		failure_reason TEXT,
		attempts       TEXT,
		uptime         REAL,
		checked_at     TEXT NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_probe_ledger_uri ON probe_ledger(uri)`)
	return err
}

// Write implements driven.Ledger. All rows of a run are inserted in one
// transaction.
func (l *SQLiteLedger) Write(ctx context.Context, run driven.LedgerRun) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite ledger: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO probe_ledger
		(run_id, group_tag, name, uri, reachable, latency_ms, failure_reason, attempts, uptime, checked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlite ledger: prepare: %w", err)
	}
	defer stmt.Close()

	for _, row := range run.Rows {
		r := row.Result
		var latency sql.NullInt64
		if r.Reachable() {
			latency = sql.NullInt64{Int64: r.Latency().Milliseconds(), Valid: true}
		}
		var uptime sql.NullFloat64
		if row.HasUptime {
			uptime = sql.NullFloat64{Float64: row.Uptime, Valid: true}
		}
		_, err := stmt.ExecContext(ctx,
			run.RunID, row.Group, r.Entry().Name, r.URI(), r.Reachable(),
			latency, string(r.FailureReason()), r.AttemptSummary(), uptime,
			r.Timestamp().UTC().Format("2006-01-02T15:04:05Z"),
		)
		if err != nil {
			return fmt.Errorf("sqlite ledger: insert %s: %w", r.URI(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite ledger: commit: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}
