package driven

import (
	"context"
	"errors"

	"github.com/alorle/iptv-livecheck/internal/port/driven"
)

// MultiLedger fans a run out to several ledgers. Every ledger is written
// even if an earlier one fails; the errors are joined.
type MultiLedger []driven.Ledger

func (m MultiLedger) Write(ctx context.Context, run driven.LedgerRun) error {
	var errs []error
	for _, l := range m {
		if err := l.Write(ctx, run); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
