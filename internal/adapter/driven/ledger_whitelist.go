package driven

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"

	"github.com/alorle/iptv-livecheck/internal/port/driven"
)

// WhitelistLedger writes one <slug>_whitelist.txt per group listing the
// entries confirmed in the run as catalog entry lines.
type WhitelistLedger struct {
	dir string
}

func NewWhitelistLedger(dir string) *WhitelistLedger {
	return &WhitelistLedger{dir: dir}
}

// FileName returns the whitelist file name used for a group tag.
func (l *WhitelistLedger) FileName(tag string) string {
	name := slug.Make(tag)
	if name == "" {
		name = "group"
	}
	return name + "_whitelist.txt"
}

// Write implements driven.Ledger. Groups with no confirmed entries still get
// an empty file so stale lists never survive a run.
func (l *WhitelistLedger) Write(ctx context.Context, run driven.LedgerRun) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	groups := make(map[string]*strings.Builder)
	var order []string
	for _, row := range run.Rows {
		b, ok := groups[row.Group]
		if !ok {
			b = &strings.Builder{}
			groups[row.Group] = b
			order = append(order, row.Group)
		}
		if row.Result.Reachable() {
			b.WriteString(row.Result.Entry().Line())
			b.WriteByte('\n')
		}
	}

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("create whitelist directory: %w", err)
	}
	for _, tag := range order {
		path := filepath.Join(l.dir, l.FileName(tag))
		if err := writeFileAtomic(path, []byte(groups[tag].String()), 0o644); err != nil {
			return fmt.Errorf("write whitelist for %q: %w", tag, err)
		}
	}
	return nil
}
