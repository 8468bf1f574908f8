package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alorle/iptv-livecheck/internal/catalog"
	"github.com/alorle/iptv-livecheck/internal/port/driven"
	"github.com/alorle/iptv-livecheck/internal/probe"
	"github.com/alorle/iptv-livecheck/metrics"
)

// ErrRunInProgress is returned when a run is requested while another is
// still going.
var ErrRunInProgress = errors.New("a verification run is already in progress")

// Merge orders for newly confirmed entries.
const (
	OrderCompletion = "completion"
	OrderAppearance = "appearance"
)

// Target is one group to verify.
type Target struct {
	Tag string
	// IncludeExisting resubmits the group's persisted entries.
	IncludeExisting bool
}

// UpdateOptions tunes how verified entries are merged back.
type UpdateOptions struct {
	Targets                []Target
	Order                  string
	MaxPerName             int
	PreserveOnTotalFailure bool
	DryRun                 bool
}

// GroupReport summarizes one group of a run.
type GroupReport struct {
	Tag        string `json:"tag"`
	Candidates int    `json:"candidates"`
	Duplicates int    `json:"duplicates"`
	Confirmed  int    `json:"confirmed"`
	Failed     int    `json:"failed"`
	// Inconclusive counts cancelled and internal failures.
	Inconclusive int    `json:"inconclusive"`
	Changed      bool   `json:"changed"`
	Appended     bool   `json:"appended,omitempty"`
	Skipped      string `json:"skipped,omitempty"`
}

// RunReport summarizes a whole run.
type RunReport struct {
	RunID          string        `json:"run_id"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     time.Time     `json:"finished_at"`
	Groups         []GroupReport `json:"groups"`
	CatalogWritten bool          `json:"catalog_written"`
	DryRun         bool          `json:"dry_run,omitempty"`
	Error          string        `json:"error,omitempty"`
}

// UpdateService runs verification passes: it loads the catalog, probes the
// candidates of each target group, merges the verdicts back and persists
// the catalog when membership changed.
type UpdateService struct {
	catalogs driven.CatalogRepository
	sources  driven.CandidateSource
	batch    *BatchProber
	ledger   driven.Ledger
	history  *ProbeService
	opts     UpdateOptions
	logger   *slog.Logger

	running sync.Mutex
	mu      sync.RWMutex
	last    *RunReport
}

// NewUpdateService wires an update service. sources, ledger and history
// are optional.
func NewUpdateService(
	catalogs driven.CatalogRepository,
	sources driven.CandidateSource,
	batch *BatchProber,
	ledger driven.Ledger,
	history *ProbeService,
	opts UpdateOptions,
	logger *slog.Logger,
) *UpdateService {
	if opts.Order == "" {
		opts.Order = OrderCompletion
	}
	targets := make([]Target, len(opts.Targets))
	for i, t := range opts.Targets {
		targets[i] = Target{Tag: strings.TrimSpace(t.Tag), IncludeExisting: t.IncludeExisting}
	}
	opts.Targets = targets
	return &UpdateService{
		catalogs: catalogs,
		sources:  sources,
		batch:    batch,
		ledger:   ledger,
		history:  history,
		opts:     opts,
		logger:   logger,
	}
}

// LastRun returns the report of the most recent finished run.
func (s *UpdateService) LastRun() (RunReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return RunReport{}, false
	}
	return *s.last, true
}

// Running reports whether a run is in progress.
func (s *UpdateService) Running() bool {
	if s.running.TryLock() {
		s.running.Unlock()
		return false
	}
	return true
}

// Run performs one verification pass over tags, or over every configured
// target when tags is empty. Only one run executes at a time.
//
// A catalog that cannot be loaded fails the run. Save, ledger and history
// errors are joined; history and ledger are written even when the save fails.
func (s *UpdateService) Run(ctx context.Context, tags ...string) (RunReport, error) {
	if !s.running.TryLock() {
		return RunReport{}, ErrRunInProgress
	}
	defer s.running.Unlock()

	report := RunReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		DryRun:    s.opts.DryRun,
	}
	log := s.logger.With("run_id", report.RunID)

	err := s.run(ctx, log, &report, tags)

	report.FinishedAt = time.Now()
	if err != nil {
		report.Error = err.Error()
	}
	metrics.RecordRun(report.FinishedAt.Sub(report.StartedAt), err == nil, report.FinishedAt)

	s.mu.Lock()
	s.last = &report
	s.mu.Unlock()

	if err != nil {
		log.Error("verification run failed", "error", err, "duration", report.FinishedAt.Sub(report.StartedAt))
	} else {
		log.Info("verification run completed",
			"groups", len(report.Groups),
			"catalog_written", report.CatalogWritten,
			"duration", report.FinishedAt.Sub(report.StartedAt),
		)
	}
	return report, err
}

func (s *UpdateService) run(ctx context.Context, log *slog.Logger, report *RunReport, tags []string) error {
	doc, err := s.catalogs.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	targets := s.selectTargets(tags)
	if len(targets) == 0 {
		log.Warn("no target groups configured")
	}
	log.Info("starting verification run", "targets", len(targets), "dry_run", s.opts.DryRun)

	var (
		rows    []driven.LedgerRow
		all     []probe.Result
		changed bool
	)
	for _, target := range targets {
		if ctx.Err() != nil {
			log.Warn("run interrupted, remaining groups left untouched", "group", target.Tag)
			report.Groups = append(report.Groups, GroupReport{Tag: target.Tag, Skipped: "cancelled"})
			continue
		}

		gr, results := s.updateGroup(ctx, log.With("group", target.Tag), doc, target)
		report.Groups = append(report.Groups, gr)
		changed = changed || gr.Changed
		all = append(all, results...)
		for _, r := range results {
			rows = append(rows, driven.LedgerRow{Group: target.Tag, Result: r})
		}
	}

	// Work done so far is kept even when the run was interrupted.
	persistCtx := context.WithoutCancel(ctx)

	var errs []error
	switch {
	case !changed:
		metrics.RecordCatalogWrite("unchanged")
		log.Info("catalog unchanged, nothing written")
	case s.opts.DryRun:
		metrics.RecordCatalogWrite("dry_run")
		log.Info("dry run, catalog not written")
	default:
		if err := s.catalogs.Save(persistCtx, doc); err != nil {
			// History and ledger are still written below.
			metrics.RecordCatalogWrite("failed")
			errs = append(errs, fmt.Errorf("failed to save catalog: %w", err))
			break
		}
		metrics.RecordCatalogWrite("written")
		report.CatalogWritten = true
		log.Info("catalog written")
	}

	if s.history != nil {
		if err := s.history.Record(persistCtx, all); err != nil {
			errs = append(errs, fmt.Errorf("probe history: %w", err))
		}
		for i := range rows {
			if _, uptime, ok := s.history.Score(persistCtx, rows[i].Result.URI()); ok {
				rows[i].Uptime, rows[i].HasUptime = uptime, true
			}
		}
		if err := s.history.Cleanup(persistCtx); err != nil {
			errs = append(errs, fmt.Errorf("probe history cleanup: %w", err))
		}
	}

	if s.ledger != nil {
		run := driven.LedgerRun{
			RunID:      report.RunID,
			StartedAt:  report.StartedAt,
			FinishedAt: time.Now(),
			Rows:       rows,
		}
		if err := s.ledger.Write(persistCtx, run); err != nil {
			errs = append(errs, fmt.Errorf("ledger: %w", err))
		}
	}

	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// selectTargets returns the configured targets filtered by tags. A tag that
// is not configured becomes a target that re-verifies its own entries.
func (s *UpdateService) selectTargets(tags []string) []Target {
	if len(tags) == 0 {
		return s.opts.Targets
	}
	out := make([]Target, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		i := slices.IndexFunc(s.opts.Targets, func(t Target) bool { return t.Tag == tag })
		if i >= 0 {
			out = append(out, s.opts.Targets[i])
			continue
		}
		out = append(out, Target{Tag: tag, IncludeExisting: true})
	}
	return out
}

func (s *UpdateService) updateGroup(ctx context.Context, log *slog.Logger, doc *catalog.Catalog, target Target) (GroupReport, []probe.Result) {
	gr := GroupReport{Tag: target.Tag}
	group, exists := doc.Group(target.Tag)

	var candidates []catalog.Entry
	if target.IncludeExisting && exists {
		candidates = append(candidates, group.Entries()...)
	}
	if s.sources != nil {
		extra, err := s.sources.Candidates(ctx, target.Tag)
		if err != nil {
			log.Warn("failed to gather external candidates", "error", err)
		}
		candidates = append(candidates, extra...)
	}

	unique, dropped := catalog.Dedup(candidates)
	gr.Candidates, gr.Duplicates = len(unique), len(dropped)
	for _, d := range dropped {
		log.Debug("duplicate candidate dropped", "name", d.Name, "uri", d.URI)
	}
	if len(unique) == 0 {
		log.Warn("no candidates for group, left untouched")
		gr.Skipped = "no candidates"
		return gr, nil
	}

	log.Info("probing group", "candidates", len(unique), "duplicates", len(dropped))
	results := s.batch.ProbeAll(ctx, unique, func(r probe.Result) {
		metrics.RecordVerdict(target.Tag, r.Reachable(), string(r.FailureReason()), r.Latency())
		if r.Reachable() {
			log.Debug("entry confirmed", "name", r.Entry().Name, "uri", r.URI(), "latency", r.Latency())
		} else {
			log.Info("entry failed",
				"name", r.Entry().Name,
				"uri", r.URI(),
				"reason", r.FailureReason(),
				"attempts", r.AttemptSummary(),
			)
		}
	})

	if s.opts.Order == OrderAppearance {
		pos := make(map[string]int, len(unique))
		for i, e := range unique {
			pos[e.URI] = i
		}
		slices.SortStableFunc(results, func(a, b probe.Result) int {
			return pos[a.URI()] - pos[b.URI()]
		})
	}

	var (
		ranked []catalog.Ranked
		probed []string
	)
	for _, r := range results {
		switch {
		case r.Reachable():
			rk := catalog.Ranked{Entry: r.Entry(), Latency: r.Latency()}
			if s.history != nil && s.opts.MaxPerName > 0 {
				rk.Score, _, _ = s.history.Score(ctx, r.URI())
			}
			ranked = append(ranked, rk)
		case r.Conclusive():
			gr.Failed++
			probed = append(probed, r.URI())
		default:
			gr.Inconclusive++
		}
	}

	kept := catalog.LimitPerName(ranked, s.opts.MaxPerName)
	if len(kept) < len(ranked) {
		keptURIs := make(map[string]struct{}, len(kept))
		for _, k := range kept {
			keptURIs[k.Entry.URI] = struct{}{}
		}
		for _, rk := range ranked {
			if _, ok := keptURIs[rk.Entry.URI]; !ok {
				probed = append(probed, rk.Entry.URI)
			}
		}
		log.Info("entries trimmed by per-name limit", "trimmed", len(ranked)-len(kept), "limit", s.opts.MaxPerName)
	}
	confirmed := make([]catalog.Entry, len(kept))
	for i, k := range kept {
		confirmed[i] = k.Entry
	}
	gr.Confirmed = len(confirmed)

	log.Info("group probed",
		"confirmed", gr.Confirmed,
		"failed", gr.Failed,
		"inconclusive", gr.Inconclusive,
	)

	if len(confirmed) == 0 && s.opts.PreserveOnTotalFailure {
		log.Warn("no entry confirmed, group preserved")
		gr.Skipped = "no entry confirmed"
		return gr, results
	}

	if !exists {
		if len(confirmed) == 0 {
			gr.Skipped = "group missing and nothing confirmed"
			return gr, results
		}
		if err := doc.AppendGroup(target.Tag, catalog.MergeGroup(nil, confirmed, nil)); err != nil {
			log.Error("failed to append group", "error", err)
			gr.Skipped = err.Error()
			return gr, results
		}
		log.Info("group appended", "entries", len(confirmed))
		gr.Changed, gr.Appended = true, true
		return gr, results
	}

	body := catalog.MergeGroup(group.Lines(), confirmed, probed)
	if catalog.SameMembership(group.Entries(), catalog.EntriesOf(body)) {
		log.Info("group membership unchanged")
		return gr, results
	}
	if err := doc.ReplaceGroupBody(target.Tag, body); err != nil {
		log.Error("failed to replace group body", "error", err)
		gr.Skipped = err.Error()
		return gr, results
	}
	gr.Changed = true
	return gr, results
}
