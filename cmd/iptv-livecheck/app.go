package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/alorle/iptv-livecheck/cache"
	"github.com/alorle/iptv-livecheck/config"
	"github.com/alorle/iptv-livecheck/fetcher"
	adapter "github.com/alorle/iptv-livecheck/internal/adapter/driven"
	"github.com/alorle/iptv-livecheck/internal/application"
	"github.com/alorle/iptv-livecheck/internal/port/driven"
)

// app holds the wired services and the resources they own.
type app struct {
	updates *application.UpdateService
	health  *application.HealthService
	probes  *application.ProbeService

	closers []func() error
	logger  *slog.Logger
}

func newApp(cfg *config.Config, dryRun bool, logger *slog.Logger) (_ *app, err error) {
	a := &app{logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	catalogs := adapter.NewCatalogFileRepository(cfg.Catalog.Path, cfg.Catalog.CreateIfMissing, logger)

	// Candidate sources
	storage, err := cache.NewFileStorage(cfg.Fetch.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create candidate cache: %w", err)
	}
	f := fetcher.New(cfg.Fetch.Timeout, storage, cfg.Fetch.CacheTTL, logger)
	sourcesByTag := make(map[string][]string, len(cfg.Targets))
	for _, t := range cfg.Targets {
		sourcesByTag[t.Tag] = t.Sources
	}
	sources := adapter.NewListCandidateSource(sourcesByTag, f, logger)

	// Liveness cascade
	decoder := adapter.NewFFProbeDecoder(cfg.Probe.DeepDecode.Command, logger)
	prober := adapter.NewHTTPStreamProber(proberConfig(cfg.Probe), decoder, logger)
	batch := application.NewBatchProber(prober, cfg.Pool.Width, cfg.Pool.BatchTimeout, logger)

	// Probe history
	if cfg.History.Path != "" {
		a.probes, err = a.openHistory(cfg)
		if err != nil {
			return nil, err
		}
	}

	ledger, err := a.openLedgers(cfg)
	if err != nil {
		return nil, err
	}

	targets := make([]application.Target, len(cfg.Targets))
	for i, t := range cfg.Targets {
		targets[i] = application.Target{Tag: t.Tag, IncludeExisting: t.ResubmitsExisting()}
	}

	a.updates = application.NewUpdateService(catalogs, sources, batch, ledger, a.probes, application.UpdateOptions{
		Targets:                targets,
		Order:                  cfg.Merge.Order,
		MaxPerName:             cfg.Merge.MaxPerName,
		PreserveOnTotalFailure: cfg.Merge.PreserveOnTotalFailure,
		DryRun:                 dryRun,
	}, logger)
	a.health = application.NewHealthService(catalogs, decoder, a.updates, cfg.Server.StaleAfter)

	logger.Info("iptv-livecheck ready",
		"catalog", cfg.Catalog.Path,
		"targets", len(targets),
		"pool_width", cfg.Pool.Width,
		"deep_decode", decoder.Available(),
		"history", cfg.History.Path != "",
		"dry_run", dryRun,
	)
	return a, nil
}

func (a *app) openHistory(cfg *config.Config) (*application.ProbeService, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.History.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	db, err := bbolt.Open(cfg.History.Path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	a.closers = append(a.closers, db.Close)

	repo, err := adapter.NewProbeBoltDBRepository(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create probe repository: %w", err)
	}
	return application.NewProbeService(repo, a.logger, cfg.History.Window, float64(cfg.History.MaxLatency.Milliseconds())), nil
}

func (a *app) openLedgers(cfg *config.Config) (driven.Ledger, error) {
	var ledgers adapter.MultiLedger
	if cfg.Ledger.Path != "" {
		ledgers = append(ledgers, adapter.NewCSVLedger(cfg.Ledger.Path))
	}
	if cfg.Ledger.WhitelistDir != "" {
		ledgers = append(ledgers, adapter.NewWhitelistLedger(cfg.Ledger.WhitelistDir))
	}
	if cfg.Ledger.SQLitePath != "" {
		sqlite, err := adapter.OpenSQLiteLedger(cfg.Ledger.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open ledger database: %w", err)
		}
		a.closers = append(a.closers, sqlite.Close)
		ledgers = append(ledgers, sqlite)
	}
	if len(ledgers) == 0 {
		return nil, nil
	}
	return ledgers, nil
}

// Close releases databases in reverse opening order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("error closing resource", "error", err)
		}
	}
	a.closers = nil
}

func proberConfig(p config.ProbeConfig) adapter.HTTPProberConfig {
	return adapter.HTTPProberConfig{
		ConnectTimeout:    p.ConnectTimeout,
		ReadTimeout:       p.ReadTimeout,
		Retries:           p.Retries,
		BackoffInitial:    p.BackoffInitial,
		BackoffMax:        p.BackoffMax,
		SegmentWindow:     int64(p.SegmentWindow),
		PlaylistMaxBytes:  int64(p.PlaylistMaxBytes),
		MaxPlaylistDepth:  p.MaxPlaylistDepth,
		UserAgents:        p.UserAgents,
		ImmuneHosts:       p.ImmuneHosts,
		PerHostRPS:        p.PerHostRPS,
		EnableHead:        p.Stages.Head,
		EnablePlaylist:    p.Stages.Playlist,
		EnableSegment:     p.Stages.Segment,
		EnableDeepDecode:  p.Stages.DeepDecode,
		DeepDecodeBudgets: p.DeepDecode.Budgets,
		DeepDecodeMode:    p.DeepDecode.Mode,
	}
}
