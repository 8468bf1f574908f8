package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	"github.com/alorle/iptv-livecheck/internal/application"
)

// Runner performs one verification run.
type Runner interface {
	Run(ctx context.Context, tags ...string) (application.RunReport, error)
}

// Scheduler triggers runs on a cron schedule and on demand. At most one run
// is in flight; overlapping triggers are skipped.
type Scheduler struct {
	runner Runner
	cron   *cron.Cron
	logger *slog.Logger

	ctx  context.Context
	busy atomic.Bool
	wg   sync.WaitGroup
}

// NewScheduler registers runner on schedule (standard five-field cron syntax).
// Runs started by the scheduler use ctx, so cancelling it interrupts them.
func NewScheduler(ctx context.Context, schedule string, runner Runner, logger *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		runner: runner,
		cron:   cron.New(),
		logger: logger,
		ctx:    ctx,
	}
	if _, err := s.cron.AddFunc(schedule, func() {
		if err := s.Trigger(); err != nil {
			s.logger.Warn("scheduled run skipped", "error", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start starts the cron loop. When runNow is set a run is triggered
// immediately.
func (s *Scheduler) Start(runNow bool) {
	s.cron.Start()
	s.logger.Info("scheduler started", "entries", len(s.cron.Entries()))
	if runNow {
		s.logger.Info("running verification on start")
		if err := s.Trigger(); err != nil {
			s.logger.Warn("initial run skipped", "error", err)
		}
	}
}

// Trigger starts a run in the background. It returns
// application.ErrRunInProgress when a run is already going.
func (s *Scheduler) Trigger() error {
	if !s.busy.CompareAndSwap(false, true) {
		return application.ErrRunInProgress
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.busy.Store(false)
		if _, err := s.runner.Run(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("background run failed", "error", err)
		}
	}()
	return nil
}

// Busy reports whether a triggered run is still going.
func (s *Scheduler) Busy() bool { return s.busy.Load() }

// Stop stops the cron loop and waits for a running job to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}
