package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/alorle/iptv-livecheck/internal/adapter/driver"
	"github.com/alorle/iptv-livecheck/internal/catalog"
)

func runOnce(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	groups, _ := cmd.Flags().GetStringArray("group")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	logger := newLogger(cfg)
	a, err := newApp(cfg, dryRun, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, runErr := a.updates.Run(ctx, groups...)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		logger.Warn("failed to print run report", "error", err)
	}
	return runErr
}

func serve(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	a, err := newApp(cfg, false, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler, err := driver.NewScheduler(ctx, cfg.Server.Schedule, a.updates, logger)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/health", driver.NewHealthHTTPHandler(a.health))
	runHandler := driver.NewRunHTTPHandler(a.updates, scheduler)
	mux.Handle("/status", runHandler)
	mux.Handle("/runs", runHandler)
	if a.probes != nil {
		probeHandler := driver.NewProbeHTTPHandler(a.probes)
		mux.Handle("/probes", probeHandler)
		mux.Handle("/probes/metrics", probeHandler)
		mux.Handle("/quality", probeHandler)
	}
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Address, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	scheduler.Start(cfg.Server.RunOnStart)

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, shutting down gracefully")
	case err = <-serverErr:
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error("server shutdown error", "error", shutdownErr)
	}
	scheduler.Stop()

	logger.Info("server stopped")
	if err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func parseCatalog(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read catalog: %w", err)
	}
	c := catalog.Parse(string(data))

	out := cmd.OutOrStdout()
	total := 0
	for _, g := range c.Groups() {
		n := len(g.Entries())
		total += n
		fmt.Fprintf(out, "%-32s %6d\n", g.Tag(), n)
	}
	fmt.Fprintf(out, "%d groups, %d entries\n", len(c.Groups()), total)
	return nil
}
