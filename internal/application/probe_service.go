package application

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/alorle/iptv-livecheck/internal/port/driven"
	"github.com/alorle/iptv-livecheck/internal/probe"
)

// EndpointQuality pairs an endpoint with its stability score and metrics.
type EndpointQuality struct {
	URI     string
	Score   float64
	Metrics probe.Metrics
}

// ProbeService keeps the probe history and derives uptime and stability
// scores from it over a rolling window.
type ProbeService struct {
	probeRepo    driven.ProbeRepository
	logger       *slog.Logger
	window       time.Duration
	maxLatencyMs float64
	now          func() time.Time
}

// NewProbeService creates a new ProbeService. maxLatencyMs is the latency
// that scores zero in the latency component.
func NewProbeService(
	probeRepo driven.ProbeRepository,
	logger *slog.Logger,
	window time.Duration,
	maxLatencyMs float64,
) *ProbeService {
	return &ProbeService{
		probeRepo:    probeRepo,
		logger:       logger,
		window:       window,
		maxLatencyMs: maxLatencyMs,
		now:          time.Now,
	}
}

// Record stores the conclusive results of a run. Cancelled and internal
// failures say nothing about the endpoint and are not kept.
func (s *ProbeService) Record(ctx context.Context, results []probe.Result) error {
	keep := make([]probe.Result, 0, len(results))
	for _, r := range results {
		if r.Conclusive() {
			keep = append(keep, r)
		}
	}
	if len(keep) == 0 {
		return nil
	}
	if err := s.probeRepo.SaveAll(ctx, keep); err != nil {
		return fmt.Errorf("failed to save probe results: %w", err)
	}
	s.logger.Debug("probe history recorded", "results", len(keep))
	return nil
}

// GetMetrics computes aggregated metrics for an endpoint within the rolling window.
func (s *ProbeService) GetMetrics(ctx context.Context, uri string) (probe.Metrics, error) {
	since := s.now().Add(-s.window)
	results, err := s.probeRepo.FindByURISince(ctx, uri, since)
	if err != nil {
		return probe.Metrics{}, fmt.Errorf("failed to fetch probe results: %w", err)
	}
	return probe.NewMetrics(uri, results)
}

// Score returns the stability score and uptime ratio of uri. ok is false
// when there is no usable history.
func (s *ProbeService) Score(ctx context.Context, uri string) (score, uptime float64, ok bool) {
	m, err := s.GetMetrics(ctx, uri)
	if err != nil {
		if !errors.Is(err, probe.ErrNoProbeData) {
			s.logger.Warn("failed to compute probe metrics", "uri", uri, "error", err)
		}
		return 0, 0, false
	}
	return probe.ComputeStabilityScore(m, s.maxLatencyMs), m.UptimeRatio(), true
}

// GetQualityScores returns the scores of the given endpoints, best first.
// Endpoints without history are left out.
func (s *ProbeService) GetQualityScores(ctx context.Context, uris []string) []EndpointQuality {
	qualities := make([]EndpointQuality, 0, len(uris))
	for _, uri := range uris {
		m, err := s.GetMetrics(ctx, uri)
		if err != nil {
			continue
		}
		qualities = append(qualities, EndpointQuality{
			URI:     uri,
			Score:   probe.ComputeStabilityScore(m, s.maxLatencyMs),
			Metrics: m,
		})
	}

	slices.SortStableFunc(qualities, func(a, b EndpointQuality) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return qualities
}

// GetProbeHistory returns raw probe results for an endpoint within the rolling window.
func (s *ProbeService) GetProbeHistory(ctx context.Context, uri string) ([]probe.Result, error) {
	since := s.now().Add(-s.window)
	return s.probeRepo.FindByURISince(ctx, uri, since)
}

// Cleanup removes probe data older than twice the rolling window.
func (s *ProbeService) Cleanup(ctx context.Context) error {
	cutoff := s.now().Add(-s.window * 2)
	return s.probeRepo.DeleteBefore(ctx, cutoff)
}
