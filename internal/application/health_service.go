package application

import (
	"context"
	"errors"
	"time"

	"github.com/alorle/iptv-livecheck/internal/catalog"
	"github.com/alorle/iptv-livecheck/internal/port/driven"
)

// HealthService reports whether the service can do useful work.
type HealthService struct {
	catalogs driven.CatalogRepository
	decoder  driven.DecoderProbe
	updates  *UpdateService
	maxAge   time.Duration
}

// NewHealthService creates a new health check service. decoder may be nil.
// A last successful run older than maxAge marks the service degraded;
// zero disables that check.
func NewHealthService(catalogs driven.CatalogRepository, decoder driven.DecoderProbe, updates *UpdateService, maxAge time.Duration) *HealthService {
	return &HealthService{
		catalogs: catalogs,
		decoder:  decoder,
		updates:  updates,
		maxAge:   maxAge,
	}
}

// ComponentHealth represents the health status of a single component.
type ComponentHealth struct {
	Status string // "ok", "unavailable" or "error"
	Error  string // empty if status is "ok"
}

// HealthStatus represents the overall health status of the application.
type HealthStatus struct {
	Status  string // "ok" if all components are healthy, "degraded" otherwise
	Catalog ComponentHealth
	Decoder ComponentHealth
	LastRun ComponentHealth
	Running bool
}

// Check performs health checks on all dependencies.
func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:  "ok",
		Catalog: ComponentHealth{Status: "ok"},
		Decoder: ComponentHealth{Status: "ok"},
		LastRun: ComponentHealth{Status: "ok"},
	}

	if _, err := s.catalogs.Load(ctx); err != nil {
		status.Catalog = ComponentHealth{Status: "error", Error: err.Error()}
		if errors.Is(err, catalog.ErrCatalogNotFound) {
			status.Catalog.Status = "unavailable"
		}
		status.Status = "degraded"
	}

	// A missing decoder only narrows what can be verified.
	if s.decoder == nil || !s.decoder.Available() {
		status.Decoder = ComponentHealth{Status: "unavailable"}
	}

	if s.updates != nil {
		status.Running = s.updates.Running()
		if last, ok := s.updates.LastRun(); ok {
			switch {
			case last.Error != "":
				status.LastRun = ComponentHealth{Status: "error", Error: last.Error}
				status.Status = "degraded"
			case s.maxAge > 0 && time.Since(last.FinishedAt) > s.maxAge:
				status.LastRun = ComponentHealth{Status: "error", Error: "last run is older than " + s.maxAge.String()}
				status.Status = "degraded"
			}
		} else {
			status.LastRun = ComponentHealth{Status: "unavailable"}
		}
	}

	return status
}
