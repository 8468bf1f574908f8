package driver

import (
	"net/http"

	"github.com/alorle/iptv-livecheck/internal/application"
)

// HealthHTTPHandler handles HTTP requests for health checks.
type HealthHTTPHandler struct {
	service *application.HealthService
}

// NewHealthHTTPHandler creates a new HTTP handler for health checks.
func NewHealthHTTPHandler(service *application.HealthService) *HealthHTTPHandler {
	return &HealthHTTPHandler{service: service}
}

type componentResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// healthResponse represents the JSON response for health check endpoint.
type healthResponse struct {
	Status  string            `json:"status"`
	Catalog componentResponse `json:"catalog"`
	Decoder componentResponse `json:"decoder"`
	LastRun componentResponse `json:"last_run"`
	Running bool              `json:"running"`
}

// ServeHTTP handles GET /health
func (h *HealthHTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	status := h.service.Check(r.Context())

	resp := healthResponse{
		Status:  status.Status,
		Catalog: componentResponse(status.Catalog),
		Decoder: componentResponse(status.Decoder),
		LastRun: componentResponse(status.LastRun),
		Running: status.Running,
	}

	httpStatus := http.StatusOK
	if status.Status != "ok" {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, resp)
}
