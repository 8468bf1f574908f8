package driver

import (
	"errors"
	"net/http"
	"time"

	"github.com/alorle/iptv-livecheck/internal/application"
	"github.com/alorle/iptv-livecheck/internal/probe"
)

// ProbeHTTPHandler serves probe history and stability scores. Endpoints are
// addressed with the uri query parameter because stream URIs do not fit in
// a path segment.
type ProbeHTTPHandler struct {
	service *application.ProbeService
}

// NewProbeHTTPHandler creates a new HTTP handler for probes.
func NewProbeHTTPHandler(service *application.ProbeService) *ProbeHTTPHandler {
	return &ProbeHTTPHandler{service: service}
}

type attemptResponse struct {
	Stage      string `json:"stage"`
	Outcome    string `json:"outcome"`
	StatusCode int    `json:"status_code,omitempty"`
	ElapsedMs  int64  `json:"elapsed_ms"`
	Note       string `json:"note,omitempty"`
}

// probeResultResponse represents a probe result in JSON format.
type probeResultResponse struct {
	Name          string            `json:"name"`
	URI           string            `json:"uri"`
	Timestamp     string            `json:"timestamp"`
	Reachable     bool              `json:"reachable"`
	LatencyMs     int64             `json:"latency_ms"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Attempts      []attemptResponse `json:"attempts"`
}

// metricsResponse represents aggregated metrics in JSON format.
type metricsResponse struct {
	URI              string  `json:"uri"`
	TotalProbes      int     `json:"total_probes"`
	SuccessfulProbes int     `json:"successful_probes"`
	UptimeRatio      float64 `json:"uptime_ratio"`
	FailureRate      float64 `json:"failure_rate"`
	AvgLatency       float64 `json:"avg_latency_ms"`
	LatencyStdDev    float64 `json:"latency_std_dev_ms"`
}

// qualityResponse represents an endpoint's stability score in JSON format.
type qualityResponse struct {
	URI     string          `json:"uri"`
	Score   float64         `json:"score"`
	Metrics metricsResponse `json:"metrics"`
}

// ServeHTTP routes the request based on path.
func (h *ProbeHTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	switch r.URL.Path {
	case "/probes":
		h.handleHistory(w, r)
	case "/probes/metrics":
		h.handleMetrics(w, r)
	case "/quality":
		h.handleQuality(w, r)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// handleHistory handles GET /probes?uri=...
func (h *ProbeHTTPHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	if uri == "" {
		writeError(w, http.StatusBadRequest, "uri query parameter is required")
		return
	}

	results, err := h.service.GetProbeHistory(r.Context(), uri)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	response := make([]probeResultResponse, len(results))
	for i, res := range results {
		response[i] = toProbeResultResponse(res)
	}

	writeJSON(w, http.StatusOK, response)
}

// handleMetrics handles GET /probes/metrics?uri=...
func (h *ProbeHTTPHandler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	if uri == "" {
		writeError(w, http.StatusBadRequest, "uri query parameter is required")
		return
	}

	m, err := h.service.GetMetrics(r.Context(), uri)
	if err != nil {
		if errors.Is(err, probe.ErrNoProbeData) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toMetricsResponse(m))
}

// handleQuality handles GET /quality?uri=...&uri=...
func (h *ProbeHTTPHandler) handleQuality(w http.ResponseWriter, r *http.Request) {
	uris := r.URL.Query()["uri"]
	if len(uris) == 0 {
		writeError(w, http.StatusBadRequest, "at least one uri query parameter is required")
		return
	}

	scores := h.service.GetQualityScores(r.Context(), uris)

	response := make([]qualityResponse, len(scores))
	for i, q := range scores {
		response[i] = qualityResponse{
			URI:     q.URI,
			Score:   q.Score,
			Metrics: toMetricsResponse(q.Metrics),
		}
	}

	writeJSON(w, http.StatusOK, response)
}

func toProbeResultResponse(r probe.Result) probeResultResponse {
	attempts := r.Attempts()
	out := make([]attemptResponse, len(attempts))
	for i, a := range attempts {
		out[i] = attemptResponse{
			Stage:      string(a.Stage),
			Outcome:    string(a.Outcome),
			StatusCode: a.StatusCode,
			ElapsedMs:  a.Elapsed.Milliseconds(),
			Note:       a.Note,
		}
	}
	return probeResultResponse{
		Name:          r.Entry().Name,
		URI:           r.URI(),
		Timestamp:     r.Timestamp().Format(time.RFC3339),
		Reachable:     r.Reachable(),
		LatencyMs:     r.Latency().Milliseconds(),
		FailureReason: string(r.FailureReason()),
		Attempts:      out,
	}
}

func toMetricsResponse(m probe.Metrics) metricsResponse {
	return metricsResponse{
		URI:              m.URI(),
		TotalProbes:      m.TotalProbes(),
		SuccessfulProbes: m.SuccessfulProbes(),
		UptimeRatio:      m.UptimeRatio(),
		FailureRate:      m.FailureRate(),
		AvgLatency:       m.AvgLatency(),
		LatencyStdDev:    m.LatencyStdDev(),
	}
}
