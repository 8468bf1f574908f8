package driver

import (
	"errors"
	"net/http"

	"github.com/alorle/iptv-livecheck/internal/application"
)

// RunStatusSource exposes the last finished run.
type RunStatusSource interface {
	LastRun() (application.RunReport, bool)
}

// RunTrigger starts a run in the background.
type RunTrigger interface {
	Trigger() error
	Busy() bool
}

// RunHTTPHandler serves GET /status and POST /runs.
type RunHTTPHandler struct {
	status  RunStatusSource
	trigger RunTrigger
}

// NewRunHTTPHandler creates a new HTTP handler for run status and triggers.
func NewRunHTTPHandler(status RunStatusSource, trigger RunTrigger) *RunHTTPHandler {
	return &RunHTTPHandler{status: status, trigger: trigger}
}

type statusResponse struct {
	Running bool                   `json:"running"`
	LastRun *application.RunReport `json:"last_run,omitempty"`
}

// ServeHTTP routes the request to the appropriate handler based on method and path.
func (h *RunHTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/status" && r.Method == http.MethodGet:
		h.handleStatus(w)
	case r.URL.Path == "/runs" && r.Method == http.MethodPost:
		h.handleTrigger(w)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *RunHTTPHandler) handleStatus(w http.ResponseWriter) {
	resp := statusResponse{Running: h.trigger.Busy()}
	if last, ok := h.status.LastRun(); ok {
		resp.LastRun = &last
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *RunHTTPHandler) handleTrigger(w http.ResponseWriter) {
	if err := h.trigger.Trigger(); err != nil {
		if errors.Is(err, application.ErrRunInProgress) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
