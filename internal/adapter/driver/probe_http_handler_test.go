package driver

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/alorle/iptv-livecheck/internal/application"
	"github.com/alorle/iptv-livecheck/internal/catalog"
	"github.com/alorle/iptv-livecheck/internal/probe"
)

func newProbeHandler(repo *mockProbeRepository) *ProbeHTTPHandler {
	svc := application.NewProbeService(repo, newTestLogger(), 24*time.Hour, 5000)
	return NewProbeHTTPHandler(svc)
}

func sampleHistory() *mockProbeRepository {
	now := time.Now()
	good := catalog.Entry{Name: "good", URI: "http://good.example/live.m3u8"}
	bad := catalog.Entry{Name: "bad", URI: "http://bad.example/live"}
	return &mockProbeRepository{history: map[string][]probe.Result{
		good.URI: {
			probe.Reachable(good, now, 120*time.Millisecond, []probe.Attempt{
				{Stage: probe.StageHead, Outcome: probe.OutcomeSuccess, StatusCode: 200, Elapsed: 120 * time.Millisecond},
			}),
		},
		bad.URI: {
			probe.Failed(bad, now, probe.ReasonHTTPFailure, []probe.Attempt{
				{Stage: probe.StageGet, Outcome: probe.OutcomeHTTPStatus, StatusCode: 404, Elapsed: 20 * time.Millisecond},
			}),
			probe.Reachable(bad, now.Add(-time.Hour), 900*time.Millisecond, nil),
		},
	}}
}

func TestProbeHTTPHandler_History(t *testing.T) {
	handler := newProbeHandler(sampleHistory())

	req := httptest.NewRequest(http.MethodGet, "/probes?uri="+url.QueryEscape("http://bad.example/live"), nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp []probeResultResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp))
	}
	if resp[0].FailureReason != string(probe.ReasonHTTPFailure) || resp[0].Attempts[0].StatusCode != 404 {
		t.Errorf("unexpected first result %+v", resp[0])
	}
	if !resp[1].Reachable || resp[1].LatencyMs != 900 {
		t.Errorf("unexpected second result %+v", resp[1])
	}
}

func TestProbeHTTPHandler_Metrics(t *testing.T) {
	handler := newProbeHandler(sampleHistory())

	t.Run("known endpoint", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/probes/metrics?uri="+url.QueryEscape("http://bad.example/live"), nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var resp metricsResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.TotalProbes != 2 || resp.UptimeRatio != 0.5 {
			t.Errorf("unexpected metrics %+v", resp)
		}
	})

	t.Run("unknown endpoint", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/probes/metrics?uri=http://nope.example", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", w.Code)
		}
	})
}

func TestProbeHTTPHandler_Quality(t *testing.T) {
	handler := newProbeHandler(sampleHistory())

	q := url.Values{}
	q.Add("uri", "http://bad.example/live")
	q.Add("uri", "http://good.example/live.m3u8")
	q.Add("uri", "http://unknown.example")
	req := httptest.NewRequest(http.MethodGet, "/quality?"+q.Encode(), nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp []qualityResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("expected 2 scored endpoints, got %d", len(resp))
	}
	if resp[0].URI != "http://good.example/live.m3u8" {
		t.Errorf("best endpoint should come first, got %s", resp[0].URI)
	}
}

func TestProbeHTTPHandler_Errors(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		target   string
		repo     *mockProbeRepository
		wantCode int
	}{
		{"missing uri", http.MethodGet, "/probes", sampleHistory(), http.StatusBadRequest},
		{"missing quality uri", http.MethodGet, "/quality", sampleHistory(), http.StatusBadRequest},
		{"unknown path", http.MethodGet, "/probes/else", sampleHistory(), http.StatusNotFound},
		{"wrong method", http.MethodPost, "/probes?uri=x", sampleHistory(), http.StatusMethodNotAllowed},
		{"repository failure", http.MethodGet, "/probes?uri=x", &mockProbeRepository{err: errors.New("db closed")}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			newProbeHandler(tt.repo).ServeHTTP(w, httptest.NewRequest(tt.method, tt.target, nil))
			if w.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, w.Code)
			}
		})
	}
}
