package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsEndpoint(t *testing.T) {
	// Initialize metrics - including vector metrics to ensure they appear
	RecordAttempt("HEAD", "success")
	RecordVerdict("init", true, "", 100*time.Millisecond)
	RecordCatalogWrite("unchanged")
	RecordRun(time.Second, true, time.Now())
	ProbeStarted()
	ProbeFinished()

	server := httptest.NewServer(promhttp.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("Failed to get metrics: %v", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			t.Errorf("failed to close response body: %v", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}
	output := string(body)

	expectedMetrics := []string{
		"livecheck_probe_attempts_total",
		"livecheck_probe_latency_seconds",
		"livecheck_entry_verdicts_total",
		"livecheck_catalog_writes_total",
		"livecheck_run_duration_seconds",
		"livecheck_last_successful_run_timestamp_seconds",
		"livecheck_probes_in_flight",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(output, metric) {
			t.Errorf("Expected metric %s not found in output", metric)
		}
	}
}

func TestMetricsValues(t *testing.T) {
	before := testutil.ToFloat64(EntryVerdicts.WithLabelValues("港澳台", "unreachable", "SegmentFailure"))
	RecordVerdict("港澳台", false, "SegmentFailure", 0)
	RecordVerdict("港澳台", false, "SegmentFailure", 0)
	after := testutil.ToFloat64(EntryVerdicts.WithLabelValues("港澳台", "unreachable", "SegmentFailure"))
	if after-before != 2 {
		t.Errorf("expected verdict counter to grow by 2, got %f", after-before)
	}

	finished := time.Unix(1700000000, 0)
	RecordRun(3*time.Second, true, finished)
	if got := testutil.ToFloat64(LastSuccessfulRun); got != 1700000000 {
		t.Errorf("LastSuccessfulRun = %f, want 1700000000", got)
	}

	RecordRun(time.Second, false, finished.Add(time.Hour))
	if got := testutil.ToFloat64(LastSuccessfulRun); got != 1700000000 {
		t.Errorf("failed run must not move LastSuccessfulRun, got %f", got)
	}
}
