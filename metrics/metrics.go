package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProbeAttempts tracks every cascade attempt by stage and outcome
	ProbeAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "livecheck_probe_attempts_total",
		Help: "Total number of liveness probe attempts",
	}, []string{"stage", "outcome"})

	// ProbeLatency observes the latency of entries judged reachable
	ProbeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "livecheck_probe_latency_seconds",
		Help:    "Latency of successful liveness probes",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20},
	})

	// EntryVerdicts tracks per-group verdicts; reason is empty for reachable entries
	EntryVerdicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "livecheck_entry_verdicts_total",
		Help: "Total number of entry verdicts by group and failure reason",
	}, []string{"group", "verdict", "reason"})

	// CatalogWrites tracks catalog persistence attempts
	CatalogWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "livecheck_catalog_writes_total",
		Help: "Total number of catalog writes by result (written, unchanged, failed)",
	}, []string{"result"})

	// RunDuration observes wall-clock duration of update runs
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "livecheck_run_duration_seconds",
		Help:    "Duration of verification runs",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	// LastSuccessfulRun is the unix time of the last run that finished without error
	LastSuccessfulRun = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "livecheck_last_successful_run_timestamp_seconds",
		Help: "Unix timestamp of the last successful verification run",
	})

	// ProbesInFlight tracks the number of entries being probed right now
	ProbesInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "livecheck_probes_in_flight",
		Help: "Number of liveness probes currently running",
	})
)

// RecordAttempt increments the attempt counter for a stage and outcome
func RecordAttempt(stage, outcome string) {
	ProbeAttempts.WithLabelValues(stage, outcome).Inc()
}

// RecordVerdict records one entry verdict. reason is empty for reachable entries.
func RecordVerdict(group string, reachable bool, reason string, latency time.Duration) {
	verdict := "unreachable"
	if reachable {
		verdict = "reachable"
		ProbeLatency.Observe(latency.Seconds())
	}
	EntryVerdicts.WithLabelValues(group, verdict, reason).Inc()
}

// RecordCatalogWrite increments the catalog write counter
func RecordCatalogWrite(result string) {
	CatalogWrites.WithLabelValues(result).Inc()
}

// RecordRun observes a finished run and, when it succeeded, stamps the gauge
func RecordRun(d time.Duration, succeeded bool, finishedAt time.Time) {
	RunDuration.Observe(d.Seconds())
	if succeeded {
		LastSuccessfulRun.Set(float64(finishedAt.Unix()))
	}
}

// ProbeStarted increments the in-flight gauge
func ProbeStarted() { ProbesInFlight.Inc() }

// ProbeFinished decrements the in-flight gauge
func ProbeFinished() { ProbesInFlight.Dec() }
