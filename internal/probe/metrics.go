package probe

import "math"

// Metrics holds aggregated availability figures derived from probe history.
type Metrics struct {
	uri              string
	totalProbes      int
	successfulProbes int
	uptimeRatio      float64
	failureRate      float64
	avgLatency       float64 // milliseconds
	latencyStdDev    float64 // milliseconds
}

// NewMetrics computes aggregated metrics from a slice of probe results.
// Inconclusive results (cancelled runs, recovered panics) are ignored.
// Returns ErrNoProbeData if nothing conclusive remains.
func NewMetrics(uri string, results []Result) (Metrics, error) {
	var latencies []float64
	total := 0
	for _, r := range results {
		if !r.Conclusive() {
			continue
		}
		total++
		if r.Reachable() {
			latencies = append(latencies, float64(r.Latency().Milliseconds()))
		}
	}
	if total == 0 {
		return Metrics{}, ErrNoProbeData
	}

	successful := len(latencies)
	uptimeRatio := float64(successful) / float64(total)

	var avg, stdDev float64
	if successful > 0 {
		var sum float64
		for _, l := range latencies {
			sum += l
		}
		avg = sum / float64(successful)

		var sumSquaredDiff float64
		for _, l := range latencies {
			diff := l - avg
			sumSquaredDiff += diff * diff
		}
		stdDev = math.Sqrt(sumSquaredDiff / float64(successful))
	}

	return Metrics{
		uri:              uri,
		totalProbes:      total,
		successfulProbes: successful,
		uptimeRatio:      uptimeRatio,
		failureRate:      1.0 - uptimeRatio,
		avgLatency:       avg,
		latencyStdDev:    stdDev,
	}, nil
}

func (m Metrics) URI() string            { return m.uri }
func (m Metrics) TotalProbes() int       { return m.totalProbes }
func (m Metrics) SuccessfulProbes() int  { return m.successfulProbes }
func (m Metrics) UptimeRatio() float64   { return m.uptimeRatio }
func (m Metrics) FailureRate() float64   { return m.failureRate }
func (m Metrics) AvgLatency() float64    { return m.avgLatency }
func (m Metrics) LatencyStdDev() float64 { return m.latencyStdDev }
