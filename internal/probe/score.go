package probe

// ComputeStabilityScore calculates a composite score from history metrics.
// Returns a value in [0.0, 1.0] where 1.0 is the most dependable endpoint.
//
// Formula:
//
//	score = (uptime_ratio * 0.70) +
//	        (latency_score * 0.20) +
//	        (jitter_score * 0.10)
//
// maxLatencyMs is the latency at which the latency component reaches zero.
func ComputeStabilityScore(m Metrics, maxLatencyMs float64) float64 {
	uptimeComponent := m.UptimeRatio() * 0.70

	var latencyScore float64
	if m.SuccessfulProbes() > 0 {
		latencyScore = 1.0
		if maxLatencyMs > 0 {
			latencyScore = clamp(1.0-(m.AvgLatency()/maxLatencyMs), 0, 1)
		}
	}
	latencyComponent := latencyScore * 0.20

	var jitterScore float64
	switch {
	case m.SuccessfulProbes() == 0:
	case m.AvgLatency() == 0:
		jitterScore = 1.0
	default:
		jitterScore = clamp(1.0-(m.LatencyStdDev()/m.AvgLatency()), 0, 1)
	}
	jitterComponent := jitterScore * 0.10

	return uptimeComponent + latencyComponent + jitterComponent
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
