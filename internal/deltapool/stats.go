package deltapool

import "gonum.org/v1/gonum/stat"

// rttSampleCapacity bounds how many observed round-trip samples a pool
// keeps; old samples are dropped FIFO once the window fills, so the
// percentile tracks recent network conditions rather than the client's
// entire session.
const rttSampleCapacity = 64

// PoolStats tracks observed client round-trip latency, sampled on every
// acknowledgement as the acked delta's age since its creation timestamp.
// No rating decision reads from it today (AckThreshold is spec'd fixed at
// zero — see DESIGN.md), but it is exported so a network layer can later
// derive a real threshold from RunningPercentile without any change to the
// core engine.
type PoolStats struct {
	observedRTT []float64
}

// RecordRTT appends one observed round-trip sample in milliseconds,
// evicting the oldest sample once the window is full.
func (s *PoolStats) RecordRTT(sampleMs float64) {
	if sampleMs < 0 {
		return
	}
	if len(s.observedRTT) >= rttSampleCapacity {
		s.observedRTT = s.observedRTT[1:]
	}
	s.observedRTT = append(s.observedRTT, sampleMs)
}

// RunningPercentile returns the p-th percentile (0..1) of the observed RTT
// window, or 0 if no samples have been recorded yet.
func (s *PoolStats) RunningPercentile(p float64) float64 {
	if len(s.observedRTT) == 0 {
		return 0
	}
	sorted := append([]float64(nil), s.observedRTT...)
	quickSortFloats(sorted)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// quickSortFloats sorts in place; stat.Quantile requires its input sorted
// ascending and the window is small enough (rttSampleCapacity) that a
// simple insertion sort is cheaper than importing sort for one call site.
func quickSortFloats(xs []float64) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}
