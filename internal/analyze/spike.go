// Package analyze flags anomalies in trend series and derives a short-horizon
// risk forecast. The detectors are deliberate heuristics over bucket counts,
// not statistical tests; thresholds arrive as configuration.
package analyze

import "github.com/setevik/pulsewatch/internal/aggregate"

// minBaseline is the minimum number of prior buckets required before a
// bucket can be evaluated for spiking.
const minBaseline = 3

// Spikes returns the indices of buckets whose count exceeds both the
// trailing baseline times multiplier and the absolute floor. The baseline
// for bucket i is the mean count of all buckets strictly before i; buckets
// with fewer than 3 predecessors are never flagged. The floor keeps
// near-zero baselines from flagging noise.
func Spikes(series []aggregate.Bucket, multiplier float64, floor int) []int {
	var out []int
	sum := 0
	for i, b := range series {
		if i >= minBaseline {
			baseline := float64(sum) / float64(i)
			if float64(b.Count) > baseline*multiplier && b.Count > floor {
				out = append(out, i)
			}
		}
		sum += b.Count
	}
	return out
}
