package analyze

import "github.com/setevik/pulsewatch/internal/aggregate"

// Direction labels how a trend series is moving. More errors is "degrading".
type Direction string

const (
	TrendImproving Direction = "improving"
	TrendStable    Direction = "stable"
	TrendDegrading Direction = "degrading"
	TrendUnknown   Direction = "unknown"
)

// ClassifyTrend splits the series into older and recent halves (the recent
// half gets the extra bucket when the length is odd) and compares their mean
// counts. A relative change within thresholdPct is stable; above it is
// degrading, below its negation improving. Series shorter than 2 buckets
// classify as unknown.
func ClassifyTrend(series []aggregate.Bucket, thresholdPct float64) Direction {
	if len(series) < 2 {
		return TrendUnknown
	}

	split := len(series) / 2
	older := mean(series[:split])
	recent := mean(series[split:])

	denom := older
	if denom < 1 {
		denom = 1
	}
	change := (recent - older) / denom * 100

	switch {
	case change >= thresholdPct:
		return TrendDegrading
	case change <= -thresholdPct:
		return TrendImproving
	default:
		return TrendStable
	}
}

func mean(series []aggregate.Bucket) float64 {
	if len(series) == 0 {
		return 0
	}
	sum := 0
	for _, b := range series {
		sum += b.Count
	}
	return float64(sum) / float64(len(series))
}
