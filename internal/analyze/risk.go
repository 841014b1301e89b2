package analyze

import "github.com/setevik/pulsewatch/internal/aggregate"

// Tier is the coarse near-term risk classification.
type Tier string

const (
	RiskLow    Tier = "low"
	RiskMedium Tier = "medium"
	RiskHigh   Tier = "high"
)

// Forecast is the short-horizon prediction for the next window equivalent
// to one bucket.
type Forecast struct {
	PredictedCount int
	Tier           Tier
}

// recentSpikeWindow is how many trailing buckets a spike must fall in to
// count toward the high tier.
const recentSpikeWindow = 3

// PredictRisk extrapolates the next bucket's expected count from the last
// two bucket counts and assigns a risk tier: high when the prediction
// exceeds highRiskCount or a spike landed in the final 3 buckets, medium
// when the trend is degrading, low otherwise. This is a linear heuristic,
// not a model; it is kept replaceable behind the same signature.
func PredictRisk(series []aggregate.Bucket, trend Direction, spikes []int, highRiskCount int) Forecast {
	predicted := 0
	switch {
	case len(series) >= 2:
		last := series[len(series)-1].Count
		prev := series[len(series)-2].Count
		predicted = last + (last - prev)
		if predicted < 0 {
			predicted = 0
		}
	case len(series) == 1:
		predicted = series[0].Count
	}

	f := Forecast{PredictedCount: predicted, Tier: RiskLow}

	recentSpike := false
	for _, idx := range spikes {
		if idx >= len(series)-recentSpikeWindow {
			recentSpike = true
			break
		}
	}

	switch {
	case recentSpike || (highRiskCount > 0 && predicted > highRiskCount):
		f.Tier = RiskHigh
	case trend == TrendDegrading:
		f.Tier = RiskMedium
	}
	return f
}
