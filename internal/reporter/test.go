package reporter

import (
	"time"

	"github.com/setevik/pulsewatch/internal/aggregate"
	"github.com/setevik/pulsewatch/internal/analyze"
	"github.com/setevik/pulsewatch/internal/engine"
)

// TestAlert creates a synthetic high-risk snapshot for testing ntfy
// connectivity.
type TestAlert struct {
	InstanceID string
}

// ToSnapshot converts a TestAlert to a Snapshot suitable for ReportRisk().
func (t *TestAlert) ToSnapshot() *engine.Snapshot {
	now := time.Now()
	return &engine.Snapshot{
		Range: engine.Range{Since: now.Add(-time.Hour), Until: now},
		Total: 42,
		Trend: []aggregate.Bucket{
			{Start: now.Add(-time.Hour), End: now.Add(-30 * time.Minute), Count: 10},
			{Start: now.Add(-30 * time.Minute), End: now, Count: 32},
		},
		Offenders: []aggregate.Offender{
			{SourceID: "test-source", SourceType: "test", Count: 42},
		},
		TrendDirection: analyze.TrendDegrading,
		Risk:           analyze.Forecast{PredictedCount: 54, Tier: analyze.RiskHigh},
	}
}
