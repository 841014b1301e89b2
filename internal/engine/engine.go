// Package engine ties the store and the aggregation stages into a single
// queryable unit. One Engine is constructed per monitored scope with
// injected parameters; there is no package-level state.
package engine

import (
	"time"

	"github.com/setevik/pulsewatch/internal/aggregate"
	"github.com/setevik/pulsewatch/internal/analyze"
	"github.com/setevik/pulsewatch/internal/event"
	"github.com/setevik/pulsewatch/internal/store"
)

// Params controls the engine's thresholds. Zero fields are replaced with
// the DefaultParams values at construction.
type Params struct {
	ClockSkew         time.Duration // tolerance for future timestamps on submit
	Retention         time.Duration // eviction horizon; 0 disables eviction
	BucketCount       int           // default trend series length
	TopN              int           // default offender ranking depth
	SpikeMultiplier   float64
	SpikeFloor        int
	TrendThresholdPct float64
	HighRiskCount     int // predicted count above which risk is high, 0 disables
}

// DefaultParams returns the stock engine parameters.
func DefaultParams() Params {
	return Params{
		ClockSkew:         2 * time.Minute,
		Retention:         30 * 24 * time.Hour,
		BucketCount:       24,
		TopN:              10,
		SpikeMultiplier:   2.0,
		SpikeFloor:        5,
		TrendThresholdPct: 10,
		HighRiskCount:     20,
	}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.ClockSkew <= 0 {
		p.ClockSkew = d.ClockSkew
	}
	if p.BucketCount <= 0 {
		p.BucketCount = d.BucketCount
	}
	if p.TopN <= 0 {
		p.TopN = d.TopN
	}
	if p.SpikeMultiplier <= 0 {
		p.SpikeMultiplier = d.SpikeMultiplier
	}
	if p.SpikeFloor <= 0 {
		p.SpikeFloor = d.SpikeFloor
	}
	if p.TrendThresholdPct <= 0 {
		p.TrendThresholdPct = d.TrendThresholdPct
	}
	return p
}

// Range is a half-open query interval [Since, Until).
type Range struct {
	Since time.Time
	Until time.Time
}

// Snapshot is the fully assembled aggregation result for one query. Every
// field is always populated with a well-defined (possibly zero or empty)
// value; a snapshot carries no reference back into the store and is safe
// to hand off or cache.
type Snapshot struct {
	Range Range
	Total int

	Trend      []aggregate.Bucket
	BySeverity map[event.Severity]int
	ByCategory map[string]int

	MTTR         time.Duration
	RecoveryRate float64 // percent of retried events recovered by retry

	Offenders []aggregate.Offender
	Spikes    []int // indices into Trend

	TrendDirection analyze.Direction
	Risk           analyze.Forecast
}

// Engine is the aggregation facade over a single incident stream.
type Engine struct {
	params Params
	store  *store.Store
}

// New constructs an Engine with the given parameters.
func New(p Params) *Engine {
	p = p.withDefaults()
	return &Engine{
		params: p,
		store:  store.New(p.ClockSkew, p.Retention),
	}
}

// Params returns the effective parameters the engine runs with.
func (e *Engine) Params() Params {
	return e.params
}

// Submit ingests one incident event. Fails with store.ErrInvalidEvent on
// malformed input; nothing else can fail.
func (e *Engine) Submit(ev *event.Event) error {
	return e.store.Append(ev)
}

// Resolve marks an event resolved at the given time. recoveredByRetry is
// only honored for events that had retry attempts.
func (e *Engine) Resolve(id string, resolvedAt time.Time, recoveredByRetry bool) error {
	return e.store.MarkResolved(id, resolvedAt, recoveredByRetry)
}

// Evict drops events older than the retention horizon and returns how many
// were removed.
func (e *Engine) Evict(now time.Time) int {
	return e.store.Evict(now)
}

// Len returns the number of events currently held.
func (e *Engine) Len() int {
	return e.store.Len()
}

// Snapshot computes the full aggregation for [r.Since, r.Until) under the
// filter. bucketCount and topN fall back to the engine defaults when <= 0.
// Snapshot never fails: empty ranges and empty event sets degrade to zero
// totals, empty series, and an unknown trend.
func (e *Engine) Snapshot(r Range, f store.Filter, bucketCount, topN int) *Snapshot {
	if bucketCount <= 0 {
		bucketCount = e.params.BucketCount
	}
	if topN <= 0 {
		topN = e.params.TopN
	}

	events := e.store.Query(r.Since, r.Until, f)
	return e.computeSnapshot(events, r, bucketCount, topN)
}

// SnapshotOf runs the same aggregation over an externally supplied event
// set, e.g. events loaded from an archive. The events are assumed to lie
// within r already.
func (e *Engine) SnapshotOf(events []*event.Event, r Range, bucketCount, topN int) *Snapshot {
	if bucketCount <= 0 {
		bucketCount = e.params.BucketCount
	}
	if topN <= 0 {
		topN = e.params.TopN
	}
	return e.computeSnapshot(events, r, bucketCount, topN)
}

func (e *Engine) computeSnapshot(events []*event.Event, r Range, bucketCount, topN int) *Snapshot {
	trend := aggregate.Windows(events, r.Since, r.Until, bucketCount)
	spikes := analyze.Spikes(trend, e.params.SpikeMultiplier, e.params.SpikeFloor)
	direction := analyze.ClassifyTrend(trend, e.params.TrendThresholdPct)
	if len(events) == 0 {
		direction = analyze.TrendUnknown
	}

	return &Snapshot{
		Range:          r,
		Total:          len(events),
		Trend:          trend,
		BySeverity:     aggregate.SeverityCounts(events),
		ByCategory:     aggregate.CategoryCounts(events),
		MTTR:           aggregate.MTTR(events),
		RecoveryRate:   aggregate.RetryRecoveryRate(events),
		Offenders:      aggregate.TopOffenders(events, topN),
		Spikes:         spikes,
		TrendDirection: direction,
		Risk:           analyze.PredictRisk(trend, direction, spikes, e.params.HighRiskCount),
	}
}
