package reporter

import (
	"strings"
	"testing"
	"time"

	"github.com/setevik/pulsewatch/internal/aggregate"
	"github.com/setevik/pulsewatch/internal/analyze"
	"github.com/setevik/pulsewatch/internal/engine"
	"github.com/setevik/pulsewatch/internal/event"
)

func sampleSnapshot() *engine.Snapshot {
	since := time.Date(2026, 8, 12, 0, 0, 0, 0, time.UTC)
	until := since.Add(6 * time.Hour)

	return &engine.Snapshot{
		Range: engine.Range{Since: since, Until: until},
		Total: 80,
		Trend: []aggregate.Bucket{
			{Start: since, End: since.Add(time.Hour), Count: 10},
			{Start: since.Add(time.Hour), End: since.Add(2 * time.Hour), Count: 10},
			{Start: since.Add(2 * time.Hour), End: since.Add(3 * time.Hour), Count: 10},
			{Start: since.Add(3 * time.Hour), End: since.Add(4 * time.Hour), Count: 10},
			{Start: since.Add(4 * time.Hour), End: since.Add(5 * time.Hour), Count: 10},
			{Start: since.Add(5 * time.Hour), End: until, Count: 30},
		},
		BySeverity: map[event.Severity]int{
			event.SevLow:      50,
			event.SevCritical: 30,
		},
		ByCategory: map[string]int{
			"network": 60,
			"disk":    20,
		},
		MTTR:         2500 * time.Millisecond,
		RecoveryRate: 70,
		Offenders: []aggregate.Offender{
			{SourceID: "node-a", SourceType: "worker", Count: 55},
			{SourceID: "node-b", SourceType: "worker", Count: 25},
		},
		Spikes:         []int{5},
		TrendDirection: analyze.TrendDegrading,
		Risk:           analyze.Forecast{PredictedCount: 50, Tier: analyze.RiskHigh},
	}
}

func TestFormatSnapshot(t *testing.T) {
	out := FormatSnapshot("edge-gw-3", sampleSnapshot())

	for _, want := range []string{
		"=== edge-gw-3 ===",
		"Events:        80",
		"MTTR:          2s",
		"Retry recovery: 70%",
		"Trend:         degrading",
		"high",
		"node-a (worker)",
		"×55",
		"critical ×30",
		"network ×60",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report should contain %q, got:\n%s", want, out)
		}
	}
}

func TestFormatSnapshotEmpty(t *testing.T) {
	snap := &engine.Snapshot{
		Range:          engine.Range{Since: time.Now().Add(-time.Hour), Until: time.Now()},
		BySeverity:     map[event.Severity]int{},
		ByCategory:     map[string]int{},
		TrendDirection: analyze.TrendUnknown,
		Risk:           analyze.Forecast{Tier: analyze.RiskLow},
	}

	out := FormatSnapshot("quiet-host", snap)
	if !strings.Contains(out, "Events:        0") {
		t.Errorf("empty report should show zero events, got:\n%s", out)
	}
	if strings.Contains(out, "Top offenders") {
		t.Errorf("empty report should omit offenders section, got:\n%s", out)
	}
}

func TestFormatRiskTitle(t *testing.T) {
	title := FormatRiskTitle("edge-gw-3", analyze.RiskHigh)
	if !strings.Contains(title, "[edge-gw-3]") {
		t.Errorf("title should contain instance ID, got %q", title)
	}
	if !strings.Contains(title, "high") {
		t.Errorf("title should contain tier, got %q", title)
	}
}

func TestFormatRiskBody(t *testing.T) {
	body := FormatRiskBody(sampleSnapshot())

	if !strings.Contains(body, "~50 events") {
		t.Errorf("body should contain prediction, got %q", body)
	}
	if !strings.Contains(body, "degrading") {
		t.Errorf("body should contain trend, got %q", body)
	}
	if !strings.Contains(body, "node-a") {
		t.Errorf("body should contain top offender, got %q", body)
	}
}

func TestFormatStringCountsOrdering(t *testing.T) {
	got := formatStringCounts(map[string]int{"b": 2, "a": 2, "c": 9})
	want := "c ×9, a ×2, b ×2"
	if got != want {
		t.Errorf("formatStringCounts = %q, want %q", got, want)
	}
}
