package aggregate

import (
	"testing"
	"time"

	"github.com/setevik/pulsewatch/internal/event"
)

func makeEvent(sourceID string, ts time.Time, sev event.Severity, category string) *event.Event {
	return event.New(sourceID, "node", ts, sev, category, "test")
}

func TestWindowsBucketCountAndWidth(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(12 * time.Hour)

	buckets := Windows(nil, start, end, 12)
	if len(buckets) != 12 {
		t.Fatalf("got %d buckets, want 12", len(buckets))
	}

	for i, b := range buckets {
		if i > 0 && !b.Start.Equal(buckets[i-1].End) {
			t.Errorf("bucket %d not contiguous: start %v, prev end %v", i, b.Start, buckets[i-1].End)
		}
		if b.Count != 0 {
			t.Errorf("bucket %d count = %d, want 0", i, b.Count)
		}
	}
	if !buckets[0].Start.Equal(start) {
		t.Errorf("first bucket starts at %v, want %v", buckets[0].Start, start)
	}
	if !buckets[11].End.Equal(end) {
		t.Errorf("last bucket ends at %v, want %v", buckets[11].End, end)
	}
}

func TestWindowsNoEventLostAtBoundaries(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(10 * time.Hour)

	var events []*event.Event
	// One event exactly on every bucket boundary, plus some in between.
	for i := 0; i < 10; i++ {
		events = append(events, makeEvent("n1", start.Add(time.Duration(i)*time.Hour), event.SevLow, "network"))
		events = append(events, makeEvent("n1", start.Add(time.Duration(i)*time.Hour+30*time.Minute), event.SevLow, "network"))
	}
	// And one exactly at end, absorbed by the final bucket.
	events = append(events, makeEvent("n1", end, event.SevLow, "network"))

	buckets := Windows(events, start, end, 10)
	total := 0
	for _, b := range buckets {
		total += b.Count
	}
	if total != len(events) {
		t.Errorf("bucket counts sum to %d, want %d", total, len(events))
	}
	if buckets[9].Count != 3 {
		t.Errorf("final bucket count = %d, want 3 (boundary + midpoint + end)", buckets[9].Count)
	}
}

func TestWindowsDegenerateInputs(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	ev := makeEvent("n1", start, event.SevLow, "network")

	if got := Windows([]*event.Event{ev}, start, start, 12); got != nil {
		t.Errorf("empty range: got %d buckets, want nil", len(got))
	}
	if got := Windows([]*event.Event{ev}, start, start.Add(time.Hour), 0); got != nil {
		t.Errorf("n=0: got %d buckets, want nil", len(got))
	}
	if got := Windows([]*event.Event{ev}, start, start.Add(time.Hour), -3); got != nil {
		t.Errorf("n<0: got %d buckets, want nil", len(got))
	}
}

func TestWindowsIgnoresOutOfRangeEvents(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(4 * time.Hour)

	events := []*event.Event{
		makeEvent("n1", start.Add(-time.Minute), event.SevLow, "network"),
		makeEvent("n1", start.Add(time.Hour), event.SevLow, "network"),
		makeEvent("n1", end.Add(time.Minute), event.SevLow, "network"),
	}

	buckets := Windows(events, start, end, 4)
	total := 0
	for _, b := range buckets {
		total += b.Count
	}
	if total != 1 {
		t.Errorf("bucket counts sum to %d, want 1", total)
	}
}

func TestCounts(t *testing.T) {
	series := []Bucket{{Count: 3}, {Count: 0}, {Count: 7}}
	got := Counts(series)
	want := []int{3, 0, 7}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Counts[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestHistograms(t *testing.T) {
	ts := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	events := []*event.Event{
		makeEvent("n1", ts, event.SevCritical, "network"),
		makeEvent("n1", ts, event.SevCritical, "network"),
		makeEvent("n2", ts, event.SevLow, "disk"),
		makeEvent("n2", ts, event.SevLow, ""),
	}

	sev := SeverityCounts(events)
	if sev[event.SevCritical] != 2 || sev[event.SevLow] != 2 {
		t.Errorf("SeverityCounts = %v", sev)
	}

	cat := CategoryCounts(events)
	if cat["network"] != 2 || cat["disk"] != 1 || cat["unknown"] != 1 {
		t.Errorf("CategoryCounts = %v", cat)
	}
}
