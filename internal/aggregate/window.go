// Package aggregate computes windowed statistics over incident event sets.
// All functions are pure: they operate on whatever events they are handed
// and never touch the store, so each stage is independently testable.
package aggregate

import (
	"time"

	"github.com/setevik/pulsewatch/internal/event"
)

// Bucket is one fixed-width sub-interval of a trend series.
type Bucket struct {
	Start time.Time
	End   time.Time
	Count int
}

// Windows partitions [start, end) into n equal-width contiguous buckets and
// counts the events falling into each. The final bucket's upper edge is
// inclusive so an event stamped exactly at end is not dropped. Returns nil
// when n <= 0 or the range is empty; callers render that as "no data".
func Windows(events []*event.Event, start, end time.Time, n int) []Bucket {
	if n <= 0 || !end.After(start) {
		return nil
	}

	width := end.Sub(start) / time.Duration(n)
	if width <= 0 {
		width = time.Nanosecond
	}
	buckets := make([]Bucket, n)
	for i := range buckets {
		buckets[i].Start = start.Add(time.Duration(i) * width)
		buckets[i].End = start.Add(time.Duration(i+1) * width)
	}
	// Integer division can leave the last edge short of end.
	buckets[n-1].End = end

	for _, ev := range events {
		if ev.Timestamp.Before(start) || ev.Timestamp.After(end) {
			continue
		}
		idx := int(ev.Timestamp.Sub(start) / width)
		if idx >= n {
			idx = n - 1
		}
		buckets[idx].Count++
	}
	return buckets
}

// Counts returns just the per-bucket counts of a series.
func Counts(series []Bucket) []int {
	out := make([]int, len(series))
	for i, b := range series {
		out[i] = b.Count
	}
	return out
}

// SeverityCounts builds a severity histogram over the event set.
func SeverityCounts(events []*event.Event) map[event.Severity]int {
	out := make(map[event.Severity]int)
	for _, ev := range events {
		out[ev.Severity]++
	}
	return out
}

// CategoryCounts builds a category histogram over the event set.
func CategoryCounts(events []*event.Event) map[string]int {
	out := make(map[string]int)
	for _, ev := range events {
		cat := ev.Category
		if cat == "" {
			cat = "unknown"
		}
		out[cat]++
	}
	return out
}
