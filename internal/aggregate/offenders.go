package aggregate

import (
	"sort"

	"github.com/setevik/pulsewatch/internal/event"
)

// Offender is one event source ranked by occurrence count.
type Offender struct {
	SourceID   string
	SourceType string // representative type carried through from the events
	Count      int
}

// TopOffenders groups events by source, counts occurrences, and returns the
// top n sources ordered by count descending with ties broken by SourceID
// ascending. The ordering is deterministic: identical input always yields
// identical output.
func TopOffenders(events []*event.Event, n int) []Offender {
	if n <= 0 || len(events) == 0 {
		return nil
	}

	counts := make(map[string]int)
	types := make(map[string]string)
	for _, ev := range events {
		counts[ev.SourceID]++
		if _, ok := types[ev.SourceID]; !ok {
			types[ev.SourceID] = ev.SourceType
		}
	}

	out := make([]Offender, 0, len(counts))
	for id, count := range counts {
		out = append(out, Offender{SourceID: id, SourceType: types[id], Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].SourceID < out[j].SourceID
	})

	if len(out) > n {
		out = out[:n]
	}
	return out
}
