package aggregate

import (
	"reflect"
	"testing"
	"time"

	"github.com/setevik/pulsewatch/internal/event"
)

func offenderEvents(counts map[string]int) []*event.Event {
	ts := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	var out []*event.Event
	for id, n := range counts {
		for i := 0; i < n; i++ {
			out = append(out, event.New(id, "node", ts, event.SevLow, "network", "x"))
		}
	}
	return out
}

func TestTopOffendersOrdering(t *testing.T) {
	events := offenderEvents(map[string]int{
		"node-c": 5,
		"node-a": 2,
		"node-b": 5, // ties with node-c, must sort before it by id
		"node-d": 1,
	})

	got := TopOffenders(events, 10)
	wantIDs := []string{"node-b", "node-c", "node-a", "node-d"}
	if len(got) != len(wantIDs) {
		t.Fatalf("got %d offenders, want %d", len(got), len(wantIDs))
	}
	for i, want := range wantIDs {
		if got[i].SourceID != want {
			t.Errorf("offender[%d] = %q (count %d), want %q", i, got[i].SourceID, got[i].Count, want)
		}
	}
	if got[0].Count != 5 || got[3].Count != 1 {
		t.Errorf("counts = %d..%d, want 5..1", got[0].Count, got[3].Count)
	}
}

func TestTopOffendersTruncation(t *testing.T) {
	events := offenderEvents(map[string]int{"a": 3, "b": 2, "c": 1})

	got := TopOffenders(events, 2)
	if len(got) != 2 {
		t.Fatalf("got %d offenders, want 2", len(got))
	}
	if got[0].SourceID != "a" || got[1].SourceID != "b" {
		t.Errorf("top 2 = %q, %q", got[0].SourceID, got[1].SourceID)
	}
}

func TestTopOffendersDeterministic(t *testing.T) {
	events := offenderEvents(map[string]int{
		"n1": 3, "n2": 3, "n3": 3, "n4": 1, "n5": 1,
	})

	first := TopOffenders(events, 5)
	for i := 0; i < 20; i++ {
		again := TopOffenders(events, 5)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %v vs %v", i, again, first)
		}
	}
}

func TestTopOffendersEmptyInputs(t *testing.T) {
	if got := TopOffenders(nil, 10); got != nil {
		t.Errorf("TopOffenders(nil) = %v, want nil", got)
	}
	events := offenderEvents(map[string]int{"a": 1})
	if got := TopOffenders(events, 0); got != nil {
		t.Errorf("TopOffenders(n=0) = %v, want nil", got)
	}
}

func TestTopOffendersCarriesSourceType(t *testing.T) {
	ts := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	events := []*event.Event{
		event.New("gw-1", "gateway", ts, event.SevLow, "network", "x"),
		event.New("gw-1", "gateway", ts, event.SevLow, "network", "y"),
	}

	got := TopOffenders(events, 1)
	if len(got) != 1 || got[0].SourceType != "gateway" {
		t.Errorf("TopOffenders = %v, want gw-1/gateway", got)
	}
}
