// Package store provides the in-memory, append-only incident event store.
// Ingestion (Append, MarkResolved) is serialized behind a single mutex;
// queries copy events out so aggregation never observes a mutation in flight.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/setevik/pulsewatch/internal/event"
)

// Ingestion failure taxonomy. All are caller errors, none are transient.
var (
	ErrInvalidEvent    = errors.New("invalid event")
	ErrNotFound        = errors.New("event not found")
	ErrAlreadyResolved = errors.New("event already resolved")
)

// Store holds incident events for one monitored scope.
type Store struct {
	mu        sync.RWMutex
	events    []*event.Event
	byID      map[string]*event.Event
	clockSkew time.Duration
	retention time.Duration
	now       func() time.Time
}

// New creates a Store. clockSkew is the tolerance for future timestamps on
// append; retention is the horizon beyond which Evict removes events.
func New(clockSkew, retention time.Duration) *Store {
	return &Store{
		byID:      make(map[string]*event.Event),
		clockSkew: clockSkew,
		retention: retention,
		now:       time.Now,
	}
}

// Append validates and stores a new event. It fails with ErrInvalidEvent if
// the timestamp is in the future beyond the clock-skew tolerance, if a
// resolution time precedes the occurrence time, or if the resolution fields
// are inconsistent.
func (s *Store) Append(ev *event.Event) error {
	if ev.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidEvent)
	}
	if ev.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidEvent)
	}
	if ev.Timestamp.After(s.now().Add(s.clockSkew)) {
		return fmt.Errorf("%w: timestamp %s is in the future", ErrInvalidEvent, ev.Timestamp.Format(time.RFC3339))
	}
	if ev.Resolved != !ev.ResolvedAt.IsZero() {
		return fmt.Errorf("%w: resolved flag and resolvedAt disagree", ErrInvalidEvent)
	}
	if ev.Resolved && ev.ResolvedAt.Before(ev.Timestamp) {
		return fmt.Errorf("%w: resolvedAt precedes timestamp", ErrInvalidEvent)
	}
	if ev.RecoveredByRetry && !ev.Resolved {
		return fmt.Errorf("%w: recoveredByRetry implies resolved", ErrInvalidEvent)
	}
	if ev.RetryAttempts < 0 {
		return fmt.Errorf("%w: negative retryAttempts", ErrInvalidEvent)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[ev.ID]; exists {
		return fmt.Errorf("%w: duplicate id %s", ErrInvalidEvent, ev.ID)
	}

	stored := ev.Clone()
	s.events = append(s.events, stored)
	s.byID[stored.ID] = stored
	return nil
}

// MarkResolved transitions an event to resolved. Resolution is one-way:
// a second call for the same id fails with ErrAlreadyResolved.
func (s *Store) MarkResolved(id string, resolvedAt time.Time, recoveredByRetry bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if ev.Resolved {
		return fmt.Errorf("%w: %s", ErrAlreadyResolved, id)
	}
	if resolvedAt.Before(ev.Timestamp) {
		return fmt.Errorf("%w: resolvedAt precedes timestamp", ErrInvalidEvent)
	}

	ev.Resolved = true
	ev.ResolvedAt = resolvedAt
	if recoveredByRetry && ev.RetryAttempts > 0 {
		ev.RecoveredByRetry = true
	}
	return nil
}

// Filter narrows a Query. Empty sets match everything; Resolved is a
// tristate (nil matches both).
type Filter struct {
	Severities []event.Severity
	Categories []string
	SourceIDs  []string
	Resolved   *bool
}

func (f Filter) match(ev *event.Event) bool {
	if len(f.Severities) > 0 && !containsSeverity(f.Severities, ev.Severity) {
		return false
	}
	if len(f.Categories) > 0 && !containsString(f.Categories, ev.Category) {
		return false
	}
	if len(f.SourceIDs) > 0 && !containsString(f.SourceIDs, ev.SourceID) {
		return false
	}
	if f.Resolved != nil && ev.Resolved != *f.Resolved {
		return false
	}
	return true
}

// Query returns copies of all events in [since, until) matching the filter,
// ordered by timestamp descending (most recent first).
func (s *Store) Query(since, until time.Time, f Filter) []*event.Event {
	s.mu.RLock()
	var out []*event.Event
	for _, ev := range s.events {
		if ev.Timestamp.Before(since) || !ev.Timestamp.Before(until) {
			continue
		}
		if !f.match(ev) {
			continue
		}
		out = append(out, ev.Clone())
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// Len returns the number of events currently held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Evict removes events older than the retention horizon relative to now.
// It returns the number of events removed. Queries already in flight hold
// their own copies and are unaffected.
func (s *Store) Evict(now time.Time) int {
	if s.retention <= 0 {
		return 0
	}
	cutoff := now.Add(-s.retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	removed := 0
	for _, ev := range s.events {
		if ev.Timestamp.Before(cutoff) {
			delete(s.byID, ev.ID)
			removed++
			continue
		}
		kept = append(kept, ev)
	}
	for i := len(kept); i < len(s.events); i++ {
		s.events[i] = nil
	}
	s.events = kept
	return removed
}

func containsSeverity(set []event.Severity, s event.Severity) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func containsString(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
