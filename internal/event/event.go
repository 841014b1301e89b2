// Package event defines the core data model for pulsewatch incident events.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Severity indicates the urgency of an incident, ordered low < medium <
// high < critical.
type Severity string

const (
	SevLow      Severity = "low"
	SevMedium   Severity = "medium"
	SevHigh     Severity = "high"
	SevCritical Severity = "critical"
)

// severityRank orders severities for comparison; unknown values rank 0.
var severityRank = map[Severity]int{
	SevLow:      1,
	SevMedium:   2,
	SevHigh:     3,
	SevCritical: 4,
}

// Rank returns the ordering rank of a severity (low=1 .. critical=4),
// 0 for unknown values.
func (s Severity) Rank() int {
	return severityRank[s]
}

// Valid reports whether s is one of the defined severities.
func (s Severity) Valid() bool {
	return severityRank[s] != 0
}

// Label returns a human-readable label for severity.
func (s Severity) Label() string {
	return string(s)
}

// Event represents a single incident record. Events are append-only: after
// submission the only permitted mutation is the one-way transition of
// Resolved from false to true.
type Event struct {
	ID         string
	Timestamp  time.Time
	SourceID   string // component/node identifier that produced the event
	SourceType string // category tag for the source, e.g. node type
	Severity   Severity
	Category   string // free-form classification, e.g. "network", "timeout"
	Message    string

	Resolved   bool
	ResolvedAt time.Time // zero unless Resolved

	RetryAttempts    int
	RecoveredByRetry bool // only meaningful when RetryAttempts > 0
}

// New creates a new unresolved Event with a generated UUID.
func New(sourceID, sourceType string, ts time.Time, sev Severity, category, message string) *Event {
	return &Event{
		ID:         uuid.NewString(),
		Timestamp:  ts,
		SourceID:   sourceID,
		SourceType: sourceType,
		Severity:   sev,
		Category:   category,
		Message:    message,
	}
}

// Clone returns a copy of the event. The store hands out clones so that a
// concurrent resolution never mutates an event a reader already holds.
func (e *Event) Clone() *Event {
	c := *e
	return &c
}

// ResolutionTime returns the duration between occurrence and resolution,
// 0 for unresolved events.
func (e *Event) ResolutionTime() time.Duration {
	if !e.Resolved || e.ResolvedAt.IsZero() {
		return 0
	}
	return e.ResolvedAt.Sub(e.Timestamp)
}
