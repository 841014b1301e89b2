// Package ingest reads incident records from an external producer as
// newline-delimited JSON, one record per line.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/setevik/pulsewatch/internal/event"
)

// Record is one parsed ingestion record: either a new incident event or a
// resolution of a previously submitted one.
type Record struct {
	Event   *event.Event // set for kind "event"
	Resolve *Resolution  // set for kind "resolve"
}

// Resolution marks a previously submitted event as resolved.
type Resolution struct {
	ID               string
	ResolvedAt       time.Time
	RecoveredByRetry bool
}

// Source produces ingestion records until the context is cancelled or the
// underlying input ends.
type Source interface {
	Records(ctx context.Context) (<-chan Record, error)
	Stop()
}

// wireRecord is the JSON line format accepted from producers.
type wireRecord struct {
	Kind             string    `json:"kind"` // "event" (default) or "resolve"
	ID               string    `json:"id"`
	Timestamp        time.Time `json:"timestamp"`
	SourceID         string    `json:"source_id"`
	SourceType       string    `json:"source_type"`
	Severity         string    `json:"severity"`
	Category         string    `json:"category"`
	Message          string    `json:"message"`
	RetryAttempts    int       `json:"retry_attempts"`
	ResolvedAt       time.Time `json:"resolved_at"`
	RecoveredByRetry bool      `json:"recovered_by_retry"`
}

func (w *wireRecord) toRecord() (Record, error) {
	if w.Kind == "resolve" {
		if w.ID == "" {
			return Record{}, fmt.Errorf("resolve record missing id")
		}
		at := w.ResolvedAt
		if at.IsZero() {
			at = time.Now()
		}
		return Record{Resolve: &Resolution{
			ID:               w.ID,
			ResolvedAt:       at,
			RecoveredByRetry: w.RecoveredByRetry,
		}}, nil
	}

	if w.SourceID == "" {
		return Record{}, fmt.Errorf("event record missing source_id")
	}
	sev := event.Severity(w.Severity)
	if !sev.Valid() {
		return Record{}, fmt.Errorf("unknown severity %q", w.Severity)
	}

	ev := &event.Event{
		ID:            w.ID,
		Timestamp:     w.Timestamp,
		SourceID:      w.SourceID,
		SourceType:    w.SourceType,
		Severity:      sev,
		Category:      w.Category,
		Message:       w.Message,
		RetryAttempts: w.RetryAttempts,
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	return Record{Event: ev}, nil
}
