// Package archive provides the durable SQLite record of ingested incident
// events. It sits behind the ingestion interface: the daemon writes through
// to it, and the report/query subcommands read history from it. The engine
// core never touches it during snapshot computation.
package archive

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/setevik/pulsewatch/internal/event"
)

// DB wraps an SQLite connection for event archival.
type DB struct {
	db *sql.DB
}

// Open opens or creates an SQLite database at the given path.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}

	// Single writer connection to avoid SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating archive: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Insert stores a new event in the archive.
func (d *DB) Insert(ev *event.Event) error {
	resolvedAt := ""
	if ev.Resolved {
		resolvedAt = ev.ResolvedAt.UTC().Format(time.RFC3339Nano)
	}

	_, err := d.db.Exec(`
		INSERT INTO events (id, timestamp, source_id, source_type, severity, category, message,
			resolved, resolved_at, retry_attempts, recovered_by_retry)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID,
		ev.Timestamp.UTC().Format(time.RFC3339Nano),
		ev.SourceID,
		ev.SourceType,
		string(ev.Severity),
		ev.Category,
		ev.Message,
		ev.Resolved,
		resolvedAt,
		ev.RetryAttempts,
		ev.RecoveredByRetry,
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

// MarkResolved records an event's resolution in the archive. It mirrors the
// in-memory store's transition and does not enforce the one-way rule itself;
// the store is the gatekeeper.
func (d *DB) MarkResolved(id string, resolvedAt time.Time, recoveredByRetry bool) error {
	_, err := d.db.Exec(
		`UPDATE events SET resolved = TRUE, resolved_at = ?, recovered_by_retry = ? WHERE id = ?`,
		resolvedAt.UTC().Format(time.RFC3339Nano),
		recoveredByRetry,
		id,
	)
	if err != nil {
		return fmt.Errorf("marking event resolved: %w", err)
	}
	return nil
}

// QueryFilter controls which events are returned by Query.
type QueryFilter struct {
	Since    time.Time
	Until    time.Time
	Severity string
	Category string
	SourceID string
	Limit    int
}

// Query returns events matching the filter, ordered by timestamp descending.
func (d *DB) Query(f QueryFilter) ([]*event.Event, error) {
	query := `SELECT id, timestamp, source_id, source_type, severity, category, message,
		resolved, resolved_at, retry_attempts, recovered_by_retry
		FROM events WHERE 1=1`
	var args []interface{}

	if !f.Since.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, f.Since.UTC().Format(time.RFC3339Nano))
	}
	if !f.Until.IsZero() {
		query += " AND timestamp < ?"
		args = append(args, f.Until.UTC().Format(time.RFC3339Nano))
	}
	if f.Severity != "" {
		query += " AND severity = ?"
		args = append(args, f.Severity)
	}
	if f.Category != "" {
		query += " AND category = ?"
		args = append(args, f.Category)
	}
	if f.SourceID != "" {
		query += " AND source_id = ?"
		args = append(args, f.SourceID)
	}

	query += " ORDER BY timestamp DESC"

	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []*event.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Purge deletes events older than the given retention duration.
func (d *DB) Purge(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UTC().Format(time.RFC3339Nano)
	result, err := d.db.Exec(`DELETE FROM events WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging old events: %w", err)
	}
	return result.RowsAffected()
}

func scanEvent(rows *sql.Rows) (*event.Event, error) {
	var ev event.Event
	var tsStr, sevStr string
	var resolvedAt sql.NullString

	err := rows.Scan(
		&ev.ID,
		&tsStr,
		&ev.SourceID,
		&ev.SourceType,
		&sevStr,
		&ev.Category,
		&ev.Message,
		&ev.Resolved,
		&resolvedAt,
		&ev.RetryAttempts,
		&ev.RecoveredByRetry,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning event row: %w", err)
	}

	ev.Timestamp, _ = time.Parse(time.RFC3339Nano, tsStr)
	ev.Severity = event.Severity(sevStr)
	if ev.Resolved && resolvedAt.String != "" {
		ev.ResolvedAt, _ = time.Parse(time.RFC3339Nano, resolvedAt.String)
	}

	return &ev, nil
}

func migrate(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id                 TEXT PRIMARY KEY,
			timestamp          TEXT NOT NULL,
			source_id          TEXT NOT NULL,
			source_type        TEXT,
			severity           TEXT NOT NULL,
			category           TEXT,
			message            TEXT,
			resolved           BOOLEAN DEFAULT FALSE,
			resolved_at        TEXT,
			retry_attempts     INTEGER DEFAULT 0,
			recovered_by_retry BOOLEAN DEFAULT FALSE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_ts ON events(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_events_source_ts ON events(source_id, timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_events_severity ON events(severity, timestamp)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}

	slog.Debug("archive schema up to date")
	return nil
}
