package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// LineSource implements Source by scanning newline-delimited JSON records
// from a file, a FIFO, or stdin (path "-").
type LineSource struct {
	path   string
	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewLineSource creates a LineSource reading from the given path.
func NewLineSource(path string) *LineSource {
	return &LineSource{path: path}
}

func (l *LineSource) Records(ctx context.Context) (<-chan Record, error) {
	ctx, cancel := context.WithCancel(ctx)
	l.mu.Lock()
	l.cancel = cancel
	l.mu.Unlock()

	var r io.ReadCloser
	if l.path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(l.path)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("opening ingest source: %w", err)
		}
		r = f
	}

	ch := make(chan Record, 64)

	go func() {
		defer close(ch)
		if r != os.Stdin {
			defer r.Close()
		}

		scanner := bufio.NewScanner(r)
		// Records can carry long messages; increase buffer to 1MB.
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			rec, err := parseLine(line)
			if err != nil {
				slog.Debug("skipping unparseable ingest line", "error", err)
				continue
			}

			select {
			case ch <- rec:
			case <-ctx.Done():
				return
			}
		}

		if err := scanner.Err(); err != nil {
			slog.Warn("ingest scanner error", "error", err)
		}
	}()

	slog.Info("ingest source started", "path", l.path)
	return ch, nil
}

func (l *LineSource) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
	}
}

// parseLine parses a single JSON ingestion record.
func parseLine(data []byte) (Record, error) {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return Record{}, err
	}
	return w.toRecord()
}
