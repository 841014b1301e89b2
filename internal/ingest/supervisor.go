package ingest

import (
	"context"
	"log/slog"
	"time"
)

// SupervisedSource wraps a Source with automatic restart when the input
// ends. FIFO producers come and go; reopening keeps ingestion alive across
// them.
type SupervisedSource struct {
	factory     func() Source
	restartWait time.Duration
	maxRestarts int
}

// NewSupervisedSource creates a supervised wrapper around a source factory.
// On source exhaustion or failure it waits restartWait before creating a
// new source. maxRestarts of 0 means unlimited restarts.
func NewSupervisedSource(factory func() Source, restartWait time.Duration, maxRestarts int) *SupervisedSource {
	return &SupervisedSource{
		factory:     factory,
		restartWait: restartWait,
		maxRestarts: maxRestarts,
	}
}

// Records starts the supervised source loop. It returns a channel that
// receives records across restarts. The channel is closed when the context
// is cancelled or max restarts are exceeded.
func (s *SupervisedSource) Records(ctx context.Context) (<-chan Record, error) {
	out := make(chan Record, 64)

	go func() {
		defer close(out)

		restarts := 0
		for {
			if s.maxRestarts > 0 && restarts >= s.maxRestarts {
				slog.Error("ingest source exceeded max restarts", "max", s.maxRestarts)
				return
			}

			source := s.factory()
			records, err := source.Records(ctx)
			if err != nil {
				slog.Error("failed to start ingest source", "error", err, "restart_count", restarts)
				select {
				case <-ctx.Done():
					return
				case <-time.After(s.restartWait):
					restarts++
					continue
				}
			}

			slog.Info("ingest source started", "restart_count", restarts)

			// Forward records until the source channel closes.
			sourceDone := false
			for !sourceDone {
				select {
				case rec, ok := <-records:
					if !ok {
						sourceDone = true
						break
					}
					select {
					case out <- rec:
					case <-ctx.Done():
						source.Stop()
						return
					}
				case <-ctx.Done():
					source.Stop()
					return
				}
			}

			slog.Warn("ingest source stopped, restarting", "restart_count", restarts)
			source.Stop()
			restarts++

			select {
			case <-ctx.Done():
				return
			case <-time.After(s.restartWait):
			}
		}
	}()

	return out, nil
}

func (s *SupervisedSource) Stop() {
	// Stopping is handled via context cancellation.
}
