package aggregate

import (
	"time"

	"github.com/setevik/pulsewatch/internal/event"
)

// MTTR returns the arithmetic mean time-to-recovery across all resolved
// events in the set, 0 when none are resolved. Absence of signal is not an
// error: a dashboard shows 0, not a failure.
func MTTR(events []*event.Event) time.Duration {
	var total time.Duration
	var n int
	for _, ev := range events {
		if !ev.Resolved || ev.ResolvedAt.IsZero() {
			continue
		}
		total += ev.ResolvedAt.Sub(ev.Timestamp)
		n++
	}
	if n == 0 {
		return 0
	}
	return total / time.Duration(n)
}

// RetryRecoveryRate returns the percentage of retried events (RetryAttempts
// > 0) that recovered by retry, 0 when no events were retried.
func RetryRecoveryRate(events []*event.Event) float64 {
	var retried, recovered int
	for _, ev := range events {
		if ev.RetryAttempts <= 0 {
			continue
		}
		retried++
		if ev.RecoveredByRetry {
			recovered++
		}
	}
	if retried == 0 {
		return 0
	}
	return float64(recovered) / float64(retried) * 100
}
