// Package reporter renders snapshots as text and sends risk alerts to ntfy.
package reporter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/setevik/pulsewatch/internal/analyze"
	"github.com/setevik/pulsewatch/internal/engine"
	"github.com/setevik/pulsewatch/internal/event"
	"github.com/setevik/pulsewatch/internal/format"
)

// FormatSnapshot formats a snapshot as human-readable text suitable for
// ntfy or stdout output.
func FormatSnapshot(instanceID string, snap *engine.Snapshot) string {
	var b strings.Builder

	dateRange := fmt.Sprintf("%s - %s",
		snap.Range.Since.Local().Format("Jan 02 15:04"),
		snap.Range.Until.Local().Format("Jan 02 15:04"))

	fmt.Fprintf(&b, "=== %s ===\n", instanceID)
	fmt.Fprintf(&b, "Period: %s\n\n", dateRange)

	fmt.Fprintf(&b, "Events:        %d\n", snap.Total)
	fmt.Fprintf(&b, "MTTR:          %s\n", format.Duration(snap.MTTR))
	fmt.Fprintf(&b, "Retry recovery: %s\n", format.Percent(snap.RecoveryRate))
	fmt.Fprintf(&b, "Trend:         %s\n", snap.TrendDirection)
	fmt.Fprintf(&b, "Risk:          %s (next window ~%d events)\n",
		snap.Risk.Tier, snap.Risk.PredictedCount)

	if len(snap.Spikes) > 0 {
		fmt.Fprintf(&b, "Spikes:        %s\n", formatSpikes(snap))
	}

	if snap.Total > 0 {
		fmt.Fprintf(&b, "\nBy severity:   %s\n", formatSeverityCounts(snap.BySeverity))
		fmt.Fprintf(&b, "By category:   %s\n", formatStringCounts(snap.ByCategory))
	}

	if len(snap.Offenders) > 0 {
		b.WriteString("\nTop offenders:\n")
		for _, o := range snap.Offenders {
			label := o.SourceID
			if o.SourceType != "" {
				label = fmt.Sprintf("%s (%s)", o.SourceID, o.SourceType)
			}
			fmt.Fprintf(&b, "  %-30s ×%d\n", label, o.Count)
		}
	}

	return b.String()
}

// FormatReportTitle generates the ntfy title for a snapshot report.
func FormatReportTitle(since, until time.Time) string {
	return fmt.Sprintf("\U0001f4ca pulsewatch report (%s-%s)",
		since.Local().Format("Jan 02"),
		until.Local().Format("Jan 02"))
}

// FormatRiskTitle builds the ntfy notification title for a risk alert.
func FormatRiskTitle(instanceID string, tier analyze.Tier) string {
	emoji := "❗" // exclamation mark
	if tier == analyze.RiskHigh {
		emoji = "\U0001f6a8" // rotating light
	}
	return fmt.Sprintf("%s [%s] incident risk %s", emoji, instanceID, tier)
}

// FormatRiskBody builds the ntfy notification body for a risk alert.
func FormatRiskBody(snap *engine.Snapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Predicted next window: ~%d events\n", snap.Risk.PredictedCount)
	fmt.Fprintf(&b, "Trend: %s\n", snap.TrendDirection)
	fmt.Fprintf(&b, "Events in window: %d\n", snap.Total)
	if len(snap.Spikes) > 0 {
		fmt.Fprintf(&b, "Spiking buckets: %s\n", formatSpikes(snap))
	}
	if len(snap.Offenders) > 0 {
		top := snap.Offenders[0]
		fmt.Fprintf(&b, "Top offender: %s ×%d\n", top.SourceID, top.Count)
	}

	return b.String()
}

func formatSpikes(snap *engine.Snapshot) string {
	parts := make([]string, len(snap.Spikes))
	for i, idx := range snap.Spikes {
		if idx < len(snap.Trend) {
			parts[i] = fmt.Sprintf("%s (×%d)",
				snap.Trend[idx].Start.Local().Format("15:04"),
				snap.Trend[idx].Count)
		} else {
			parts[i] = fmt.Sprintf("#%d", idx)
		}
	}
	return strings.Join(parts, ", ")
}

// formatSeverityCounts renders a severity histogram ordered by rank,
// highest first.
func formatSeverityCounts(m map[event.Severity]int) string {
	type entry struct {
		sev   event.Severity
		count int
	}
	entries := make([]entry, 0, len(m))
	for sev, count := range m {
		entries = append(entries, entry{sev, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].sev.Rank() > entries[j].sev.Rank()
	})

	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%s ×%d", e.sev, e.count)
	}
	return strings.Join(parts, ", ")
}

// formatStringCounts renders a map[string]int as "foo ×2, bar ×1" sorted by
// count descending, key ascending on ties.
func formatStringCounts(m map[string]int) string {
	type entry struct {
		name  string
		count int
	}
	entries := make([]entry, 0, len(m))
	for name, count := range m {
		entries = append(entries, entry{name, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].name < entries[j].name
	})

	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%s ×%d", e.name, e.count)
	}
	return strings.Join(parts, ", ")
}
