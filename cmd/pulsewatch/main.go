// pulsewatch ingests incident events from external producers, maintains a
// sliding in-memory view per monitored scope, and continuously derives trend
// buckets, recovery statistics, offender rankings, spike flags, and a
// short-horizon risk forecast, alerting via ntfy when risk runs high.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/setevik/pulsewatch/internal/archive"
	"github.com/setevik/pulsewatch/internal/config"
	"github.com/setevik/pulsewatch/internal/engine"
	"github.com/setevik/pulsewatch/internal/event"
	"github.com/setevik/pulsewatch/internal/format"
	"github.com/setevik/pulsewatch/internal/ingest"
	"github.com/setevik/pulsewatch/internal/reporter"
	"github.com/setevik/pulsewatch/internal/store"
)

var version = "dev"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "report":
			runReport(os.Args[2:])
			return
		case "query":
			runQuery(os.Args[2:])
			return
		case "test-ntfy":
			runTestNtfyCmd(os.Args[2:])
			return
		case "version":
			fmt.Println("pulsewatch", version)
			return
		}
	}

	// Default: run daemon.
	runDaemon(os.Args[1:])
}

func runDaemon(args []string) {
	fs := flag.NewFlagSet("pulsewatch", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	showVersion := fs.Bool("version", false, "print version and exit")
	fs.Parse(args)

	if *showVersion {
		fmt.Println("pulsewatch", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	setupLogging(cfg.Log.Level)

	slog.Info("pulsewatch starting",
		"version", version,
		"instance", cfg.Instance.ID,
		"role", cfg.Instance.Role,
	)

	if err := run(cfg); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Open the durable archive.
	db, err := archive.Open(cfg.ArchivePath())
	if err != nil {
		return fmt.Errorf("opening event archive: %w", err)
	}
	defer db.Close()

	slog.Info("event archive opened", "path", cfg.ArchivePath())

	// Run archive retention purge on startup.
	if cfg.Archive.Retention.Duration > 0 {
		purged, err := db.Purge(cfg.Archive.Retention.Duration)
		if err != nil {
			slog.Warn("failed to purge old events", "error", err)
		} else if purged > 0 {
			slog.Info("purged old events", "count", purged, "retention", cfg.Archive.Retention.Duration)
		}
	}

	eng := engine.New(cfg.EngineParams())

	// Backfill the in-memory view from the archive so snapshots have
	// history immediately after a restart.
	backfill(eng, db)

	rep := reporter.NewNtfy(cfg)

	// Create the ingest source. A FIFO or file gets supervised reopen;
	// stdin ends exactly once.
	var source ingest.Source
	if cfg.Ingest.Source == "-" {
		source = ingest.NewLineSource("-")
	} else {
		path := cfg.Ingest.Source
		source = ingest.NewSupervisedSource(
			func() ingest.Source {
				return ingest.NewLineSource(path)
			},
			5*time.Second, // restart wait
			0,             // unlimited restarts
		)
	}

	records, err := source.Records(ctx)
	if err != nil {
		return fmt.Errorf("starting ingest source: %w", err)
	}

	snapshotTicker := time.NewTicker(cfg.Snapshot.Interval.Duration)
	defer snapshotTicker.Stop()

	// Retention eviction runs independently of request handling.
	evictTicker := time.NewTicker(time.Hour)
	defer evictTicker.Stop()

	// Notify systemd we are ready (sd_notify).
	sdNotify("READY=1")

	// Start watchdog ticker if WatchdogSec is configured.
	var watchdogTicker *time.Ticker
	if wdInterval := watchdogInterval(); wdInterval > 0 {
		// Ping at half the watchdog interval.
		watchdogTicker = time.NewTicker(wdInterval / 2)
		defer watchdogTicker.Stop()
		slog.Info("systemd watchdog enabled", "interval", wdInterval)
	}

	slog.Info("pipeline started, ingesting events",
		"source", cfg.Ingest.Source,
		"snapshot_interval", cfg.Snapshot.Interval.Duration,
		"snapshot_window", cfg.Snapshot.Window.Duration,
	)

	for {
		// Watchdog channel (nil if disabled, select skips nil channels).
		var watchdogCh <-chan time.Time
		if watchdogTicker != nil {
			watchdogCh = watchdogTicker.C
		}

		select {
		case rec, ok := <-records:
			if !ok {
				slog.Warn("ingest record channel closed")
				return nil
			}
			handleRecord(rec, eng, db)

		case <-snapshotTicker.C:
			evaluate(ctx, cfg, eng, rep)

		case <-evictTicker.C:
			if removed := eng.Evict(time.Now()); removed > 0 {
				slog.Info("evicted events past retention", "count", removed)
			}

		case <-watchdogCh:
			sdNotify("WATCHDOG=1")

		case sig := <-sigCh:
			slog.Info("received signal, shutting down", "signal", sig)
			sdNotify("STOPPING=1")
			cancel()
			return nil
		}
	}
}

// backfill loads archived events within the engine's retention horizon into
// the in-memory store.
func backfill(eng *engine.Engine, db *archive.DB) {
	retention := eng.Params().Retention
	if retention <= 0 {
		return
	}

	events, err := db.Query(archive.QueryFilter{Since: time.Now().Add(-retention)})
	if err != nil {
		slog.Warn("archive backfill query failed", "error", err)
		return
	}

	loaded := 0
	for _, ev := range events {
		if err := eng.Submit(ev); err != nil {
			slog.Debug("skipping archived event on backfill", "id", ev.ID, "error", err)
			continue
		}
		loaded++
	}
	if loaded > 0 {
		slog.Info("backfilled events from archive", "count", loaded)
	}
}

// handleRecord routes one ingest record into the engine and the archive.
func handleRecord(rec ingest.Record, eng *engine.Engine, db *archive.DB) {
	switch {
	case rec.Event != nil:
		ev := rec.Event
		if err := eng.Submit(ev); err != nil {
			slog.Warn("event rejected", "id", ev.ID, "source", ev.SourceID, "error", err)
			return
		}
		slog.Debug("event ingested",
			"id", ev.ID,
			"source", ev.SourceID,
			"severity", ev.Severity,
			"category", ev.Category,
		)
		if err := db.Insert(ev); err != nil {
			slog.Error("failed to archive event", "error", err)
		}

	case rec.Resolve != nil:
		res := rec.Resolve
		if err := eng.Resolve(res.ID, res.ResolvedAt, res.RecoveredByRetry); err != nil {
			slog.Warn("resolution rejected", "id", res.ID, "error", err)
			return
		}
		slog.Debug("event resolved", "id", res.ID)
		if err := db.MarkResolved(res.ID, res.ResolvedAt, res.RecoveredByRetry); err != nil {
			slog.Error("failed to archive resolution", "error", err)
		}
	}
}

// evaluate computes a snapshot over the configured window and alerts on its
// risk tier.
func evaluate(ctx context.Context, cfg *config.Config, eng *engine.Engine, rep *reporter.NtfyReporter) {
	now := time.Now()
	r := engine.Range{Since: now.Add(-cfg.Snapshot.Window.Duration), Until: now}

	snap := eng.Snapshot(r, store.Filter{}, 0, 0)

	slog.Info("snapshot evaluated",
		"total", snap.Total,
		"trend", snap.TrendDirection,
		"spikes", len(snap.Spikes),
		"risk", snap.Risk.Tier,
		"predicted", snap.Risk.PredictedCount,
		"mttr", format.Duration(snap.MTTR),
	)

	if err := rep.ReportRisk(ctx, snap); err != nil {
		slog.Error("failed to send risk alert", "error", err)
	}
}

// --- report subcommand ---

func runReport(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	send := fs.Bool("send", false, "send report via ntfy (otherwise print to stdout)")
	last := fs.String("last", "24h", "time window for report (e.g. 24h, 7d)")
	buckets := fs.Int("buckets", 0, "trend bucket count (0 = config default)")
	topN := fs.Int("top", 0, "offender ranking depth (0 = config default)")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	setupLogging("error") // quiet for CLI output

	db, err := archive.Open(cfg.ArchivePath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening archive: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	window, err := parseDuration(*last)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid --last value %q: %v\n", *last, err)
		os.Exit(1)
	}

	until := time.Now()
	since := until.Add(-window)

	events, err := db.Query(archive.QueryFilter{Since: since, Until: until})
	if err != nil {
		fmt.Fprintf(os.Stderr, "query error: %v\n", err)
		os.Exit(1)
	}

	eng := engine.New(cfg.EngineParams())
	snap := eng.SnapshotOf(events, engine.Range{Since: since, Until: until}, *buckets, *topN)
	body := reporter.FormatSnapshot(cfg.Instance.ID, snap)

	if !*send {
		fmt.Print(body)
		return
	}

	rep := reporter.NewNtfy(cfg)
	title := reporter.FormatReportTitle(since, until)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := rep.SendReport(ctx, title, body); err != nil {
		fmt.Fprintf(os.Stderr, "error sending report: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Report sent successfully.")
}

// --- query subcommand ---

func runQuery(args []string) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	last := fs.String("last", "24h", "time window (e.g. 24h, 7d, 30d)")
	severity := fs.String("severity", "", "filter by severity (low, medium, high, critical)")
	category := fs.String("category", "", "filter by category")
	source := fs.String("source", "", "filter by source ID")
	limit := fs.Int("limit", 50, "max events to show")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	setupLogging("error") // quiet for CLI output

	db, err := archive.Open(cfg.ArchivePath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening archive: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	window, err := parseDuration(*last)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid --last value %q: %v\n", *last, err)
		os.Exit(1)
	}

	events, err := db.Query(archive.QueryFilter{
		Since:    time.Now().Add(-window),
		Severity: strings.ToLower(*severity),
		Category: *category,
		SourceID: *source,
		Limit:    *limit,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "query error: %v\n", err)
		os.Exit(1)
	}

	if len(events) == 0 {
		fmt.Println("No events found.")
		return
	}

	printEvents(events)
}

func printEvents(events []*event.Event) {
	for _, ev := range events {
		ts := ev.Timestamp.Local().Format("2006-01-02 15:04:05")
		state := "open"
		if ev.Resolved {
			state = "resolved in " + format.Duration(ev.ResolutionTime())
		}
		fmt.Printf("%s  [%-8s] %-16s %-12s %s (%s)\n",
			ts, ev.Severity, ev.SourceID, ev.Category, ev.Message, state)
	}
	fmt.Printf("\n%d events\n", len(events))
}

// --- test-ntfy subcommand ---

func runTestNtfyCmd(args []string) {
	fs := flag.NewFlagSet("test-ntfy", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	setupLogging(cfg.Log.Level)

	if cfg.Ntfy.URL == "" {
		fmt.Fprintln(os.Stderr, "error: ntfy.url not configured")
		os.Exit(1)
	}

	rep := reporter.NewNtfy(cfg)
	ta := &reporter.TestAlert{InstanceID: cfg.Instance.ID}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := rep.ReportRisk(ctx, ta.ToSnapshot()); err != nil {
		fmt.Fprintf(os.Stderr, "error sending test notification: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Test notification sent successfully.")
}

// --- sd_notify support ---

// sdNotify sends a notification to systemd via the NOTIFY_SOCKET.
// This is a minimal implementation that doesn't require a C dependency.
func sdNotify(state string) {
	socketAddr := os.Getenv("NOTIFY_SOCKET")
	if socketAddr == "" {
		return
	}

	conn, err := net.Dial("unixgram", socketAddr)
	if err != nil {
		slog.Debug("sd_notify: failed to connect", "error", err)
		return
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(state)); err != nil {
		slog.Debug("sd_notify: failed to send", "error", err)
	}
}

// watchdogInterval reads WATCHDOG_USEC from the environment and returns the
// watchdog interval as a time.Duration. Returns 0 if not set.
func watchdogInterval() time.Duration {
	usecStr := os.Getenv("WATCHDOG_USEC")
	if usecStr == "" {
		return 0
	}
	var usec int64
	if _, err := fmt.Sscanf(usecStr, "%d", &usec); err != nil {
		return 0
	}
	return time.Duration(usec) * time.Microsecond
}

// --- utilities ---

func setupLogging(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// parseDuration parses durations with an extra "d" (days) suffix on top of
// the stdlib forms.
func parseDuration(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") {
		s = strings.TrimSuffix(s, "d")
		var days int
		if _, err := fmt.Sscanf(s, "%d", &days); err != nil {
			return 0, fmt.Errorf("invalid days format: %s", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}
