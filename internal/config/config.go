// Package config handles TOML configuration loading with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/setevik/pulsewatch/internal/engine"
)

// Config is the top-level configuration for pulsewatch.
type Config struct {
	Instance InstanceConfig `toml:"instance"`
	Engine   EngineConfig   `toml:"engine"`
	Ingest   IngestConfig   `toml:"ingest"`
	Snapshot SnapshotConfig `toml:"snapshot"`
	Archive  ArchiveConfig  `toml:"archive"`
	Ntfy     NtfyConfig     `toml:"ntfy"`
	Log      LogConfig      `toml:"log"`
}

// InstanceConfig identifies the monitored scope this engine serves.
type InstanceConfig struct {
	ID   string `toml:"id"`
	Role string `toml:"role"`
}

// EngineConfig holds the aggregation thresholds.
type EngineConfig struct {
	ClockSkew         Duration `toml:"clock_skew"`
	Retention         Duration `toml:"retention"`
	BucketCount       int      `toml:"bucket_count"`
	TopN              int      `toml:"top_n"`
	SpikeMultiplier   float64  `toml:"spike_multiplier"`
	SpikeFloor        int      `toml:"spike_floor"`
	TrendThresholdPct float64  `toml:"trend_threshold_pct"`
	HighRiskCount     int      `toml:"high_risk_count"`
}

// IngestConfig controls the incident record source.
type IngestConfig struct {
	// Source is a file or FIFO path with one JSON record per line,
	// or "-" for stdin.
	Source string `toml:"source"`
}

// SnapshotConfig controls the daemon's periodic risk evaluation.
type SnapshotConfig struct {
	Interval Duration `toml:"interval"`
	Window   Duration `toml:"window"`
}

// ArchiveConfig controls the durable SQLite record of ingested events.
type ArchiveConfig struct {
	Path      string   `toml:"path"` // empty means the default data dir
	Retention Duration `toml:"retention"`
}

// NtfyConfig controls risk alert notifications.
type NtfyConfig struct {
	URL         string            `toml:"url"`
	PriorityMap map[string]string `toml:"priority_map"`
	AlertTiers  []string          `toml:"alert_tiers"`
	Cooldown    Duration          `toml:"cooldown"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `toml:"level"`
}

// Duration wraps time.Duration for TOML string parsing (e.g. "5m", "720h").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}
	return &Config{
		Instance: InstanceConfig{
			ID:   hostname,
			Role: "node",
		},
		Engine: EngineConfig{
			ClockSkew:         Duration{2 * time.Minute},
			Retention:         Duration{30 * 24 * time.Hour},
			BucketCount:       24,
			TopN:              10,
			SpikeMultiplier:   2.0,
			SpikeFloor:        5,
			TrendThresholdPct: 10,
			HighRiskCount:     20,
		},
		Ingest: IngestConfig{
			Source: "-",
		},
		Snapshot: SnapshotConfig{
			Interval: Duration{5 * time.Minute},
			Window:   Duration{24 * time.Hour},
		},
		Archive: ArchiveConfig{
			Retention: Duration{90 * 24 * time.Hour},
		},
		Ntfy: NtfyConfig{
			PriorityMap: map[string]string{
				"high":   "urgent",
				"medium": "high",
				"low":    "default",
			},
			AlertTiers: []string{"high"},
			Cooldown:   Duration{30 * time.Minute},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, "pulsewatch", "config.toml")
}

// Load reads configuration from the given path, falling back to defaults
// for any unset fields. If the file does not exist, returns defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// EngineParams converts the config's engine section into engine parameters.
func (c *Config) EngineParams() engine.Params {
	return engine.Params{
		ClockSkew:         c.Engine.ClockSkew.Duration,
		Retention:         c.Engine.Retention.Duration,
		BucketCount:       c.Engine.BucketCount,
		TopN:              c.Engine.TopN,
		SpikeMultiplier:   c.Engine.SpikeMultiplier,
		SpikeFloor:        c.Engine.SpikeFloor,
		TrendThresholdPct: c.Engine.TrendThresholdPct,
		HighRiskCount:     c.Engine.HighRiskCount,
	}
}

// ArchivePath returns the configured archive path, or the default under the
// user data directory.
func (c *Config) ArchivePath() string {
	if c.Archive.Path != "" {
		return c.Archive.Path
	}
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "pulsewatch", "events.db")
}

// ShouldAlert returns true if the given risk tier is in the configured
// alert tiers.
func (c *Config) ShouldAlert(tier string) bool {
	for _, t := range c.Ntfy.AlertTiers {
		if strings.EqualFold(t, tier) {
			return true
		}
	}
	return false
}

// NtfyPriority maps a risk tier to an ntfy priority string.
func (c *Config) NtfyPriority(tier string) string {
	if p, ok := c.Ntfy.PriorityMap[tier]; ok {
		return p
	}
	return "default"
}
