package reporter

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/setevik/pulsewatch/internal/config"
	"github.com/setevik/pulsewatch/internal/engine"
)

// NtfyReporter sends risk alerts to an ntfy server. A sustained risk state
// alerts once per cooldown window rather than on every evaluation.
type NtfyReporter struct {
	cfg    *config.Config
	client *http.Client

	mu        sync.Mutex
	lastAlert map[string]time.Time // risk tier -> last alert time
	now       func() time.Time
}

// NewNtfy creates a new NtfyReporter.
func NewNtfy(cfg *config.Config) *NtfyReporter {
	return &NtfyReporter{
		cfg: cfg,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		lastAlert: make(map[string]time.Time),
		now:       time.Now,
	}
}

// ReportRisk sends a risk alert for the snapshot if its tier is in the
// configured alert tiers and the tier's cooldown has elapsed.
func (r *NtfyReporter) ReportRisk(ctx context.Context, snap *engine.Snapshot) error {
	if r.cfg.Ntfy.URL == "" {
		slog.Debug("ntfy URL not configured, skipping notification")
		return nil
	}

	tier := string(snap.Risk.Tier)
	if !r.cfg.ShouldAlert(tier) {
		slog.Debug("risk tier not in alert tiers, skipping", "tier", tier)
		return nil
	}

	if !r.checkCooldown(tier) {
		slog.Debug("risk alert suppressed by cooldown", "tier", tier)
		return nil
	}

	title := FormatRiskTitle(r.cfg.Instance.ID, snap.Risk.Tier)
	body := FormatRiskBody(snap)
	priority := r.cfg.NtfyPriority(tier)

	if err := r.send(ctx, title, body, priority, tagsForTier(tier)); err != nil {
		return err
	}

	slog.Info("risk alert sent", "tier", tier, "predicted", snap.Risk.PredictedCount, "priority", priority)
	return nil
}

// SendReport sends an arbitrary report body, used by the report subcommand.
func (r *NtfyReporter) SendReport(ctx context.Context, title, body string) error {
	if r.cfg.Ntfy.URL == "" {
		return fmt.Errorf("ntfy URL not configured")
	}
	return r.send(ctx, title, body, "low", "chart")
}

// checkCooldown reports whether an alert for the tier may fire now, and
// records the alert time when it may. The first occurrence always alerts;
// repeats within the window are suppressed.
func (r *NtfyReporter) checkCooldown(tier string) bool {
	window := r.cfg.Ntfy.Cooldown.Duration
	if window <= 0 {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if last, ok := r.lastAlert[tier]; ok && now.Sub(last) < window {
		return false
	}
	r.lastAlert[tier] = now
	return true
}

func (r *NtfyReporter) send(ctx context.Context, title, body, priority, tags string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.Ntfy.URL, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating ntfy request: %w", err)
	}

	req.Header.Set("Title", title)
	req.Header.Set("Priority", priority)
	req.Header.Set("Tags", tags)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy returned status %d", resp.StatusCode)
	}
	return nil
}

func tagsForTier(tier string) string {
	switch tier {
	case "high":
		return "rotating_light,fire"
	case "medium":
		return "warning"
	default:
		return "information_source"
	}
}
