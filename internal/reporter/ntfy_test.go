package reporter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/setevik/pulsewatch/internal/config"
)

func TestNtfyReporterSend(t *testing.T) {
	var receivedTitle, receivedPriority, receivedTags, receivedBody string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedTitle = r.Header.Get("Title")
		receivedPriority = r.Header.Get("Priority")
		receivedTags = r.Header.Get("Tags")

		buf := make([]byte, 4096)
		n, _ := r.Body.Read(buf)
		receivedBody = string(buf[:n])

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Instance.ID = "testhost"
	cfg.Ntfy.URL = server.URL

	rep := NewNtfy(cfg)
	snap := sampleSnapshot()

	if err := rep.ReportRisk(context.Background(), snap); err != nil {
		t.Fatalf("ReportRisk() error: %v", err)
	}

	if !strings.Contains(receivedTitle, "[testhost]") {
		t.Errorf("ntfy title = %q, should contain instance", receivedTitle)
	}
	if receivedPriority != "urgent" {
		t.Errorf("ntfy priority = %q, want %q", receivedPriority, "urgent")
	}
	if receivedTags != "rotating_light,fire" {
		t.Errorf("ntfy tags = %q", receivedTags)
	}
	if !strings.Contains(receivedBody, "~50 events") {
		t.Errorf("ntfy body should contain prediction, got %q", receivedBody)
	}
}

func TestNtfyReporterSkipsNonAlertTier(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Ntfy.URL = server.URL
	cfg.Ntfy.AlertTiers = []string{"high"}

	rep := NewNtfy(cfg)

	snap := sampleSnapshot()
	snap.Risk.Tier = "medium"

	if err := rep.ReportRisk(context.Background(), snap); err != nil {
		t.Fatalf("ReportRisk() error: %v", err)
	}
	if called {
		t.Error("ntfy should not have been called for non-alert tier")
	}
}

func TestNtfyReporterCooldown(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Ntfy.URL = server.URL
	cfg.Ntfy.Cooldown = config.Duration{Duration: 30 * time.Minute}

	rep := NewNtfy(cfg)
	now := time.Now()
	rep.now = func() time.Time { return now }

	snap := sampleSnapshot()

	// First alert fires.
	if err := rep.ReportRisk(context.Background(), snap); err != nil {
		t.Fatalf("ReportRisk() error: %v", err)
	}
	// Second within the window is suppressed.
	if err := rep.ReportRisk(context.Background(), snap); err != nil {
		t.Fatalf("ReportRisk() error: %v", err)
	}
	if calls != 1 {
		t.Errorf("ntfy called %d times, want 1 (cooldown)", calls)
	}

	// After the window it fires again.
	now = now.Add(31 * time.Minute)
	if err := rep.ReportRisk(context.Background(), snap); err != nil {
		t.Fatalf("ReportRisk() error: %v", err)
	}
	if calls != 2 {
		t.Errorf("ntfy called %d times, want 2 after cooldown", calls)
	}
}

func TestNtfyReporterNoURL(t *testing.T) {
	cfg := config.Default()
	cfg.Ntfy.URL = ""

	rep := NewNtfy(cfg)
	if err := rep.ReportRisk(context.Background(), sampleSnapshot()); err != nil {
		t.Fatalf("ReportRisk() with no URL should not error, got: %v", err)
	}
}

func TestNtfyReporterServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Ntfy.URL = server.URL
	cfg.Ntfy.Cooldown = config.Duration{}

	rep := NewNtfy(cfg)
	if err := rep.ReportRisk(context.Background(), sampleSnapshot()); err == nil {
		t.Error("ReportRisk() should surface a server error")
	}
}

func TestTestAlertSnapshot(t *testing.T) {
	ta := &TestAlert{InstanceID: "testhost"}
	snap := ta.ToSnapshot()
	if snap.Risk.Tier != "high" {
		t.Errorf("test alert tier = %q, want high", snap.Risk.Tier)
	}
	if snap.Total == 0 {
		t.Error("test alert should carry a nonzero total")
	}
}
