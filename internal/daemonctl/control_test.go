package daemonctl_test

import (
	"path/filepath"
	"strings"
	"testing"

	"hakimi/internal/config"
	"hakimi/internal/daemonctl"
	"hakimi/internal/ipc"
	"hakimi/internal/testsupport"
)

func TestBuildDependencySummary(t *testing.T) {
	tests := []struct {
		name      string
		deps      []ipc.DependencyStatus
		severity  string
		detail    string
		available int
	}{
		{
			name:     "no checks",
			severity: "info",
			detail:   "No dependency checks configured",
		},
		{
			name: "all available",
			deps: []ipc.DependencyStatus{
				{Name: "FFmpeg", Available: true},
				{Name: "FFprobe", Available: true},
			},
			severity:  "ok",
			detail:    "2/2 available",
			available: 2,
		},
		{
			name: "missing required",
			deps: []ipc.DependencyStatus{
				{Name: "FFmpeg", Available: true},
				{Name: "FFprobe"},
			},
			severity:  "error",
			detail:    "1/2 available (missing: 1 required, 0 optional)",
			available: 1,
		},
		{
			name: "missing optional only",
			deps: []ipc.DependencyStatus{
				{Name: "FFmpeg", Available: true},
				{Name: "Uploader", Optional: true},
			},
			severity:  "warn",
			detail:    "1/2 available (missing: 0 required, 1 optional)",
			available: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary := daemonctl.BuildDependencySummary(tt.deps)
			if summary.Severity != tt.severity {
				t.Fatalf("expected severity %q, got %q", tt.severity, summary.Severity)
			}
			if summary.Detail != tt.detail {
				t.Fatalf("expected detail %q, got %q", tt.detail, summary.Detail)
			}
			if summary.Available != tt.available {
				t.Fatalf("expected %d available, got %d", tt.available, summary.Available)
			}
			if summary.Total != len(tt.deps) {
				t.Fatalf("expected total %d, got %d", len(tt.deps), summary.Total)
			}
		})
	}
}

func TestDeriveLogDir(t *testing.T) {
	cfg := &config.Config{}
	cfg.Paths.LogDir = "/var/log/hakimi"

	tests := []struct {
		name        string
		lockPath    string
		queueDBPath string
		cfg         *config.Config
		expected    string
	}{
		{"lock path wins", "/run/hakimi/daemon.lock", "/data/queue.db", cfg, "/run/hakimi"},
		{"queue db fallback", "", "/data/queue.db", cfg, "/data"},
		{"config fallback", "", "", cfg, "/var/log/hakimi"},
		{"nothing known", "", "", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := daemonctl.DeriveLogDir(tt.lockPath, tt.queueDBPath, tt.cfg)
			if got != tt.expected {
				t.Fatalf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestBuildOutputPathChecks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	lines := daemonctl.BuildOutputPathChecks(cfg)
	if len(lines) != 4 {
		t.Fatalf("expected 4 path checks, got %d", len(lines))
	}
	labels := []string{"Output", "Music", "Videos", "Covers"}
	for i, line := range lines {
		if line.Label != labels[i] {
			t.Fatalf("expected label %q at index %d, got %q", labels[i], i, line.Label)
		}
	}
	for _, line := range lines[:3] {
		if line.Severity != "ok" {
			t.Fatalf("%s: expected ok severity, got %s (%s)", line.Label, line.Severity, line.Detail)
		}
		if !strings.Contains(line.Detail, "read/write ok") {
			t.Fatalf("%s: unexpected detail %q", line.Label, line.Detail)
		}
	}

	cfg.Paths.CoversDir = filepath.Join(cfg.Paths.OutputDir, "missing-covers")
	lines = daemonctl.BuildOutputPathChecks(cfg)
	covers := lines[3]
	if covers.Severity != "error" {
		t.Fatalf("expected error severity for missing covers dir, got %s", covers.Severity)
	}
	if !strings.Contains(covers.Detail, "does not exist") {
		t.Fatalf("unexpected covers detail %q", covers.Detail)
	}
}

func TestBuildSystemChecks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	// A blank key keeps the Suno check off the network.
	cfg.Suno.APIKey = ""

	lines := daemonctl.BuildSystemChecks(cfg, false)
	if len(lines) != 4 {
		t.Fatalf("expected 4 system checks, got %d", len(lines))
	}

	hakimi := lines[0]
	if hakimi.Label != "Hakimi" || hakimi.Severity != "warn" {
		t.Fatalf("unexpected daemon line: %+v", hakimi)
	}
	if !strings.Contains(hakimi.Detail, "Not running") {
		t.Fatalf("expected not-running detail, got %q", hakimi.Detail)
	}

	suno := lines[1]
	if suno.Label != "Suno API" || suno.Severity != "warn" || suno.Detail != "Missing API key" {
		t.Fatalf("unexpected suno line: %+v", suno)
	}

	ntfy := lines[2]
	if ntfy.Label != "Notifications" || ntfy.Severity != "info" || ntfy.Detail != "Disabled" {
		t.Fatalf("unexpected notifications line: %+v", ntfy)
	}

	corpusLine := lines[3]
	if corpusLine.Label != "Corpus" || corpusLine.Severity != "info" || corpusLine.Detail != "No corpus crawled" {
		t.Fatalf("unexpected corpus line: %+v", corpusLine)
	}

	running := daemonctl.BuildSystemChecks(cfg, true)
	if running[0].Severity != "ok" || running[0].Detail != "Running" {
		t.Fatalf("unexpected running line: %+v", running[0])
	}
}
