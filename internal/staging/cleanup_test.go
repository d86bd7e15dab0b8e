package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"hakimi/internal/logging"
)

func writeAged(t *testing.T, path string, age time.Duration) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	stamp := time.Now().Add(-age)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatalf("set mtime: %v", err)
	}
}

func TestSweepTempArtifacts(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "track.mp3.tmp-123456")
	fresh := filepath.Join(dir, "cover.jpg.tmp-654321")
	keep := filepath.Join(dir, "track.mp3")
	writeAged(t, stale, 48*time.Hour)
	writeAged(t, fresh, time.Minute)
	writeAged(t, keep, 48*time.Hour)

	result := SweepTempArtifacts(context.Background(), []string{dir}, 24*time.Hour, logging.NewNop())
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected sweep errors: %v", result.Errors)
	}
	if len(result.Removed) != 1 || result.Removed[0] != stale {
		t.Fatalf("expected only %s removed, got %v", stale, result.Removed)
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale temp file gone, stat err %v", err)
	}
	for _, path := range []string{fresh, keep} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s untouched: %v", path, err)
		}
	}
}

func TestSweepTempArtifactsMissingDir(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")

	result := SweepTempArtifacts(context.Background(), []string{missing, ""}, time.Hour, nil)
	if len(result.Removed) != 0 || len(result.Errors) != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestSweepTempArtifactsSkipsSubdirs(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested.tmp-000")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	inner := filepath.Join(sub, "file.tmp-111")
	writeAged(t, inner, 48*time.Hour)

	result := SweepTempArtifacts(context.Background(), []string{dir}, 24*time.Hour, nil)
	if len(result.Removed) != 0 {
		t.Fatalf("expected nothing removed, got %v", result.Removed)
	}
	if _, err := os.Stat(inner); err != nil {
		t.Fatalf("expected nested file untouched: %v", err)
	}
}

func TestSweepTempArtifactsCancelled(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "a.tmp-1")
	writeAged(t, stale, 48*time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := SweepTempArtifacts(ctx, []string{dir}, 24*time.Hour, nil)
	if len(result.Removed) != 0 {
		t.Fatalf("expected no removals after cancel, got %v", result.Removed)
	}
}
