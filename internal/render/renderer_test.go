package render_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"hakimi/internal/config"
	"hakimi/internal/media/ffprobe"
	"hakimi/internal/notifications"
	"hakimi/internal/queue"
	"hakimi/internal/render"
	"hakimi/internal/services"
	"hakimi/internal/services/suno"
	"hakimi/internal/testsupport"
)

type stubNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
	last   notifications.Payload
}

func (s *stubNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	s.last = payload
	return nil
}

type capturedCommand struct {
	name string
	args []string
}

// stubFFmpeg replaces the ffmpeg launcher with one that writes the output
// file itself and runs a no-op process.
func stubFFmpeg(t *testing.T, captured *capturedCommand) {
	t.Helper()
	restore := render.SetCommandForTests(func(ctx context.Context, name string, args ...string) *exec.Cmd {
		captured.name = name
		captured.args = append([]string(nil), args...)
		output := args[len(args)-1]
		if err := os.WriteFile(output, []byte("rendered"), 0o644); err != nil {
			t.Fatalf("failed to write stub render output: %v", err)
		}
		return exec.CommandContext(ctx, "true")
	})
	t.Cleanup(restore)
}

func stubProbe(t *testing.T, result ffprobe.Result) {
	t.Helper()
	restore := render.SetProbeForTests(func(context.Context, string, string) (ffprobe.Result, error) {
		return result, nil
	})
	t.Cleanup(restore)
}

func probeResult(duration float64) ffprobe.Result {
	return ffprobe.Result{
		Streams: []ffprobe.Stream{
			{CodecType: "video", CodecName: "h264", Width: 1920, Height: 1080},
			{CodecType: "audio", CodecName: "aac", Channels: 2},
		},
		Format: ffprobe.Format{
			Duration: strconv.FormatFloat(duration, 'f', 1, 64),
			Size:     "1048576",
		},
	}
}

func composedItem(t *testing.T, store *queue.Store, cfg *config.Config, title string, withCover bool) *queue.Item {
	t.Helper()
	item := testsupport.NewNeed(t, store, "给哈基米写一首进行曲", title, "")
	audio := filepath.Join(cfg.MusicDir(), "track.mp3")
	testsupport.WriteFile(t, audio, 2048)
	item.AudioFile = audio
	if withCover {
		cover := filepath.Join(cfg.MusicDir(), "track_cover.jpg")
		testsupport.WriteFile(t, cover, 1024)
		item.CoverFile = cover
	}
	encoded, err := json.Marshal(suno.Result{AudioPath: audio, CoverPath: item.CoverFile, Title: title, Duration: 108})
	if err != nil {
		t.Fatalf("failed to encode generation result: %v", err)
	}
	item.ResultJSON = string(encoded)
	item.Status = queue.StatusRendering
	if err := store.Update(context.Background(), item); err != nil {
		t.Fatalf("failed to persist composed item: %v", err)
	}
	return item
}

func TestRendererRendersVideo(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := composedItem(t, store, cfg, "哈基米狂想曲", true)

	var captured capturedCommand
	stubFFmpeg(t, &captured)
	stubProbe(t, probeResult(108.4))

	notifier := &stubNotifier{}
	renderer := render.NewRendererWithDependencies(cfg, store, nil, notifier)
	ctx := context.Background()

	if err := renderer.Prepare(ctx, item); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if err := renderer.Execute(ctx, item); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	wantOutput := filepath.Join(cfg.VideoDir(), "哈基米狂想曲.mp4")
	if item.VideoFile != wantOutput {
		t.Fatalf("expected video artifact %q, got %q", wantOutput, item.VideoFile)
	}
	if _, err := os.Stat(wantOutput); err != nil {
		t.Fatalf("expected rendered file on disk: %v", err)
	}

	if captured.name != "ffmpeg" {
		t.Fatalf("expected ffmpeg binary, got %q", captured.name)
	}
	wantArgs := []string{
		"-y",
		"-loop", "1",
		"-i", item.CoverFile,
		"-i", item.AudioFile,
		"-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2",
		"-c:v", "libx264",
		"-c:a", "aac",
		"-b:a", "192k",
		"-pix_fmt", "yuv420p",
		"-shortest",
		"-r", "24",
		wantOutput,
	}
	if !slices.Equal(captured.args, wantArgs) {
		t.Fatalf("expected args %v, got %v", wantArgs, captured.args)
	}

	if item.ProgressPercent != 100 {
		t.Fatalf("expected progress 100, got %v", item.ProgressPercent)
	}
	if !strings.Contains(item.ProgressMessage, "Video rendered") {
		t.Fatalf("expected completion message, got %q", item.ProgressMessage)
	}

	stored, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !strings.Contains(stored.ProgressMessage, "哈基米狂想曲.mp4") {
		t.Fatalf("expected persisted completion message, got %q", stored.ProgressMessage)
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.events) != 1 || notifier.events[0] != notifications.EventVideoRendered {
		t.Fatalf("expected one rendered notification, got %v", notifier.events)
	}
	if notifier.last["file"] != "哈基米狂想曲.mp4" {
		t.Fatalf("expected notification file name, got %v", notifier.last["file"])
	}
}

func TestRendererFallsBackToCoversDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := composedItem(t, store, cfg, "", false)

	fallback := filepath.Join(cfg.Paths.CoversDir, "cover.jpg")
	testsupport.WriteFile(t, fallback, 512)

	var captured capturedCommand
	stubFFmpeg(t, &captured)
	stubProbe(t, probeResult(107.2))

	renderer := render.NewRendererWithDependencies(cfg, store, nil, &stubNotifier{})
	if err := renderer.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !slices.Contains(captured.args, fallback) {
		t.Fatalf("expected fallback cover %q in args %v", fallback, captured.args)
	}
	if got := filepath.Base(item.VideoFile); got != "hakimi_video.mp4" {
		t.Fatalf("expected fallback output name, got %q", got)
	}
}

func TestRendererPrefersConfiguredFallbackCover(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := composedItem(t, store, cfg, "测试曲", false)
	item.CoverFile = filepath.Join(testsupport.BaseDir(cfg), "missing_cover.jpg")

	configured := filepath.Join(testsupport.BaseDir(cfg), "brand_cover.png")
	testsupport.WriteFile(t, configured, 512)
	cfg.Render.FallbackCover = configured

	var captured capturedCommand
	stubFFmpeg(t, &captured)
	stubProbe(t, probeResult(108.0))

	renderer := render.NewRendererWithDependencies(cfg, store, nil, &stubNotifier{})
	if err := renderer.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !slices.Contains(captured.args, configured) {
		t.Fatalf("expected configured cover %q in args %v", configured, captured.args)
	}
}

func TestRendererWithoutCoverRoutesToReview(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := composedItem(t, store, cfg, "无封面", false)

	renderer := render.NewRendererWithDependencies(cfg, store, nil, &stubNotifier{})
	err := renderer.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if got := services.FailureStatus(err); got != queue.StatusReview {
		t.Fatalf("expected review status, got %s", got)
	}
}

func TestRendererMissingAudioRoutesToReview(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewNeed(t, store, "需求", "曲子", "")
	item.AudioFile = filepath.Join(testsupport.BaseDir(cfg), "gone.mp3")

	renderer := render.NewRendererWithDependencies(cfg, store, nil, &stubNotifier{})
	err := renderer.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if got := services.FailureStatus(err); got != queue.StatusReview {
		t.Fatalf("expected review status, got %s", got)
	}
}

func TestRendererRequiresAudio(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewNeed(t, store, "需求", "", "")

	renderer := render.NewRendererWithDependencies(cfg, store, nil, &stubNotifier{})
	err := renderer.Prepare(context.Background(), item)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRendererFFmpegFailureFailsItem(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := composedItem(t, store, cfg, "失败曲", true)

	restore := render.SetCommandForTests(func(ctx context.Context, _ string, _ ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "false")
	})
	t.Cleanup(restore)

	renderer := render.NewRendererWithDependencies(cfg, store, nil, &stubNotifier{})
	err := renderer.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if got := services.FailureStatus(err); got != queue.StatusFailed {
		t.Fatalf("expected failed status, got %s", got)
	}
}

func TestRendererTimesOut(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Render.TimeoutSeconds = 1
	store := testsupport.MustOpenStore(t, cfg)
	item := composedItem(t, store, cfg, "超时曲", true)

	restore := render.SetCommandForTests(func(ctx context.Context, _ string, _ ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "sleep", "10")
	})
	t.Cleanup(restore)

	renderer := render.NewRendererWithDependencies(cfg, store, nil, &stubNotifier{})
	start := time.Now()
	err := renderer.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("expected render to abort at the timeout, took %s", elapsed)
	}
}

func TestRendererRejectsDurationMismatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := composedItem(t, store, cfg, "短曲", true)

	var captured capturedCommand
	stubFFmpeg(t, &captured)
	stubProbe(t, probeResult(50.0))

	renderer := render.NewRendererWithDependencies(cfg, store, nil, &stubNotifier{})
	err := renderer.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if !strings.Contains(err.Error(), "50.0") {
		t.Fatalf("expected duration detail in error, got %v", err)
	}
}

func TestRendererRejectsMissingStreams(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := composedItem(t, store, cfg, "无声曲", true)

	var captured capturedCommand
	stubFFmpeg(t, &captured)
	stubProbe(t, ffprobe.Result{
		Streams: []ffprobe.Stream{{CodecType: "video"}},
		Format:  ffprobe.Format{Duration: "108.0"},
	})

	renderer := render.NewRendererWithDependencies(cfg, store, nil, &stubNotifier{})
	err := renderer.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestRendererHealthCheck(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	store := testsupport.MustOpenStore(t, cfg)

	renderer := render.NewRenderer(cfg, store, nil)
	if health := renderer.HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected healthy render stage, got %+v", health)
	}

	cfg.Render.FFmpegPath = filepath.Join(testsupport.BaseDir(cfg), "missing", "ffmpeg")
	if health := renderer.HealthCheck(context.Background()); health.Ready {
		t.Fatalf("expected unhealthy render stage when ffmpeg is missing")
	}
}
