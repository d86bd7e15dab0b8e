package publisher_test

import (
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"hakimi/internal/config"
	"hakimi/internal/notifications"
	"hakimi/internal/plan"
	"hakimi/internal/publisher"
	"hakimi/internal/queue"
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

// stubUploader replaces the uploader launcher with one that records the
// invocation and prints a publish reference.
func stubUploader(t *testing.T, captured *capturedCommand) {
	t.Helper()
	restore := publisher.SetCommandForTests(func(ctx context.Context, name string, args ...string) *exec.Cmd {
		captured.name = name
		captured.args = append([]string(nil), args...)
		return exec.CommandContext(ctx, "sh", "-c", "printf 'uploading 1/1\\nBV1hakimi42\\n'")
	})
	t.Cleanup(restore)
}

func renderedItem(t *testing.T, store *queue.Store, cfg *config.Config, title string, withCover bool) *queue.Item {
	t.Helper()
	item := testsupport.NewNeed(t, store, "给哈基米写一首进行曲", title, "")
	video := filepath.Join(cfg.VideoDir(), "track.mp4")
	testsupport.WriteFile(t, video, 4096)
	item.VideoFile = video
	if withCover {
		cover := filepath.Join(cfg.MusicDir(), "track_cover.jpg")
		testsupport.WriteFile(t, cover, 1024)
		item.CoverFile = cover
	}
	planJSON, err := plan.Plan{
		MusicPromptEN: "High energy cute meme electronic J-pop.",
		StyleTags:     []string{"electronic", "meme"},
		Source:        plan.SourceLLM,
	}.Encode()
	if err != nil {
		t.Fatalf("failed to encode plan: %v", err)
	}
	item.PlanJSON = planJSON
	resultJSON, err := json.Marshal(suno.Result{AudioPath: "track.mp3", Title: title, Duration: 108})
	if err != nil {
		t.Fatalf("failed to encode generation result: %v", err)
	}
	item.ResultJSON = string(resultJSON)
	item.Status = queue.StatusPublishing
	if err := store.Update(context.Background(), item); err != nil {
		t.Fatalf("failed to persist rendered item: %v", err)
	}
	return item
}

func flagValue(t *testing.T, args []string, flag string) string {
	t.Helper()
	for i, arg := range args {
		if arg == flag {
			if i+1 >= len(args) {
				t.Fatalf("flag %s has no value in %v", flag, args)
			}
			return args[i+1]
		}
	}
	t.Fatalf("flag %s not found in %v", flag, args)
	return ""
}

func TestComposeMetadata(t *testing.T) {
	tests := []struct {
		name      string
		title     string
		wantTitle string
	}{
		{name: "uses track title", title: "哈基米狂想曲", wantTitle: "【哈基米】哈基米狂想曲"},
		{name: "falls back without title", title: "  ", wantTitle: "【哈基米】" + suno.DefaultTitle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := publisher.Compose("给哈基米写一首进行曲", "High energy electronic J-pop.", tt.title, 108)
			if meta.Title != tt.wantTitle {
				t.Fatalf("expected title %q, got %q", tt.wantTitle, meta.Title)
			}
			if !strings.Contains(meta.Description, "原始需求：给哈基米写一首进行曲") {
				t.Fatalf("expected request line in description, got %q", meta.Description)
			}
			if !strings.Contains(meta.Description, "Prompt EN: High energy electronic J-pop.") {
				t.Fatalf("expected prompt line in description, got %q", meta.Description)
			}
			if !strings.Contains(meta.Description, "- 时长: 108秒") {
				t.Fatalf("expected duration line in description, got %q", meta.Description)
			}
			want := []string{"哈基米", "鬼畜", "AI音乐"}
			if !slices.Equal(meta.Tags, want) {
				t.Fatalf("expected tags %v, got %v", want, meta.Tags)
			}
		})
	}
}

func TestPublisherRunsUploader(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPublisherCommand("uploader --profile hakimi"))
	store := testsupport.MustOpenStore(t, cfg)
	item := renderedItem(t, store, cfg, "哈基米狂想曲", true)

	var captured capturedCommand
	stubUploader(t, &captured)

	notifier := &stubNotifier{}
	pub := publisher.NewPublisherWithDependencies(cfg, store, nil, notifier)
	ctx := context.Background()

	if err := pub.Prepare(ctx, item); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if err := pub.Execute(ctx, item); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if captured.name != "uploader" {
		t.Fatalf("expected configured command, got %q", captured.name)
	}
	if len(captured.args) < 2 || captured.args[0] != "--profile" || captured.args[1] != "hakimi" {
		t.Fatalf("expected configured args first, got %v", captured.args)
	}
	if got := flagValue(t, captured.args, "--video"); got != item.VideoFile {
		t.Fatalf("expected video %q, got %q", item.VideoFile, got)
	}
	if got := flagValue(t, captured.args, "--cover"); got != item.CoverFile {
		t.Fatalf("expected cover %q, got %q", item.CoverFile, got)
	}
	if got := flagValue(t, captured.args, "--title"); got != "【哈基米】哈基米狂想曲" {
		t.Fatalf("expected branded title, got %q", got)
	}
	desc := flagValue(t, captured.args, "--desc")
	if !strings.Contains(desc, "原始需求：给哈基米写一首进行曲") {
		t.Fatalf("expected request in description, got %q", desc)
	}
	if got := flagValue(t, captured.args, "--tags"); got != "哈基米,鬼畜,AI音乐" {
		t.Fatalf("expected topic tags, got %q", got)
	}

	if item.PublishRef != "BV1hakimi42" {
		t.Fatalf("expected publish ref from last output line, got %q", item.PublishRef)
	}
	if item.ProgressPercent != 100 {
		t.Fatalf("expected progress 100, got %v", item.ProgressPercent)
	}
	if !strings.Contains(item.ProgressMessage, "Track published") {
		t.Fatalf("expected completion message, got %q", item.ProgressMessage)
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.events) != 1 || notifier.events[0] != notifications.EventTrackPublished {
		t.Fatalf("expected one published notification, got %v", notifier.events)
	}
	if notifier.last["publishTitle"] != "【哈基米】哈基米狂想曲" {
		t.Fatalf("expected notification title, got %v", notifier.last["publishTitle"])
	}
	if notifier.last["ref"] != "BV1hakimi42" {
		t.Fatalf("expected notification ref, got %v", notifier.last["ref"])
	}
}

func TestPublisherOmitsCoverFlagWhenAbsent(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPublisherCommand("uploader"))
	store := testsupport.MustOpenStore(t, cfg)
	item := renderedItem(t, store, cfg, "无封面曲", false)

	var captured capturedCommand
	stubUploader(t, &captured)

	pub := publisher.NewPublisherWithDependencies(cfg, store, nil, &stubNotifier{})
	if err := pub.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if slices.Contains(captured.args, "--cover") {
		t.Fatalf("expected no cover flag, got %v", captured.args)
	}
}

func TestPublisherCommandFailureFailsItem(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPublisherCommand("uploader"))
	store := testsupport.MustOpenStore(t, cfg)
	item := renderedItem(t, store, cfg, "失败曲", true)

	restore := publisher.SetCommandForTests(func(ctx context.Context, _ string, _ ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "false")
	})
	t.Cleanup(restore)

	pub := publisher.NewPublisherWithDependencies(cfg, store, nil, &stubNotifier{})
	err := pub.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if got := services.FailureStatus(err); got != queue.StatusFailed {
		t.Fatalf("expected failed status, got %s", got)
	}
}

func TestPublisherTimesOut(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPublisherCommand("uploader"))
	cfg.Publisher.TimeoutSeconds = 1
	store := testsupport.MustOpenStore(t, cfg)
	item := renderedItem(t, store, cfg, "超时曲", true)

	restore := publisher.SetCommandForTests(func(ctx context.Context, _ string, _ ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "sleep", "10")
	})
	t.Cleanup(restore)

	pub := publisher.NewPublisherWithDependencies(cfg, store, nil, &stubNotifier{})
	start := time.Now()
	err := pub.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("expected hand-off to abort at the timeout, took %s", elapsed)
	}
}

func TestPublisherRequiresVideo(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPublisherCommand("uploader"))
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewNeed(t, store, "需求", "曲子", "")

	pub := publisher.NewPublisherWithDependencies(cfg, store, nil, &stubNotifier{})
	err := pub.Prepare(context.Background(), item)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPublisherMissingVideoRoutesToReview(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPublisherCommand("uploader"))
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewNeed(t, store, "需求", "曲子", "")
	item.VideoFile = filepath.Join(testsupport.BaseDir(cfg), "gone.mp4")

	pub := publisher.NewPublisherWithDependencies(cfg, store, nil, &stubNotifier{})
	err := pub.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if got := services.FailureStatus(err); got != queue.StatusReview {
		t.Fatalf("expected review status, got %s", got)
	}
}

func TestPublisherRequiresCommand(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewNeed(t, store, "需求", "曲子", "")

	pub := publisher.NewPublisherWithDependencies(cfg, store, nil, &stubNotifier{})
	err := pub.Prepare(context.Background(), item)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestPublisherHealthCheck(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	pub := publisher.NewPublisher(cfg, store, nil)
	if health := pub.HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected disabled publisher to be healthy, got %+v", health)
	}

	cfg.Publisher.Enabled = true
	cfg.Publisher.Command = "sh upload.sh"
	if health := pub.HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected resolvable uploader to be healthy, got %+v", health)
	}

	cfg.Publisher.Command = "no-such-uploader-binary"
	if health := pub.HealthCheck(context.Background()); health.Ready {
		t.Fatalf("expected unhealthy publisher when the command is missing")
	}
}
