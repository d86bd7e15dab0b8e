package workflow_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"hakimi/internal/composer"
	"hakimi/internal/corpus"
	"hakimi/internal/logging"
	"hakimi/internal/media/ffprobe"
	"hakimi/internal/notifications"
	"hakimi/internal/plan"
	"hakimi/internal/prompting"
	"hakimi/internal/publisher"
	"hakimi/internal/queue"
	"hakimi/internal/render"
	"hakimi/internal/services/llm"
	"hakimi/internal/testsupport"
	"hakimi/internal/workflow"
)

const integrationPlanContent = `{
  "music_prompt_en": "High energy cute meme electronic J-pop, high-pitched anime idol vocal, fast chaotic hook.",
  "music_prompt_zh": "高能量可爱哈基米电音。",
  "style_tags": ["electronic", "j-pop", "meme"],
  "use_lyrics": false
}`

// newPlanServer fakes the chat completion endpoint with a fixed plan payload.
func newPlanServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	if err != nil {
		t.Fatalf("marshal completion body: %v", err)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server
}

// newGenerationServer fakes the music generation API: create, task status, and
// the audio and cover artifact downloads.
func newGenerationServer(t *testing.T) *httptest.Server {
	t.Helper()
	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/suno/create", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"message":"success","task_id":"task-1"}`)
	})
	mux.HandleFunc("/api/v1/suno/task/task-1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"code":200,"data":[{"clip_id":"clip-1","state":"succeeded","audio_url":%q,"image_url":%q,"title":"哈基米狂想曲","tags":"electronic meme","duration":108}]}`,
			server.URL+"/files/audio.mp3", server.URL+"/files/cover.jpg")
	})
	mux.HandleFunc("/files/audio.mp3", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ID3 fake audio payload"))
	})
	mux.HandleFunc("/files/cover.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("\xff\xd8 fake cover"))
	})
	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func integrationFlagValue(t *testing.T, args []string, flag string) string {
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

func TestWorkflowIntegrationEndToEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPublisherCommand("uploader --profile hakimi"))
	cfg.Workflow.QueuePollInterval = 0
	cfg.Workflow.ErrorRetryInterval = 1
	cfg.Workflow.HeartbeatInterval = 1
	cfg.Workflow.HeartbeatTimeout = 5

	store := testsupport.MustOpenStore(t, cfg)

	planServer := newPlanServer(t, integrationPlanContent)
	cfg.LLM.BaseURL = planServer.URL
	generationServer := newGenerationServer(t)
	cfg.Suno.BaseURL = generationServer.URL

	testsupport.WriteFileString(t, cfg.Paths.CorpusFile,
		`{"text":"哈基米像风一样自由"}`+"\n"+`{"text":"大家一起哈基米"}`+"\n")

	restoreRender := render.SetCommandForTests(func(ctx context.Context, _ string, args ...string) *exec.Cmd {
		output := args[len(args)-1]
		if err := os.WriteFile(output, []byte("rendered"), 0o644); err != nil {
			t.Errorf("write stub render output: %v", err)
		}
		return exec.CommandContext(ctx, "true")
	})
	t.Cleanup(restoreRender)

	restoreProbe := render.SetProbeForTests(func(context.Context, string, string) (ffprobe.Result, error) {
		return ffprobe.Result{
			Streams: []ffprobe.Stream{
				{CodecType: "video", CodecName: "h264"},
				{CodecType: "audio", CodecName: "aac"},
			},
			Format: ffprobe.Format{Duration: "108.2", Size: "1048576"},
		}, nil
	})
	t.Cleanup(restoreProbe)

	var uploadMu sync.Mutex
	var uploadArgs []string
	restoreUpload := publisher.SetCommandForTests(func(ctx context.Context, _ string, args ...string) *exec.Cmd {
		uploadMu.Lock()
		uploadArgs = append([]string(nil), args...)
		uploadMu.Unlock()
		return exec.CommandContext(ctx, "sh", "-c", "printf 'uploading 1/1\\nBV1hakimi42\\n'")
	})
	t.Cleanup(restoreUpload)

	logger := logging.NewNop()
	notifier := &recordingNotifier{}

	client := llm.NewClient(llm.Config{APIKey: "integration-key", BaseURL: cfg.LLM.BaseURL})
	planner := prompting.NewPlanner(cfg, store, client, corpus.NewStore(cfg.Paths.CorpusFile), notifier, logger)
	compose := composer.NewComposerWithDependencies(cfg, store, logger, notifier)
	renderer := render.NewRendererWithDependencies(cfg, store, logger, notifier)
	uploader := publisher.NewPublisherWithDependencies(cfg, store, logger, notifier)

	mgr := workflow.NewManagerWithNotifier(cfg, store, logger, notifier)
	mgr.ConfigureStages(workflow.StageSet{
		Planner:   planner,
		Composer:  compose,
		Renderer:  renderer,
		Publisher: uploader,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("manager.Start: %v", err)
	}
	t.Cleanup(func() { mgr.Stop() })

	item := testsupport.NewNeed(t, store, "想要一首很癫又可爱的哈基米电音", "", "")
	updated := waitForStatus(t, store, item.ID, queue.StatusCompleted, 120*time.Second)

	planned, err := plan.Parse(updated.PlanJSON)
	if err != nil {
		t.Fatalf("parse stored plan: %v", err)
	}
	if planned.Source != plan.SourceLLM {
		t.Fatalf("expected llm plan source, got %q", planned.Source)
	}
	if updated.Title != "哈基米狂想曲" {
		t.Fatalf("expected service title, got %q", updated.Title)
	}

	if updated.AudioFile == "" {
		t.Fatal("expected audio artifact path")
	}
	if _, err := os.Stat(updated.AudioFile); err != nil {
		t.Fatalf("audio artifact missing: %v", err)
	}
	if updated.CoverFile == "" {
		t.Fatal("expected cover artifact path")
	}
	if updated.VideoFile == "" {
		t.Fatal("expected video artifact path")
	}
	if _, err := os.Stat(updated.VideoFile); err != nil {
		t.Fatalf("video artifact missing: %v", err)
	}
	if updated.PublishRef != "BV1hakimi42" {
		t.Fatalf("expected publish ref from uploader output, got %q", updated.PublishRef)
	}
	if updated.ItemLogPath == "" {
		t.Fatal("expected item log path")
	}
	if _, err := os.Stat(updated.ItemLogPath); err != nil {
		t.Fatalf("item log missing: %v", err)
	}

	uploadMu.Lock()
	captured := append([]string(nil), uploadArgs...)
	uploadMu.Unlock()
	if len(captured) == 0 {
		t.Fatal("expected uploader invocation")
	}
	if got := integrationFlagValue(t, captured, "--video"); got != updated.VideoFile {
		t.Fatalf("expected rendered video handed to uploader, got %q", got)
	}
	if got := integrationFlagValue(t, captured, "--title"); got != "【哈基米】哈基米狂想曲" {
		t.Fatalf("expected branded upload title, got %q", got)
	}
	desc := integrationFlagValue(t, captured, "--desc")
	if !strings.Contains(desc, "原始需求：想要一首很癫又可爱的哈基米电音") {
		t.Fatalf("expected request in upload description, got %q", desc)
	}

	for _, event := range []notifications.Event{
		notifications.EventPromptReady,
		notifications.EventTrackComposed,
		notifications.EventVideoRendered,
		notifications.EventTrackPublished,
	} {
		if got := notifier.count(event); got != 1 {
			t.Fatalf("expected one %s notification, got %d", event, got)
		}
	}
	waitForEvent(t, notifier, notifications.EventQueueCompleted, 10*time.Second)
}
