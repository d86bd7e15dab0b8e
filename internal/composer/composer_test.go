package composer_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"hakimi/internal/composer"
	"hakimi/internal/logging"
	"hakimi/internal/notifications"
	"hakimi/internal/plan"
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

func mustPlanJSON(t *testing.T) string {
	t.Helper()
	encoded, err := plan.Plan{
		MusicPromptEN: "High energy cute meme electronic J-pop, high-pitched anime idol vocal.",
		StyleTags:     []string{"electronic", "meme"},
		Source:        plan.SourceLLM,
	}.Encode()
	if err != nil {
		t.Fatalf("encode plan: %v", err)
	}
	return encoded
}

type capturedCreate struct {
	CustomMode        bool   `json:"custom_mode"`
	DescriptionPrompt string `json:"gpt_description_prompt"`
	MakeInstrumental  bool   `json:"make_instrumental"`
	ModelVersion      string `json:"mv"`
}

// newSunoServer serves the create, status, and artifact endpoints. The status
// handler is supplied per test.
func newSunoServer(t *testing.T, status http.HandlerFunc) (*httptest.Server, *capturedCreate) {
	t.Helper()
	captured := &capturedCreate{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/suno/create", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(captured); err != nil {
			t.Errorf("decode create payload: %v", err)
		}
		fmt.Fprint(w, `{"message":"success","task_id":"task-1"}`)
	})
	mux.HandleFunc("/api/v1/suno/task/task-1", status)
	mux.HandleFunc("/files/audio.mp3", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ID3 fake audio payload"))
	})
	mux.HandleFunc("/files/cover.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("\xff\xd8 fake cover"))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, captured
}

func succeededClipBody(serverURL string) string {
	return fmt.Sprintf(`{"code":200,"data":[{"clip_id":"clip-1","state":"succeeded","audio_url":%q,"image_url":%q,"title":"哈基米狂想曲","tags":"electronic meme","duration":108}]}`,
		serverURL+"/files/audio.mp3", serverURL+"/files/cover.jpg")
}

func TestComposerGeneratesTrack(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	var server *httptest.Server
	server, captured := newSunoServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, succeededClipBody(server.URL))
	})
	cfg.Suno.BaseURL = server.URL

	notifier := &stubNotifier{}
	handler := composer.NewComposerWithDependencies(cfg, store, logging.NewNop(), notifier)

	item := testsupport.NewNeed(t, store, "想要一首很癫又可爱的哈基米电音", "", "")
	item.PlanJSON = mustPlanJSON(t)
	if err := handler.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if captured.CustomMode {
		t.Fatal("expected description mode submission")
	}
	if !strings.Contains(captured.DescriptionPrompt, "electronic J-pop") {
		t.Fatalf("unexpected description prompt: %q", captured.DescriptionPrompt)
	}
	if captured.ModelVersion != "chirp-v4" {
		t.Fatalf("unexpected model version: %q", captured.ModelVersion)
	}

	wantAudio := filepath.Join(cfg.MusicDir(), "hakimi_track.mp3")
	if item.AudioFile != wantAudio {
		t.Fatalf("expected audio at %q, got %q", wantAudio, item.AudioFile)
	}
	if _, err := os.Stat(item.AudioFile); err != nil {
		t.Fatalf("expected audio artifact on disk: %v", err)
	}
	if item.CoverFile == "" {
		t.Fatal("expected cover artifact path")
	}
	if _, err := os.Stat(item.CoverFile); err != nil {
		t.Fatalf("expected cover artifact on disk: %v", err)
	}
	if item.Title != "哈基米狂想曲" {
		t.Fatalf("expected service title on item, got %q", item.Title)
	}

	var result suno.Result
	if err := json.Unmarshal([]byte(item.ResultJSON), &result); err != nil {
		t.Fatalf("decode stored result: %v", err)
	}
	if result.ClipID != "clip-1" || result.Duration != 108 {
		t.Fatalf("unexpected stored result: %+v", result)
	}

	if item.ProgressPercent != 100 {
		t.Fatalf("expected complete progress, got %v", item.ProgressPercent)
	}
	if !strings.Contains(item.ProgressMessage, "Track composed") {
		t.Fatalf("unexpected progress message: %q", item.ProgressMessage)
	}
	if len(notifier.events) != 1 || notifier.events[0] != notifications.EventTrackComposed {
		t.Fatalf("unexpected notifications: %v", notifier.events)
	}
	if notifier.last["title"] != "哈基米狂想曲" || notifier.last["duration"] != "108s" {
		t.Fatalf("unexpected notification payload: %v", notifier.last)
	}
}

func TestComposerKeepsRequestTitle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	var server *httptest.Server
	server, _ = newSunoServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, succeededClipBody(server.URL))
	})
	cfg.Suno.BaseURL = server.URL

	handler := composer.NewComposerWithDependencies(cfg, store, logging.NewNop(), nil)

	item := testsupport.NewNeed(t, store, "来一首哈基米进行曲", "我的进行曲", "")
	item.PlanJSON = mustPlanJSON(t)
	if err := handler.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if item.Title != "我的进行曲" {
		t.Fatalf("expected request title preserved, got %q", item.Title)
	}
	if got := filepath.Base(item.AudioFile); got != "我的进行曲.mp3" {
		t.Fatalf("expected slugged filename from title, got %q", got)
	}
}

func TestComposerSurfacesPollProgress(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	item := &queue.Item{}

	var server *httptest.Server
	var mu sync.Mutex
	statusCalls := 0
	server, _ = newSunoServer(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		statusCalls++
		calls := statusCalls
		mu.Unlock()
		if calls == 1 {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		stored, err := store.GetByID(r.Context(), item.ID)
		if err != nil {
			t.Errorf("load item mid-poll: %v", err)
		} else if !strings.Contains(stored.ProgressMessage, "Composing (waited") {
			t.Errorf("expected composing progress mid-poll, got %q", stored.ProgressMessage)
		}
		fmt.Fprint(w, succeededClipBody(server.URL))
	})
	cfg.Suno.BaseURL = server.URL

	handler := composer.NewComposerWithDependencies(cfg, store, logging.NewNop(), nil,
		suno.WithSleeper(func(time.Duration) {}))

	created := testsupport.NewNeed(t, store, "一首要等很久的哈基米", "", "")
	*item = *created
	item.PlanJSON = mustPlanJSON(t)
	if err := handler.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if statusCalls != 2 {
		t.Fatalf("expected 2 status calls, got %d", statusCalls)
	}
}

func TestComposerFailedJobFailsItem(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	server, _ := newSunoServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":200,"data":[{"clip_id":"clip-1","state":"failed"}]}`)
	})
	cfg.Suno.BaseURL = server.URL

	handler := composer.NewComposerWithDependencies(cfg, store, logging.NewNop(), nil)

	item := testsupport.NewNeed(t, store, "注定失败的哈基米", "", "")
	item.PlanJSON = mustPlanJSON(t)
	if err := handler.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	err := handler.Execute(context.Background(), item)
	if err == nil {
		t.Fatal("expected execute error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if status := services.FailureStatus(err); status != queue.StatusFailed {
		t.Fatalf("expected failed status, got %s", status)
	}
}

func TestComposerPollBudgetMapsToTimeout(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	server, _ := newSunoServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	cfg.Suno.BaseURL = server.URL
	cfg.Suno.MaxWaitSeconds = 1

	clockCalls := 0
	handler := composer.NewComposerWithDependencies(cfg, store, logging.NewNop(), nil,
		suno.WithSleeper(func(time.Duration) {}),
		suno.WithClock(func() time.Time {
			now := time.Unix(1700000000, 0).Add(time.Duration(clockCalls) * 600 * time.Millisecond)
			clockCalls++
			return now
		}),
	)

	item := testsupport.NewNeed(t, store, "永远在排队的哈基米", "", "")
	item.PlanJSON = mustPlanJSON(t)
	if err := handler.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	err := handler.Execute(context.Background(), item)
	if err == nil {
		t.Fatal("expected execute error")
	}
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if status := services.FailureStatus(err); status != queue.StatusFailed {
		t.Fatalf("expected failed status, got %s", status)
	}
}

func TestComposerContinuesWithoutCover(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/suno/create", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"message":"success","task_id":"task-1"}`)
	})
	mux.HandleFunc("/api/v1/suno/task/task-1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, succeededClipBody(server.URL))
	})
	mux.HandleFunc("/files/audio.mp3", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ID3 fake audio payload"))
	})
	mux.HandleFunc("/files/cover.jpg", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	cfg.Suno.BaseURL = server.URL

	handler := composer.NewComposerWithDependencies(cfg, store, logging.NewNop(), nil)

	item := testsupport.NewNeed(t, store, "没有封面的哈基米", "", "")
	item.PlanJSON = mustPlanJSON(t)
	if err := handler.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if item.CoverFile != "" {
		t.Fatalf("expected no cover path, got %q", item.CoverFile)
	}
	if !strings.Contains(item.ProgressMessage, "No cover art") {
		t.Fatalf("unexpected progress message: %q", item.ProgressMessage)
	}
}

func TestComposerRequiresPlan(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	handler := composer.NewComposerWithDependencies(cfg, store, logging.NewNop(), nil)

	item := testsupport.NewNeed(t, store, "还没规划的哈基米", "", "")
	err := handler.Prepare(context.Background(), item)
	if err == nil {
		t.Fatal("expected prepare error")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if status := services.FailureStatus(err); status != queue.StatusReview {
		t.Fatalf("expected review status, got %s", status)
	}
}

func TestComposerRequiresAPIKey(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSunoKey(""))
	store := testsupport.MustOpenStore(t, cfg)

	handler := composer.NewComposerWithDependencies(cfg, store, logging.NewNop(), nil)

	item := testsupport.NewNeed(t, store, "没有钥匙的哈基米", "", "")
	item.PlanJSON = mustPlanJSON(t)
	err := handler.Prepare(context.Background(), item)
	if err == nil {
		t.Fatal("expected prepare error")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestComposerHealthCheck(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ready := composer.NewComposerWithDependencies(cfg, store, logging.NewNop(), nil)
	if health := ready.HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected healthy stage, got %+v", health)
	}

	bare := testsupport.NewConfig(t, testsupport.WithSunoKey(""))
	unready := composer.NewComposerWithDependencies(bare, store, logging.NewNop(), nil)
	if health := unready.HealthCheck(context.Background()); health.Ready {
		t.Fatal("expected unhealthy stage without api key")
	}
}
