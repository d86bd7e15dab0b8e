package api

import (
	"testing"
	"time"

	"hakimi/internal/logging"
	"hakimi/internal/queue"
	"hakimi/internal/stage"
	"hakimi/internal/workflow"
)

func TestFromQueueItemMapsFields(t *testing.T) {
	created := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	item := &queue.Item{
		ID:              7,
		Need:            "哈基米猫猫进行曲",
		Title:           "Hakimi March",
		Tags:            "electronic, cute",
		Status:          queue.StatusComposed,
		PlanJSON:        `{"music_prompt_en":"playful cat march","style_tags":["electronic","cute"],"source":"llm"}`,
		ResultJSON:      `{"audio_path":"/tmp/track.mp3","title":"Hakimi March","duration":42.5,"clip_id":"clip-1"}`,
		AudioFile:       "/tmp/track.mp3",
		CoverFile:       "/tmp/cover.jpg",
		CreatedAt:       created,
		UpdatedAt:       created.Add(time.Minute),
		ProgressStage:   "Composing",
		ProgressPercent: 100,
		ProgressMessage: "Track downloaded",
	}

	dto := FromQueueItem(item)
	if dto.ID != 7 {
		t.Fatalf("expected id 7, got %d", dto.ID)
	}
	if dto.Need != "哈基米猫猫进行曲" {
		t.Fatalf("unexpected need: %q", dto.Need)
	}
	if dto.Status != "composed" {
		t.Fatalf("expected status composed, got %q", dto.Status)
	}
	if dto.ProcessingLane != string(queue.LaneBackground) {
		t.Fatalf("expected background lane, got %q", dto.ProcessingLane)
	}
	if dto.NeedsReview {
		t.Fatal("expected needsReview false for composed item")
	}
	if dto.CreatedAt != "2026-03-14T09:26:53.000Z" {
		t.Fatalf("unexpected createdAt: %q", dto.CreatedAt)
	}
	if dto.Progress.Percent != 100 || dto.Progress.Stage != "Composing" {
		t.Fatalf("unexpected progress: %+v", dto.Progress)
	}
	if dto.Plan == nil {
		t.Fatal("expected plan summary")
	}
	if dto.Plan.PromptEN != "playful cat march" || dto.Plan.Source != "llm" {
		t.Fatalf("unexpected plan summary: %+v", dto.Plan)
	}
	if len(dto.Plan.StyleTags) != 2 || dto.Plan.StyleTags[0] != "electronic" {
		t.Fatalf("unexpected style tags: %v", dto.Plan.StyleTags)
	}
	if dto.Track == nil {
		t.Fatal("expected track details")
	}
	if dto.Track.ClipID != "clip-1" || dto.Track.Duration != 42.5 {
		t.Fatalf("unexpected track details: %+v", dto.Track)
	}
}

func TestFromQueueItemReviewDerivation(t *testing.T) {
	item := &queue.Item{ID: 3, Need: "demo", Status: queue.StatusReview, ReviewReason: "uploader missing"}
	dto := FromQueueItem(item)
	if !dto.NeedsReview {
		t.Fatal("expected needsReview true for review status")
	}
	if dto.ReviewReason != "uploader missing" {
		t.Fatalf("unexpected review reason: %q", dto.ReviewReason)
	}
	if dto.Plan != nil || dto.Track != nil {
		t.Fatal("expected no plan or track summaries for blank payloads")
	}
}

func TestFromQueueItemToleratesMalformedPayloads(t *testing.T) {
	item := &queue.Item{ID: 4, Need: "demo", Status: queue.StatusPending, PlanJSON: "{not json", ResultJSON: "also not json"}
	dto := FromQueueItem(item)
	if dto.Plan != nil {
		t.Fatalf("expected nil plan for malformed payload, got %+v", dto.Plan)
	}
	if dto.Track != nil {
		t.Fatalf("expected nil track for malformed payload, got %+v", dto.Track)
	}
}

func TestFromStatusSummarySortsStageHealth(t *testing.T) {
	summary := workflow.StatusSummary{
		Running:    true,
		QueueStats: map[queue.Status]int{queue.StatusPending: 2, queue.StatusFailed: 1},
		StageHealth: map[string]stage.Health{
			"renderer": {Name: "renderer", Ready: true},
			"composer": {Name: "composer", Ready: false, Detail: "missing api key"},
			"planner":  {Name: "planner", Ready: true},
		},
	}

	wf := FromStatusSummary(summary)
	if !wf.Running {
		t.Fatal("expected running workflow")
	}
	if wf.QueueStats["pending"] != 2 || wf.QueueStats["failed"] != 1 {
		t.Fatalf("unexpected queue stats: %v", wf.QueueStats)
	}
	names := make([]string, 0, len(wf.StageHealth))
	for _, h := range wf.StageHealth {
		names = append(names, h.Name)
	}
	if len(names) != 3 || names[0] != "composer" || names[1] != "planner" || names[2] != "renderer" {
		t.Fatalf("expected sorted stage health names, got %v", names)
	}
	if wf.StageHealth[0].Detail != "missing api key" {
		t.Fatalf("unexpected composer detail: %q", wf.StageHealth[0].Detail)
	}
}

func TestFromLogEventsCopiesDetails(t *testing.T) {
	now := time.Now().UTC()
	events := []logging.LogEvent{
		{
			Sequence:  12,
			Timestamp: now,
			Level:     "INFO",
			Message:   "stage completed",
			Component: "composer",
			Stage:     "composer",
			ItemID:    5,
			Lane:      "foreground",
			Details:   []logging.DetailField{{Label: "duration", Value: "42s"}},
		},
	}

	out := FromLogEvents(events)
	if len(out) != 1 {
		t.Fatalf("expected 1 event, got %d", len(out))
	}
	if out[0].Sequence != 12 || out[0].Message != "stage completed" {
		t.Fatalf("unexpected event: %+v", out[0])
	}
	if len(out[0].Details) != 1 || out[0].Details[0].Label != "duration" {
		t.Fatalf("unexpected details: %+v", out[0].Details)
	}
	if FromLogEvents(nil) != nil {
		t.Fatal("expected nil for empty input")
	}
}

func TestFormatTime(t *testing.T) {
	if got := FormatTime(time.Time{}); got != "" {
		t.Fatalf("expected empty string for zero time, got %q", got)
	}
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if got := FormatTime(ts); got != "2026-01-02T03:04:05.000Z" {
		t.Fatalf("unexpected formatted time: %q", got)
	}
}
