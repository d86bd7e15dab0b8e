package api

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"hakimi/internal/composer"
	"hakimi/internal/config"
	"hakimi/internal/corpus"
	"hakimi/internal/logging"
	"hakimi/internal/notifications"
	"hakimi/internal/prompting"
	"hakimi/internal/queue"
	"hakimi/internal/render"
	"hakimi/internal/services"
	"hakimi/internal/services/llm"
	"hakimi/internal/stageexec"
)

type GenerateTrackRequest struct {
	Config *config.Config
	Logger *slog.Logger
	Need   string
	Title  string
	Tags   string
	// SkipVideo stops the run after the track is composed.
	SkipVideo bool
}

type GenerateTrackResult struct {
	Item *queue.Item
}

type GenerateAssessment struct {
	Title          string
	PromptSource   string
	AudioFile      string
	VideoFile      string
	PlanPresent    bool
	ReviewRequired bool
	ReviewReason   string
	Outcome        string
	OutcomeMessage string
}

// AssessGenerate derives CLI-facing generation outcomes from queue state.
func AssessGenerate(item *queue.Item) GenerateAssessment {
	if item == nil {
		return GenerateAssessment{
			Title:          "Unknown",
			Outcome:        "failed",
			OutcomeMessage: "❌ Generation failed. Check the logs above for details.",
		}
	}

	assessment := GenerateAssessment{
		Title:          strings.TrimSpace(item.Title),
		AudioFile:      strings.TrimSpace(item.AudioFile),
		VideoFile:      strings.TrimSpace(item.VideoFile),
		ReviewRequired: item.Status == queue.StatusReview,
		ReviewReason:   strings.TrimSpace(item.ReviewReason),
	}
	if summary := planSummaryFromJSON(item.PlanJSON); summary != nil {
		assessment.PlanPresent = true
		assessment.PromptSource = summary.Source
	}
	if details := trackDetailsFromJSON(item.ResultJSON); details != nil && assessment.Title == "" {
		assessment.Title = details.Title
	}
	if assessment.Title == "" {
		assessment.Title = "Unknown"
	}

	switch {
	case item.Status == queue.StatusCompleted:
		assessment.Outcome = "success"
		assessment.OutcomeMessage = "🎵 Track generated! Artifacts are listed above."
	case assessment.ReviewRequired:
		assessment.Outcome = "review"
		assessment.OutcomeMessage = "⚠️  Generation requires manual review. Check the logs above for details."
	default:
		assessment.Outcome = "failed"
		assessment.OutcomeMessage = "❌ Generation failed. Check the logs above for details."
	}

	return assessment
}

// GenerateTrack runs the plan, compose, and render stages in the foreground
// without a daemon. The queue item is persisted like any daemon-processed
// request, so a later `queue list` shows the run and retry semantics apply.
func GenerateTrack(ctx context.Context, req GenerateTrackRequest) (GenerateTrackResult, error) {
	cfg := req.Config
	if cfg == nil {
		return GenerateTrackResult{}, fmt.Errorf("configuration is required")
	}
	logger := req.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	need := strings.TrimSpace(req.Need)
	if need == "" {
		return GenerateTrackResult{}, fmt.Errorf("a track request is required")
	}

	store, err := queue.Open(cfg)
	if err != nil {
		return GenerateTrackResult{}, fmt.Errorf("open queue store: %w", err)
	}
	defer store.Close()

	item, err := store.NewNeed(ctx, need, req.Title, req.Tags)
	if err != nil {
		return GenerateTrackResult{}, fmt.Errorf("create queue item: %w", err)
	}
	result := GenerateTrackResult{Item: item}
	baseCtx := services.WithItemID(ctx, item.ID)

	notifier := notifications.NewService(cfg)
	llmCfg := cfg.GetLLM()
	client := llm.NewClient(llm.Config{
		APIKey:         llmCfg.APIKey,
		BaseURL:        llmCfg.BaseURL,
		Model:          llmCfg.Model,
		Temperature:    llmCfg.Temperature,
		MaxTokens:      llmCfg.MaxTokens,
		TimeoutSeconds: llmCfg.TimeoutSeconds,
	})
	planner := prompting.NewPlanner(cfg, store, client, corpus.NewStore(cfg.Paths.CorpusFile), notifier, logger)

	if err := stageexec.Run(baseCtx, stageexec.Options{
		Logger:     logger,
		Store:      store,
		Notifier:   notifier,
		Handler:    planner,
		StageName:  "planner",
		Processing: queue.StatusPrompting,
		Done:       queue.StatusPrompted,
		Item:       item,
	}); err != nil {
		return result, err
	}
	if item.IsTerminal() {
		return result, nil
	}

	composeDone := queue.StatusComposed
	if req.SkipVideo {
		composeDone = queue.StatusCompleted
	}
	if err := stageexec.Run(baseCtx, stageexec.Options{
		Logger:     logger,
		Store:      store,
		Notifier:   notifier,
		Handler:    composer.NewComposerWithDependencies(cfg, store, logger, notifier),
		StageName:  "composer",
		Processing: queue.StatusComposing,
		Done:       composeDone,
		Item:       item,
	}); err != nil {
		return result, err
	}
	if item.IsTerminal() {
		return result, nil
	}

	if err := stageexec.Run(baseCtx, stageexec.Options{
		Logger:     logger,
		Store:      store,
		Notifier:   notifier,
		Handler:    render.NewRendererWithDependencies(cfg, store, logger, notifier),
		StageName:  "renderer",
		Processing: queue.StatusRendering,
		Done:       queue.StatusCompleted,
		Item:       item,
	}); err != nil {
		return result, err
	}

	return result, nil
}
