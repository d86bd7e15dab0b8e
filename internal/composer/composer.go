package composer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"hakimi/internal/config"
	"hakimi/internal/logging"
	"hakimi/internal/notifications"
	"hakimi/internal/plan"
	"hakimi/internal/queue"
	"hakimi/internal/services"
	"hakimi/internal/services/suno"
	"hakimi/internal/stage"
)

const (
	progressStageComposing = "Composing"
	progressPercentSubmit  = 5.0
	progressPercentPollMin = 10.0
	progressPercentPollMax = 90.0
)

// Composer drives the remote music generation service for queued items.
type Composer struct {
	store    *queue.Store
	cfg      *config.Config
	notifier notifications.Service
	logger   *slog.Logger
	// clientOpts are appended to every generation client built by Execute.
	// Tests inject clocks and sleepers here.
	clientOpts []suno.Option
}

// NewComposer constructs the workflow stage that runs music generation.
func NewComposer(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Composer {
	return NewComposerWithDependencies(cfg, store, logger, notifications.NewService(cfg))
}

// NewComposerWithDependencies allows injecting custom dependencies (used for tests).
func NewComposerWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service, clientOpts ...suno.Option) *Composer {
	return &Composer{
		store:      store,
		cfg:        cfg,
		notifier:   notifier,
		logger:     logging.NewComponentLogger(logger, "composer"),
		clientOpts: clientOpts,
	}
}

// SetLogger allows the workflow manager to route stage logs into the item-scoped log.
func (c *Composer) SetLogger(logger *slog.Logger) {
	if c == nil {
		return
	}
	c.logger = logging.NewComponentLogger(logger, "composer")
}

// Prepare validates the stored plan and service configuration, then primes
// queue progress fields.
func (c *Composer) Prepare(ctx context.Context, item *queue.Item) error {
	if c == nil || c.cfg == nil {
		return services.Wrap(services.ErrConfiguration, "composer", "prepare", "Composing stage is not configured", nil)
	}
	if c.store == nil {
		return services.Wrap(services.ErrConfiguration, "composer", "prepare", "Queue store unavailable", nil)
	}
	if strings.TrimSpace(c.cfg.Suno.APIKey) == "" {
		return services.Wrap(services.ErrConfiguration, "composer", "prepare", "Music service API key is not configured", nil)
	}
	planned, err := plan.Parse(item.PlanJSON)
	if err != nil {
		return services.Wrap(services.ErrValidation, "composer", "prepare", "Stored prompt plan is unreadable", err)
	}
	if planned.IsZero() {
		return services.Wrap(services.ErrValidation, "composer", "prepare", "Queue item has no prompt plan", nil)
	}
	item.InitProgress(progressStageComposing, "Preparing generation request")
	return c.store.UpdateProgress(ctx, item)
}

// Execute submits the generation job, rides out the poll, and persists the
// downloaded artifacts on the queue item.
func (c *Composer) Execute(ctx context.Context, item *queue.Item) error {
	stageStart := time.Now()

	if c == nil || c.cfg == nil {
		return services.Wrap(services.ErrConfiguration, "composer", "execute", "Composing stage is not configured", nil)
	}
	if item == nil {
		return services.Wrap(services.ErrValidation, "composer", "execute", "Queue item is nil", nil)
	}
	if c.store == nil {
		return services.Wrap(services.ErrConfiguration, "composer", "execute", "Queue store unavailable", nil)
	}

	planned, err := plan.Parse(item.PlanJSON)
	if err != nil {
		return services.Wrap(services.ErrValidation, "composer", "execute", "Stored prompt plan is unreadable", err)
	}
	if planned.IsZero() {
		return services.Wrap(services.ErrValidation, "composer", "execute", "Queue item has no prompt plan", nil)
	}

	logger := logging.WithContext(ctx, c.logger)
	logger.Debug("starting composition", logging.String("plan_source", planned.Source))

	if err := c.updateProgress(ctx, item, "Submitting generation request", progressPercentSubmit); err != nil {
		return err
	}

	req := suno.Request{
		Description: planned.Prompt(),
		Title:       strings.TrimSpace(item.Title),
		Tags:        planned.Tags(suno.DefaultTags()),
	}
	maxWait := time.Duration(c.cfg.Suno.MaxWaitSeconds) * time.Second
	interval := time.Duration(c.cfg.Suno.PollIntervalSeconds) * time.Second

	opts := []suno.Option{
		suno.WithLogger(c.logger),
		suno.WithPollObserver(c.pollObserver(ctx, logger, item, maxWait)),
	}
	opts = append(opts, c.clientOpts...)
	client := suno.New(suno.Config{
		APIKey:    c.cfg.Suno.APIKey,
		BaseURL:   c.cfg.Suno.BaseURL,
		Model:     c.cfg.Suno.Model,
		OutputDir: c.cfg.MusicDir(),
	}, opts...)

	result, err := client.Generate(ctx, req, maxWait, interval)
	if err != nil {
		return wrapGenerateError(err)
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return services.Wrap(services.ErrValidation, "composer", "encode result",
			"Failed to serialise the generation result", err)
	}
	item.ResultJSON = string(encoded)
	item.AudioFile = result.AudioPath
	item.CoverFile = result.CoverPath
	if strings.TrimSpace(item.Title) == "" && result.Title != "" {
		item.Title = result.Title
	}

	item.ProgressStage = "Track composed"
	item.ProgressPercent = 100
	item.ProgressMessage = buildCompletionMessage(result)
	if err := c.store.UpdateProgress(ctx, item); err != nil {
		return services.Wrap(services.ErrTransient, "composer", "persist progress",
			"Failed to persist composition progress", err)
	}

	if c.notifier != nil {
		payload := notifications.Payload{"title": trackTitle(item, result)}
		if result.Duration > 0 {
			payload["duration"] = fmt.Sprintf("%.0fs", result.Duration)
		}
		if err := c.notifier.Publish(ctx, notifications.EventTrackComposed, payload); err != nil {
			logger.Warn("composition notification failed", logging.Error(err))
		}
	}

	logger.Info("composition stage summary",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", time.Since(stageStart)),
		logging.String("track_title", trackTitle(item, result)),
		logging.String("plan_source", planned.Source),
		logging.Bool("cover_saved", result.CoverPath != ""),
	)

	return nil
}

// HealthCheck reports readiness for the composing stage.
func (c *Composer) HealthCheck(ctx context.Context) stage.Health {
	const name = "composer"
	if c == nil || c.cfg == nil {
		return stage.Unhealthy(name, "stage not configured")
	}
	if c.store == nil {
		return stage.Unhealthy(name, "queue store unavailable")
	}
	if strings.TrimSpace(c.cfg.Suno.APIKey) == "" {
		return stage.Unhealthy(name, "music service api key missing")
	}
	return stage.Healthy(name)
}

// pollObserver surfaces long generation waits as item progress. The terminal
// observation is skipped; Execute persists the final state itself.
func (c *Composer) pollObserver(ctx context.Context, logger *slog.Logger, item *queue.Item, maxWait time.Duration) func(suno.PollProgress) {
	sampler := logging.NewProgressSampler(0)
	return func(p suno.PollProgress) {
		if p.State == suno.ClipStateSucceeded {
			return
		}
		updated := *item
		updated.ProgressStage = progressStageComposing
		updated.ProgressPercent = pollPercent(p.Elapsed, maxWait)
		updated.ProgressMessage = fmt.Sprintf("Composing (waited %s)", p.Elapsed.Round(time.Second))
		if sampler.ShouldLog(updated.ProgressPercent, p.State.String(), updated.ProgressMessage) {
			logger.Debug("composition poll",
				logging.String("clip_state", p.State.String()),
				logging.Int("attempt", p.Attempt),
				logging.Duration("elapsed", p.Elapsed),
			)
		}
		if err := c.store.UpdateProgress(ctx, &updated); err != nil {
			logger.Warn("failed to persist composing progress", logging.Error(err))
			return
		}
		*item = updated
	}
}

// pollPercent maps wait time onto a 10..90 band so queue listings show
// movement while the service works.
func pollPercent(elapsed, maxWait time.Duration) float64 {
	if maxWait <= 0 || elapsed <= 0 {
		return progressPercentPollMin
	}
	fraction := float64(elapsed) / float64(maxWait)
	percent := progressPercentPollMin + (progressPercentPollMax-progressPercentPollMin)*fraction
	if percent > progressPercentPollMax {
		return progressPercentPollMax
	}
	return percent
}

func (c *Composer) updateProgress(ctx context.Context, item *queue.Item, message string, percent float64) error {
	item.ProgressStage = progressStageComposing
	if strings.TrimSpace(message) != "" {
		item.ProgressMessage = message
	}
	if percent >= 0 {
		item.ProgressPercent = percent
	}
	if err := c.store.UpdateProgress(ctx, item); err != nil {
		return services.Wrap(services.ErrTransient, "composer", "persist progress",
			"Failed to persist composition progress", err)
	}
	return nil
}

// wrapGenerateError classifies orchestration failures for the workflow
// manager. Generation failures are reported, not requeued; only validation
// and configuration classes route to review.
func wrapGenerateError(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, suno.ErrNotConfigured):
		return services.Wrap(services.ErrConfiguration, "composer", "generate",
			"Music service API key is missing", err)
	case errors.Is(err, suno.ErrPollTimeout):
		return services.Wrap(services.ErrTimeout, "composer", "generate",
			"Music generation did not finish within the poll budget", err)
	case errors.Is(err, suno.ErrJobFailed):
		return services.Wrap(services.ErrExternalTool, "composer", "generate",
			"The music service reported the generation job failed", err)
	default:
		return services.Wrap(services.ErrExternalTool, "composer", "generate",
			"Music generation request failed", err)
	}
}

func trackTitle(item *queue.Item, result suno.Result) string {
	if title := strings.TrimSpace(result.Title); title != "" {
		return title
	}
	if title := strings.TrimSpace(item.Title); title != "" {
		return title
	}
	return suno.DefaultTitle
}

func buildCompletionMessage(result suno.Result) string {
	parts := []string{"Track composed"}
	if title := strings.TrimSpace(result.Title); title != "" {
		parts = append(parts, title)
	}
	if result.Duration > 0 {
		parts = append(parts, fmt.Sprintf("%.0fs", result.Duration))
	}
	if result.CoverPath == "" {
		parts = append(parts, "No cover art")
	}
	return strings.Join(parts, " | ")
}
