package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
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
	"hakimi/internal/textutil"
)

const (
	progressStagePublishing = "Publishing"
	progressPercentLaunch   = 15.0

	// outputTailBytes bounds how much uploader output is attached to errors.
	outputTailBytes = 2048
)

// Publisher hands finished videos to the configured external uploader
// command together with the composed upload metadata.
type Publisher struct {
	store    *queue.Store
	cfg      *config.Config
	notifier notifications.Service
	logger   *slog.Logger
}

// NewPublisher constructs the workflow stage that runs the upload hand-off.
func NewPublisher(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Publisher {
	return NewPublisherWithDependencies(cfg, store, logger, notifications.NewService(cfg))
}

// NewPublisherWithDependencies allows injecting custom dependencies (used for tests).
func NewPublisherWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Publisher {
	return &Publisher{
		store:    store,
		cfg:      cfg,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "publisher"),
	}
}

// SetLogger allows the workflow manager to route stage logs into the item-scoped log.
func (p *Publisher) SetLogger(logger *slog.Logger) {
	if p == nil {
		return
	}
	p.logger = logging.NewComponentLogger(logger, "publisher")
}

// Prepare verifies the uploader is configured and the item carries a
// rendered video, then primes progress.
func (p *Publisher) Prepare(ctx context.Context, item *queue.Item) error {
	if p == nil || p.cfg == nil {
		return services.Wrap(services.ErrConfiguration, "publisher", "prepare", "Publishing stage is not configured", nil)
	}
	if p.store == nil {
		return services.Wrap(services.ErrConfiguration, "publisher", "prepare", "Queue store unavailable", nil)
	}
	if !p.cfg.Publisher.Enabled || strings.TrimSpace(p.cfg.Publisher.Command) == "" {
		return services.Wrap(services.ErrConfiguration, "publisher", "prepare", "No uploader command is configured", nil)
	}
	if strings.TrimSpace(item.VideoFile) == "" {
		return services.Wrap(services.ErrValidation, "publisher", "prepare", "Queue item has no rendered video", nil)
	}
	item.InitProgress(progressStagePublishing, "Preparing upload hand-off")
	return p.store.UpdateProgress(ctx, item)
}

// Execute composes the upload metadata, invokes the uploader command, and
// records the publish reference it reports.
func (p *Publisher) Execute(ctx context.Context, item *queue.Item) error {
	stageStart := time.Now()

	if p == nil || p.cfg == nil {
		return services.Wrap(services.ErrConfiguration, "publisher", "execute", "Publishing stage is not configured", nil)
	}
	if item == nil {
		return services.Wrap(services.ErrValidation, "publisher", "execute", "Queue item is nil", nil)
	}
	if p.store == nil {
		return services.Wrap(services.ErrConfiguration, "publisher", "execute", "Queue store unavailable", nil)
	}
	if !p.cfg.Publisher.Enabled || strings.TrimSpace(p.cfg.Publisher.Command) == "" {
		return services.Wrap(services.ErrConfiguration, "publisher", "execute", "No uploader command is configured", nil)
	}

	videoPath := strings.TrimSpace(item.VideoFile)
	if videoPath == "" {
		return services.Wrap(services.ErrValidation, "publisher", "execute", "Queue item has no rendered video", nil)
	}
	if _, err := os.Stat(videoPath); err != nil {
		return services.Wrap(services.ErrNotFound, "publisher", "execute", "Rendered video is missing from disk", err)
	}

	planned, err := plan.Parse(item.PlanJSON)
	if err != nil {
		return services.Wrap(services.ErrValidation, "publisher", "execute", "Stored prompt plan is unreadable", err)
	}
	trackTitle := strings.TrimSpace(item.Title)
	if trackTitle == "" {
		trackTitle = textutil.TitleFromPath(item.AudioFile, "")
	}
	meta := Compose(item.Need, planned.MusicPromptEN, trackTitle, trackDuration(item))

	logger := logging.WithContext(ctx, p.logger)

	if err := p.updateProgress(ctx, item, "Publishing video", progressPercentLaunch); err != nil {
		return err
	}

	name, args := uploaderInvocation(p.cfg.Publisher.Command, videoPath, item.CoverFile, meta)

	publishCtx := ctx
	if p.cfg.Publisher.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		publishCtx, cancel = context.WithTimeout(ctx, time.Duration(p.cfg.Publisher.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	logger.Info("launching uploader command",
		logging.String("command", name),
		logging.String("video_file", videoPath))

	output, err := commandContext(publishCtx, name, args...).CombinedOutput()
	if err != nil {
		if publishCtx.Err() != nil && ctx.Err() == nil {
			return services.Wrap(services.ErrTimeout, "publisher", "uploader",
				"Upload hand-off did not finish within the configured timeout", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		combined := fmt.Errorf("%w: %s", err, outputTail(output))
		return services.Wrap(services.ErrExternalTool, "publisher", "uploader",
			"Uploader command failed", combined)
	}

	ref := lastOutputLine(output)
	item.PublishRef = ref

	item.ProgressStage = "Track published"
	item.ProgressPercent = 100
	item.ProgressMessage = buildCompletionMessage(meta.Title, ref)
	if err := p.store.UpdateProgress(ctx, item); err != nil {
		return services.Wrap(services.ErrTransient, "publisher", "persist progress",
			"Failed to persist publish progress", err)
	}

	if p.notifier != nil {
		payload := notifications.Payload{"publishTitle": meta.Title}
		if ref != "" {
			payload["ref"] = ref
		}
		if err := p.notifier.Publish(ctx, notifications.EventTrackPublished, payload); err != nil {
			logger.Warn("publish notification failed", logging.Error(err))
		}
	}

	logger.Info("publish stage summary",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", time.Since(stageStart)),
		logging.String("publish_title", meta.Title),
		logging.Bool("ref_captured", ref != ""),
	)

	return nil
}

// HealthCheck reports readiness for the publishing stage. A disabled
// publisher is healthy; the hand-off is optional.
func (p *Publisher) HealthCheck(ctx context.Context) stage.Health {
	const name = "publisher"
	if p == nil || p.cfg == nil {
		return stage.Unhealthy(name, "stage not configured")
	}
	if p.store == nil {
		return stage.Unhealthy(name, "queue store unavailable")
	}
	if !p.cfg.Publisher.Enabled {
		return stage.Healthy(name)
	}
	fields := strings.Fields(p.cfg.Publisher.Command)
	if len(fields) == 0 {
		return stage.Unhealthy(name, "uploader command not configured")
	}
	if _, err := exec.LookPath(fields[0]); err != nil {
		return stage.Unhealthy(name, "uploader command not found")
	}
	return stage.Healthy(name)
}

// uploaderInvocation splits the configured command on whitespace and appends
// the artifact paths and metadata flags.
func uploaderInvocation(command, videoPath, coverPath string, meta Metadata) (string, []string) {
	fields := strings.Fields(command)
	name := fields[0]
	args := append([]string(nil), fields[1:]...)
	args = append(args, "--video", videoPath)
	if cover := strings.TrimSpace(coverPath); cover != "" {
		args = append(args, "--cover", cover)
	}
	args = append(args,
		"--title", meta.Title,
		"--desc", meta.Description,
		"--tags", strings.Join(meta.Tags, ","),
	)
	return name, args
}

func (p *Publisher) updateProgress(ctx context.Context, item *queue.Item, message string, percent float64) error {
	item.ProgressStage = progressStagePublishing
	if strings.TrimSpace(message) != "" {
		item.ProgressMessage = message
	}
	if percent >= 0 {
		item.ProgressPercent = percent
	}
	if err := p.store.UpdateProgress(ctx, item); err != nil {
		return services.Wrap(services.ErrTransient, "publisher", "persist progress",
			"Failed to persist publish progress", err)
	}
	return nil
}

// trackDuration reads the composed track length from the stored generation
// result, tolerating absent or unreadable metadata.
func trackDuration(item *queue.Item) float64 {
	raw := strings.TrimSpace(item.ResultJSON)
	if raw == "" {
		return 0
	}
	var result suno.Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return 0
	}
	return result.Duration
}

// lastOutputLine extracts the uploader's publish reference: the last
// non-empty line of its combined output.
func lastOutputLine(output []byte) string {
	trimmed := strings.TrimSpace(string(output))
	if trimmed == "" {
		return ""
	}
	lines := strings.Split(trimmed, "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

func buildCompletionMessage(title, ref string) string {
	parts := []string{"Track published", title}
	if ref != "" {
		parts = append(parts, ref)
	}
	return strings.Join(parts, " | ")
}

// outputTail keeps the end of the uploader's combined output, where the
// actual failure reason lands.
func outputTail(output []byte) string {
	trimmed := strings.TrimSpace(string(output))
	if trimmed == "" {
		return "no output"
	}
	if len(trimmed) <= outputTailBytes {
		return trimmed
	}
	return "... " + trimmed[len(trimmed)-outputTailBytes:]
}
