package render

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"hakimi/internal/config"
	"hakimi/internal/logging"
	"hakimi/internal/notifications"
	"hakimi/internal/queue"
	"hakimi/internal/services"
	"hakimi/internal/services/suno"
	"hakimi/internal/stage"
	"hakimi/internal/textutil"
)

const (
	progressStageRendering = "Rendering"
	progressPercentLaunch  = 10.0
	progressPercentProbe   = 85.0

	defaultFPS = 24
	// durationTolerance is the allowed drift between the rendered video and
	// the source track, in seconds.
	durationTolerance = 2.0
	// outputTailBytes bounds how much ffmpeg output is attached to errors.
	outputTailBytes = 2048
)

// Renderer turns a composed track and its cover art into an upload-ready
// still-image video via ffmpeg.
type Renderer struct {
	store    *queue.Store
	cfg      *config.Config
	notifier notifications.Service
	logger   *slog.Logger
}

// NewRenderer constructs the workflow stage that renders videos.
func NewRenderer(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Renderer {
	return NewRendererWithDependencies(cfg, store, logger, notifications.NewService(cfg))
}

// NewRendererWithDependencies allows injecting custom dependencies (used for tests).
func NewRendererWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Renderer {
	return &Renderer{
		store:    store,
		cfg:      cfg,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "render"),
	}
}

// SetLogger allows the workflow manager to route stage logs into the item-scoped log.
func (r *Renderer) SetLogger(logger *slog.Logger) {
	if r == nil {
		return
	}
	r.logger = logging.NewComponentLogger(logger, "render")
}

// Prepare verifies the item carries a composed track and primes progress.
func (r *Renderer) Prepare(ctx context.Context, item *queue.Item) error {
	if r == nil || r.cfg == nil {
		return services.Wrap(services.ErrConfiguration, "render", "prepare", "Rendering stage is not configured", nil)
	}
	if r.store == nil {
		return services.Wrap(services.ErrConfiguration, "render", "prepare", "Queue store unavailable", nil)
	}
	if strings.TrimSpace(item.AudioFile) == "" {
		return services.Wrap(services.ErrValidation, "render", "prepare", "Queue item has no composed audio track", nil)
	}
	item.InitProgress(progressStageRendering, "Preparing video render")
	return r.store.UpdateProgress(ctx, item)
}

// Execute runs ffmpeg over the item's audio and cover art, validates the
// produced file with ffprobe, and records the video artifact.
func (r *Renderer) Execute(ctx context.Context, item *queue.Item) error {
	stageStart := time.Now()

	if r == nil || r.cfg == nil {
		return services.Wrap(services.ErrConfiguration, "render", "execute", "Rendering stage is not configured", nil)
	}
	if item == nil {
		return services.Wrap(services.ErrValidation, "render", "execute", "Queue item is nil", nil)
	}
	if r.store == nil {
		return services.Wrap(services.ErrConfiguration, "render", "execute", "Queue store unavailable", nil)
	}

	audioPath := strings.TrimSpace(item.AudioFile)
	if audioPath == "" {
		return services.Wrap(services.ErrValidation, "render", "execute", "Queue item has no composed audio track", nil)
	}
	if _, err := os.Stat(audioPath); err != nil {
		return services.Wrap(services.ErrNotFound, "render", "execute", "Composed audio track is missing from disk", err)
	}

	logger := logging.WithContext(ctx, r.logger)

	coverPath, err := r.resolveCover(item, logger)
	if err != nil {
		return err
	}

	if err := r.updateProgress(ctx, item, "Rendering video", progressPercentLaunch); err != nil {
		return err
	}

	videoDir := r.cfg.VideoDir()
	if err := os.MkdirAll(videoDir, 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "render", "create video dir", "Failed to create the video output directory", err)
	}
	outputPath := filepath.Join(videoDir, textutil.Slug(item.Title, "hakimi_video")+".mp4")

	fps := r.cfg.Render.FPS
	if fps <= 0 {
		fps = defaultFPS
	}
	args := ffmpegArgs(coverPath, audioPath, outputPath, fps)

	renderCtx := ctx
	if r.cfg.Render.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		renderCtx, cancel = context.WithTimeout(ctx, time.Duration(r.cfg.Render.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	ffmpegBin := r.cfg.FFmpegBinary()
	logger.Info("launching ffmpeg render",
		logging.String("command", ffmpegBin+" "+strings.Join(args, " ")))

	cmd := commandContext(renderCtx, ffmpegBin, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if renderCtx.Err() != nil && ctx.Err() == nil {
			return services.Wrap(services.ErrTimeout, "render", "ffmpeg",
				"Video render did not finish within the configured timeout", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		combined := fmt.Errorf("%w: %s", err, outputTail(output))
		return services.Wrap(services.ErrExternalTool, "render", "ffmpeg",
			"ffmpeg failed to render the video", combined)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "render", "ffmpeg",
			"ffmpeg exited cleanly but produced no output file", err)
	}

	if err := r.updateProgress(ctx, item, "Validating rendered video", progressPercentProbe); err != nil {
		return err
	}

	videoDuration, err := r.validateOutput(ctx, item, outputPath)
	if err != nil {
		return err
	}

	item.VideoFile = outputPath
	item.ProgressStage = "Video rendered"
	item.ProgressPercent = 100
	item.ProgressMessage = buildCompletionMessage(outputPath, videoDuration)
	if err := r.store.UpdateProgress(ctx, item); err != nil {
		return services.Wrap(services.ErrTransient, "render", "persist progress",
			"Failed to persist render progress", err)
	}

	if r.notifier != nil {
		payload := notifications.Payload{
			"title": renderTitle(item),
			"file":  filepath.Base(outputPath),
		}
		if err := r.notifier.Publish(ctx, notifications.EventVideoRendered, payload); err != nil {
			logger.Warn("render notification failed", logging.Error(err))
		}
	}

	logger.Info("render stage summary",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", time.Since(stageStart)),
		logging.String("track_title", renderTitle(item)),
		logging.Float64("video_duration", videoDuration),
		logging.Int64("video_bytes", info.Size()),
	)

	return nil
}

// HealthCheck reports readiness for the rendering stage.
func (r *Renderer) HealthCheck(ctx context.Context) stage.Health {
	const name = "render"
	if r == nil || r.cfg == nil {
		return stage.Unhealthy(name, "stage not configured")
	}
	if r.store == nil {
		return stage.Unhealthy(name, "queue store unavailable")
	}
	if _, err := exec.LookPath(r.cfg.FFmpegBinary()); err != nil {
		return stage.Unhealthy(name, "ffmpeg unavailable")
	}
	if _, err := exec.LookPath(r.cfg.FFprobeBinary()); err != nil {
		return stage.Unhealthy(name, "ffprobe unavailable")
	}
	return stage.Healthy(name)
}

// resolveCover picks the still frame for the video. Generated cover art wins;
// the configured fallback and then covers/cover.jpg back it up.
func (r *Renderer) resolveCover(item *queue.Item, logger *slog.Logger) (string, error) {
	if cover := strings.TrimSpace(item.CoverFile); cover != "" {
		if _, err := os.Stat(cover); err == nil {
			return cover, nil
		}
		logger.Warn("generated cover art missing from disk",
			logging.String(logging.FieldEventType, "cover_missing"),
			logging.String("cover_path", cover),
			logging.String(logging.FieldErrorHint, "the fallback cover will be used instead"))
	}
	if fallback := strings.TrimSpace(r.cfg.Render.FallbackCover); fallback != "" {
		if _, err := os.Stat(fallback); err == nil {
			logger.Debug("cover source selected",
				logging.Args(logging.DecisionAttrs("cover_source", "configured_fallback", "no generated cover art on the item")...)...)
			return fallback, nil
		}
	}
	if dir := strings.TrimSpace(r.cfg.Paths.CoversDir); dir != "" {
		candidate := filepath.Join(dir, "cover.jpg")
		if _, err := os.Stat(candidate); err == nil {
			logger.Debug("cover source selected",
				logging.Args(logging.DecisionAttrs("cover_source", "covers_dir_default", "no generated or configured cover art")...)...)
			return candidate, nil
		}
	}
	return "", services.Wrap(services.ErrNotFound, "render", "resolve cover",
		"No cover art available; place cover.jpg in the covers directory or set render.fallback_cover", nil)
}

// validateOutput probes the rendered file and checks it holds both streams
// with a duration close to the composed track.
func (r *Renderer) validateOutput(ctx context.Context, item *queue.Item, outputPath string) (float64, error) {
	probed, err := renderProbe(ctx, r.cfg.FFprobeBinary(), outputPath)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, services.Wrap(services.ErrExternalTool, "render", "ffprobe",
			"Rendered video failed ffprobe inspection", err)
	}
	if probed.VideoStreamCount() == 0 || probed.AudioStreamCount() == 0 {
		return 0, services.Wrap(services.ErrExternalTool, "render", "validate",
			"Rendered video is missing a video or audio stream", nil)
	}
	videoDuration := probed.DurationSeconds()
	if videoDuration <= 0 {
		return 0, services.Wrap(services.ErrExternalTool, "render", "validate",
			"Rendered video reports no duration", nil)
	}
	if expected := expectedDuration(item); expected > 0 && math.Abs(videoDuration-expected) > durationTolerance {
		return 0, services.Wrap(services.ErrExternalTool, "render", "validate",
			fmt.Sprintf("Rendered video runs %.1fs but the composed track runs %.1fs", videoDuration, expected), nil)
	}
	return videoDuration, nil
}

// ffmpegArgs builds the still-image render invocation. libx264 requires even
// frame dimensions; the scale filter rounds arbitrary cover sizes down.
func ffmpegArgs(coverPath, audioPath, outputPath string, fps int) []string {
	return []string{
		"-y",
		"-loop", "1",
		"-i", coverPath,
		"-i", audioPath,
		"-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2",
		"-c:v", "libx264",
		"-c:a", "aac",
		"-b:a", "192k",
		"-pix_fmt", "yuv420p",
		"-shortest",
		"-r", strconv.Itoa(fps),
		outputPath,
	}
}

func (r *Renderer) updateProgress(ctx context.Context, item *queue.Item, message string, percent float64) error {
	item.ProgressStage = progressStageRendering
	if strings.TrimSpace(message) != "" {
		item.ProgressMessage = message
	}
	if percent >= 0 {
		item.ProgressPercent = percent
	}
	if err := r.store.UpdateProgress(ctx, item); err != nil {
		return services.Wrap(services.ErrTransient, "render", "persist progress",
			"Failed to persist render progress", err)
	}
	return nil
}

// expectedDuration reads the composed track length from the stored generation
// result. Zero means the check is skipped.
func expectedDuration(item *queue.Item) float64 {
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

func renderTitle(item *queue.Item) string {
	if title := strings.TrimSpace(item.Title); title != "" {
		return title
	}
	return textutil.TitleFromPath(item.AudioFile, suno.DefaultTitle)
}

func buildCompletionMessage(outputPath string, duration float64) string {
	parts := []string{"Video rendered", filepath.Base(outputPath)}
	if duration > 0 {
		parts = append(parts, fmt.Sprintf("%.0fs", duration))
	}
	return strings.Join(parts, " | ")
}

// outputTail keeps the end of ffmpeg's combined output, where the actual
// failure reason lands.
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
