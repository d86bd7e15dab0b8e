package suno

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hakimi/internal/fileutil"
	"hakimi/internal/logging"
	"hakimi/internal/textutil"
)

const (
	defaultAPITimeout      = 60 * time.Second
	defaultDownloadTimeout = 300 * time.Second

	// DefaultMaxWait bounds one poll loop; DefaultPollInterval spaces the
	// status queries inside it.
	DefaultMaxWait      = 360 * time.Second
	DefaultPollInterval = 15 * time.Second

	// DefaultBaseURL is used when the configuration leaves the endpoint blank.
	DefaultBaseURL = "https://api.sunoapi.com"
	defaultModel   = "chirp-v4"

	ackSuccess   = "success"
	fallbackSlug = "hakimi_track"
	audioExt     = ".mp3"
	coverSuffix  = "_cover.jpg"
)

// Fatal orchestration outcomes, testable with errors.Is. Mid-poll transport
// faults and cover-download failures are recovered locally and never carry
// one of these.
var (
	// ErrNotConfigured marks a missing credential, detected before any network call.
	ErrNotConfigured = errors.New("suno: not configured")
	// ErrTransport marks a connection-level failure during submission or artifact download.
	ErrTransport = errors.New("suno: transport failure")
	// ErrRejected marks a well-formed submission acknowledgment without the success marker.
	ErrRejected = errors.New("suno: submission rejected")
	// ErrService marks an unexpected status code while polling.
	ErrService = errors.New("suno: service error")
	// ErrProtocol marks a 200 poll response whose body does not match the documented shape.
	ErrProtocol = errors.New("suno: protocol error")
	// ErrJobFailed marks a job the service itself reported as failed.
	ErrJobFailed = errors.New("suno: job failed")
	// ErrPollTimeout marks a job still pending when the wait budget ran out.
	ErrPollTimeout = errors.New("suno: poll timeout")
	// ErrMissingArtifact marks a succeeded clip without a usable audio reference.
	ErrMissingArtifact = errors.New("suno: missing artifact")
)

// Config captures the runtime settings required to talk to the generation
// service. Credentials are always threaded in explicitly; the package holds
// no process-wide state, so differently configured clients can coexist.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	OutputDir string
	// APITimeoutSeconds bounds create/status calls and DownloadTimeoutSeconds
	// bounds artifact fetches. Zero selects the service defaults (60s, 300s).
	APITimeoutSeconds      int
	DownloadTimeoutSeconds int
}

// Client orchestrates one generation job end to end: submit, poll to a
// terminal state, download artifacts.
type Client struct {
	cfg            Config
	apiClient      *http.Client
	downloadClient *http.Client
	logger         *slog.Logger
	now            func() time.Time
	sleeper        func(time.Duration)
	observer       func(PollProgress)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the client used for create and status calls.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.apiClient = client
		}
	}
}

// WithDownloadClient overrides the client used for artifact downloads.
func WithDownloadClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.downloadClient = client
		}
	}
}

// WithLogger attaches a logger for poll and download progress.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the time source for the poll deadline (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithSleeper overrides how inter-poll sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// WithPollObserver registers a callback invoked once per poll iteration.
func WithPollObserver(observer func(PollProgress)) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

// New constructs a client from the supplied configuration.
func New(cfg Config, opts ...Option) *Client {
	apiTimeout := defaultAPITimeout
	if cfg.APITimeoutSeconds > 0 {
		apiTimeout = time.Duration(cfg.APITimeoutSeconds) * time.Second
	}
	downloadTimeout := defaultDownloadTimeout
	if cfg.DownloadTimeoutSeconds > 0 {
		downloadTimeout = time.Duration(cfg.DownloadTimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:                 strings.TrimSpace(cfg.APIKey),
			BaseURL:                strings.TrimSpace(cfg.BaseURL),
			Model:                  strings.TrimSpace(cfg.Model),
			OutputDir:              strings.TrimSpace(cfg.OutputDir),
			APITimeoutSeconds:      cfg.APITimeoutSeconds,
			DownloadTimeoutSeconds: cfg.DownloadTimeoutSeconds,
		},
		apiClient:      &http.Client{Timeout: apiTimeout},
		downloadClient: &http.Client{Timeout: downloadTimeout},
		logger:         logging.NewNop(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = DefaultBaseURL
	}
	if client.cfg.Model == "" {
		client.cfg.Model = defaultModel
	}
	if client.logger == nil {
		client.logger = logging.NewNop()
	}
	return client
}

// Submit sends the job and returns the opaque task handle the service issued.
// Submission is never retried here: unlike a lost status query, a lost
// submission may or may not have created a job, so the caller decides.
func (c *Client) Submit(ctx context.Context, req Request) (string, error) {
	if c.cfg.APIKey == "" {
		return "", fmt.Errorf("%w: suno api key missing", ErrNotConfigured)
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return "", errors.New("suno submit: description required")
	}

	payload := createTaskRequest{
		CustomMode:        false,
		DescriptionPrompt: description,
		MakeInstrumental:  req.Instrumental,
		ModelVersion:      c.cfg.Model,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("suno submit: encode payload: %w", err)
	}

	log := logging.WithContext(ctx, c.logger)
	log.Debug("submitting generation task",
		"custom_mode", payload.CustomMode,
		"make_instrumental", payload.MakeInstrumental,
		"mv", payload.ModelVersion)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.createURL(), bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("suno submit: new request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.apiClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: submit: %w", ErrTransport, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: submit: read body: %w", ErrTransport, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("%w: submit: http %d: %s", ErrTransport, resp.StatusCode, snippet(body))
	}

	var ack createTaskResponse
	if err := json.Unmarshal(body, &ack); err != nil {
		return "", fmt.Errorf("%w: submit: decode acknowledgment: %w", ErrTransport, err)
	}
	handle := strings.TrimSpace(ack.TaskID)
	if ack.Message != ackSuccess || handle == "" {
		return "", fmt.Errorf("%w: submit: %s", ErrRejected, snippet(body))
	}

	log.Info("generation task submitted", "task_id", handle, "model", c.cfg.Model)
	return handle, nil
}

// Poll queries the task until it reaches a terminal state or the wait budget
// runs out. The deadline is cooperative and checked once per iteration before
// the query, so total wall time can exceed maxWait by up to one interval plus
// one request round-trip.
func (c *Client) Poll(ctx context.Context, handle string, maxWait, interval time.Duration) (Clip, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return Clip{}, fmt.Errorf("%w: poll: empty task handle", ErrProtocol)
	}
	if c.cfg.APIKey == "" {
		return Clip{}, fmt.Errorf("%w: suno api key missing", ErrNotConfigured)
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	log := logging.WithContext(ctx, c.logger)
	start := c.clock()
	attempt := 0
	for {
		elapsed := c.clock().Sub(start)
		if elapsed > maxWait {
			return Clip{}, fmt.Errorf("%w: task %s still pending after %s (budget %s)",
				ErrPollTimeout, handle, elapsed.Round(time.Second), maxWait)
		}
		attempt++

		status, body, err := c.fetchTaskStatus(ctx, handle)
		if err != nil {
			if ctx.Err() != nil {
				return Clip{}, ctx.Err()
			}
			// A lost query can simply be asked again against the same handle.
			log.Warn("status query failed, retrying next interval",
				"task_id", handle,
				"attempt", attempt,
				"poll_elapsed", elapsed,
				logging.Error(err))
			if err := c.sleep(ctx, interval); err != nil {
				return Clip{}, err
			}
			continue
		}

		switch {
		case status == http.StatusAccepted:
			c.observe(handle, attempt, elapsed, ClipStateUnknown)
			log.Debug("task still processing",
				"task_id", handle, "attempt", attempt, "poll_elapsed", elapsed)
			if err := c.sleep(ctx, interval); err != nil {
				return Clip{}, err
			}
			continue
		case status != http.StatusOK:
			return Clip{}, fmt.Errorf("%w: poll: http %d: %s", ErrService, status, snippet(body))
		}

		var parsed taskStatusResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return Clip{}, fmt.Errorf("%w: poll: decode status body: %w", ErrProtocol, err)
		}

		if parsed.Code == 200 && len(parsed.Data) > 0 {
			clip := parsed.Data[0]
			state := clip.StateKind()
			c.observe(handle, attempt, elapsed, state)
			switch state {
			case ClipStateSucceeded:
				log.Info("generation succeeded",
					"task_id", handle,
					"clip_state", clip.State,
					"poll_count", attempt,
					"poll_elapsed", elapsed)
				return clip, nil
			case ClipStateFailed:
				return Clip{}, fmt.Errorf("%w: task %s: %s", ErrJobFailed, handle, clipDiagnostics(clip))
			}
			log.Debug("clip not terminal yet",
				"task_id", handle, "clip_state", clip.State, "poll_elapsed", elapsed)
		} else {
			c.observe(handle, attempt, elapsed, ClipStateUnknown)
			log.Debug("no result yet",
				"task_id", handle, "attempt", attempt, "poll_elapsed", elapsed)
		}

		if err := c.sleep(ctx, interval); err != nil {
			return Clip{}, err
		}
	}
}

// Download materializes the clip's artifacts under the output directory. The
// audio artifact is required; the cover is best effort because the render
// stage has its own fallback cover.
func (c *Client) Download(ctx context.Context, clip Clip, filename string) (Result, error) {
	audioURL := strings.TrimSpace(clip.AudioURL)
	if audioURL == "" {
		return Result{}, fmt.Errorf("%w: clip %q has no audio reference", ErrMissingArtifact, clip.ID)
	}
	filename = strings.TrimSpace(filename)
	if filename == "" {
		filename = fallbackSlug + audioExt
	}
	if err := os.MkdirAll(c.cfg.OutputDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("suno download: create output dir: %w", err)
	}

	log := logging.WithContext(ctx, c.logger)
	audioPath := filepath.Join(c.cfg.OutputDir, filename)
	audioBytes, err := c.fetchFile(ctx, audioURL, audioPath)
	if err != nil {
		return Result{}, fmt.Errorf("%w: download audio: %w", ErrTransport, err)
	}
	log.Info("audio saved", "output_file", audioPath, "audio_bytes", audioBytes)

	result := Result{
		AudioPath: audioPath,
		Title:     strings.TrimSpace(clip.Title),
		Tags:      strings.TrimSpace(clip.Tags),
		Duration:  float64(clip.Duration),
		ClipID:    strings.TrimSpace(clip.ID),
	}

	if imageURL := strings.TrimSpace(clip.ImageURL); imageURL != "" {
		coverName := strings.TrimSuffix(filename, filepath.Ext(filename)) + coverSuffix
		coverPath := filepath.Join(c.cfg.OutputDir, coverName)
		coverBytes, err := c.fetchFile(ctx, imageURL, coverPath)
		if err != nil {
			log.Warn("cover download failed, continuing without cover",
				"task_id", clip.ID, logging.Error(err))
		} else {
			result.CoverPath = coverPath
			log.Info("cover saved", "output_file", coverPath, "cover_bytes", coverBytes)
		}
	}

	return result, nil
}

// Generate runs the full orchestration: submit, poll, download. The first
// fatal error from any phase propagates unmodified; the returned result owns
// the artifact paths.
func (c *Client) Generate(ctx context.Context, req Request, maxWait, interval time.Duration) (Result, error) {
	filename := textutil.Slug(req.Title, fallbackSlug) + audioExt

	handle, err := c.Submit(ctx, req)
	if err != nil {
		return Result{}, err
	}
	clip, err := c.Poll(ctx, handle, maxWait, interval)
	if err != nil {
		return Result{}, err
	}
	return c.Download(ctx, clip, filename)
}

func (c *Client) fetchTaskStatus(ctx context.Context, handle string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.taskURL(handle), nil)
	if err != nil {
		return 0, nil, fmt.Errorf("poll: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	resp, err := c.apiClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("poll: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("poll: read body: %w", err)
	}
	return resp.StatusCode, body, nil
}

// fetchFile buffers the artifact and writes it atomically so neither a
// failed fetch nor a crash mid-write leaves a truncated file behind.
func (c *Client) fetchFile(ctx context.Context, rawURL, path string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("new request: %w", err)
	}
	resp, err := c.downloadClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("http %d: %s", resp.StatusCode, snippet(body))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read body: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return 0, fmt.Errorf("write file: %w", err)
	}
	return int64(len(data)), nil
}

func (c *Client) observe(handle string, attempt int, elapsed time.Duration, state ClipState) {
	if c.observer == nil {
		return
	}
	c.observer(PollProgress{Handle: handle, Attempt: attempt, Elapsed: elapsed, State: state})
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

func (c *Client) createURL() string {
	return strings.TrimSuffix(c.cfg.BaseURL, "/") + "/api/v1/suno/create"
}

func (c *Client) taskURL(handle string) string {
	return strings.TrimSuffix(c.cfg.BaseURL, "/") + "/api/v1/suno/task/" + handle
}

func clipDiagnostics(clip Clip) string {
	encoded, err := json.Marshal(clip)
	if err != nil {
		return fmt.Sprintf("clip %q", clip.ID)
	}
	return string(encoded)
}

func snippet(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "<empty>"
	}
	clean := strings.Join(strings.Fields(trimmed), " ")
	const limit = 200
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
