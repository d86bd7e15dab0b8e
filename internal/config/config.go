package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"hakimi/internal/fileutil"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir  string `toml:"output_dir"`
	LogDir     string `toml:"log_dir"`
	CoversDir  string `toml:"covers_dir"`
	CorpusFile string `toml:"corpus_file"`
}

// Suno contains configuration for the AI Music (Suno) generation API.
type Suno struct {
	APIKey              string `toml:"api_key"`
	BaseURL             string `toml:"base_url"`
	Model               string `toml:"model"`
	MaxWaitSeconds      int    `toml:"max_wait_seconds"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
}

// LLM contains connection settings for the prompt-engineering model.
type LLM struct {
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	Temperature    float64 `toml:"temperature"`
	MaxTokens      int     `toml:"max_tokens"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// Render contains configuration for still-image video rendering.
type Render struct {
	FFmpegPath     string `toml:"ffmpeg_path"`
	FFprobePath    string `toml:"ffprobe_path"`
	FPS            int    `toml:"fps"`
	FallbackCover  string `toml:"fallback_cover"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Publisher contains configuration for the external upload hand-off.
type Publisher struct {
	Enabled        bool   `toml:"enabled"`
	Command        string `toml:"command"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// API contains configuration for the optional HTTP observation API. A
// blank bind address disables the server; a non-empty token requires
// bearer authentication on every request.
type API struct {
	Bind  string `toml:"bind"`
	Token string `toml:"token"`
}

// Corpus contains configuration for the meme-corpus crawler and sampler.
type Corpus struct {
	SeedURLs       []string `toml:"seed_urls"`
	AllowedDomains []string `toml:"allowed_domains"`
	Keywords       []string `toml:"keywords"`
	MaxPages       int      `toml:"max_pages"`
	MaxSnippets    int      `toml:"max_snippets"`
	UserAgent      string   `toml:"user_agent"`
}

// Workflow contains configuration for daemon timing and intervals.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
}

// Logging contains configuration for log output. StageOverrides maps a stage
// name (planner, composer, renderer, publisher) to a log level that replaces
// the global level while that stage runs.
type Logging struct {
	Format         string            `toml:"format"`
	Level          string            `toml:"level"`
	RetentionDays  int               `toml:"retention_days"`
	StageOverrides map[string]string `toml:"stage_overrides"`
}

// Config encapsulates all configuration values for Hakimi.
//
// Configuration sections by subsystem:
//   - Paths: output, log, cover, and corpus locations
//   - Suno: music generation API credentials and poll tuning
//   - LLM: ZhipuAI-compatible chat model for prompt engineering
//   - Render: ffmpeg/ffprobe settings for still-image videos
//   - Publisher: optional external upload command
//   - Notifications: ntfy push notification settings
//   - API: optional HTTP observation endpoint for dashboards
//   - Corpus: crawler seeds, domain allow-list, and keyword set
//   - Workflow: daemon polling intervals and heartbeats
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Suno          Suno          `toml:"suno"`
	LLM           LLM           `toml:"llm"`
	Render        Render        `toml:"render"`
	Publisher     Publisher     `toml:"publisher"`
	Notifications Notifications `toml:"notifications"`
	API           API           `toml:"api"`
	Corpus        Corpus        `toml:"corpus"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/hakimi/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. An optional .env file and the
// process environment supply credentials that the file leaves blank, matching
// the SUNO_API_KEY / ZAI_API_KEY / AIMUSIC_BASE_URL contract.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	_ = godotenv.Load()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/hakimi/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("hakimi.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// MusicDir returns the directory where downloaded audio artifacts land.
func (c *Config) MusicDir() string {
	return filepath.Join(c.Paths.OutputDir, "music")
}

// VideoDir returns the directory where rendered videos land.
func (c *Config) VideoDir() string {
	return filepath.Join(c.Paths.OutputDir, "video")
}

// EnsureDirectories creates required directories for daemon operation.
// The covers directory is best-effort because a missing fallback cover only
// matters once an item reaches the render stage.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.OutputDir, c.MusicDir(), c.VideoDir(), c.Paths.LogDir}
	if corpusDir := filepath.Dir(c.Paths.CorpusFile); corpusDir != "." && corpusDir != "" {
		dirs = append(dirs, corpusDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.CoversDir) != "" {
		_ = os.MkdirAll(c.Paths.CoversDir, 0o755)
	}
	return nil
}

// FFmpegBinary resolves the ffmpeg executable from config. A configured
// directory is joined with the binary name; everything else is passed through
// for PATH lookup.
func (c *Config) FFmpegBinary() string {
	return resolveToolPath(c.Render.FFmpegPath, "ffmpeg")
}

// FFprobeBinary resolves the ffprobe executable used for render validation.
func (c *Config) FFprobeBinary() string {
	return resolveToolPath(c.Render.FFprobePath, "ffprobe")
}

func resolveToolPath(configured, name string) string {
	configured = strings.TrimSpace(configured)
	if configured == "" {
		return name
	}
	expanded, err := expandPath(configured)
	if err != nil {
		return configured
	}
	if info, statErr := os.Stat(expanded); statErr == nil && info.IsDir() {
		return filepath.Join(expanded, name)
	}
	if _, statErr := os.Stat(expanded); statErr == nil {
		return expanded
	}
	return configured
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := fileutil.WriteFileAtomic(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains the resolved LLM connection settings.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Temperature    float64
	MaxTokens      int
	TimeoutSeconds int
}

// GetLLM returns the prompt-engineering model connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		Temperature:    c.LLM.Temperature,
		MaxTokens:      c.LLM.MaxTokens,
		TimeoutSeconds: c.LLM.TimeoutSeconds,
	}
}
