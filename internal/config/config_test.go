package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"hakimi/internal/config"
)

func TestLoadDefaultConfigUsesEnvSunoKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("SUNO_API_KEY", "test-key")
	t.Setenv("AIMUSIC_BASE_URL", "")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantOutput := filepath.Join(tempHome, ".local", "share", "hakimi", "output")
	if cfg.Paths.OutputDir != wantOutput {
		t.Fatalf("unexpected output dir: got %q want %q", cfg.Paths.OutputDir, wantOutput)
	}
	if cfg.Suno.APIKey != "test-key" {
		t.Fatalf("expected Suno key from env, got %q", cfg.Suno.APIKey)
	}
	if cfg.Suno.BaseURL != config.Default().Suno.BaseURL {
		t.Fatalf("unexpected Suno base url: %q", cfg.Suno.BaseURL)
	}
	if cfg.Suno.MaxWaitSeconds != 360 {
		t.Fatalf("unexpected max wait: %d", cfg.Suno.MaxWaitSeconds)
	}
	if cfg.Suno.PollIntervalSeconds != 15 {
		t.Fatalf("unexpected poll interval: %d", cfg.Suno.PollIntervalSeconds)
	}
	if cfg.LLM.Model != "glm-4" {
		t.Fatalf("unexpected llm model: %q", cfg.LLM.Model)
	}
	if cfg.Publisher.Enabled {
		t.Fatal("expected publisher disabled by default")
	}
	if cfg.Render.FPS != 24 {
		t.Fatalf("unexpected render fps: %d", cfg.Render.FPS)
	}
	if len(cfg.Corpus.Keywords) == 0 {
		t.Fatal("expected corpus keywords to include defaults")
	}
	if cfg.Corpus.MaxSnippets != 12 {
		t.Fatalf("unexpected snippet cap: %d", cfg.Corpus.MaxSnippets)
	}
	if cfg.Workflow.HeartbeatInterval != config.Default().Workflow.HeartbeatInterval {
		t.Fatalf("unexpected heartbeat interval: %d", cfg.Workflow.HeartbeatInterval)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, dir := range []string{cfg.Paths.OutputDir, cfg.MusicDir(), cfg.VideoDir(), cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	t.Setenv("SUNO_API_KEY", "")
	t.Setenv("AIMUSIC_BASE_URL", "")
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "hakimi.toml")

	type payload struct {
		Suno struct {
			APIKey  string `toml:"api_key"`
			BaseURL string `toml:"base_url"`
		} `toml:"suno"`
		Render struct {
			FPS int `toml:"fps"`
		} `toml:"render"`
		Workflow struct {
			HeartbeatInterval int `toml:"heartbeat_interval"`
			HeartbeatTimeout  int `toml:"heartbeat_timeout"`
		} `toml:"workflow"`
	}
	custom := payload{}
	custom.Suno.APIKey = "abc123"
	custom.Suno.BaseURL = "https://example.com/suno"
	custom.Render.FPS = 30
	custom.Workflow.HeartbeatInterval = 20
	custom.Workflow.HeartbeatTimeout = 200
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Suno.APIKey != "abc123" {
		t.Fatalf("expected Suno key from file, got %q", cfg.Suno.APIKey)
	}
	if cfg.Suno.BaseURL != "https://example.com/suno" {
		t.Fatalf("expected Suno base url override, got %q", cfg.Suno.BaseURL)
	}
	if cfg.Render.FPS != 30 {
		t.Fatalf("expected render fps 30, got %d", cfg.Render.FPS)
	}
	if cfg.Workflow.HeartbeatInterval != 20 {
		t.Fatalf("expected heartbeat interval 20, got %d", cfg.Workflow.HeartbeatInterval)
	}
	if cfg.Workflow.HeartbeatTimeout != 200 {
		t.Fatalf("expected heartbeat timeout 200, got %d", cfg.Workflow.HeartbeatTimeout)
	}
}

func TestEnvVarOverridesConfigFileForAPIKeys(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "hakimi.toml")

	type payload struct {
		Suno struct {
			APIKey string `toml:"api_key"`
		} `toml:"suno"`
		LLM struct {
			APIKey string `toml:"api_key"`
		} `toml:"llm"`
	}
	custom := payload{}
	custom.Suno.APIKey = "file-suno"
	custom.LLM.APIKey = "file-llm"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	t.Setenv("SUNO_API_KEY", "env-suno")
	t.Setenv("ZAI_API_KEY", "env-llm")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Suno.APIKey != "env-suno" {
		t.Errorf("expected Suno key from env, got %q", cfg.Suno.APIKey)
	}
	if cfg.LLM.APIKey != "env-llm" {
		t.Errorf("expected LLM key from env, got %q", cfg.LLM.APIKey)
	}
}

func TestAPISectionBindAndToken(t *testing.T) {
	t.Setenv("SUNO_API_KEY", "key")
	t.Setenv("HAKIMI_API_TOKEN", "env-token")
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "hakimi.toml")

	body := "[api]\nbind = \"\"\ntoken = \"file-token\"\n"
	if err := os.WriteFile(configPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.API.Bind != "" {
		t.Fatalf("expected explicit blank bind to stay disabled, got %q", cfg.API.Bind)
	}
	if cfg.API.Token != "env-token" {
		t.Fatalf("expected token from env, got %q", cfg.API.Token)
	}

	if got := config.Default().API.Bind; got != "127.0.0.1:4254" {
		t.Fatalf("unexpected default api bind: %q", got)
	}
}

func TestDotenvFileSuppliesCredentials(t *testing.T) {
	// godotenv only fills unset variables, so clear rather than blank them.
	t.Setenv("SUNO_API_KEY", "")
	os.Unsetenv("SUNO_API_KEY")
	t.Setenv("ZAI_API_KEY", "")
	os.Unsetenv("ZAI_API_KEY")
	tempDir := t.TempDir()

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(tempDir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(cwd)
	})

	envFile := "SUNO_API_KEY=dotenv-suno\nZAI_API_KEY=\"dotenv-llm\"\n"
	if err := os.WriteFile(filepath.Join(tempDir, ".env"), []byte(envFile), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	configPath := filepath.Join(tempDir, "hakimi.toml")
	if err := os.WriteFile(configPath, []byte("[suno]\napi_key = \"\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Suno.APIKey != "dotenv-suno" {
		t.Fatalf("expected Suno key from .env, got %q", cfg.Suno.APIKey)
	}
	if cfg.LLM.APIKey != "dotenv-llm" {
		t.Fatalf("expected LLM key from .env, got %q", cfg.LLM.APIKey)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "your-suno-api-key") {
		t.Fatalf("sample config missing placeholder Suno key: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}

	if runtime.GOOS != "windows" {
		if !strings.Contains(cfg.Paths.OutputDir, "hakimi") {
			t.Fatalf("expected output dir to contain hakimi, got %q", cfg.Paths.OutputDir)
		}
	}
}

func TestFFmpegBinaryResolution(t *testing.T) {
	cfg := config.Default()
	cfg.Render.FFmpegPath = ""
	if got := cfg.FFmpegBinary(); got != "ffmpeg" {
		t.Fatalf("expected bare binary name, got %q", got)
	}

	toolDir := t.TempDir()
	cfg.Render.FFmpegPath = toolDir
	want := filepath.Join(toolDir, "ffmpeg")
	if got := cfg.FFmpegBinary(); got != want {
		t.Fatalf("expected directory join %q, got %q", want, got)
	}

	binary := filepath.Join(toolDir, "ffmpeg-custom")
	if err := os.WriteFile(binary, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write stub binary: %v", err)
	}
	cfg.Render.FFmpegPath = binary
	if got := cfg.FFmpegBinary(); got != binary {
		t.Fatalf("expected explicit binary path %q, got %q", binary, got)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	cfg.Suno.APIKey = "key"
	cfg.Suno.MaxWaitSeconds = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive max wait")
	}

	cfg = config.Default()
	cfg.Suno.APIKey = "key"
	cfg.Workflow.HeartbeatInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for heartbeat interval")
	}

	cfg = config.Default()
	cfg.Suno.APIKey = "key"
	cfg.Workflow.HeartbeatTimeout = cfg.Workflow.HeartbeatInterval
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when timeout <= interval")
	}

	cfg = config.Default()
	cfg.Suno.APIKey = "key"
	cfg.Publisher.Enabled = true
	cfg.Publisher.Command = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when publisher enabled without command")
	}

	cfg = config.Default()
	cfg.Suno.APIKey = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when suno api key missing")
	}
}
