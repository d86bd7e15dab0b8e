package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeSuno(); err != nil {
		return err
	}
	if err := c.normalizeLLM(); err != nil {
		return err
	}
	if err := c.normalizeRender(); err != nil {
		return err
	}
	c.normalizePublisher()
	c.normalizeNotifications()
	c.normalizeAPI()
	c.normalizeCorpus()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CoversDir) == "" {
		c.Paths.CoversDir = defaultCoversDir
	}
	if c.Paths.CoversDir, err = expandPath(c.Paths.CoversDir); err != nil {
		return fmt.Errorf("paths.covers_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CorpusFile) == "" {
		c.Paths.CorpusFile = defaultCorpusFile
	}
	if c.Paths.CorpusFile, err = expandPath(c.Paths.CorpusFile); err != nil {
		return fmt.Errorf("paths.corpus_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeSuno() error {
	c.Suno.APIKey = strings.TrimSpace(c.Suno.APIKey)
	if value, ok := os.LookupEnv("SUNO_API_KEY"); ok && strings.TrimSpace(value) != "" {
		c.Suno.APIKey = strings.TrimSpace(value)
	}
	c.Suno.BaseURL = strings.TrimSpace(c.Suno.BaseURL)
	if value, ok := os.LookupEnv("AIMUSIC_BASE_URL"); ok && strings.TrimSpace(value) != "" {
		c.Suno.BaseURL = strings.TrimSpace(value)
	}
	if c.Suno.BaseURL == "" {
		c.Suno.BaseURL = defaultSunoBaseURL
	}
	c.Suno.Model = strings.TrimSpace(c.Suno.Model)
	if c.Suno.Model == "" {
		c.Suno.Model = defaultSunoModel
	}
	return nil
}

func (c *Config) normalizeLLM() error {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if value, ok := os.LookupEnv("ZAI_API_KEY"); ok && strings.TrimSpace(value) != "" {
		c.LLM.APIKey = strings.TrimSpace(value)
	} else if value, ok := os.LookupEnv("ZHIPUAI_API_KEY"); ok && strings.TrimSpace(value) != "" {
		c.LLM.APIKey = strings.TrimSpace(value)
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.Temperature <= 0 {
		c.LLM.Temperature = 0.7
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = defaultLLMMaxTokens
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	return nil
}

func (c *Config) normalizeRender() error {
	c.Render.FFmpegPath = strings.TrimSpace(c.Render.FFmpegPath)
	if value, ok := os.LookupEnv("FFMPEG_PATH"); ok && strings.TrimSpace(value) != "" {
		c.Render.FFmpegPath = strings.TrimSpace(value)
	}
	c.Render.FFprobePath = strings.TrimSpace(c.Render.FFprobePath)
	if c.Render.FPS <= 0 {
		c.Render.FPS = defaultRenderFPS
	}
	if c.Render.TimeoutSeconds <= 0 {
		c.Render.TimeoutSeconds = defaultRenderTimeoutSeconds
	}
	if strings.TrimSpace(c.Render.FallbackCover) != "" {
		expanded, err := expandPath(c.Render.FallbackCover)
		if err != nil {
			return fmt.Errorf("render.fallback_cover: %w", err)
		}
		c.Render.FallbackCover = expanded
	}
	return nil
}

func (c *Config) normalizePublisher() {
	c.Publisher.Command = strings.TrimSpace(c.Publisher.Command)
	if c.Publisher.TimeoutSeconds <= 0 {
		c.Publisher.TimeoutSeconds = defaultPublisherTimeoutSeconds
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = 10
	}
}

// normalizeAPI trims but never re-defaults the bind address. An
// explicitly blank bind disables the HTTP API.
func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	c.API.Token = strings.TrimSpace(c.API.Token)
	if value, ok := os.LookupEnv("HAKIMI_API_TOKEN"); ok && strings.TrimSpace(value) != "" {
		c.API.Token = strings.TrimSpace(value)
	}
}

func (c *Config) normalizeCorpus() {
	domains := make([]string, 0, len(c.Corpus.AllowedDomains))
	seen := make(map[string]struct{}, len(c.Corpus.AllowedDomains))
	for _, domain := range c.Corpus.AllowedDomains {
		normalized := strings.ToLower(strings.TrimSpace(domain))
		normalized = strings.TrimPrefix(normalized, "www.")
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		domains = append(domains, normalized)
	}
	if len(domains) == 0 {
		domains = defaultCorpusDomains()
	}
	c.Corpus.AllowedDomains = domains

	keywords := make([]string, 0, len(c.Corpus.Keywords))
	seenKeywords := make(map[string]struct{}, len(c.Corpus.Keywords))
	for _, keyword := range c.Corpus.Keywords {
		trimmed := strings.TrimSpace(keyword)
		if trimmed == "" {
			continue
		}
		if _, exists := seenKeywords[trimmed]; exists {
			continue
		}
		seenKeywords[trimmed] = struct{}{}
		keywords = append(keywords, trimmed)
	}
	if len(keywords) == 0 {
		keywords = defaultCorpusKeywords()
	}
	c.Corpus.Keywords = keywords

	seeds := make([]string, 0, len(c.Corpus.SeedURLs))
	for _, seed := range c.Corpus.SeedURLs {
		trimmed := strings.TrimSpace(seed)
		if trimmed != "" {
			seeds = append(seeds, trimmed)
		}
	}
	c.Corpus.SeedURLs = seeds

	if c.Corpus.MaxPages <= 0 {
		c.Corpus.MaxPages = defaultCrawlMaxPages
	}
	if c.Corpus.MaxSnippets <= 0 {
		c.Corpus.MaxSnippets = defaultPlanSnippetCap
	}
	if strings.TrimSpace(c.Corpus.UserAgent) == "" {
		c.Corpus.UserAgent = defaultCrawlUserAgent
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
