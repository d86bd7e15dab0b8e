package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSuno(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validatePublisher(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSuno() error {
	if c.Suno.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/hakimi/config.toml"
		}
		return fmt.Errorf("suno.api_key is required. Set SUNO_API_KEY env var or edit %s (create with 'hakimi config init')", defaultPath)
	}
	if strings.TrimSpace(c.Suno.BaseURL) == "" {
		return errors.New("suno.base_url must be set")
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	return nil
}

func (c *Config) validatePublisher() error {
	if !c.Publisher.Enabled {
		return nil
	}
	if c.Publisher.Command == "" {
		return errors.New("publisher.command must be set when publisher.enabled is true")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"suno.max_wait_seconds":         c.Suno.MaxWaitSeconds,
		"suno.poll_interval_seconds":    c.Suno.PollIntervalSeconds,
		"llm.timeout_seconds":           c.LLM.TimeoutSeconds,
		"render.fps":                    c.Render.FPS,
		"render.timeout_seconds":        c.Render.TimeoutSeconds,
		"publisher.timeout_seconds":     c.Publisher.TimeoutSeconds,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
		"corpus.max_pages":              c.Corpus.MaxPages,
		"corpus.max_snippets":           c.Corpus.MaxSnippets,
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
