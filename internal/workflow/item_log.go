package workflow

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hakimi/internal/config"
	"hakimi/internal/logging"
	"hakimi/internal/queue"
	"hakimi/internal/textutil"
)

// ItemLogger manages dedicated log files for queue item processing.
type ItemLogger struct {
	baseDir   string
	hub       *logging.StreamHub
	cfg       *config.Config
	sessionID string
}

// NewItemLogger creates a new item logger.
func NewItemLogger(cfg *config.Config, hub *logging.StreamHub, sessionID string) *ItemLogger {
	dir := ""
	if cfg != nil && cfg.Paths.LogDir != "" {
		dir = filepath.Join(cfg.Paths.LogDir, "items")
	}
	return &ItemLogger{
		baseDir:   dir,
		hub:       hub,
		cfg:       cfg,
		sessionID: sessionID,
	}
}

// Ensure prepares the log directory and file path for an item.
func (b *ItemLogger) Ensure(item *queue.Item) (string, bool, error) {
	if item == nil {
		return "", false, fmt.Errorf("queue item is nil")
	}
	if strings.TrimSpace(b.baseDir) == "" {
		return "", false, fmt.Errorf("item log directory not configured")
	}
	created := false
	if strings.TrimSpace(item.ItemLogPath) == "" {
		item.ItemLogPath = filepath.Join(b.baseDir, b.filename(item))
		created = true
	}
	if err := os.MkdirAll(filepath.Dir(item.ItemLogPath), 0o755); err != nil {
		return "", false, fmt.Errorf("ensure item log directory: %w", err)
	}
	return item.ItemLogPath, created, nil
}

// CreateHandler builds a slog.Handler writing to the specified path.
func (b *ItemLogger) CreateHandler(path string) (slog.Handler, error) {
	level := "info"
	format := "json"
	if b.cfg != nil {
		if strings.TrimSpace(b.cfg.Logging.Level) != "" {
			level = b.cfg.Logging.Level
		}
		if strings.TrimSpace(b.cfg.Logging.Format) != "" {
			format = b.cfg.Logging.Format
		}
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           format,
		OutputPaths:      []string{path},
		ErrorOutputPaths: []string{path},
		Development:      false,
		// Item logs write to their own files, but still publish to the daemon
		// stream so operators can follow per-item progress with `hakimi logs --follow`.
		Stream:    b.hub,
		SessionID: b.sessionID,
	})
	if err != nil {
		return nil, err
	}
	return logger.Handler(), nil
}

func (b *ItemLogger) filename(item *queue.Item) string {
	timestamp := time.Now().UTC().Format("20060102T150405")
	return fmt.Sprintf("%s-item-%d-%s.log", timestamp, item.ID, textutil.Slug(item.Title, "untitled"))
}
