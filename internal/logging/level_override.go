package logging

import (
	"context"
	"log/slog"
)

// minLevelHandler raises the effective minimum level of the wrapped
// handler. Stage-level log overrides from config are applied through this
// without rebuilding the daemon's handler chain.
type minLevelHandler struct {
	next slog.Handler
	min  slog.Level
}

func newMinLevelHandler(next slog.Handler, min slog.Level) slog.Handler {
	if next == nil {
		return NoopHandler{}
	}
	return &minLevelHandler{next: next, min: min}
}

func (h *minLevelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.min && h.next.Enabled(ctx, level)
}

func (h *minLevelHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level < h.min {
		return nil
	}
	return h.next.Handle(ctx, record)
}

func (h *minLevelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &minLevelHandler{next: h.next.WithAttrs(attrs), min: h.min}
}

func (h *minLevelHandler) WithGroup(name string) slog.Handler {
	return &minLevelHandler{next: h.next.WithGroup(name), min: h.min}
}

func (h *minLevelHandler) CloneWithLevel(level slog.Level) slog.Handler {
	return &minLevelHandler{next: h.next, min: level}
}

// WithLevelOverride returns a logger enforcing the given minimum level on
// top of the existing handler chain. If the logger is already wrapped the
// threshold is replaced rather than stacked.
func WithLevelOverride(logger *slog.Logger, level slog.Level) *slog.Logger {
	if logger == nil {
		return slog.New(newMinLevelHandler(nil, level))
	}
	if cloner, ok := logger.Handler().(interface{ CloneWithLevel(slog.Level) slog.Handler }); ok {
		return slog.New(cloner.CloneWithLevel(level))
	}
	return slog.New(newMinLevelHandler(logger.Handler(), level))
}
