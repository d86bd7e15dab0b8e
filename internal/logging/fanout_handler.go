package logging

import (
	"context"
	"log/slog"
)

// fanoutHandler feeds each record to every child handler that accepts its
// level. Diagnostic runs use it to keep a DEBUG journal beside the normal
// run log.
type fanoutHandler struct {
	children []slog.Handler
}

func newFanoutHandler(handlers ...slog.Handler) slog.Handler {
	children := make([]slog.Handler, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			children = append(children, h)
		}
	}
	switch len(children) {
	case 0:
		return NoopHandler{}
	case 1:
		return children[0]
	}
	return &fanoutHandler{children: children}
}

func (f *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, child := range f.children {
		if child.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for i, child := range f.children {
		if !child.Enabled(ctx, record.Level) {
			continue
		}
		rec := record
		if i < len(f.children)-1 {
			rec = record.Clone()
		}
		if err := child.Handle(ctx, rec); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	children := make([]slog.Handler, len(f.children))
	for i, child := range f.children {
		children[i] = child.WithAttrs(attrs)
	}
	return &fanoutHandler{children: children}
}

func (f *fanoutHandler) WithGroup(name string) slog.Handler {
	children := make([]slog.Handler, len(f.children))
	for i, child := range f.children {
		children[i] = child.WithGroup(name)
	}
	return &fanoutHandler{children: children}
}

// TeeLogger returns a logger whose records also reach the extra handlers.
func TeeLogger(base *slog.Logger, handlers ...slog.Handler) *slog.Logger {
	if base == nil {
		return slog.New(newFanoutHandler(handlers...))
	}
	all := append([]slog.Handler{base.Handler()}, handlers...)
	return slog.New(newFanoutHandler(all...))
}
