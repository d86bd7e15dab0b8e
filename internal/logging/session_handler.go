package logging

import (
	"context"
	"log/slog"
)

// FieldSessionID tags records from a diagnostic daemon run so the run log
// and the debug journal can be correlated afterwards.
const FieldSessionID = "session_id"

// sessionHandler stamps a fixed session identifier onto every record.
type sessionHandler struct {
	next slog.Handler
	id   string
}

func newSessionHandler(next slog.Handler, id string) slog.Handler {
	if next == nil {
		return NoopHandler{}
	}
	return &sessionHandler{next: next, id: id}
}

func (h *sessionHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *sessionHandler) Handle(ctx context.Context, record slog.Record) error {
	record.AddAttrs(slog.String(FieldSessionID, h.id))
	return h.next.Handle(ctx, record)
}

func (h *sessionHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &sessionHandler{next: h.next.WithAttrs(attrs), id: h.id}
}

func (h *sessionHandler) WithGroup(name string) slog.Handler {
	return &sessionHandler{next: h.next.WithGroup(name), id: h.id}
}
