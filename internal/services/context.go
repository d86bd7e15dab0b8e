package services

import "context"

// Context carries the identity of the work being done: which queue item,
// which stage, which lane, and the request correlation id. Stage handlers
// and service clients read these for log attribution.

type ctxKey int

const (
	ctxKeyItemID ctxKey = iota
	ctxKeyStage
	ctxKeyLane
	ctxKeyRequestID
)

// WithItemID binds the queue item identifier to the context.
func WithItemID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, ctxKeyItemID, id)
}

// ItemIDFromContext reports the queue item identifier, if bound.
func ItemIDFromContext(ctx context.Context) (int64, bool) {
	switch id := ctx.Value(ctxKeyItemID).(type) {
	case int64:
		return id, true
	case int:
		return int64(id), true
	}
	return 0, false
}

// WithStage binds the workflow stage name to the context.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyStage, stage)
}

// StageFromContext reports the stage name, if bound.
func StageFromContext(ctx context.Context) (string, bool) {
	stage, ok := ctx.Value(ctxKeyStage).(string)
	return stage, ok && stage != ""
}

// WithLane binds the workflow lane (foreground or background) to the
// context.
func WithLane(ctx context.Context, lane string) context.Context {
	if lane == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyLane, lane)
}

// LaneFromContext reports the lane name, if bound.
func LaneFromContext(ctx context.Context) (string, bool) {
	lane, ok := ctx.Value(ctxKeyLane).(string)
	return lane, ok && lane != ""
}

// WithRequestID binds a correlation identifier to the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// RequestIDFromContext reports the correlation identifier, if bound.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKeyRequestID).(string)
	return id, ok && id != ""
}
