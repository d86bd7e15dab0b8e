package logging

import (
	"context"
	"log/slog"

	"hakimi/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldItemID is the standardized structured logging key for queue item identifiers.
	FieldItemID = "item_id"
	// FieldStage is the standardized structured logging key for workflow stage names.
	FieldStage = "stage"
	// FieldLane is the standardized structured logging key for workflow lane names.
	FieldLane = "lane"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
	// FieldEventType is the standardized structured logging key for machine-readable event names.
	FieldEventType = "event_type"
	// FieldDecisionType is the standardized structured logging key for recorded decisions.
	FieldDecisionType = "decision_type"
	// FieldErrorCode carries a stable machine-readable failure code.
	FieldErrorCode = "error_code"
	// FieldErrorHint suggests the next operator action after a failure.
	FieldErrorHint = "error_hint"
	// FieldErrorDetailPath points at a file containing full error output.
	FieldErrorDetailPath = "error_detail_path"
	// FieldProgressStage names the sub-step reported by a progress update.
	FieldProgressStage = "progress_stage"
	// FieldProgressPercent carries the completion percentage of a progress update.
	FieldProgressPercent = "progress_percent"
	// FieldProgressMessage carries the human-readable progress description.
	FieldProgressMessage = "progress_message"
	// FieldProgressETA carries the estimated time remaining for a progress update.
	FieldProgressETA = "progress_eta"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.ItemIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldItemID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if lane, ok := services.LaneFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldLane, lane))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
