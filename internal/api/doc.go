// Package api defines wire-format types and converters shared by the IPC and
// HTTP surfaces. It translates internal queue models into transport-friendly
// DTOs so clients can render queue and daemon state without coupling to
// internal types.
//
// # Key Types
//
// QueueItem: transport representation of a queue entry with progress, artifact
// paths, and derived plan/track summaries.
//
// WorkflowStatus: daemon running state, queue stats, stage health, and last item.
//
// DaemonStatus: aggregated runtime information including dependencies.
//
// LogEvent/LogStreamResponse: structured log payloads for live tailing.
//
// # Converters
//
// FromQueueItem: queue.Item -> QueueItem with lane derivation and plan/track
// summaries decoded from the stored JSON payloads.
//
// FromStatusSummary: workflow.StatusSummary -> WorkflowStatus.
//
// StageHealthSlice: deterministic ordering of stage health map.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers. Internal
// enums (queue.Status, queue.ProcessingLane) are exposed as lowercase strings.
// Timestamps use RFC3339 with milliseconds.
//
// Plan and track summaries are derived from the stored PlanJSON/ResultJSON on
// every conversion rather than cached, so the API always reflects what the
// stages actually persisted.
package api
