// Package workflow advances queue items through the configured processing
// stages.
//
// The Manager polls the queue, reclaims stale work via heartbeats, and feeds
// items into registered stage handlers (planner, composer, renderer,
// publisher) while capturing progress and failure metadata. It also
// aggregates queue stats, calls stage health checks, and emits a queue-level
// notification when processing completes.
//
// The workflow runs two independent lanes: foreground (prompt planning,
// music composition) and background (video rendering, publishing). Each lane
// polls for items matching its statuses and processes them independently, so
// a new request can be planned while an earlier track renders.
//
// Add new lifecycle stages by extending StageSet, updating the queue status
// enums, and teaching the manager how to transition items; this package is the
// authoritative home for that coordination logic.
package workflow
