// Package logging assembles the structured slog loggers and formatting
// helpers used across the hakimi services.
//
// It owns the configurable console/JSON handlers, centralizes level and
// output plumbing, and exposes context-aware helpers so stage code can
// automatically tag log lines with queue item IDs, stages, and correlation
// IDs. It also hosts the in-memory event stream and on-disk archive the
// daemon serves over IPC, plus a no-op logger for tests and wiring code
// that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup to ensure new
// components emit data with the same shape and routing guarantees as the
// rest of the system.
package logging
