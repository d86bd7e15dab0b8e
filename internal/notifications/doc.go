// Package notifications delivers pipeline milestones via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when no topic is set. Enumerated event
// types cover the milestones worth a push (track composed, video rendered,
// track published, failures) so stage handlers can emit consistent messages
// without duplicating HTTP glue; noisier hand-offs are accepted but never
// delivered.
//
// All workflow code depends only on the Service interface, so alternative
// transports can be swapped in behind it.
package notifications
