// Package llm provides a GLM chat client for prompt planning.
//
// This package is used by:
//   - Prompting stage: turn a Chinese meme request plus corpus snippets into
//     a structured music generation plan
//   - Preflight: verify the API key and model before the daemon accepts work
//
// # Request Shape
//
// The client sends a system/user message pair to {base_url}/chat/completions
// with the configured model, temperature, and token budget. No response
// format is forced; prompts are expected to ask for JSON and callers run the
// content through DecodeJSON, which strips code fences and surrounding prose
// before unmarshalling.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors and network timeouts with
// exponential backoff (base 1s, max 10s, up to 3 attempts by default),
// honoring Retry-After when the service sends one. Context cancellation
// aborts retries immediately.
//
// # Failure Classes
//
// Terminal errors carry a sentinel: ErrNotConfigured for a missing or
// rejected API key, ErrUnavailable for an unreachable or persistently
// failing service. Callers may degrade to locally built defaults on
// ErrUnavailable; ErrNotConfigured needs the operator.
package llm
