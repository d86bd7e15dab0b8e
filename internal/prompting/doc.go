// Package prompting runs the prompt middleware stage: it turns a raw
// Chinese request into a structured plan the composing stage can hand to
// the music generation service.
//
// The stage samples tone snippets from the corpus store, builds a
// two-message chat exchange (a style-engineer system role plus the request
// and snippet block), and decodes the model's JSON reply into a plan. The
// plan carries the English music prompt, an optional Chinese explanation,
// style tags, and an optional short lyric hook.
//
// # Failure handling
//
// A missing or rejected API key and an unparsable or empty plan route the
// item to review; those need an operator. An unavailable prompt model is
// different: the stage logs the outage and degrades to a locally built
// fallback plan so a provider incident does not strand the queue. Fallback
// plans are marked with their source so downstream stages and operators can
// tell them apart.
package prompting
