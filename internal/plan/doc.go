// Package plan defines the structured prompt payload shared between
// workflow stages.
//
// The prompting stage produces a Plan from the user's need and the meme
// corpus; the composing stage reads it to build the generation request.
// Plans persist as JSON in queue.plan_json, so stages communicate through
// the queue item rather than holding private state.
package plan
