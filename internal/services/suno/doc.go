// Package suno orchestrates asynchronous music-generation jobs against an
// AI Music (Suno) compatible API.
//
// One Generate call runs the whole sequence: submit the job, poll it to a
// terminal state under a wait budget, then materialize the audio artifact
// (and, best effort, the cover image) into the output directory. Submission
// failure is fatal while a mid-poll transport fault is retried against the
// same task handle; a lost status query can simply be asked again, but a
// lost submission may or may not have created a job.
//
// Fatal outcomes carry the package sentinels (ErrRejected, ErrJobFailed,
// ErrPollTimeout, ...) so callers can branch with errors.Is. Each call is
// independent; clients hold no mutable state across calls beyond the output
// directory.
package suno
