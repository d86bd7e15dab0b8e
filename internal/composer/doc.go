// Package composer runs the music generation stage: it turns a stored
// prompt plan into downloaded audio and cover artifacts.
//
// Execute builds the generation request from the plan, then drives the
// service client through submit, poll, and download in one blocking call.
// Poll observations are mirrored onto the queue item so listings show
// movement during the multi-minute wait. The downloaded artifact paths and
// clip metadata are persisted on the item for the render and publish stages.
//
// Generation failures are reported, not requeued: a failed remote job or an
// exhausted poll budget fails the item, while an unreadable plan or missing
// API key routes it to review.
package composer
