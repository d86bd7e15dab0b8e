// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect executes ffprobe and decodes the stream and format sections the
// render stage validates: stream counts, container duration, and size.
// Numeric fields arrive as strings from ffprobe; helpers parse them and
// report 0 when a value is missing or malformed.
package ffprobe
