package render

import (
	"context"
	"os/exec"

	"hakimi/internal/media/ffprobe"
)

// renderProbe is the ffprobe function used by the render package.
// It is a package-level variable so tests can override it.
var renderProbe = ffprobe.Inspect

// SetProbeForTests overrides the ffprobe runner during tests.
func SetProbeForTests(fn func(context.Context, string, string) (ffprobe.Result, error)) func() {
	previous := renderProbe
	renderProbe = fn
	return func() {
		renderProbe = previous
	}
}

// commandContext builds the ffmpeg invocation. Tests substitute it to fake
// renders without a real binary.
var commandContext = exec.CommandContext

// SetCommandForTests overrides the ffmpeg launcher during tests.
func SetCommandForTests(fn func(context.Context, string, ...string) *exec.Cmd) func() {
	previous := commandContext
	commandContext = fn
	return func() {
		commandContext = previous
	}
}
