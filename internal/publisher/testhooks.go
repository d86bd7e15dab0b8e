package publisher

import (
	"context"
	"os/exec"
)

// commandContext builds the uploader invocation. Tests substitute it to fake
// uploads without a real command.
var commandContext = exec.CommandContext

// SetCommandForTests overrides the uploader launcher during tests.
func SetCommandForTests(fn func(context.Context, string, ...string) *exec.Cmd) func() {
	previous := commandContext
	commandContext = fn
	return func() {
		commandContext = previous
	}
}
