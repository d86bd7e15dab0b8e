// Command hakimid runs the Hakimi daemon in the foreground. It is
// normally launched by `hakimi daemon start`, which passes the socket
// and config locations explicitly, but it can be run by hand or under
// a process supervisor.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"hakimi/internal/config"
	"hakimi/internal/daemonrun"
)

func main() {
	var (
		configPath  = flag.String("config", "", "config file path (defaults to ~/.config/hakimi/config.toml)")
		logLevel    = flag.String("log-level", "info", "log level (debug, info, warn, error)")
		socketPath  = flag.String("socket", "", "IPC socket path (defaults to <log dir>/hakimi.sock)")
		development = flag.Bool("development", false, "use human-readable console logging")
		diagnostic  = flag.Bool("diagnostic", false, "write a verbose debug log alongside the run log")
	)
	flag.Parse()

	if err := run(*configPath, *logLevel, *socketPath, *development, *diagnostic); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, logLevel, socketPath string, development, diagnostic bool) error {
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}
	return daemonrun.Run(context.Background(), cfg, daemonrun.Options{
		LogLevel:    logLevel,
		Development: development,
		Diagnostic:  diagnostic,
		SocketPath:  socketPath,
	})
}
