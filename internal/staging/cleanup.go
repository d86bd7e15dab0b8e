// Package staging sweeps abandoned temp artifacts out of the output
// directories. Interrupted downloads and atomic writes leave *.tmp-* files
// behind when the process dies between create and rename; the daemon runs a
// sweep at startup so they do not accumulate.
package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hakimi/internal/fileutil"
	"hakimi/internal/logging"
)

// Result contains the outcome of a temp artifact sweep.
type Result struct {
	Removed []string
	Errors  []SweepError
}

// SweepError pairs a path with its removal error.
type SweepError struct {
	Path  string
	Error error
}

// SweepTempArtifacts removes abandoned temp files older than maxAge from the
// given directories. Missing directories are skipped; subdirectories are not
// descended into.
func SweepTempArtifacts(ctx context.Context, dirs []string, maxAge time.Duration, logger *slog.Logger) Result {
	var result Result
	cutoff := time.Now().Add(-maxAge)

	for _, dir := range dirs {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		select {
		case <-ctx.Done():
			return result
		default:
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				result.Errors = append(result.Errors, SweepError{Path: dir, Error: err})
			}
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() || !fileutil.IsTempArtifact(entry.Name()) {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				result.Errors = append(result.Errors, SweepError{Path: filepath.Join(dir, entry.Name()), Error: err})
				continue
			}
			// A recent temp file may belong to a write still in
			// flight, so only old ones are removed.
			if info.ModTime().After(cutoff) {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if err := os.Remove(path); err != nil {
				result.Errors = append(result.Errors, SweepError{Path: path, Error: err})
				continue
			}
			result.Removed = append(result.Removed, path)
			if logger != nil {
				logger.Debug("removed abandoned temp artifact", "path", path)
			}
		}
	}

	if logger != nil {
		for _, sweepErr := range result.Errors {
			logger.Warn("temp artifact sweep failed",
				"path", sweepErr.Path,
				logging.Error(sweepErr.Error))
		}
	}
	return result
}
