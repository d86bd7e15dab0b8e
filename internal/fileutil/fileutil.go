// Package fileutil provides small filesystem helpers shared by the daemon
// and the pipeline stages.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// tempMarker tags in-flight atomic writes so abandoned ones can be swept up
// after a crash.
const tempMarker = ".tmp-"

// IsTempArtifact reports whether name belongs to an in-flight or abandoned
// WriteFileAtomic temp file.
func IsTempArtifact(name string) bool {
	return strings.Contains(filepath.Base(name), tempMarker)
}

// WriteFileAtomic writes data to path via a temp file in the same directory
// followed by a rename, so readers never observe a partially written file.
// The temp file is removed on any failure.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+tempMarker+"*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
