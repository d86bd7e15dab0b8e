package preflight

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// minFreeBytes is the floor below which the volume holding the output
// directory is considered too full to take on new tracks.
const minFreeBytes = 1 << 30

// statfs allows tests to stub filesystem stats.
var statfs = realStatfs

// CheckFreeSpace reports whether the filesystem holding path has at least
// minBytes available.
func CheckFreeSpace(name, path string, minBytes uint64) Result {
	_, free, err := statfs(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	detail := fmt.Sprintf("%s free", formatByteSize(free))
	if free < minBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%s, need at least %s", detail, formatByteSize(minBytes))}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

func realStatfs(path string) (uint64, uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	return total, free, nil
}

func formatByteSize(value uint64) string {
	const (
		kiB = uint64(1) << 10
		miB = uint64(1) << 20
		giB = uint64(1) << 30
	)
	switch {
	case value >= giB:
		return fmt.Sprintf("%.1f GiB", float64(value)/float64(giB))
	case value >= miB:
		return fmt.Sprintf("%.1f MiB", float64(value)/float64(miB))
	case value >= kiB:
		return fmt.Sprintf("%.1f KiB", float64(value)/float64(kiB))
	default:
		return fmt.Sprintf("%d B", value)
	}
}
