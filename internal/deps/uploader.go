package deps

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// CheckUploaderCommand reports the binary the configured publisher command
// resolves to.
//
// Uploader tools are often dropped into a tools directory rather than
// installed on PATH, so the command may name a script by absolute or relative
// path. Only the first whitespace-separated field is resolved; the remainder
// is treated as arguments.
func CheckUploaderCommand(command string) Status {
	result := Status{
		Name:        "Uploader",
		Description: "Hands rendered videos to the publishing site",
		Optional:    true,
	}

	fields := strings.Fields(command)
	if len(fields) == 0 {
		result.Detail = "command not configured"
		return result
	}
	binary := fields[0]
	result.Command = binary

	if strings.ContainsAny(binary, "/\\") {
		info, err := os.Stat(binary)
		if err != nil {
			result.Detail = fmt.Sprintf("binary %q not found", binary)
			return result
		}
		if !isExecutable(info) {
			result.Detail = fmt.Sprintf("%q is not executable", binary)
			return result
		}
		result.Available = true
		return result
	}

	if resolved, err := exec.LookPath(binary); err == nil {
		result.Command = resolved
		result.Available = true
		return result
	}
	result.Detail = fmt.Sprintf("binary %q not found", binary)
	return result
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
