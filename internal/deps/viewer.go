package deps

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"
)

const versionCheckTimeout = 3 * time.Second

// CheckViewer resolves the viewer binary and records the first line of its
// --version output. A binary that is found but fails the version check is still
// reported as available; the failure is noted in Detail.
func CheckViewer(ctx context.Context, command string) Status {
	status := Check(Requirement{
		Name:        "mpv",
		Command:     command,
		Description: "Required to present files for review",
	})
	if !status.Available {
		return status
	}

	versionCtx, cancel := context.WithTimeout(ctx, versionCheckTimeout)
	defer cancel()
	output, err := exec.CommandContext(versionCtx, status.Path, "--version").Output()
	if err != nil {
		status.Detail = "version check failed: " + err.Error()
		return status
	}
	status.Version = firstLine(output)
	return status
}

func firstLine(output []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line
		}
	}
	return ""
}
