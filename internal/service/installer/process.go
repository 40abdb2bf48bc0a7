package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/asgardeo/mcp-launcher/internal/logger"
)

// commLength is the Linux limit on process names reported by the kernel.
const commLength = 15

var errBinaryRunning = errors.New("binary is currently running")

// ensureNotRunning refuses to replace a binary that a live process was started from.
func ensureNotRunning(ctx context.Context, executable string) error {
	processes, err := ps.Processes()
	if err != nil {
		// A failed listing does not block the reinstall.
		logger.WarnKV(ctx, "Unable to list processes", "error", err)
		return nil
	}

	self := os.Getpid()

	for _, p := range processes {
		if p.Pid() == self || !matchesExecutable(p.Executable(), executable) {
			continue
		}

		return fmt.Errorf("%w: %s (pid %d), stop it before reinstalling", errBinaryRunning, executable, p.Pid())
	}

	return nil
}

// matchesExecutable compares a process name with an executable name,
// tolerating the truncated names Linux reports.
func matchesExecutable(processName, executable string) bool {
	if processName == "" {
		return false
	}

	if strings.EqualFold(processName, executable) {
		return true
	}

	return len(processName) == commLength && strings.HasPrefix(executable, processName)
}
