//go:build windows

package launcher

import (
	"os"
)

// forwardedSignals are only absorbed so the launcher outlives the child.
var forwardedSignals = []os.Signal{os.Interrupt}

func statusOf(state *os.ProcessState) Status {
	return Status{Code: max(state.ExitCode(), 0)}
}

// forward does nothing: the console already delivers Ctrl-C to the child,
// and os.Process.Signal cannot send os.Interrupt on Windows.
func forward(*os.Process, os.Signal) error {
	return nil
}
