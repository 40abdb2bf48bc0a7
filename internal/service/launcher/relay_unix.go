//go:build !windows

package launcher

import (
	"os"
	"os/signal"
	"syscall"
	"time"
)

// selfSignalGrace is how long Relay waits for a re-raised signal to take effect.
const selfSignalGrace = time.Second

// Relay terminates the current process the way the child terminated.
// A signal is re-raised against this process with the default disposition restored;
// if the process survives it, Relay exits with 128+signal like a shell would.
func Relay(status Status) {
	if !status.Signaled() {
		os.Exit(status.Code)
	}

	signal.Reset(status.Signal)

	if err := syscall.Kill(os.Getpid(), status.Signal); err == nil {
		time.Sleep(selfSignalGrace)
	}

	os.Exit(128 + int(status.Signal))
}
