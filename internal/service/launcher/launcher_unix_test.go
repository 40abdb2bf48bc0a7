//go:build !windows

package launcher

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestRun_ForwardsSignals delivers a signal to the launcher and expects the child to die from it.
// Not parallel: every running launcher forwards signals sent to the test process.
func TestRun_ForwardsSignals(t *testing.T) {
	ready := filepath.Join(t.TempDir(), "ready")
	opts := helperOptions(t, "wait", []string{}, helperFileEnv+"="+ready)

	type outcome struct {
		status Status
		err    error
	}

	done := make(chan outcome, 1)

	go func() {
		status, err := Run(context.Background(), opts)
		done <- outcome{status, err}
	}()

	require.Eventually(t, func() bool {
		_, err := os.Stat(ready)
		return err == nil
	}, 10*time.Second, 20*time.Millisecond)

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGHUP))

	select {
	case got := <-done:
		require.NoError(t, got.err)
		require.Equal(t, syscall.SIGHUP, got.status.Signal)
	case <-time.After(10 * time.Second):
		t.Fatal("child did not exit after the forwarded signal")
	}
}

// TestRelay_ReRaisesSignal makes the process die from the child's signal.
func TestRelay_ReRaisesSignal(t *testing.T) {
	t.Parallel()

	state := relayProcess(t, Status{Signal: syscall.SIGTERM})

	ws, ok := state.Sys().(syscall.WaitStatus)
	require.True(t, ok)
	require.True(t, ws.Signaled())
	require.Equal(t, syscall.SIGTERM, ws.Signal())
}

// TestRelay_IgnoredSignalExitsWithShellCode falls back to 128+n when the re-raised signal is ignored.
func TestRelay_IgnoredSignalExitsWithShellCode(t *testing.T) {
	t.Parallel()

	state := relayProcess(t, Status{Signal: syscall.SIGWINCH})

	ws, ok := state.Sys().(syscall.WaitStatus)
	require.True(t, ok)
	require.False(t, ws.Signaled())
	require.Equal(t, 128+int(syscall.SIGWINCH), state.ExitCode())
}
