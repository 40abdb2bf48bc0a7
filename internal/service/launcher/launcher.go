package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/asgardeo/mcp-launcher/internal/config"
	"github.com/asgardeo/mcp-launcher/internal/logger"
	"github.com/asgardeo/mcp-launcher/internal/platform"
)

var (
	// ErrBinaryNotFound is returned when neither the install directory nor PATH holds the binary.
	ErrBinaryNotFound = errors.New("binary not found")

	errConfigRequired = errors.New("configuration is required")
)

// Options describe a single launch.
type Options struct {
	Config *config.Config
	// Platform overrides host detection when set.
	Platform *platform.Descriptor
	// Args are passed to the child verbatim. Nil means os.Args[1:].
	Args []string
	// Env is the child environment. Nil means os.Environ().
	Env []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Status is how the child terminated.
type Status struct {
	// Code is the exit code; meaningful when Signal is zero.
	Code int
	// Signal is the signal that killed the child, or zero.
	Signal syscall.Signal
}

// Signaled reports whether the child was terminated by a signal.
func (s Status) Signaled() bool {
	return s.Signal != 0
}

func (s Status) String() string {
	if s.Signaled() {
		return "signal: " + s.Signal.String()
	}

	return fmt.Sprintf("exit code %d", s.Code)
}

// Resolve returns the binary path: the install directory first, then PATH.
func Resolve(cfg *config.Config, desc platform.Descriptor) (string, error) {
	local := cfg.BinaryPath(desc)

	info, err := os.Stat(local)
	if err == nil && !info.IsDir() {
		return local, nil
	}

	name := desc.Executable(cfg.BinaryName)

	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s is not in %s or on PATH", ErrBinaryNotFound, name, cfg.Dir())
	}

	return path, nil
}

// Remediation is printed when the binary cannot be found.
func Remediation(cfg *config.Config) string {
	return fmt.Sprintf("❌ %s binary not found.\nPlease run: %s", cfg.DisplayName, cfg.InstallHint)
}

// Run resolves the binary, runs it to completion and returns its termination status.
// Signals received meanwhile are forwarded to the child.
func Run(ctx context.Context, opts *Options) (Status, error) {
	if opts == nil || opts.Config == nil {
		return Status{}, errConfigRequired
	}

	ctx = logger.WithName(ctx, "launcher")

	path, err := Resolve(opts.Config, resolvePlatform(ctx, opts))
	if err != nil {
		return Status{}, err
	}

	cmd := command(path, opts)

	logger.DebugKV(ctx, "Starting child", "path", path, "args", len(cmd.Args)-1)

	// Subscribe before starting so an early signal is not lost.
	signals := make(chan os.Signal, len(forwardedSignals))
	signal.Notify(signals, forwardedSignals...)

	defer signal.Stop(signals)

	if err = cmd.Start(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Status{}, fmt.Errorf("%w: %w", ErrBinaryNotFound, err)
		}

		return Status{}, fmt.Errorf("start %s: %w", path, err)
	}

	done := make(chan error, 1)

	go func() {
		done <- cmd.Wait()
	}()

	for {
		select {
		case sig := <-signals:
			logger.DebugKV(ctx, "Forwarding signal", "signal", sig.String(), "pid", cmd.Process.Pid)

			if err = forward(cmd.Process, sig); err != nil {
				logger.WarnKV(ctx, "Unable to forward signal", "signal", sig.String(), "error", err)
			}
		case err = <-done:
			var exitErr *exec.ExitError
			if err != nil && !errors.As(err, &exitErr) {
				return Status{}, fmt.Errorf("wait for %s: %w", path, err)
			}

			status := statusOf(cmd.ProcessState)
			logger.DebugKV(ctx, "Child exited", "status", status.String())

			return status, nil
		}
	}
}

// resolvePlatform only needs the executable extension, so hosts missing from
// the release map fall back to their raw GOOS/GOARCH.
func resolvePlatform(ctx context.Context, opts *Options) platform.Descriptor {
	if opts.Platform != nil {
		return *opts.Platform
	}

	desc, err := opts.Config.Platforms.Resolve(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		logger.DebugKV(ctx, "Host is not in the platform map", "error", err)
		return platform.Fallback(runtime.GOOS, runtime.GOARCH)
	}

	return desc
}

func command(path string, opts *Options) *exec.Cmd {
	args := opts.Args
	if args == nil {
		args = os.Args[1:]
	}

	cmd := exec.Command(path, args...) //nolint:gosec // Running the configured binary is the whole point.

	cmd.Env = opts.Env
	if cmd.Env == nil {
		cmd.Env = os.Environ()
	}

	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr

	if opts.Stdin != nil {
		cmd.Stdin = opts.Stdin
	}

	if opts.Stdout != nil {
		cmd.Stdout = opts.Stdout
	}

	if opts.Stderr != nil {
		cmd.Stderr = opts.Stderr
	}

	return cmd
}
