package launcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/asgardeo/mcp-launcher/internal/config"
	"github.com/asgardeo/mcp-launcher/internal/platform"
)

const (
	helperEnv     = "MCP_LAUNCHER_TEST_HELPER"
	helperModeEnv = "MCP_LAUNCHER_TEST_MODE"
	helperCodeEnv = "MCP_LAUNCHER_TEST_CODE"
	helperFileEnv = "MCP_LAUNCHER_TEST_READY"
	helperEchoEnv = "MCP_LAUNCHER_TEST_ECHO"
	helperSigEnv  = "MCP_LAUNCHER_TEST_SIGNAL"
)

// echoed is what the helper child reports back in echo mode.
type echoed struct {
	Args  []string `json:"args"`
	Env   string   `json:"env"`
	Stdin string   `json:"stdin"`
}

// TestMain turns the test binary into the launched child when helperEnv is set.
func TestMain(m *testing.M) {
	if os.Getenv(helperEnv) == "1" {
		runHelper()
		return
	}

	os.Exit(m.Run())
}

func runHelper() {
	switch os.Getenv(helperModeEnv) {
	case "echo":
		stdin, _ := io.ReadAll(os.Stdin)
		_ = json.NewEncoder(os.Stdout).Encode(echoed{
			Args:  os.Args[1:],
			Env:   os.Getenv(helperEchoEnv),
			Stdin: string(stdin),
		})
		_, _ = os.Stderr.WriteString("to stderr\n")
		os.Exit(0)
	case "exit":
		code, _ := strconv.Atoi(os.Getenv(helperCodeEnv))
		os.Exit(code)
	case "signal":
		self, _ := os.FindProcess(os.Getpid())
		_ = self.Signal(syscall.SIGTERM)

		time.Sleep(time.Minute)
	case "wait":
		_ = os.WriteFile(os.Getenv(helperFileEnv), []byte("ready"), 0o600)

		time.Sleep(time.Minute)
	case "relay":
		code, _ := strconv.Atoi(os.Getenv(helperCodeEnv))
		sig, _ := strconv.Atoi(os.Getenv(helperSigEnv))
		Relay(Status{Code: code, Signal: syscall.Signal(sig)})
	}

	os.Exit(2)
}

// helperConfig points the launcher at the running test binary.
func helperConfig(t *testing.T) (*config.Config, platform.Descriptor) {
	t.Helper()

	exe, err := os.Executable()
	require.NoError(t, err)

	desc, err := platform.DefaultMap().Resolve(runtime.GOOS, runtime.GOARCH)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.InstallDir = filepath.Dir(exe)
	cfg.BinaryName = strings.TrimSuffix(filepath.Base(exe), desc.Extension)

	return cfg, desc
}

func helperOptions(t *testing.T, mode string, args []string, extraEnv ...string) *Options {
	t.Helper()

	cfg, desc := helperConfig(t)

	env := append(os.Environ(), helperEnv+"=1", helperModeEnv+"="+mode)

	return &Options{
		Config:   cfg,
		Platform: &desc,
		Args:     args,
		Env:      append(env, extraEnv...),
		Stdin:    strings.NewReader(""),
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
}

// TestRun_PassesArgsEnvAndStdio checks the child sees exactly what the launcher received.
func TestRun_PassesArgsEnvAndStdio(t *testing.T) {
	t.Parallel()

	args := []string{"--port", "8080", "", "with space", "--", "-v"}
	opts := helperOptions(t, "echo", args, helperEchoEnv+"=secret value")

	var stdout, stderr bytes.Buffer

	opts.Stdin = strings.NewReader("request\n")
	opts.Stdout = &stdout
	opts.Stderr = &stderr

	status, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.Equal(t, Status{}, status)

	var got echoed
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
	require.Equal(t, args, got.Args)
	require.Equal(t, "secret value", got.Env)
	require.Equal(t, "request\n", got.Stdin)
	require.Equal(t, "to stderr\n", stderr.String())
}

// TestRun_NoArgs passes an empty argument list through.
func TestRun_NoArgs(t *testing.T) {
	t.Parallel()

	var stdout bytes.Buffer

	opts := helperOptions(t, "echo", []string{})
	opts.Stdout = &stdout

	_, err := Run(context.Background(), opts)
	require.NoError(t, err)

	var got echoed
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
	require.Empty(t, got.Args)
}

// TestRun_ExitCodes relays the child's exit code unchanged.
func TestRun_ExitCodes(t *testing.T) {
	t.Parallel()

	for _, code := range []int{0, 1, 3, 42} {
		t.Run(strconv.Itoa(code), func(t *testing.T) {
			t.Parallel()

			opts := helperOptions(t, "exit", []string{}, helperCodeEnv+"="+strconv.Itoa(code))

			status, err := Run(context.Background(), opts)
			require.NoError(t, err)
			require.False(t, status.Signaled())
			require.Equal(t, code, status.Code)
		})
	}
}

// TestRun_ChildKilledBySignal reports the terminating signal.
func TestRun_ChildKilledBySignal(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("signals are not delivered on windows")
	}

	opts := helperOptions(t, "signal", []string{})

	status, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.True(t, status.Signaled())
	require.Equal(t, syscall.SIGTERM, status.Signal)
	require.Equal(t, "signal: terminated", status.String())
}

// relayProcess runs Relay(status) in a copy of the test binary and returns its final state.
func relayProcess(t *testing.T, status Status) *os.ProcessState {
	t.Helper()

	exe, err := os.Executable()
	require.NoError(t, err)

	cmd := exec.Command(exe) //nolint:gosec // Re-executes the test binary.
	cmd.Env = append(os.Environ(),
		helperEnv+"=1",
		helperModeEnv+"=relay",
		helperCodeEnv+"="+strconv.Itoa(status.Code),
		helperSigEnv+"="+strconv.Itoa(int(status.Signal)),
	)

	err = cmd.Run()

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		require.NoError(t, err)
	}

	return cmd.ProcessState
}

// TestRelay_ExitCode makes the process exit with the child's code.
func TestRelay_ExitCode(t *testing.T) {
	t.Parallel()

	for _, code := range []int{0, 1, 42} {
		t.Run(strconv.Itoa(code), func(t *testing.T) {
			t.Parallel()

			state := relayProcess(t, Status{Code: code})
			require.Equal(t, code, state.ExitCode())
		})
	}
}

// TestRun_UnmappedHostFallsBack launches an installed binary on a host the release map does not cover.
func TestRun_UnmappedHostFallsBack(t *testing.T) {
	t.Parallel()

	var stdout bytes.Buffer

	opts := helperOptions(t, "echo", []string{"--ping"})
	opts.Platform = nil
	opts.Stdout = &stdout
	opts.Config.Platforms = platform.Map{
		OS:   platform.DefaultMap().OS,
		Arch: map[string]string{"s390x": "s390x"},
	}

	if runtime.GOARCH == "s390x" {
		opts.Config.Platforms.Arch = map[string]string{"riscv64": "riscv64"}
	}

	status, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.Equal(t, Status{}, status)

	var got echoed
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
	require.Equal(t, []string{"--ping"}, got.Args)
}

// TestForward_FinishedChild ignores signals that arrive after the child has exited.
func TestForward_FinishedChild(t *testing.T) {
	t.Parallel()

	exe, err := os.Executable()
	require.NoError(t, err)

	cmd := exec.Command(exe) //nolint:gosec // Re-executes the test binary.
	cmd.Env = append(os.Environ(), helperEnv+"=1", helperModeEnv+"=exit", helperCodeEnv+"=0")
	require.NoError(t, cmd.Run())

	require.NoError(t, forward(cmd.Process, os.Interrupt))
}

// TestResolve prefers the install directory and falls back to PATH.
func TestResolve(t *testing.T) {
	cfg, desc := helperConfig(t)

	path, err := Resolve(cfg, desc)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(cfg.InstallDir, desc.Executable(cfg.BinaryName)), path)

	onPath := cfg.InstallDir
	cfg.InstallDir = t.TempDir()
	t.Setenv("PATH", onPath)

	path, err = Resolve(cfg, desc)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(onPath, desc.Executable(cfg.BinaryName)), path)

	t.Setenv("PATH", t.TempDir())

	_, err = Resolve(cfg, desc)
	require.ErrorIs(t, err, ErrBinaryNotFound)
}

// TestRun_BinaryNotFound fails without spawning anything.
func TestRun_BinaryNotFound(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	cfg := config.Default()
	cfg.InstallDir = t.TempDir()

	_, err := Run(context.Background(), &Options{Config: cfg, Args: []string{}})
	require.ErrorIs(t, err, ErrBinaryNotFound)
}

func TestRemediation(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	require.Equal(t,
		"❌ Asgardeo MCP Server binary not found.\nPlease run: mcp-installer install",
		Remediation(cfg))
}
