package builder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
	"unicode"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/semver"

	"github.com/asgardeo/mcp-launcher/internal/config"
	"github.com/asgardeo/mcp-launcher/internal/console"
	"github.com/asgardeo/mcp-launcher/internal/logger"
	"github.com/asgardeo/mcp-launcher/internal/platform"
)

var (
	errConfigRequired  = errors.New("configuration is required")
	errGoNotFound      = errors.New("go is not installed or not in PATH")
	errNoModule        = errors.New("source directory has no go.mod")
	errToolchainTooOld = errors.New("go toolchain is older than the module requires")
)

const (
	defaultGoBinary = "go"
	goModFilename   = "go.mod"

	// DefaultFileMode is applied to the built binary.
	DefaultFileMode os.FileMode = 0o755
)

// Options control a source build.
type Options struct {
	Config *config.Config
	// Platform overrides host detection when set. It only affects the output file name.
	Platform *platform.Descriptor
	// Source is the module directory. Empty means the working directory.
	Source string
	// Output overrides the destination. Empty means the configured install path.
	Output string
	// GoBinary overrides the go command looked up on PATH.
	GoBinary string
	// Printer receives user-facing messages. Nil discards them.
	Printer *console.Printer
	// Stdout and Stderr receive the compiler output. Nil means the process streams.
	Stdout io.Writer
	Stderr io.Writer
}

// Result describes a finished build.
type Result struct {
	Path string
	// Module is the module path from go.mod.
	Module string
	// Required is the go directive of the module, empty when absent.
	Required string
	// Toolchain is the version reported by the go command.
	Toolchain string
	Elapsed   time.Duration
}

// Run builds the module in opts.Source into the install path.
func Run(ctx context.Context, opts *Options) (*Result, error) {
	if opts == nil || opts.Config == nil {
		return nil, errConfigRequired
	}

	ctx = logger.WithName(ctx, "builder")
	start := time.Now()

	printer := opts.Printer
	if printer == nil {
		printer = console.New(nil)
	}

	printer.Step("🔨 Building %s...", opts.Config.DisplayName)

	goBin, err := exec.LookPath(valueOr(opts.GoBinary, defaultGoBinary))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errGoNotFound, err)
	}

	source, err := filepath.Abs(valueOr(opts.Source, "."))
	if err != nil {
		return nil, fmt.Errorf("resolve source directory: %w", err)
	}

	mod, err := readModule(source)
	if err != nil {
		return nil, err
	}

	res := &Result{Module: mod.Module.Mod.Path}
	if mod.Go != nil {
		res.Required = mod.Go.Version
	}

	res.Toolchain, err = toolchainVersion(ctx, goBin, source)
	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Toolchain detected", "module", res.Module, "requires", res.Required, "toolchain", res.Toolchain)

	if err = checkToolchain(res.Toolchain, res.Required); err != nil {
		return nil, err
	}

	res.Path, err = outputPath(ctx, opts)
	if err != nil {
		return nil, err
	}

	if err = os.MkdirAll(filepath.Dir(res.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	printer.Detail("Running: go build -o %q .", res.Path)

	cmd := exec.CommandContext(ctx, goBin, "build", "-o", res.Path, ".")
	cmd.Dir = source
	cmd.Stdout, cmd.Stderr = os.Stdout, os.Stderr

	if opts.Stdout != nil {
		cmd.Stdout = opts.Stdout
	}

	if opts.Stderr != nil {
		cmd.Stderr = opts.Stderr
	}

	if err = cmd.Run(); err != nil {
		return nil, fmt.Errorf("go build: %w", err)
	}

	if runtime.GOOS != "windows" {
		if err = os.Chmod(res.Path, DefaultFileMode); err != nil {
			return nil, fmt.Errorf("set permissions on %s: %w", res.Path, err)
		}
	}

	res.Elapsed = time.Since(start)

	printer.Success("Build completed successfully!")
	printer.Plain("Binary created at: %s", res.Path)

	return res, nil
}

func readModule(dir string) (*modfile.File, error) {
	path := filepath.Join(dir, goModFilename)

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", errNoModule, dir)
		}

		return nil, err
	}

	mod, err := modfile.Parse(path, data, nil)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if mod.Module == nil {
		return nil, fmt.Errorf("%w: %s has no module directive", errNoModule, path)
	}

	return mod, nil
}

// toolchainVersion asks the go command for its version from inside the module,
// so toolchain switching driven by go.mod is taken into account.
func toolchainVersion(ctx context.Context, goBin, dir string) (string, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, goBin, "env", "GOVERSION")
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("go env GOVERSION: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return strings.TrimSpace(stdout.String()), nil
}

// checkToolchain fails when toolchain is older than required.
// Versions that cannot be compared are accepted and left to the compiler.
func checkToolchain(toolchain, required string) error {
	if required == "" {
		return nil
	}

	have, want := toSemver(toolchain), toSemver(required)
	if !semver.IsValid(have) || !semver.IsValid(want) {
		return nil
	}

	if semver.Compare(have, want) < 0 {
		return fmt.Errorf("%w: have %s, need go %s", errToolchainTooOld, toolchain, required)
	}

	return nil
}

// toSemver turns Go version strings such as "go1.25.1", "1.25" or "go1.26rc1"
// into comparable semantic versions.
func toSemver(v string) string {
	v = strings.TrimPrefix(strings.TrimSpace(v), "go")
	if fields := strings.Fields(v); len(fields) > 0 {
		v = fields[0]
	}

	pre := ""
	if i := strings.IndexFunc(v, func(r rune) bool { return r != '.' && !unicode.IsDigit(r) }); i >= 0 {
		v, pre = v[:i], "-"+v[i:]
	}

	parts := strings.Split(v, ".")
	for len(parts) < 3 {
		parts = append(parts, "0")
	}

	return "v" + strings.Join(parts, ".") + pre
}

func outputPath(ctx context.Context, opts *Options) (string, error) {
	if opts.Output != "" {
		return filepath.Abs(opts.Output)
	}

	if opts.Platform != nil {
		return opts.Config.BinaryPath(*opts.Platform), nil
	}

	host, err := platform.Detect(ctx, opts.Config.Platforms)
	if err != nil {
		// Unmapped platforms have no release asset but can still be built.
		return opts.Config.BinaryPath(platform.Fallback(runtime.GOOS, runtime.GOARCH)), nil
	}

	return opts.Config.BinaryPath(host.Descriptor), nil
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}

	return v
}
