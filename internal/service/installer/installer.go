package installer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/asgardeo/mcp-launcher/internal/config"
	"github.com/asgardeo/mcp-launcher/internal/console"
	"github.com/asgardeo/mcp-launcher/internal/logger"
	"github.com/asgardeo/mcp-launcher/internal/platform"
	"github.com/asgardeo/mcp-launcher/internal/release"
	"github.com/asgardeo/mcp-launcher/internal/version"
)

var (
	errConfigRequired = errors.New("configuration is required")
	errNoBinary       = errors.New("no binary found for platform")
)

const (
	// DefaultFileMode is applied to the installed binary.
	DefaultFileMode os.FileMode = 0o755

	// dirMode is used when creating the install directory.
	dirMode os.FileMode = 0o755
)

// Options are inputs accepted by the installer entry point.
type Options struct {
	// Config carries the install path, release endpoint and platform map.
	Config *config.Config
	// Platform overrides host detection when set.
	Platform *platform.Descriptor
	// Force reinstalls even when the binary already exists.
	Force bool
	// Printer receives user-facing messages. Nil discards them.
	Printer *console.Printer
	// Progress wraps the download stream. Nil disables progress output.
	Progress console.ProgressFunc
	// HTTPClient replaces the default HTTP client.
	HTTPClient *http.Client
}

// Result describes what the installer did.
type Result struct {
	// Path is the destination of the binary.
	Path string
	// Skipped is true when the binary already existed and nothing was fetched.
	Skipped bool
	// Tag is the release tag the asset came from.
	Tag string
	// Asset is the downloaded asset name.
	Asset string
	// Bytes is the downloaded size.
	Bytes int64
	// Checks lists the integrity checks that passed, e.g. "sha256", "openpgp".
	Checks []string
	// Elapsed is the wall time spent.
	Elapsed time.Duration
}

// runner holds the state of a single installation.
type runner struct {
	cfg     *config.Config
	desc    platform.Descriptor
	dest    string
	opts    *Options
	printer *console.Printer
	client  *release.Client
}

// Run executes the installation workflow.
func Run(ctx context.Context, opts *Options) (*Result, error) {
	ctx = logger.WithName(ctx, "installer")
	start := time.Now()

	logger.DebugKV(ctx, "Installer starting", "version", version.Short())

	r, err := newRunner(ctx, opts)
	if err != nil {
		return nil, err
	}

	res, err := r.run(ctx)
	if err != nil {
		logger.DebugKV(ctx, "Installation failed", "error", err)
		return nil, err
	}

	res.Elapsed = time.Since(start)
	logger.InfoKV(ctx, "Installation finished", "path", res.Path, "skipped", res.Skipped, "elapsed", res.Elapsed)

	return res, nil
}

// newRunner resolves the platform and destination before any I/O happens.
func newRunner(ctx context.Context, opts *Options) (*runner, error) {
	if opts == nil || opts.Config == nil {
		return nil, errConfigRequired
	}

	printer := opts.Printer
	if printer == nil {
		printer = console.New(nil)
	}

	printer.Step("Installing %s...", opts.Config.DisplayName)

	desc, err := resolvePlatform(ctx, opts)
	if err != nil {
		return nil, err
	}

	printer.Detail("Detecting platform: %s", desc.Pair())

	return &runner{
		cfg:     opts.Config,
		desc:    desc,
		dest:    opts.Config.BinaryPath(desc),
		opts:    opts,
		printer: printer,
		client: release.NewClient(opts.Config.APIBaseURL,
			release.WithHTTPClient(opts.HTTPClient),
			release.WithUserAgent(opts.Config.UserAgent),
			release.WithMaxRedirects(opts.Config.MaxRedirects),
			release.WithTimeout(opts.Config.Timeout),
		),
	}, nil
}

// resolvePlatform returns the override or detects the host.
func resolvePlatform(ctx context.Context, opts *Options) (platform.Descriptor, error) {
	if opts.Platform != nil {
		return *opts.Platform, nil
	}

	host, err := platform.Detect(ctx, opts.Config.Platforms)
	if err != nil {
		return platform.Descriptor{}, err
	}

	logger.DebugKV(ctx, "Detected host", "host", host.String())

	return host.Descriptor, nil
}

// run performs the steps after platform resolution.
func (r *runner) run(ctx context.Context) (*Result, error) {
	if err := os.MkdirAll(filepath.Dir(r.dest), dirMode); err != nil {
		return nil, fmt.Errorf("create install directory: %w", err)
	}

	exists, err := fileExists(r.dest)
	if err != nil {
		return nil, err
	}

	if exists && !r.opts.Force {
		r.printer.Detail("Binary already exists, skipping download.")
		return &Result{Path: r.dest, Skipped: true}, nil
	}

	if exists {
		if err = ensureNotRunning(ctx, r.desc.Executable(r.cfg.BinaryName)); err != nil {
			return nil, err
		}
	}

	rel, err := r.client.Latest(ctx, r.cfg.Repository)
	if err != nil {
		return nil, fmt.Errorf("fetch latest release: %w", err)
	}

	assetName := r.desc.AssetName(r.cfg.BinaryName)

	asset, err := rel.Asset(assetName)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", errNoBinary, r.desc.Pair(), err)
	}

	logger.InfoKV(ctx, "Selected release asset", "tag", rel.TagName, "asset", asset.Name)

	res := &Result{
		Path:  r.dest,
		Tag:   rel.TagName,
		Asset: asset.Name,
	}

	if err = r.fetchAndPlace(ctx, rel, asset, res); err != nil {
		return nil, err
	}

	r.printer.Success("%s installed successfully!", r.cfg.DisplayName)
	r.printer.Plain("Binary location: %s", r.dest)

	return res, nil
}

// fetchAndPlace downloads the asset next to the destination, checks it and swaps it in.
// The temporary file is always removed.
func (r *runner) fetchAndPlace(ctx context.Context, rel *release.Release, asset release.Asset, res *Result) (err error) {
	r.printer.Step("Downloading %s...", asset.Name)

	start := time.Now()
	defer func() {
		r.printer.Elapsed(start, err)
	}()

	tmp, err := os.CreateTemp(filepath.Dir(r.dest), "."+filepath.Base(r.dest)+"-*.download")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	res.Bytes, err = r.client.Download(ctx, asset.URL, tmp, r.opts.Progress)
	if closeErr := tmp.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close temp file: %w", closeErr)
	}

	if err != nil {
		return fmt.Errorf("download %s: %w", asset.Name, err)
	}

	checksum, err := r.expectedChecksum(ctx, rel, asset.Name)
	if err != nil {
		return err
	}

	if checksum != nil {
		res.Checks = append(res.Checks, "sha256")
	}

	if r.cfg.PublicKeyFile != "" {
		if err = r.verifySignature(ctx, rel, asset.Name, tmpPath); err != nil {
			return err
		}

		res.Checks = append(res.Checks, "openpgp")
	}

	return r.place(ctx, tmpPath, checksum)
}

// place swaps the downloaded file into the destination with go-update.
// A fresh install needs a placeholder for go-update to rename away; it is
// removed again when placing fails.
func (r *runner) place(ctx context.Context, src string, checksum []byte) error {
	exists, err := fileExists(r.dest)
	if err != nil {
		return err
	}

	if !exists {
		placeholder, createErr := os.OpenFile(r.dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, DefaultFileMode)
		if createErr != nil {
			return fmt.Errorf("create destination: %w", createErr)
		}

		_ = placeholder.Close()
	}

	if err = r.apply(src, checksum); err != nil {
		if !exists {
			_ = os.Remove(r.dest)
		}

		return fmt.Errorf("place binary: %w", err)
	}

	if !r.desc.IsWindows() {
		if err = os.Chmod(r.dest, DefaultFileMode); err != nil {
			return fmt.Errorf("set permissions on %s: %w", r.dest, err)
		}
	}

	logger.DebugKV(ctx, "Binary placed", "path", r.dest)

	return nil
}

func (r *runner) apply(src string, checksum []byte) error {
	f, err := os.Open(filepath.Clean(src))
	if err != nil {
		return err
	}

	defer func() {
		_ = f.Close()
	}()

	return goupdate.Apply(f, goupdate.Options{
		TargetPath: r.dest,
		TargetMode: DefaultFileMode,
		Checksum:   checksum,
	})
}

// fileExists reports whether path exists. Errors other than "not exist" are returned.
func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}

	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	return false, fmt.Errorf("stat %s: %w", path, err)
}
