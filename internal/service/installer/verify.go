package installer

import (
	"errors"
	"fmt"
	"os"

	"github.com/asgardeo/mcp-launcher/internal/config"
	"github.com/asgardeo/mcp-launcher/internal/platform"
)

var (
	errNotInstalled   = errors.New("binary is not installed")
	errNotRegularFile = errors.New("binary path is not a regular file")
	errNotExecutable  = errors.New("binary is not executable")
)

// Report is the outcome of Verify.
type Report struct {
	Path string
	Mode os.FileMode
	Size int64
	// Executable is true when the owner execute bit is set, or always on Windows.
	Executable bool
}

// Verify checks that the installed binary exists, is a regular file and carries the owner execute bit.
// The report is returned alongside the error whenever the file could be inspected.
func Verify(cfg *config.Config, desc platform.Descriptor) (*Report, error) {
	if cfg == nil {
		return nil, errConfigRequired
	}

	path := cfg.BinaryPath(desc)

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", errNotInstalled, path)
		}

		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	report := &Report{
		Path:       path,
		Mode:       info.Mode(),
		Size:       info.Size(),
		Executable: desc.IsWindows() || info.Mode().Perm()&0o100 != 0,
	}

	if !info.Mode().IsRegular() {
		return report, fmt.Errorf("%w: %s", errNotRegularFile, path)
	}

	if !report.Executable {
		return report, fmt.Errorf("%w: %s has mode %s", errNotExecutable, path, report.Mode.Perm())
	}

	return report, nil
}
