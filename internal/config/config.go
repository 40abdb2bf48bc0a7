package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/asgardeo/mcp-launcher/internal/logger"
	"github.com/asgardeo/mcp-launcher/internal/platform"
)

// Config holds the installer and launcher settings.
type Config struct {
	// BinaryName is the base name of the managed binary and of its release assets.
	BinaryName string `yaml:"binary_name"`
	// DisplayName is the product name used in console messages.
	DisplayName string `yaml:"display_name"`
	// Repository is the "owner/name" of the release repository.
	Repository string `yaml:"repository"`
	// APIBaseURL is the root of the release metadata API.
	APIBaseURL string `yaml:"api_base_url"`
	// InstallDir is the directory holding the installed binary.
	// Empty means the directory of the running executable.
	InstallDir string `yaml:"install_dir,omitempty"`
	// UserAgent is sent with every metadata and download request.
	UserAgent string `yaml:"user_agent"`
	// Timeout bounds a single HTTP request. Zero disables the limit.
	Timeout time.Duration `yaml:"timeout"`
	// MaxRedirects caps the redirect chain followed while downloading.
	MaxRedirects int `yaml:"max_redirects"`
	// InstallHint is the command suggested when the binary is missing.
	InstallHint string `yaml:"install_hint"`
	// LogLevel is the zap level name for diagnostic logs.
	LogLevel string `yaml:"log_level,omitempty"`
	// ChecksumsAsset optionally names a release asset with "sha256  filename" lines.
	ChecksumsAsset string `yaml:"checksums_asset,omitempty"`
	// PublicKeyFile optionally points at an armored OpenPGP public key;
	// when set, the "<asset>.asc" signature is required and verified.
	PublicKeyFile string `yaml:"public_key_file,omitempty"`
	// Platforms maps GOOS/GOARCH values onto release asset naming.
	Platforms platform.Map `yaml:"platforms"`
}

const (
	// DefaultConfigFilename is looked up next to the running executable.
	DefaultConfigFilename = "mcp-launcher.yaml"

	// DefaultBinaryName is the managed server binary.
	DefaultBinaryName = "asgardeo-mcp"

	// DefaultDisplayName is used in console messages.
	DefaultDisplayName = "Asgardeo MCP Server"

	// DefaultRepository hosts the prebuilt releases.
	DefaultRepository = "asgardeo/asgardeo-mcp-server"

	// DefaultAPIBaseURL is the release metadata API root.
	DefaultAPIBaseURL = "https://api.github.com"

	// DefaultUserAgent identifies the installer to the release host.
	DefaultUserAgent = "asgardeo-mcp-installer"

	// DefaultInstallHint is printed when the launcher cannot find the binary.
	DefaultInstallHint = "mcp-installer install"

	// DefaultTimeout bounds metadata and download requests.
	DefaultTimeout = 10 * time.Minute

	// DefaultMaxRedirects caps download redirect chains.
	DefaultMaxRedirects = 10

	// DefaultLogLevel keeps diagnostics out of the way of console messages.
	DefaultLogLevel = "warn"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errBinaryNameRequired is returned when the binary name is blank.
	errBinaryNameRequired = errors.New("binary name must be provided")
	// errBadBinaryName is returned when the binary name would escape the install directory.
	errBadBinaryName = errors.New("binary name must not contain path separators")
	// errBadRepository is returned when the repository is not "owner/name".
	errBadRepository = errors.New("repository must look like owner/name")
	// errBadRedirects is returned for a negative redirect cap.
	errBadRedirects = errors.New("max redirects must not be negative")
	// errBadTimeout is returned for a negative timeout.
	errBadTimeout = errors.New("timeout must not be negative")
	// errBadLogLevel is returned for unknown level names.
	errBadLogLevel = errors.New("unknown log level")
)

// Default returns a configuration populated with the built-in defaults.
func Default() *Config {
	return &Config{
		BinaryName:   DefaultBinaryName,
		DisplayName:  DefaultDisplayName,
		Repository:   DefaultRepository,
		APIBaseURL:   DefaultAPIBaseURL,
		UserAgent:    DefaultUserAgent,
		Timeout:      DefaultTimeout,
		MaxRedirects: DefaultMaxRedirects,
		InstallHint:  DefaultInstallHint,
		LogLevel:     DefaultLogLevel,
		Platforms:    platform.DefaultMap(),
	}
}

// Load reads configuration from the provided path and validates it.
// An empty path means the default location next to the executable; a missing
// file there yields the defaults, while a missing explicit file is an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = Locate()
	}

	cfg := Default()

	contents, err := os.ReadFile(filepath.Clean(path))
	switch {
	case err == nil:
		if err = yaml.Unmarshal(contents, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = Locate()
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings and fills in defaults for empty fields.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	cfg.BinaryName = strings.TrimSpace(cfg.BinaryName)
	if cfg.BinaryName == "" {
		return errBinaryNameRequired
	}

	if strings.ContainsAny(cfg.BinaryName, `/\`) {
		return fmt.Errorf("%w: %q", errBadBinaryName, cfg.BinaryName)
	}

	owner, name, ok := strings.Cut(cfg.Repository, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("%w: %q", errBadRepository, cfg.Repository)
	}

	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}

	if _, err := url.ParseRequestURI(cfg.APIBaseURL); err != nil {
		return fmt.Errorf("invalid api base url: %w", err)
	}

	if cfg.MaxRedirects < 0 {
		return errBadRedirects
	}

	if cfg.Timeout < 0 {
		return errBadTimeout
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errBadLogLevel, cfg.LogLevel)
	}

	if cfg.DisplayName == "" {
		cfg.DisplayName = cfg.BinaryName
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	if cfg.InstallHint == "" {
		cfg.InstallHint = DefaultInstallHint
	}

	if cfg.Platforms.IsZero() {
		cfg.Platforms = platform.DefaultMap()
	}

	return nil
}

// Locate returns the default config path: DefaultConfigFilename next to the running executable.
func Locate() string {
	return filepath.Join(ExecutableDir(), DefaultConfigFilename)
}

// ExecutableDir returns the directory of the running executable with symlinks resolved,
// or the working directory when it cannot be determined.
func ExecutableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}

	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}

	return filepath.Dir(exe)
}

// Dir returns the effective install directory.
func (c *Config) Dir() string {
	if c.InstallDir != "" {
		return filepath.Clean(c.InstallDir)
	}

	return ExecutableDir()
}

// BinaryPath returns "<install_dir>/<binary_name><ext>" for the descriptor.
func (c *Config) BinaryPath(desc platform.Descriptor) string {
	return filepath.Join(c.Dir(), desc.Executable(c.BinaryName))
}
