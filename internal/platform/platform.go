package platform

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

var (
	// ErrUnsupportedPlatform is returned when the operating system has no release target.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	// ErrUnsupportedArch is returned when the architecture has no release target.
	ErrUnsupportedArch = errors.New("unsupported architecture")
)

// OSTarget describes how an operating system is named in release assets.
type OSTarget struct {
	// Name is the operating system token used in asset names.
	Name string `yaml:"name"`
	// Extension is appended to executable names, e.g. ".exe".
	Extension string `yaml:"extension,omitempty"`
}

// Map translates GOOS and GOARCH values into release naming.
type Map struct {
	// OS maps GOOS values to their release target.
	OS map[string]OSTarget `yaml:"os"`
	// Arch maps GOARCH values to release architecture tokens.
	Arch map[string]string `yaml:"arch"`
}

// DefaultMap returns the three supported operating systems and two architectures.
func DefaultMap() Map {
	return Map{
		OS: map[string]OSTarget{
			"darwin":  {Name: "darwin"},
			"linux":   {Name: "linux"},
			"windows": {Name: "windows", Extension: ".exe"},
		},
		Arch: map[string]string{
			"amd64": "amd64",
			"arm64": "arm64",
		},
	}
}

// IsZero reports whether the map has no entries at all.
func (m Map) IsZero() bool {
	return len(m.OS) == 0 && len(m.Arch) == 0
}

// Resolve returns the descriptor for the provided GOOS/GOARCH pair.
// The operating system is checked first.
func (m Map) Resolve(goos, goarch string) (Descriptor, error) {
	target, ok := m.OS[goos]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s (supported: %v)", ErrUnsupportedPlatform, goos, sortedKeys(m.OS))
	}

	arch, ok := m.Arch[goarch]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s (supported: %v)", ErrUnsupportedArch, goarch, sortedKeys(m.Arch))
	}

	return Descriptor{
		OS:        target.Name,
		Arch:      arch,
		Extension: target.Extension,
	}, nil
}

// Fallback describes a host the map does not cover: the raw GOOS/GOARCH values
// and ".exe" on Windows. It names local executables only; no release asset uses it.
func Fallback(goos, goarch string) Descriptor {
	desc := Descriptor{OS: goos, Arch: goarch}
	if goos == "windows" {
		desc.Extension = ".exe"
	}

	return desc
}

// Descriptor is the resolved (osName, archName, extension) triple.
type Descriptor struct {
	OS        string
	Arch      string
	Extension string
}

// Pair returns "<os>-<arch>".
func (d Descriptor) Pair() string {
	return d.OS + "-" + d.Arch
}

// AssetName returns the release asset name "<binary>-<os>-<arch><ext>".
func (d Descriptor) AssetName(binary string) string {
	return binary + "-" + d.Pair() + d.Extension
}

// Executable returns the on-disk executable name "<binary><ext>".
func (d Descriptor) Executable(binary string) string {
	return binary + d.Extension
}

// IsWindows reports whether the descriptor targets Windows executables.
func (d Descriptor) IsWindows() bool {
	return d.Extension == ".exe"
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
