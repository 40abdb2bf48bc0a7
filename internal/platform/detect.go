package platform

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

// Host is the descriptor of the running machine plus introspection details.
type Host struct {
	Descriptor

	// GOOS and GOARCH are the raw values the descriptor was resolved from.
	GOOS   string
	GOARCH string

	// The fields below come from gopsutil and are empty when detection fails.
	Platform        string
	PlatformFamily  string
	PlatformVersion string
	KernelArch      string
}

// Detect resolves the running GOOS/GOARCH through m and enriches the result with
// host information. Failing host introspection is not an error; an unsupported
// platform or architecture is.
func Detect(ctx context.Context, m Map) (*Host, error) {
	desc, err := m.Resolve(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return nil, err
	}

	h := &Host{
		Descriptor: desc,
		GOOS:       runtime.GOOS,
		GOARCH:     runtime.GOARCH,
	}

	info, err := host.InfoWithContext(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
		}

		return h, nil
	}

	h.Platform = info.Platform
	h.PlatformFamily = info.PlatformFamily
	h.PlatformVersion = info.PlatformVersion
	h.KernelArch = info.KernelArch

	return h, nil
}

// String renders a short diagnostic line, e.g. "linux-amd64 (ubuntu 22.04, x86_64)".
func (h *Host) String() string {
	if h.Platform == "" {
		return h.Pair()
	}

	return fmt.Sprintf("%s (%s %s, %s)", h.Pair(), h.Platform, h.PlatformVersion, h.KernelArch)
}
