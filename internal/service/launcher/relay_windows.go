//go:build windows

package launcher

import "os"

// Relay exits with the child's exit code. Windows has no signal re-delivery.
func Relay(status Status) {
	os.Exit(status.Code)
}
