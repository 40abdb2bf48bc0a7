// Package platform maps the host operating system and architecture onto the
// naming convention used by release assets.
//
// A Map translates Go's GOOS/GOARCH values into release names and executable
// extensions. Resolving a pair yields an immutable Descriptor, which knows how
// to render asset and executable names. Detect adds host details gathered via
// gopsutil for diagnostics.
package platform
