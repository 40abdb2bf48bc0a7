// Package installer places the prebuilt server binary on disk.
//
// It resolves the host platform to a release asset name, fetches the latest
// release metadata, downloads the matching asset into a temporary file next to
// the destination and swaps it into place with mode 0755. An existing binary
// short-circuits the whole workflow unless a reinstall is forced.
package installer
