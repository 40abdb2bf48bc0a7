// Package builder compiles the server binary from a local source checkout with the Go toolchain.
// It is the fallback for platforms without a prebuilt release asset.
package builder
