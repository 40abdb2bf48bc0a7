// Package release talks to the release host: it fetches the latest-release
// metadata of a repository and streams release assets to disk.
//
// Downloads follow redirects up to a configurable cap and refuse to be
// redirected from https to plain http. Nothing is retried; callers get the
// first error.
package release
