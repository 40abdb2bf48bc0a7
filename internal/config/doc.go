// Package config defines the settings shared by the installer and the launcher
// and provides helpers to load, validate and save them in YAML format.
//
// The Config type carries the install location, the release endpoint and the
// platform map, so neither binary depends on hardcoded process-wide constants.
package config
