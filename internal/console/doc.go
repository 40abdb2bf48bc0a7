// Package console prints the user-facing messages of the installer and the
// launcher: short prefixed lines with a status symbol, plus a progress bar
// for downloads when attached to a terminal.
package console
