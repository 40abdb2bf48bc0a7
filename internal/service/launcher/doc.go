// Package launcher finds the installed server binary and runs it as a transparent child process.
package launcher
