package console

import (
	"io"
	"os"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// ProgressFunc wraps a download stream of the given size.
// The returned function finalizes the display and must always be called.
type ProgressFunc func(reader io.Reader, size int64) (io.Reader, func())

// NoProgress passes the reader through untouched.
func NoProgress(reader io.Reader, _ int64) (io.Reader, func()) {
	return reader, func() {}
}

// Progress displays a transfer bar on stderr when it is a terminal
// and degrades to NoProgress otherwise.
func Progress(reader io.Reader, size int64) (io.Reader, func()) {
	if !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return NoProgress(reader, size)
	}

	bar := pb.
		New64(size).
		SetWriter(os.Stderr).
		SetTemplate(
			pb.ProgressBarTemplate(
				color.New(color.FgHiBlack).Sprint(
					`   └ {{counters . }}` +
						` {{bar . "[" "=" ">" " " "]" }} {{percent . }}` +
						` {{speed . }}`,
				),
			),
		).
		SetRefreshRate(time.Second / 60).
		SetMaxWidth(100).
		Start()

	return bar.NewProxyReader(reader), func() { bar.Finish() }
}
