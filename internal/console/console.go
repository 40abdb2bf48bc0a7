package console

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
)

// Printer writes prefixed, colored status lines to a writer.
type Printer struct {
	out io.Writer
}

// New returns a printer writing to out. A nil writer discards everything.
func New(out io.Writer) *Printer {
	if out == nil {
		out = io.Discard
	}

	return &Printer{out: out}
}

// Stdout returns a printer for standard output.
func Stdout() *Printer {
	return New(os.Stdout)
}

// Stderr returns a printer for standard error.
func Stderr() *Printer {
	return New(os.Stderr)
}

// Writer returns the underlying writer.
func (p *Printer) Writer() io.Writer {
	return p.out
}

// Step announces the start of a unit of work.
func (p *Printer) Step(format string, args ...any) {
	p.println(color.BlueString(" •"), color.New(color.FgHiBlack).Sprintf(format, args...))
}

// Detail prints supplementary information under the last step.
func (p *Printer) Detail(format string, args ...any) {
	p.println(color.New(color.FgHiBlack).Sprint("   └"), color.New(color.FgHiBlack).Sprintf(format, args...))
}

// Success prints a line prefixed with a check mark.
func (p *Printer) Success(format string, args ...any) {
	p.println("✅", color.GreenString(format, args...))
}

// Warning prints a line prefixed with a warning sign.
func (p *Printer) Warning(format string, args ...any) {
	p.println("⚠️ ", color.YellowString(format, args...))
}

// Failure prints a line prefixed with a cross mark.
func (p *Printer) Failure(format string, args ...any) {
	p.println("❌", color.RedString(format, args...))
}

// Plain prints an unprefixed line.
func (p *Printer) Plain(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format+"\n", args...)
}

// Elapsed prints the duration of a finished step, green on success and red otherwise.
func (p *Printer) Elapsed(start time.Time, err error) {
	elapsed := time.Since(start).Round(time.Millisecond)
	if err != nil {
		p.println(color.RedString("     ✘ %s", elapsed))
		return
	}

	p.println(color.GreenString("     ✔ %s", elapsed))
}

func (p *Printer) println(parts ...any) {
	_, _ = fmt.Fprintln(p.out, parts...)
}
