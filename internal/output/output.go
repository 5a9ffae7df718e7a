// Package output provides consistent CLI output formatting. Colors
// are enabled only when writing to a real terminal, so piped output
// stays clean.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// ANSI codes used for terminal output.
const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	ansiDim   = "\033[2m"
	ansiGreen = "\033[32m"
	ansiRed   = "\033[31m"
	ansiAmber = "\033[33m"
)

// Writer provides formatted output for CLI commands.
type Writer struct {
	out      io.Writer
	useColor bool
}

// New creates a Writer. Color is auto-detected from the destination:
// on for terminals, off for pipes, files, and buffers.
func New(out io.Writer) *Writer {
	return &Writer{
		out:      out,
		useColor: isTerminal(out),
	}
}

// isTerminal reports whether out is an interactive terminal.
func isTerminal(out io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (w *Writer) colorize(code, s string) string {
	if !w.useColor {
		return s
	}
	return code + s + ansiReset
}

// Println writes a plain line.
func (w *Writer) Println(msg string) {
	_, _ = fmt.Fprintln(w.out, msg)
}

// Printf writes formatted text.
func (w *Writer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(w.out, format, args...)
}

// Header writes a bold section header.
func (w *Writer) Header(msg string) {
	_, _ = fmt.Fprintln(w.out, w.colorize(ansiBold, msg))
}

// Success writes a success line.
func (w *Writer) Success(msg string) {
	_, _ = fmt.Fprintf(w.out, "%s %s\n", w.colorize(ansiGreen, "✓"), msg)
}

// Successf writes a formatted success line.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning writes a warning line.
func (w *Writer) Warning(msg string) {
	_, _ = fmt.Fprintf(w.out, "%s %s\n", w.colorize(ansiAmber, "!"), msg)
}

// Warningf writes a formatted warning line.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error writes an error line.
func (w *Writer) Error(msg string) {
	_, _ = fmt.Fprintf(w.out, "%s %s\n", w.colorize(ansiRed, "✗"), msg)
}

// Errorf writes a formatted error line.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Dim writes a de-emphasized line, indented under the previous one.
func (w *Writer) Dim(msg string) {
	_, _ = fmt.Fprintf(w.out, "  %s\n", w.colorize(ansiDim, msg))
}

// Block writes a multi-line block with uniform indentation.
func (w *Writer) Block(content string) {
	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
}
