package logging

import (
	"io"
	"os"

	"golang.org/x/term"
)

// IsTTY reports whether the writer is attached to a terminal. Anything
// exposing an Fd() method (os.File included) can be checked; everything
// else, such as a pipe into a pager or a log file, is not a TTY.
func IsTTY(w io.Writer) bool {
	if f, ok := w.(interface{ Fd() uintptr }); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

// SupportsColor reports whether ANSI color output is appropriate for the
// writer. Color is disabled for non-TTY writers, when NO_COLOR is set
// (https://no-color.org), and when TERM=dumb.
func SupportsColor(w io.Writer) bool {
	return supportsColor(w, IsTTY(w))
}

func supportsColor(_ io.Writer, isTTY bool) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return isTTY
}
