package objfile

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Diag realizes the three error kinds spec.md §7 names: NONFATAL and
// WARNING are reported and execution continues; PANIC is reported and
// then panics, since the core never recovers its own panics — the
// front end is expected to.
type Diag interface {
	NonFatal(format string, args ...interface{})
	Warning(format string, args ...interface{})
	Panic(format string, args ...interface{})
}

// StderrDiag reports diagnostics to an io.Writer the way every driver
// in the teacher monorepo does (fmt.Fprintf(os.Stderr, ...)), and
// colors the "error:"/"warning:" prefix when the target is an
// interactive terminal.
type StderrDiag struct {
	W      io.Writer
	Color  bool
}

// NewStderrDiag returns a StderrDiag writing to os.Stderr, enabling
// color only when stderr is a terminal.
func NewStderrDiag() *StderrDiag {
	return &StderrDiag{
		W:     os.Stderr,
		Color: term.IsTerminal(int(os.Stderr.Fd())),
	}
}

func (d *StderrDiag) prefix(tag string, color string) string {
	if !d.Color {
		return tag + ": "
	}
	const reset = "\x1b[0m"
	return color + tag + ":" + reset + " "
}

// NonFatal reports a recoverable error; the writer continues.
func (d *StderrDiag) NonFatal(format string, args ...interface{}) {
	fmt.Fprintf(d.W, d.prefix("error", "\x1b[31m")+format+"\n", args...)
}

// Warning reports a non-fatal condition worth the assembler's
// attention.
func (d *StderrDiag) Warning(format string, args ...interface{}) {
	fmt.Fprintf(d.W, d.prefix("warning", "\x1b[33m")+format+"\n", args...)
}

// Panic reports an invariant violation reachable only through a
// front-end bug, then panics.
func (d *StderrDiag) Panic(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(d.W, d.prefix("panic", "\x1b[35m")+"%s\n", msg)
	panic(msg)
}
