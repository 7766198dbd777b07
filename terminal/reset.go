// Package terminal restores a sane terminal after the UI exits abnormally.
package terminal

import (
	"io"
	"os"

	"golang.org/x/term"
)

var (
	csiRIS            = []byte("\x1bc") // Reset to Initial State (emergency)
	csiSGR0           = []byte("\x1b[0m")
	csiCursorShow     = []byte("\x1b[?25h")
	csiAltScreenExit  = []byte("\x1b[?1049l")
	csiAutoWrapOn     = []byte("\x1b[?7h")
	csiMouseClickOff  = []byte("\x1b[?1000l")
	csiMouseMotionOff = []byte("\x1b[?1003l")
	csiMouseSGROff    = []byte("\x1b[?1006l")
)

// EmergencyReset undoes what the screen library set up, for use from a
// panic handler when the screen's own Fini may not have run
func EmergencyReset(w io.Writer) {
	writeResetSequences(w)

	if f, ok := w.(*os.File); ok {
		_ = f.Sync()
	}

	// Escape sequences alone don't restore termios; best-effort
	resetTerminalMode()
}

func writeResetSequences(w io.Writer) {
	for _, seq := range [][]byte{
		csiMouseMotionOff,
		csiMouseClickOff,
		csiMouseSGROff,
		csiCursorShow,
		csiAltScreenExit,
		csiSGR0,
		csiAutoWrapOn,
		csiRIS,
	} {
		_, _ = w.Write(seq)
	}
}

// IsInteractive reports whether both stdin and stdout are terminals
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
