package terminal

import (
	"bytes"
	"testing"
)

func TestResetSequencesRestoreScreen(t *testing.T) {
	var buf bytes.Buffer
	writeResetSequences(&buf)
	out := buf.Bytes()

	for name, seq := range map[string][]byte{
		"cursor show":     csiCursorShow,
		"alt screen exit": csiAltScreenExit,
		"sgr reset":       csiSGR0,
		"mouse off":       csiMouseClickOff,
	} {
		if !bytes.Contains(out, seq) {
			t.Errorf("Expected %s sequence %q in reset output", name, seq)
		}
	}
	if !bytes.HasSuffix(out, csiRIS) {
		t.Error("Expected full terminal reset to be written last")
	}
}
