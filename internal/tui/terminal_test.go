package tui

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCursorTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		row, col int
		want     string
	}{
		{"origin", 1, 1, "\033[1;1H"},
		{"row 5 col 10", 5, 10, "\033[5;10H"},
		{"large values", 100, 200, "\033[100;200H"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CursorTo(tt.row, tt.col))
		})
	}
}

func TestFrameString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, CursorHome+"a"+ClearLine+"\r\n"+"b"+ClearLine+ClearBelow, FrameString([]string{"a", "b"}))
	assert.Equal(t, CursorHome+ClearBelow, FrameString(nil))
}

func TestTerminal_Output(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	term := NewTerminal(os.Stdin, &buf)

	term.Draw([]string{"x"})
	assert.Equal(t, FrameString([]string{"x"}), buf.String())

	buf.Reset()
	term.Clear()
	assert.Equal(t, ClearScreen+CursorHome, buf.String())

	buf.Reset()
	term.HideCursor()
	term.ShowCursor()
	term.RingBell()
	term.MoveTo(2, 3)
	assert.Equal(t, CursorHide+CursorShow+Bell+"\033[2;3H", buf.String())
}

func TestTerminal_NotRaw(t *testing.T) {
	t.Parallel()

	term := NewTerminal(os.Stdin, &bytes.Buffer{})
	assert.NoError(t, term.ExitRaw(), "exit without enter is a no-op")
}
