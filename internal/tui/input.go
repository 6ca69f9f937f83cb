package tui

import (
	"bufio"
	"io"
	"unicode/utf8"
)

// Key represents a keyboard input.
type Key int

const (
	KeyUnknown Key = iota
	KeyEscape
	KeyEnter
	KeyBackspace
	KeyTab
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyCtrlC
	KeyCtrlD
	KeyCtrlU
	KeyRune
)

// KeyEvent represents a key press event.
type KeyEvent struct {
	Key  Key
	Rune rune // only set for KeyRune
}

// KeyReader reads keyboard input from a raw terminal.
type KeyReader struct {
	reader *bufio.Reader
}

// NewKeyReader creates a KeyReader from the given io.Reader, normally a
// terminal in raw mode.
func NewKeyReader(r io.Reader) *KeyReader {
	return &KeyReader{
		reader: bufio.NewReaderSize(r, 64),
	}
}

// ReadKey blocks until a key is pressed and returns it.
func (k *KeyReader) ReadKey() (KeyEvent, error) {
	b, err := k.reader.ReadByte()
	if err != nil {
		return KeyEvent{}, err
	}

	switch b {
	case 0x03:
		return KeyEvent{Key: KeyCtrlC}, nil
	case 0x04:
		return KeyEvent{Key: KeyCtrlD}, nil
	case 0x15:
		return KeyEvent{Key: KeyCtrlU}, nil
	case 0x09:
		return KeyEvent{Key: KeyTab}, nil
	case 0x0D, 0x0A:
		return KeyEvent{Key: KeyEnter}, nil
	case 0x7F, 0x08:
		return KeyEvent{Key: KeyBackspace}, nil
	case 0x1B:
		return k.readEscapeSequence()
	}

	switch {
	case b >= 0x20 && b < 0x7F:
		return KeyEvent{Key: KeyRune, Rune: rune(b)}, nil
	case b >= 0xC0:
		return k.readUTF8(b)
	default:
		return KeyEvent{Key: KeyUnknown}, nil
	}
}

// readEscapeSequence handles a lone escape or a CSI/SS3 sequence. Terminals
// send a whole sequence in one write, so a lone escape is one with nothing
// buffered behind it.
func (k *KeyReader) readEscapeSequence() (KeyEvent, error) {
	if k.reader.Buffered() == 0 {
		return KeyEvent{Key: KeyEscape}, nil
	}

	b, err := k.reader.ReadByte()
	if err != nil {
		return KeyEvent{Key: KeyEscape}, nil
	}
	if b != '[' && b != 'O' {
		_ = k.reader.UnreadByte()
		return KeyEvent{Key: KeyEscape}, nil
	}
	return k.parseCSI()
}

func (k *KeyReader) parseCSI() (KeyEvent, error) {
	b, err := k.reader.ReadByte()
	if err != nil {
		return KeyEvent{Key: KeyEscape}, nil
	}

	switch b {
	case 'A':
		return KeyEvent{Key: KeyUp}, nil
	case 'B':
		return KeyEvent{Key: KeyDown}, nil
	case 'C':
		return KeyEvent{Key: KeyRight}, nil
	case 'D':
		return KeyEvent{Key: KeyLeft}, nil
	}

	// Swallow the rest of an unknown sequence up to its final byte.
	for k.reader.Buffered() > 0 && !isFinal(b) {
		b, _ = k.reader.ReadByte()
	}
	return KeyEvent{Key: KeyUnknown}, nil
}

func isFinal(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || b == '~'
}

func (k *KeyReader) readUTF8(first byte) (KeyEvent, error) {
	var n int
	switch {
	case first&0xE0 == 0xC0:
		n = 2
	case first&0xF0 == 0xE0:
		n = 3
	case first&0xF8 == 0xF0:
		n = 4
	default:
		return KeyEvent{Key: KeyUnknown}, nil
	}

	buf := make([]byte, n)
	buf[0] = first
	if _, err := io.ReadFull(k.reader, buf[1:]); err != nil {
		return KeyEvent{Key: KeyUnknown}, err
	}

	r, _ := utf8.DecodeRune(buf)
	if r == utf8.RuneError {
		return KeyEvent{Key: KeyUnknown}, nil
	}
	return KeyEvent{Key: KeyRune, Rune: r}, nil
}

// Binding is an editor action bound to a key in normal mode.
type Binding int

const (
	BindingNone    Binding = iota
	BindingNext            // j, down - next record
	BindingPrev            // k, up - previous record
	BindingCommand         // : - open the command line
	BindingSave            // s - sync now
	BindingQuit            // q, ctrl+c - leave the session
)

// ParseBinding converts a KeyEvent to a Binding.
func ParseBinding(ev KeyEvent) Binding {
	switch ev.Key {
	case KeyDown:
		return BindingNext
	case KeyUp:
		return BindingPrev
	case KeyCtrlC, KeyCtrlD:
		return BindingQuit
	case KeyRune:
		switch ev.Rune {
		case 'j':
			return BindingNext
		case 'k':
			return BindingPrev
		case ':':
			return BindingCommand
		case 's':
			return BindingSave
		case 'q':
			return BindingQuit
		}
	}
	return BindingNone
}

// LineEditor is the single-line buffer behind the command line.
type LineEditor struct {
	buffer []rune
	cursor int
}

// NewLineEditor creates an empty LineEditor.
func NewLineEditor() *LineEditor {
	return &LineEditor{buffer: make([]rune, 0, 64)}
}

// HandleKey applies ev to the buffer and reports whether Enter was pressed.
func (e *LineEditor) HandleKey(ev KeyEvent) bool {
	switch ev.Key {
	case KeyEnter:
		return true
	case KeyBackspace:
		if e.cursor > 0 {
			copy(e.buffer[e.cursor-1:], e.buffer[e.cursor:])
			e.buffer = e.buffer[:len(e.buffer)-1]
			e.cursor--
		}
	case KeyCtrlU:
		e.Clear()
	case KeyLeft:
		if e.cursor > 0 {
			e.cursor--
		}
	case KeyRight:
		if e.cursor < len(e.buffer) {
			e.cursor++
		}
	case KeyRune:
		e.buffer = append(e.buffer, 0)
		copy(e.buffer[e.cursor+1:], e.buffer[e.cursor:])
		e.buffer[e.cursor] = ev.Rune
		e.cursor++
	}
	return false
}

// Text returns the current line content.
func (e *LineEditor) Text() string {
	return string(e.buffer)
}

// Clear resets the line editor.
func (e *LineEditor) Clear() {
	e.buffer = e.buffer[:0]
	e.cursor = 0
}

// Cursor returns the current cursor position.
func (e *LineEditor) Cursor() int {
	return e.cursor
}

// Len returns the length of the current buffer.
func (e *LineEditor) Len() int {
	return len(e.buffer)
}
