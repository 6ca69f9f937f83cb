package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/thruflo/rain/internal/emulator"
	"github.com/thruflo/rain/internal/logging"
	"github.com/thruflo/rain/internal/mailbox"
)

// Defaults for Options.
const (
	DefaultTick         = 50 * time.Millisecond
	DefaultLeaveTimeout = 10 * time.Second
	defaultWidth        = 80
	defaultHeight       = 24
	minListingRows      = 3
)

// Mode is the editor input mode.
type Mode int

const (
	ModeNormal Mode = iota
	ModeCommand
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeCommand:
		return "command"
	default:
		return "unknown"
	}
}

// Options configures an Editor.
type Options struct {
	// Tick is the control loop period.
	Tick time.Duration
	// Color enables ANSI colours.
	Color bool
	// LeaveTimeout bounds the final upload when the editor exits.
	LeaveTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Tick <= 0 {
		o.Tick = DefaultTick
	}
	if o.LeaveTimeout <= 0 {
		o.LeaveTimeout = DefaultLeaveTimeout
	}
	return o
}

// Editor is the full-screen session editor. All of its state is owned by
// the goroutine running Run.
type Editor struct {
	session *emulator.Session
	toasts  *Toasts
	term    *Terminal
	opts    Options
	style   Styler
	log     *logging.Logger

	mode    Mode
	line    *LineEditor
	message string
	loads   mailbox.Slot[loadResult]
}

// loadResult is a memory image read off the control loop.
type loadResult struct {
	path string
	buf  []byte
	err  error
}

// NewEditor creates an Editor for s. toasts must be the notifier the
// session was opened with so sync failures show up on screen.
func NewEditor(s *emulator.Session, toasts *Toasts, term *Terminal, opts Options) *Editor {
	opts = opts.withDefaults()
	return &Editor{
		session: s,
		toasts:  toasts,
		term:    term,
		opts:    opts,
		style:   Styler{Color: opts.Color},
		log:     logging.With("component", "tui"),
		line:    NewLineEditor(),
	}
}

// Mode returns the current input mode.
func (e *Editor) Mode() Mode { return e.mode }

// Run drives the session until the user quits or ctx is done, then saves
// the session one last time and returns the result of that save.
func (e *Editor) Run(ctx context.Context) error {
	if err := e.term.EnterRaw(); err != nil {
		return err
	}
	defer e.term.ExitRaw()

	e.term.HideCursor()
	defer func() {
		e.term.Clear()
		e.term.ShowCursor()
	}()

	keyCh := make(chan KeyEvent, 16)
	keyErr := make(chan error, 1)
	go func() {
		reader := NewKeyReader(e.term)
		for {
			ev, err := reader.ReadKey()
			if err != nil {
				keyErr <- err
				return
			}
			select {
			case keyCh <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(e.opts.Tick)
	defer ticker.Stop()

	e.draw(time.Now())

	for {
		select {
		case <-ctx.Done():
			return e.leave()

		case err := <-keyErr:
			if !errors.Is(err, io.EOF) {
				e.log.Warn("key reader stopped", "error", err)
			}
			return e.leave()

		case ev := <-keyCh:
			if e.HandleKey(ev) {
				return e.leave()
			}
			e.draw(time.Now())

		case now := <-ticker.C:
			e.Tick(now)
			e.draw(now)
		}
	}
}

func (e *Editor) leave() error {
	e.term.Draw([]string{"saving " + e.session.Name() + "..."})

	ctx, cancel := context.WithTimeout(context.Background(), e.opts.LeaveTimeout)
	defer cancel()
	return e.session.Leave(ctx)
}

// Tick collects a finished image load, then advances the session.
func (e *Editor) Tick(now time.Time) {
	e.collectLoad()
	e.session.Tick(now)
}

func (e *Editor) draw(now time.Time) {
	width, height, err := e.term.Size()
	if err != nil {
		width, height = defaultWidth, defaultHeight
	}
	frame := e.Frame(now, width, height)
	e.term.Draw(frame)

	if row, col, ok := e.Cursor(len(frame), width); ok {
		e.term.MoveTo(row, col)
		e.term.ShowCursor()
	} else {
		e.term.HideCursor()
	}
}

// Cursor returns the 1-indexed screen position of the command line cursor
// for a frame of frameLen lines. ok is false outside command mode.
func (e *Editor) Cursor(frameLen, width int) (row, col int, ok bool) {
	if e.mode != ModeCommand {
		return 0, 0, false
	}
	col = 2 + e.line.Cursor()
	if col > width {
		col = width
	}
	return frameLen, col, true
}

// startLoad reads path on another goroutine. A load still running is
// superseded and its result dropped.
func (e *Editor) startLoad(path string) {
	load := loadImage
	e.loads.Go(func() loadResult {
		buf, err := load(path)
		return loadResult{path: path, buf: buf, err: err}
	})
	e.message = "loading " + path + "..."
}

func (e *Editor) collectLoad() {
	res, status := e.loads.Poll()
	if status != mailbox.Delivered {
		return
	}
	if res.err != nil {
		e.message = ""
		e.toasts.Error("Load failed", res.err.Error())
		return
	}
	e.session.LoadMemory(res.buf)
	e.message = fmt.Sprintf("loaded %d bytes from %s", len(res.buf), res.path)
	e.log.Info("memory image loaded", "path", res.path, "bytes", len(res.buf))
}

// HandleKey applies one key press and reports whether the editor should
// exit.
func (e *Editor) HandleKey(ev KeyEvent) bool {
	if e.mode == ModeCommand {
		return e.handleCommandKey(ev)
	}

	switch ParseBinding(ev) {
	case BindingNext:
		e.session.StepPC(1)
	case BindingPrev:
		e.session.StepPC(-1)
	case BindingCommand:
		e.mode = ModeCommand
		e.line.Clear()
		e.message = ""
	case BindingSave:
		e.session.SyncNow()
		e.message = "sync queued"
	case BindingQuit:
		return true
	}
	return false
}

func (e *Editor) handleCommandKey(ev KeyEvent) bool {
	switch ev.Key {
	case KeyEscape:
		e.mode = ModeNormal
		e.line.Clear()
		return false
	case KeyCtrlC:
		return true
	case KeyBackspace:
		if e.line.Len() == 0 {
			e.mode = ModeNormal
			return false
		}
	}

	if !e.line.HandleKey(ev) {
		return false
	}

	text := e.line.Text()
	e.mode = ModeNormal
	e.line.Clear()
	return e.execute(text)
}

func (e *Editor) execute(text string) bool {
	cmd, err := ParseCommand(text)
	if errors.Is(err, ErrEmptyCommand) {
		return false
	}
	if err != nil {
		e.message = ""
		e.toasts.Error("Invalid command", err.Error())
		return false
	}
	switch cmd.Kind {
	case CmdQuit:
		return true
	case CmdLoad:
		e.startLoad(cmd.Arg)
		return false
	}

	msg, err := Apply(e.session, cmd)
	if err != nil {
		e.message = ""
		e.toasts.Error("Command failed", err.Error())
		return false
	}
	e.log.Debug("command applied", "command", text)
	e.message = msg
	return false
}

// Frame renders the whole screen for a terminal of the given size.
func (e *Editor) Frame(now time.Time, width, height int) []string {
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}

	s := e.session
	st := s.State()
	toasts := ToastView(e.toasts.Active(now), width, e.style)

	lines := []string{
		e.style.Style(Truncate(fmt.Sprintf("rain  %s  (%s)", s.Name(), s.ID()), width), Bold),
	}
	lines = append(lines, BoxWithContent(width, "registers", RegisterView(st))...)

	// header + register box + toasts + status + bottom line + listing borders
	rows := height - len(lines) - len(toasts) - 2 - 2
	if rows < minListingRows {
		rows = minListingRows
	}
	listing := s.Listing(rows)
	if len(listing) == 0 {
		listing = []string{"(no instructions)"}
	}
	lines = append(lines, BoxWithContent(width, "listing", listing)...)

	lines = append(lines, toasts...)

	status := StatusBar(StatusInfo{
		Name:     s.Name(),
		Records:  len(s.Records()),
		Dropped:  s.Dropped(),
		InFlight: s.Syncing(),
		Stats:    s.SyncStats(),
	}, now, width)
	lines = append(lines, e.style.Style(status, Reverse))

	switch {
	case e.mode == ModeCommand:
		lines = append(lines, Truncate(":"+e.line.Text(), width))
	case e.message != "":
		lines = append(lines, Truncate(e.message, width))
	default:
		lines = append(lines, e.style.Style(Truncate(HelpLine, width), Dim))
	}
	return lines
}
