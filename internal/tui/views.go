package tui

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/thruflo/rain/internal/syncer"
	"github.com/thruflo/rain/internal/vm"
)

// registerRows is the number of rows in the register view; x00..x15 sit in
// the left column and x16..x31 in the right.
const registerRows = vm.NumRegisters / 2

// RegisterView renders the registers in two columns of 16 followed by the
// program counter.
func RegisterView(st vm.State) []string {
	lines := make([]string, 0, registerRows+1)
	for i := 0; i < registerRows; i++ {
		j := i + registerRows
		lines = append(lines, fmt.Sprintf("%s %s   %s %s",
			vm.RegisterName(i), vm.FormatHex(st.Registers[i]),
			vm.RegisterName(j), vm.FormatHex(st.Registers[j])))
	}
	return append(lines, fmt.Sprintf("pc  %s", vm.FormatHex(st.PC)))
}

// ToastView renders active toasts, newest last, each cut to width.
func ToastView(toasts []syncer.Notification, width int, st Styler) []string {
	lines := make([]string, 0, len(toasts))
	for _, n := range toasts {
		text := n.Title
		if n.Message != "" {
			text += ": " + n.Message
		}
		text = Truncate(fmt.Sprintf("[%s] %s", n.Level, text), width)
		lines = append(lines, st.Style(text, LevelColor(n.Level), Bold))
	}
	return lines
}

// StatusInfo is what the status line summarises.
type StatusInfo struct {
	Name     string
	Records  int
	Dropped  uint64
	InFlight bool
	Stats    syncer.Stats
}

// StatusLine renders the one-line session summary.
func StatusLine(info StatusInfo, now time.Time) string {
	left, right := statusParts(info, now)
	return left + "  " + right
}

// StatusBar is StatusLine padded to width with the sync state pushed to
// the right edge.
func StatusBar(info StatusInfo, now time.Time, width int) string {
	left, right := statusParts(info, now)
	room := width - utf8.RuneCountInString(left)
	if room < utf8.RuneCountInString(right)+2 {
		return PadOrTruncate(StatusLine(info, now), width)
	}
	return left + RightAlign(right, room)
}

func statusParts(info StatusInfo, now time.Time) (left, right string) {
	left = fmt.Sprintf("%s  %d records", info.Name, info.Records)
	if info.Dropped > 0 {
		left += fmt.Sprintf("  %d trailing bytes", info.Dropped)
	}

	switch {
	case info.InFlight:
		right = "syncing"
	case !info.Stats.LastSuccess.IsZero():
		right = "synced " + ago(now.Sub(info.Stats.LastSuccess))
	default:
		right = "not synced"
	}
	if info.Stats.Failed > 0 {
		right += fmt.Sprintf("  %d failed", info.Stats.Failed)
	}
	return left, right
}

func ago(d time.Duration) string {
	if d < time.Second {
		return "just now"
	}
	return d.Truncate(time.Second).String() + " ago"
}

// HelpLine lists the normal mode keys.
const HelpLine = "j/k step  : command  s save  q quit"
