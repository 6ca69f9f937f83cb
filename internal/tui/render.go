package tui

import (
	"strings"
	"unicode/utf8"

	"github.com/thruflo/rain/internal/syncer"
)

// Box drawing characters (Unicode)
const (
	BoxTopLeft     = "┌"
	BoxTopRight    = "┐"
	BoxBottomLeft  = "└"
	BoxBottomRight = "┘"
	BoxHorizontal  = "─"
	BoxVertical    = "│"
)

// BoxWithContent draws a box containing the given content lines, titled
// in its top border when title is non-empty. Each line is padded or
// truncated to fit.
func BoxWithContent(width int, title string, content []string) []string {
	if width < 4 {
		return nil
	}

	inner := width - 4
	lines := make([]string, 0, len(content)+2)

	top := strings.Repeat(BoxHorizontal, width-2)
	if title != "" && utf8.RuneCountInString(title)+2 <= width-2 {
		t := " " + title + " "
		top = t + strings.Repeat(BoxHorizontal, width-2-utf8.RuneCountInString(t))
	}
	lines = append(lines, BoxTopLeft+top+BoxTopRight)

	for _, line := range content {
		lines = append(lines, BoxVertical+" "+PadOrTruncate(line, inner)+" "+BoxVertical)
	}

	lines = append(lines, BoxBottomLeft+strings.Repeat(BoxHorizontal, width-2)+BoxBottomRight)
	return lines
}

// PadOrTruncate pads or truncates a string to exactly width runes.
func PadOrTruncate(s string, width int) string {
	if width <= 0 {
		return ""
	}

	n := utf8.RuneCountInString(s)
	switch {
	case n == width:
		return s
	case n < width:
		return s + strings.Repeat(" ", width-n)
	default:
		return Truncate(s, width)
	}
}

// Truncate truncates a string to width runes, adding an ellipsis if needed.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}

	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width >= 3 {
		return string(runes[:width-3]) + "..."
	}
	return string(runes[:width])
}

// RightAlign right-aligns text within the given width.
func RightAlign(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return PadOrTruncate(s, width)
	}
	return strings.Repeat(" ", width-n) + s
}

// Styler applies ANSI codes, or nothing when colour is off.
type Styler struct {
	Color bool
}

// Style wraps s in codes, followed by a reset.
func (st Styler) Style(s string, codes ...string) string {
	if !st.Color || len(codes) == 0 {
		return s
	}
	return strings.Join(codes, "") + s + Reset
}

// LevelColor returns the colour for a notification level.
func LevelColor(l syncer.Level) string {
	switch l {
	case syncer.LevelError:
		return FgRed
	case syncer.LevelWarn:
		return FgYellow
	default:
		return FgGreen
	}
}
