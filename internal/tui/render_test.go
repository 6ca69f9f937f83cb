package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thruflo/rain/internal/syncer"
)

func TestBoxWithContent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		width   int
		title   string
		content []string
		want    []string
	}{
		{
			name:    "plain",
			width:   8,
			content: []string{"ab", "abcdef"},
			want: []string{
				"┌──────┐",
				"│ ab   │",
				"│ a... │",
				"└──────┘",
			},
		},
		{
			name:    "titled",
			width:   10,
			title:   "pc",
			content: []string{"x"},
			want: []string{
				"┌ pc ────┐",
				"│ x      │",
				"└────────┘",
			},
		},
		{
			name:    "title too wide is dropped",
			width:   6,
			title:   "registers",
			content: nil,
			want: []string{
				"┌────┐",
				"└────┘",
			},
		},
		{
			name:  "too narrow",
			width: 3,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, BoxWithContent(tt.width, tt.title, tt.content))
		})
	}
}

func TestPadOrTruncate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		width int
		want  string
	}{
		{"exact", "hello", 5, "hello"},
		{"pad", "hi", 5, "hi   "},
		{"truncate", "hello world", 8, "hello..."},
		{"truncate tiny", "hello", 2, "he"},
		{"zero width", "hello", 0, ""},
		{"unicode pad", "日本", 4, "日本  "},
		{"unicode truncate", "日本語テキスト", 5, "日本..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, PadOrTruncate(tt.input, tt.width))
		})
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abc...", Truncate("abcdefghij", 6))
	assert.Equal(t, "ab", Truncate("abcdef", 2))
	assert.Equal(t, "", Truncate("abc", -1))
}

func TestRightAlign(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "   ab", RightAlign("ab", 5))
	assert.Equal(t, "ab", RightAlign("ab", 2))
	assert.Equal(t, "ab...", RightAlign("abcdefgh", 5))
}

func TestStyler(t *testing.T) {
	t.Parallel()

	on := Styler{Color: true}
	assert.Equal(t, Bold+FgRed+"x"+Reset, on.Style("x", Bold, FgRed))
	assert.Equal(t, "x", on.Style("x"))

	off := Styler{}
	assert.Equal(t, "x", off.Style("x", Bold, FgRed))
}

func TestLevelColor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, FgRed, LevelColor(syncer.LevelError))
	assert.Equal(t, FgYellow, LevelColor(syncer.LevelWarn))
	assert.Equal(t, FgGreen, LevelColor(syncer.LevelInfo))
}
