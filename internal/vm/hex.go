package vm

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseHex parses a register or address value typed by the user.
// A leading "0x" is optional; underscores are accepted as digit separators.
func ParseHex(s string) (uint64, error) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "0x"), "0X")
	raw = strings.ReplaceAll(raw, "_", "")
	if raw == "" {
		return 0, fmt.Errorf("invalid hex value %q: empty", s)
	}

	v, err := strconv.ParseUint(raw, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid hex value %q: %w", s, err)
	}
	return v, nil
}

// FormatHex formats a 64-bit value as 0x followed by 16 hex digits.
func FormatHex(v uint64) string {
	return fmt.Sprintf("0x%016x", v)
}
