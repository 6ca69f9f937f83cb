package asm

import (
	"fmt"
	"sort"
)

// RecordAt returns the index of the record whose byte range contains addr.
func RecordAt(records []Record, addr uint64) (int, bool) {
	i := sort.Search(len(records), func(i int) bool {
		return records[i].End() > addr
	})
	if i < len(records) && records[i].Offset <= addr {
		return i, true
	}
	return 0, false
}

// Line formats a record as "00000010  13 05 15 00  addi a0,a0,1".
func Line(buf []byte, r Record) string {
	var raw string
	for i := 0; i < WidthStandard; i++ {
		if i < r.Width && r.Offset+uint64(i) < uint64(len(buf)) {
			raw += fmt.Sprintf("%02x ", buf[r.Offset+uint64(i)])
		} else {
			raw += "   "
		}
	}
	return fmt.Sprintf("%08x  %s %s", r.Offset, raw, r.String())
}

// Listing formats records, marking the one containing pc with "=>".
func Listing(buf []byte, records []Record, pc uint64) []string {
	lines := make([]string, 0, len(records))
	for _, r := range records {
		marker := "  "
		if r.Offset <= pc && pc < r.End() {
			marker = "=>"
		}
		lines = append(lines, marker+" "+Line(buf, r))
	}
	return lines
}
