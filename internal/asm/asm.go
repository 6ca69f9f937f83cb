// Package asm turns a raw memory image into a listing of RISC-V instructions.
//
// The scan is a linear sweep: every position either yields a 2-byte
// (compressed) or 4-byte (standard) record, decoded or not. Data that does
// not decode is listed as an unknown instruction and the sweep continues.
// The sweep only stops when too few bytes remain for the next record; those
// trailing bytes are not listed (see Consumed).
package asm

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Instruction widths in bytes.
const (
	WidthCompressed = 2
	WidthStandard   = 4
)

// ErrUnknownInstruction is returned by opcode tables for encodings they do not recognise.
var ErrUnknownInstruction = errors.New("unknown instruction")

// ErrWidthMismatch is returned when a word's length disagrees with its encoded width.
var ErrWidthMismatch = errors.New("instruction width mismatch")

// Instruction is a successfully decoded instruction.
type Instruction struct {
	Op   string // mnemonic, e.g. "ADDI"
	Text string // full assembly text
	Enc  uint32 // raw encoding, zero-extended for compressed instructions
}

// OpcodeTable decodes a single instruction word.
// word is exactly WidthCompressed or WidthStandard bytes, little-endian.
type OpcodeTable interface {
	Decode(word []byte) (Instruction, error)
}

// Record is one entry of a listing.
type Record struct {
	Offset uint64
	Width  int
	Inst   *Instruction // nil when the bytes did not decode
}

// Known reports whether the record decoded.
func (r Record) Known() bool {
	return r.Inst != nil
}

// End returns the offset just past the record.
func (r Record) End() uint64 {
	return r.Offset + uint64(r.Width)
}

// String returns the assembly text, or "unknown instruction".
func (r Record) String() string {
	if r.Inst == nil {
		return ErrUnknownInstruction.Error()
	}
	return r.Inst.Text
}

// WidthOf returns the instruction width announced by the low two bits of the
// first 16-bit parcel.
func WidthOf(parcel uint16) int {
	if parcel&0b11 == 0b11 {
		return WidthStandard
	}
	return WidthCompressed
}

// Decode sweeps buf from offset 0 and returns one record per instruction slot.
// It never fails: undecodable words become records with a nil Inst.
func Decode(buf []byte, table OpcodeTable) []Record {
	var records []Record

	var off uint64
	n := uint64(len(buf))
	for n-off >= WidthCompressed {
		width := WidthOf(binary.LittleEndian.Uint16(buf[off:]))
		if n-off < uint64(width) {
			break
		}

		rec := Record{Offset: off, Width: width}
		if inst, err := table.Decode(buf[off : off+uint64(width)]); err == nil {
			rec.Inst = &inst
		}
		records = append(records, rec)

		off += uint64(width)
	}

	return records
}

// Consumed returns the number of bytes covered by records.
// For a listing produced by Decode this is the length of the decoded prefix;
// len(buf) - Consumed(records) bytes were dropped at the tail.
func Consumed(records []Record) uint64 {
	if len(records) == 0 {
		return 0
	}
	return records[len(records)-1].End()
}

// checkWidth validates that word is a complete instruction of the width its
// low bits announce.
func checkWidth(word []byte) error {
	if len(word) != WidthCompressed && len(word) != WidthStandard {
		return fmt.Errorf("%w: %d bytes", ErrWidthMismatch, len(word))
	}
	if want := WidthOf(binary.LittleEndian.Uint16(word)); want != len(word) {
		return fmt.Errorf("%w: got %d bytes, encoding needs %d", ErrWidthMismatch, len(word), want)
	}
	return nil
}
