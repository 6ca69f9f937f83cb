package asm

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/arch/riscv64/riscv64asm"
)

// RV64 is the RV64GC opcode table, including the compressed extension.
type RV64 struct{}

// Decode decodes a 2- or 4-byte word.
func (RV64) Decode(word []byte) (Instruction, error) {
	if err := checkWidth(word); err != nil {
		return Instruction{}, err
	}

	// The all-zero parcel is defined as illegal; riscv64asm reports it as unimp.
	if encoding(word) == 0 {
		return Instruction{}, fmt.Errorf("%w: zero parcel", ErrUnknownInstruction)
	}

	inst, err := riscv64asm.Decode(word)
	if err != nil {
		return Instruction{}, fmt.Errorf("%w: %v", ErrUnknownInstruction, err)
	}
	if inst.Len != len(word) {
		return Instruction{}, fmt.Errorf("%w: decoder consumed %d of %d bytes", ErrWidthMismatch, inst.Len, len(word))
	}

	return Instruction{
		Op:   inst.Op.String(),
		Text: riscv64asm.GNUSyntax(inst),
		Enc:  encoding(word),
	}, nil
}

func encoding(word []byte) uint32 {
	if len(word) == WidthCompressed {
		return uint32(binary.LittleEndian.Uint16(word))
	}
	return binary.LittleEndian.Uint32(word)
}
