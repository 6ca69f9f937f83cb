package testutil

import "github.com/thruflo/rain/internal/vm"

// SampleProgram is a short RV64 program that sums 1..10 into a0. It mixes
// 4-byte and compressed 2-byte instructions and decodes to 7 records.
var SampleProgram = []byte{
	0x13, 0x05, 0x00, 0x00, // addi a0,zero,0
	0x93, 0x05, 0xa0, 0x00, // addi a1,zero,10
	0x2e, 0x95, // c.add a0,a1
	0xfd, 0x15, // c.addi a1,-1
	0xed, 0xfd, // c.bnez a1,-6
	0x73, 0x00, 0x10, 0x00, // ebreak
	0x01, 0x00, // c.nop
}

// SampleRecords is the number of instructions in SampleProgram.
const SampleRecords = 7

// SampleState returns a state holding a copy of SampleProgram with sp set.
// Returns a new value each time to prevent test interference.
func SampleState() vm.State {
	s := vm.State{Memory: append([]byte(nil), SampleProgram...)}
	s.Registers[2] = 0x80010000
	return s
}

// WithTrailing returns a copy of mem with n stray bytes appended. The bytes
// have their low two bits set so they always start a 4-byte instruction.
func WithTrailing(mem []byte, n int) []byte {
	out := append([]byte(nil), mem...)
	for i := 0; i < n; i++ {
		out = append(out, 0x13)
	}
	return out
}
