// Package vm holds the editable state of the virtual machine: program
// counter, integer registers and the memory image.
package vm

import (
	"errors"
	"fmt"
)

// NumRegisters is the number of integer registers (x0..x31).
const NumRegisters = 32

// AddressWindow is the addressable DRAM window shown by editors (1 MiB).
// Loaded images are never truncated to it.
const AddressWindow = 0x100000

// ErrRegisterIndex is returned for register indices outside x0..x31.
var ErrRegisterIndex = errors.New("register index out of range")

// ErrZeroRegister is returned when writing x0, which is hard-wired to zero.
var ErrZeroRegister = errors.New("x0 is hard-wired to zero")

// State is a VM state. Memory is owned by the State; use Clone before
// handing it to another goroutine.
type State struct {
	PC        uint64
	Registers [NumRegisters]uint64
	Memory    []byte
}

// Clone returns a deep copy.
func (s State) Clone() State {
	c := s
	if s.Memory != nil {
		c.Memory = make([]byte, len(s.Memory))
		copy(c.Memory, s.Memory)
	}
	return c
}

// Register returns the value of register i.
func (s *State) Register(i int) (uint64, error) {
	if i < 0 || i >= NumRegisters {
		return 0, fmt.Errorf("%w: x%d", ErrRegisterIndex, i)
	}
	return s.Registers[i], nil
}

// SetRegister writes register i.
func (s *State) SetRegister(i int, v uint64) error {
	if i < 0 || i >= NumRegisters {
		return fmt.Errorf("%w: x%d", ErrRegisterIndex, i)
	}
	if i == 0 {
		return ErrZeroRegister
	}
	s.Registers[i] = v
	return nil
}

// Peek returns the byte at addr, or false past the end of memory.
func (s *State) Peek(addr uint64) (byte, bool) {
	if addr >= uint64(len(s.Memory)) {
		return 0, false
	}
	return s.Memory[addr], true
}

// Poke stores v at addr. Writes past the end of memory are ignored and
// reported as false; memory never grows through editing.
func (s *State) Poke(addr uint64, v byte) bool {
	if addr >= uint64(len(s.Memory)) {
		return false
	}
	s.Memory[addr] = v
	return true
}

// RegisterName returns the display name of register i ("x00".."x31").
func RegisterName(i int) string {
	return fmt.Sprintf("x%02d", i)
}
