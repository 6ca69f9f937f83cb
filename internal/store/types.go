package store

import (
	"encoding/json"

	"github.com/thruflo/rain/internal/vm"
)

// SessionInfo is a session listing entry.
type SessionInfo struct {
	ID         string  `json:"id"`
	Owner      string  `json:"user"`
	Name       *string `json:"name"`
	CreatedAt  string  `json:"creation"`
	ModifiedAt string  `json:"modified"`
}

// DisplayName returns the session name, or its id when unnamed.
func (i SessionInfo) DisplayName() string {
	if i.Name != nil && *i.Name != "" {
		return *i.Name
	}
	return i.ID
}

// Snapshot is a full session: header plus CPU state. Timestamps are
// opaque strings issued by the store.
type Snapshot struct {
	ID         string `json:"id"`
	Owner      string `json:"user"`
	Name       string `json:"name"`
	CreatedAt  string `json:"creation"`
	ModifiedAt string `json:"modified"`
	CPU        CPU    `json:"cpu"`
}

// MarshalJSON writes an empty name as null, like SessionInfo.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	type plain Snapshot
	return json.Marshal(struct {
		plain
		Name *string `json:"name"`
	}{plain(s), s.Info().Name})
}

// Info returns the listing entry for s.
func (s Snapshot) Info() SessionInfo {
	info := SessionInfo{
		ID:         s.ID,
		Owner:      s.Owner,
		CreatedAt:  s.CreatedAt,
		ModifiedAt: s.ModifiedAt,
	}
	if s.Name != "" {
		name := s.Name
		info.Name = &name
	}
	return info
}

// CPU is the wire form of the VM state. FRegs is carried for
// compatibility and always empty.
type CPU struct {
	PC    uint64    `json:"pc"`
	XRegs []uint64  `json:"xregs"`
	FRegs []float64 `json:"fregs"`
	Bus   Bus       `json:"bus"`
}

// Bus holds memory; encoding/json base64-encodes DRAM.
type Bus struct {
	DRAM []byte `json:"dram"`
}

// NewCPU converts s to its wire form. Memory is copied.
func NewCPU(s vm.State) CPU {
	c := s.Clone()
	xregs := make([]uint64, vm.NumRegisters)
	copy(xregs, c.Registers[:])

	dram := c.Memory
	if dram == nil {
		dram = []byte{}
	}

	return CPU{
		PC:    c.PC,
		XRegs: xregs,
		FRegs: []float64{},
		Bus:   Bus{DRAM: dram},
	}
}

// State converts c to a VM state. Missing registers read as zero; extra
// ones are ignored. x0 is forced to zero.
func (c CPU) State() vm.State {
	s := vm.State{PC: c.PC}
	copy(s.Registers[:], c.XRegs)
	s.Registers[0] = 0
	if c.Bus.DRAM != nil {
		s.Memory = make([]byte, len(c.Bus.DRAM))
		copy(s.Memory, c.Bus.DRAM)
	}
	return s
}

// Page is one page of a session listing. Page numbers start at 1.
type Page struct {
	Sessions []SessionInfo `json:"sessions"`
	Page     int           `json:"page"`
	Size     int           `json:"size"`
	Total    int           `json:"total"`
}

// Listing bounds.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)
