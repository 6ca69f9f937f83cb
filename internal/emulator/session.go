// Package emulator holds an open editing session: the VM state being edited,
// its instruction listing and the scheduler that keeps the remote copy
// current. A Session is owned by one control loop and is not safe for
// concurrent use; only remote calls run on other goroutines.
package emulator

import (
	"context"
	"fmt"
	"time"

	"github.com/thruflo/rain/internal/asm"
	"github.com/thruflo/rain/internal/dirty"
	"github.com/thruflo/rain/internal/logging"
	"github.com/thruflo/rain/internal/store"
	"github.com/thruflo/rain/internal/syncer"
	"github.com/thruflo/rain/internal/vm"
)

// Config configures a Session.
type Config struct {
	Sync syncer.Config
	// CacheSize is the decode cache size; 0 decodes without a cache.
	CacheSize int
	// Table overrides the RV64 opcode table.
	Table asm.OpcodeTable
}

// Session is one open VM session.
type Session struct {
	header store.Snapshot // identity and timestamps; CPU is unused
	state  vm.State

	table   asm.OpcodeTable
	dirty   dirty.Tracker
	records []asm.Record
	decodes int

	store store.Store
	token string
	sched *syncer.Scheduler
	log   *logging.Logger
}

// New opens snap for editing. Uploads start one sync interval after now.
func New(cfg Config, snap store.Snapshot, st store.Store, token string, notifier syncer.Notifier, now time.Time) (*Session, error) {
	table := cfg.Table
	if table == nil {
		table = asm.RV64{}
		if cfg.CacheSize > 0 {
			cached, err := asm.NewCached(table, cfg.CacheSize)
			if err != nil {
				return nil, err
			}
			table = cached
		}
	}

	header := snap
	header.CPU = store.CPU{}

	s := &Session{
		header: header,
		state:  snap.CPU.State(),
		table:  table,
		store:  st,
		token:  token,
		log:    logging.With("session", snap.ID),
	}
	s.sched = syncer.New(st, token, s.Snapshot, notifier, cfg.Sync, now)
	s.redecode()

	return s, nil
}

// Tick advances the sync scheduler and re-decodes memory if it changed
// since the last tick. It never blocks.
func (s *Session) Tick(now time.Time) {
	s.sched.Tick(now)
	s.dirty.IfChanged(s.redecode)
}

func (s *Session) redecode() {
	start := time.Now()
	s.records = asm.Decode(s.state.Memory, s.table)
	s.decodes++

	if dropped := uint64(len(s.state.Memory)) - asm.Consumed(s.records); dropped > 0 {
		s.log.Debug("trailing bytes not decoded", "bytes", dropped)
	}
	s.log.Debug("memory decoded", "records", len(s.records), "elapsed", time.Since(start))
}

// ID returns the session id.
func (s *Session) ID() string { return s.header.ID }

// Name returns the display name, or the id when unnamed.
func (s *Session) Name() string {
	return s.header.Info().DisplayName()
}

// Records returns the current instruction listing. Callers must not modify it.
func (s *Session) Records() []asm.Record { return s.records }

// Decodes returns how many times memory has been decoded.
func (s *Session) Decodes() int { return s.decodes }

// Dropped returns the number of trailing memory bytes too short to decode.
func (s *Session) Dropped() uint64 {
	return uint64(len(s.state.Memory)) - asm.Consumed(s.records)
}

// State returns a deep copy of the VM state.
func (s *Session) State() vm.State { return s.state.Clone() }

// PC returns the program counter.
func (s *Session) PC() uint64 { return s.state.PC }

// Register returns register i.
func (s *Session) Register(i int) (uint64, error) { return s.state.Register(i) }

// MemorySize returns the length of memory in bytes.
func (s *Session) MemorySize() int { return len(s.state.Memory) }

// SetPC sets the program counter.
func (s *Session) SetPC(pc uint64) { s.state.PC = pc }

// SetRegister writes register i. x0 is rejected.
func (s *Session) SetRegister(i int, v uint64) error {
	return s.state.SetRegister(i, v)
}

// Poke writes one memory byte. Addresses outside memory are ignored and
// reported as false.
func (s *Session) Poke(addr uint64, v byte) bool {
	if !s.state.Poke(addr, v) {
		return false
	}
	s.dirty.MarkChanged()
	return true
}

// LoadMemory replaces memory with buf, taking ownership of it.
func (s *Session) LoadMemory(buf []byte) {
	s.state.Memory = buf
	s.dirty.MarkChanged()
}

// Rename sets the session's display name.
func (s *Session) Rename(name string) { s.header.Name = name }

// Snapshot captures the session by value for upload.
func (s *Session) Snapshot() store.Snapshot {
	snap := s.header
	snap.CPU = store.NewCPU(s.state)
	return snap
}

// StepPC moves the program counter by n records (negative moves back).
// It stops at the first and last record. Without records it does nothing.
func (s *Session) StepPC(n int) {
	if len(s.records) == 0 || n == 0 {
		return
	}

	i, ok := asm.RecordAt(s.records, s.state.PC)
	if !ok {
		// Off the listing: the first step lands on the nearest record.
		i = nearest(s.records, s.state.PC)
		if n > 0 {
			n--
		} else {
			n++
		}
	}

	i += n
	if i < 0 {
		i = 0
	}
	if i >= len(s.records) {
		i = len(s.records) - 1
	}
	s.state.PC = s.records[i].Offset
}

func nearest(records []asm.Record, pc uint64) int {
	if pc >= asm.Consumed(records) {
		return len(records) - 1
	}
	return 0
}

// Listing returns up to n formatted listing lines around the PC.
func (s *Session) Listing(n int) []string {
	if n <= 0 || len(s.records) == 0 {
		return nil
	}

	center, ok := asm.RecordAt(s.records, s.state.PC)
	if !ok {
		center = nearest(s.records, s.state.PC)
	}

	start := center - n/2
	if start > len(s.records)-n {
		start = len(s.records) - n
	}
	if start < 0 {
		start = 0
	}
	end := start + n
	if end > len(s.records) {
		end = len(s.records)
	}
	return asm.Listing(s.state.Memory, s.records[start:end], s.state.PC)
}

// SyncNow makes the next tick upload regardless of the interval.
func (s *Session) SyncNow() { s.sched.SyncNow() }

// SyncStats returns the scheduler counters.
func (s *Session) SyncStats() syncer.Stats { return s.sched.Stats() }

// Syncing reports whether an upload is outstanding.
func (s *Session) Syncing() bool { return s.sched.InFlight() }

// Leave uploads the session one last time and waits for the result.
// An upload still outstanding from the scheduler is not waited for.
func (s *Session) Leave(ctx context.Context) error {
	if err := s.store.Upsert(ctx, s.token, s.Snapshot()); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	s.log.Info("session saved on leave")
	return nil
}
