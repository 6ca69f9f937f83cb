package store

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ownerNamespace derives stable owner ids from tokens.
var ownerNamespace = uuid.MustParse("5b0c7f0e-6a43-4f0e-9f5d-2a7c1f0b9e11")

// OwnerOf returns the user id a token maps to in a MemoryStore.
func OwnerOf(token string) string {
	return uuid.NewSHA1(ownerNamespace, []byte(token)).String()
}

type memEntry struct {
	snap Snapshot
	seq  uint64 // bumped on every write; orders listings
}

// MemoryStore is a concurrency-safe in-memory Store. Sessions are visible
// only to the token that created them.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memEntry
	seq      uint64
	now      func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memEntry),
		now:      time.Now,
	}
}

func (m *MemoryStore) stamp() string {
	return m.now().UTC().Format(time.RFC3339)
}

func notFound(op, id string) error {
	return &DomainError{Op: op, Status: http.StatusNotFound, Message: fmt.Sprintf("session %s not found", id)}
}

func badRequest(op, msg string) error {
	return &DomainError{Op: op, Status: http.StatusBadRequest, Message: msg}
}

// Create implements Store.
func (m *MemoryStore) Create(ctx context.Context, token string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ts := m.stamp()
	snap := Snapshot{
		ID:         uuid.NewString(),
		Owner:      OwnerOf(token),
		CreatedAt:  ts,
		ModifiedAt: ts,
		CPU: CPU{
			XRegs: make([]uint64, 32),
			FRegs: []float64{},
			Bus:   Bus{DRAM: []byte{}},
		},
	}
	m.seq++
	m.sessions[snap.ID] = &memEntry{snap: snap, seq: m.seq}
	return cloneSnapshot(snap), nil
}

// lookup returns the caller's entry. Another user's session reads as missing.
func (m *MemoryStore) lookup(op, token, id string) (*memEntry, error) {
	e, ok := m.sessions[id]
	if !ok || e.snap.Owner != OwnerOf(token) {
		return nil, notFound(op, id)
	}
	return e, nil
}

// Fetch implements Store.
func (m *MemoryStore) Fetch(ctx context.Context, token, id string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	e, err := m.lookup("fetch session", token, id)
	if err != nil {
		return Snapshot{}, err
	}
	return cloneSnapshot(e.snap), nil
}

// List implements Store.
func (m *MemoryStore) List(ctx context.Context, token string, page, size int) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	if page < 1 {
		return Page{}, badRequest("list sessions", "page must be at least 1")
	}
	if size < 1 || size > MaxPageSize {
		return Page{}, badRequest("list sessions", fmt.Sprintf("size must be between 1 and %d", MaxPageSize))
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	owner := OwnerOf(token)
	mine := make([]*memEntry, 0, len(m.sessions))
	for _, e := range m.sessions {
		if e.snap.Owner == owner {
			mine = append(mine, e)
		}
	}
	sort.Slice(mine, func(i, j int) bool { return mine[i].seq > mine[j].seq })

	out := Page{Sessions: []SessionInfo{}, Page: page, Size: size, Total: len(mine)}
	start := (page - 1) * size
	if start >= len(mine) {
		return out, nil
	}
	end := start + size
	if end > len(mine) {
		end = len(mine)
	}
	for _, e := range mine[start:end] {
		out.Sessions = append(out.Sessions, e.snap.Info())
	}
	return out, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(ctx context.Context, token, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.lookup("delete session", token, id); err != nil {
		return err
	}
	delete(m.sessions, id)
	return nil
}

// Upsert implements Store. Owner and timestamps are assigned by the store;
// a new id is inserted.
func (m *MemoryStore) Upsert(ctx context.Context, token string, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snap.ID == "" {
		return badRequest("upsert session", "session id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	owner := OwnerOf(token)
	ts := m.stamp()
	stored := cloneSnapshot(snap)
	stored.Owner = owner
	stored.ModifiedAt = ts

	if e, ok := m.sessions[snap.ID]; ok {
		if e.snap.Owner != owner {
			return notFound("upsert session", snap.ID)
		}
		stored.CreatedAt = e.snap.CreatedAt
	} else {
		stored.CreatedAt = ts
	}

	m.seq++
	m.sessions[snap.ID] = &memEntry{snap: stored, seq: m.seq}
	return nil
}

// Len returns the number of stored sessions across all users.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func cloneSnapshot(s Snapshot) Snapshot {
	c := s
	c.CPU.XRegs = append(make([]uint64, 0, len(s.CPU.XRegs)), s.CPU.XRegs...)
	c.CPU.FRegs = append([]float64{}, s.CPU.FRegs...)
	if s.CPU.Bus.DRAM != nil {
		c.CPU.Bus.DRAM = append([]byte{}, s.CPU.Bus.DRAM...)
	}
	return c
}

var _ Store = (*MemoryStore)(nil)
var _ Store = (*HTTPClient)(nil)
