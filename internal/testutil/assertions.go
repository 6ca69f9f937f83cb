package testutil

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thruflo/rain/internal/syncer"
	"github.com/thruflo/rain/internal/vm"
)

// AssertStatesEqual asserts that two VM states are equal.
// Compares PC, every register and memory, reporting each mismatch.
func AssertStatesEqual(t *testing.T, expected, actual vm.State) {
	t.Helper()

	assert.Equal(t, vm.FormatHex(expected.PC), vm.FormatHex(actual.PC), "pc mismatch")
	for i := range expected.Registers {
		assert.Equal(t, expected.Registers[i], actual.Registers[i], "x%d mismatch", i)
	}
	require.Len(t, actual.Memory, len(expected.Memory), "memory size mismatch")
	assert.Equal(t, expected.Memory, actual.Memory, "memory mismatch")
}

// Recorder is a Notifier that keeps every notification. It is safe for
// concurrent use.
type Recorder struct {
	mu    sync.Mutex
	notes []syncer.Notification
}

var _ syncer.Notifier = (*Recorder)(nil)

// Notify records n.
func (r *Recorder) Notify(n syncer.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

// Notes returns a copy of the recorded notifications.
func (r *Recorder) Notes() []syncer.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]syncer.Notification(nil), r.notes...)
}

// Len returns the number of recorded notifications.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notes)
}

// AssertNotified asserts that r holds a notification at level whose message
// contains substr.
func AssertNotified(t *testing.T, r *Recorder, level syncer.Level, substr string) {
	t.Helper()

	notes := r.Notes()
	for _, n := range notes {
		if n.Level == level && strings.Contains(n.Message, substr) {
			return
		}
	}
	assert.Failf(t, "notification not found", "no %s notification containing %q in %v", level, substr, notes)
}
