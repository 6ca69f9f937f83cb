package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thruflo/rain/internal/store"
)

// fakeStore records Upsert calls. Other operations are unused here.
type fakeStore struct {
	store.Store

	mu       sync.Mutex
	calls    []store.Snapshot
	err      error
	block    chan struct{} // when set, the first Upsert waits on it
	deadline bool
}

func (f *fakeStore) Upsert(ctx context.Context, token string, snap store.Snapshot) error {
	f.mu.Lock()
	f.calls = append(f.calls, snap)
	first := len(f.calls) == 1
	_, f.deadline = ctx.Deadline()
	block, err := f.block, f.err
	f.mu.Unlock()

	if first && block != nil {
		<-block
	}
	return err
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type recorder struct {
	notes []Notification
}

func (r *recorder) Notify(n Notification) { r.notes = append(r.notes, n) }

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func at(seconds float64) time.Time {
	return t0.Add(time.Duration(seconds * float64(time.Second)))
}

func snapshotOf(id string) SnapshotFunc {
	return func() store.Snapshot { return store.Snapshot{ID: id} }
}

func TestScheduler_OneDispatchPerInterval(t *testing.T) {
	fs := &fakeStore{}
	s := New(fs, "tok", snapshotOf("s1"), nil, Config{Interval: time.Second}, at(0))

	for _, ts := range []float64{0, 0.5, 1.0, 1.5} {
		s.Tick(at(ts))
		if ts == 1.0 {
			assert.Equal(t, 1, s.Stats().Dispatched, "dispatch happens at t=1.0")
		} else if ts < 1.0 {
			assert.Equal(t, 0, s.Stats().Dispatched)
		}
	}

	assert.Equal(t, 1, s.Stats().Dispatched)
	require.Eventually(t, func() bool { return fs.count() == 1 }, time.Second, time.Millisecond)
}

func TestScheduler_SuccessIsSilent(t *testing.T) {
	fs := &fakeStore{}
	rec := &recorder{}
	s := New(fs, "tok", snapshotOf("s1"), rec, Config{Interval: time.Second}, at(0))

	s.Tick(at(1))
	require.Eventually(t, func() bool {
		s.Tick(at(1.2))
		return !s.InFlight()
	}, time.Second, time.Millisecond)

	assert.Empty(t, rec.notes)
	assert.Equal(t, 1, s.Stats().Succeeded)
	assert.Equal(t, at(1.2), s.Stats().LastSuccess)
}

func TestScheduler_ErrorNotifies(t *testing.T) {
	fs := &fakeStore{err: &store.DomainError{Op: "upsert session", Status: 403, Message: "read only"}}
	rec := &recorder{}
	s := New(fs, "tok", snapshotOf("s1"), rec, Config{Interval: time.Second}, at(0))

	s.Tick(at(1))
	require.Eventually(t, func() bool {
		s.Tick(at(1.2))
		return len(rec.notes) == 1
	}, time.Second, time.Millisecond)

	n := rec.notes[0]
	assert.Equal(t, LevelError, n.Level)
	assert.Equal(t, "Sync failed", n.Title)
	assert.Contains(t, n.Message, "read only")
	assert.Equal(t, at(1.2), n.At)
	assert.Equal(t, 1, s.Stats().Failed)
	assert.True(t, store.IsDomain(s.Stats().LastError))

	// Failure does not delay the next attempt.
	s.Tick(at(2))
	assert.Equal(t, 2, s.Stats().Dispatched)
}

func TestScheduler_SlowRemoteSkipsIntervals(t *testing.T) {
	release := make(chan struct{})
	fs := &fakeStore{block: release}
	s := New(fs, "tok", snapshotOf("s1"), nil, Config{Interval: time.Second}, at(0))

	s.Tick(at(1))
	s.Tick(at(2))
	s.Tick(at(3))
	assert.Equal(t, 1, s.Stats().Dispatched)
	assert.Equal(t, 2, s.Stats().Skipped)
	assert.True(t, s.InFlight())

	close(release)
	require.Eventually(t, func() bool {
		s.Tick(at(3.5))
		return s.Stats().Succeeded == 1
	}, time.Second, time.Millisecond)

	// The slot resolved and the interval since the last attempt (t=1) has
	// passed, so the same tick dispatched again.
	assert.Equal(t, 2, s.Stats().Dispatched)
}

func TestScheduler_SyncNow(t *testing.T) {
	fs := &fakeStore{}
	s := New(fs, "tok", snapshotOf("s1"), nil, Config{Interval: time.Hour}, at(0))

	s.Tick(at(1))
	assert.Equal(t, 0, s.Stats().Dispatched)

	s.SyncNow()
	s.Tick(at(1))
	assert.Equal(t, 1, s.Stats().Dispatched)
}

func TestScheduler_UploadsSnapshotWithTimeout(t *testing.T) {
	fs := &fakeStore{}
	s := New(fs, "tok", snapshotOf("abc"), nil, Config{Interval: time.Second, Timeout: time.Minute}, at(0))

	s.Tick(at(1))
	require.Eventually(t, func() bool { return fs.count() == 1 }, time.Second, time.Millisecond)

	fs.mu.Lock()
	defer fs.mu.Unlock()
	assert.Equal(t, "abc", fs.calls[0].ID)
	assert.True(t, fs.deadline)
}

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, DefaultInterval, cfg.Interval)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"domain", &store.DomainError{Op: "upsert session", Message: "nope"}, "server rejected the session"},
		{"transport", &store.TransportError{Op: "upsert session", Err: errors.New("refused")}, "server unreachable"},
		{"protocol", &store.ProtocolError{Op: "upsert session", Err: store.ErrEmptyResponse}, "bad server response"},
		{"other", errors.New("plain"), "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, describe(tt.err), tt.want)
		})
	}
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "info", LevelInfo.String())
	assert.Equal(t, "error", LevelError.String())
	assert.Equal(t, "unknown", Level(9).String())
}
