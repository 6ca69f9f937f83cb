//go:build integration

package integration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thruflo/rain/internal/emulator"
	"github.com/thruflo/rain/internal/store"
	"github.com/thruflo/rain/internal/syncer"
	"github.com/thruflo/rain/internal/testutil"
	"github.com/thruflo/rain/internal/tui"
	"github.com/thruflo/rain/internal/vm"
)

const interval = time.Second

// openSession seeds the sample program on st and opens it for editing at t0,
// uploading with token.
func openSession(t *testing.T, st store.Store, token string, notifier syncer.Notifier, t0 time.Time) *emulator.Session {
	t.Helper()
	return openState(t, st, token, notifier, t0, testutil.SampleState())
}

func openState(t *testing.T, st store.Store, token string, notifier syncer.Notifier, t0 time.Time, state vm.State) *emulator.Session {
	t.Helper()

	snap := testutil.SeedSession(t, st, testutil.TestToken, "sum", state)
	s, err := emulator.New(emulator.Config{
		Sync:      syncer.Config{Interval: interval, Timeout: 5 * time.Second},
		CacheSize: 64,
	}, snap, st, token, notifier, t0)
	require.NoError(t, err)
	return s
}

// tickUntil ticks s with virtual time, one interval per call, until cond
// holds. Returns the last virtual time used.
func tickUntil(t *testing.T, s *emulator.Session, from time.Time, cond func(syncer.Stats) bool) time.Time {
	t.Helper()
	now := from
	require.Eventually(t, func() bool {
		now = now.Add(interval)
		s.Tick(now)
		return cond(s.SyncStats())
	}, 5*time.Second, 20*time.Millisecond)
	return now
}

func TestSession_EditsReachServer(t *testing.T) {
	env := testutil.SetupServer(t)
	var notes testutil.Recorder
	t0 := time.Now()
	s := openSession(t, env.Client, testutil.TestToken, &notes, t0)

	assert.Len(t, s.Records(), testutil.SampleRecords)

	require.NoError(t, s.SetRegister(10, 0x2a))
	s.SetPC(4)
	require.True(t, s.Poke(0, 0x01))
	s.Rename("edited")

	s.Tick(t0)
	assert.Zero(t, s.SyncStats().Dispatched, "no upload before the first interval")
	assert.Greater(t, len(s.Records()), testutil.SampleRecords, "poke split the first word")

	tickUntil(t, s, t0, func(st syncer.Stats) bool { return st.Succeeded >= 1 })
	assert.Zero(t, notes.Len(), "successful syncs are silent")

	got, err := env.Client.Fetch(testutil.Context(t), testutil.TestToken, s.ID())
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Name)
	testutil.AssertStatesEqual(t, s.State(), got.CPU.State())
}

func TestSession_TrailingBytesSurviveSync(t *testing.T) {
	env := testutil.SetupServer(t)
	t0 := time.Now()
	state := testutil.SampleState()
	state.Memory = testutil.WithTrailing(state.Memory, 3)
	s := openState(t, env.Client, testutil.TestToken, syncer.Discard, t0, state)

	assert.Len(t, s.Records(), testutil.SampleRecords)
	assert.Equal(t, uint64(3), s.Dropped())

	require.NoError(t, s.Leave(testutil.Context(t)))
	got, err := env.Client.Fetch(testutil.Context(t), testutil.TestToken, s.ID())
	require.NoError(t, err)
	assert.Equal(t, state.Memory, got.CPU.State().Memory, "undecoded bytes are still stored")
}

func TestSession_ServerDownNotifies(t *testing.T) {
	env := testutil.SetupServer(t)
	var notes testutil.Recorder
	t0 := time.Now()
	s := openSession(t, env.Client, testutil.TestToken, &notes, t0)

	env.HTTP.Close()

	tickUntil(t, s, t0, func(st syncer.Stats) bool { return st.Failed >= 1 })
	testutil.AssertNotified(t, &notes, syncer.LevelError, "server unreachable")
	assert.True(t, store.IsTransport(s.SyncStats().LastError))

	err := s.Leave(testutil.Context(t))
	require.Error(t, err)
	assert.True(t, store.IsTransport(err))
}

func TestSession_RejectedTokenNotifies(t *testing.T) {
	env := testutil.SetupServer(t)
	var notes testutil.Recorder
	t0 := time.Now()
	s := openSession(t, env.Client, "not-the-token", &notes, t0)

	tickUntil(t, s, t0, func(st syncer.Stats) bool { return st.Failed >= 1 })
	testutil.AssertNotified(t, &notes, syncer.LevelError, "server rejected the session")
	assert.True(t, store.IsDomain(s.SyncStats().LastError))
}

func TestSession_LeaveRecreatesDeletedSession(t *testing.T) {
	env := testutil.SetupServer(t)
	t0 := time.Now()
	s := openSession(t, env.Client, testutil.TestToken, syncer.Discard, t0)

	ctx := testutil.Context(t)
	require.NoError(t, env.Client.Delete(ctx, testutil.TestToken, s.ID()))
	_, err := env.Client.Fetch(ctx, testutil.TestToken, s.ID())
	require.True(t, store.IsNotFound(err))

	s.SetPC(0x10)
	require.NoError(t, s.Leave(ctx))

	got, err := env.Client.Fetch(ctx, testutil.TestToken, s.ID())
	require.NoError(t, err)
	assert.Equal(t, uint64(0x10), got.CPU.State().PC)
}

func TestSession_OwnersAreIsolated(t *testing.T) {
	env := testutil.SetupInsecureServer(t)
	ctx := testutil.Context(t)
	snap := testutil.SeedSession(t, env.Client, "alice", "mine", testutil.SampleState())

	page, err := env.Client.List(ctx, "alice", 1, store.DefaultPageSize)
	require.NoError(t, err)
	require.Len(t, page.Sessions, 1)
	assert.Equal(t, snap.ID, page.Sessions[0].ID)
	assert.Equal(t, "mine", page.Sessions[0].DisplayName())

	page, err = env.Client.List(ctx, "bob", 1, store.DefaultPageSize)
	require.NoError(t, err)
	assert.Empty(t, page.Sessions)

	_, err = env.Client.Fetch(ctx, "bob", snap.ID)
	assert.True(t, store.IsNotFound(err))
}

func TestEditor_CommandsSyncThroughServer(t *testing.T) {
	env := testutil.SetupServer(t)
	toasts := tui.NewToasts(tui.DefaultToastTTL, nil)
	t0 := time.Now()
	s := openSession(t, env.Client, testutil.TestToken, toasts, t0)
	editor := tui.NewEditor(s, toasts, nil, tui.Options{})

	for _, line := range []string{"x10 2a", "pc 8", "name from-editor"} {
		editor.HandleKey(tui.KeyEvent{Key: tui.KeyRune, Rune: ':'})
		for _, r := range line {
			editor.HandleKey(tui.KeyEvent{Key: tui.KeyRune, Rune: r})
		}
		editor.HandleKey(tui.KeyEvent{Key: tui.KeyEnter})
	}
	assert.Empty(t, toasts.Active(t0), "commands should not fail")

	// s queues an immediate sync.
	editor.HandleKey(tui.KeyEvent{Key: tui.KeyRune, Rune: 's'})
	require.Eventually(t, func() bool {
		s.Tick(t0)
		return s.SyncStats().Succeeded >= 1
	}, 5*time.Second, 20*time.Millisecond)

	got, err := env.Client.Fetch(testutil.Context(t), testutil.TestToken, s.ID())
	require.NoError(t, err)
	assert.Equal(t, "from-editor", got.Name)
	state := got.CPU.State()
	assert.Equal(t, uint64(8), state.PC)
	assert.Equal(t, uint64(0x2a), state.Registers[10])

	frame := editor.Frame(t0, 80, 30)
	assert.Contains(t, frame[0], "from-editor")
}
