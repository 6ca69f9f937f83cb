package testutil

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thruflo/rain/internal/auth"
	"github.com/thruflo/rain/internal/server"
	"github.com/thruflo/rain/internal/store"
	"github.com/thruflo/rain/internal/vm"
)

// TestToken is the bearer token accepted by servers from SetupServer.
const TestToken = "test-token-123"

// APIPrefix is where the server mounts the session routes.
const APIPrefix = "/api/"

// fastParams keeps argon2id cheap in tests.
var fastParams = auth.Params{Time: 1, Memory: 64, Threads: 1, KeyLen: 16}

// Env is a session store server and a client pointed at it.
type Env struct {
	Server *server.Server
	HTTP   *httptest.Server
	Client *store.HTTPClient
}

// SetupServer starts a session store server that accepts TestToken and
// returns a client for it. Both are shut down when the test completes.
func SetupServer(t *testing.T) *Env {
	t.Helper()

	hash, err := auth.HashToken(TestToken, fastParams)
	require.NoError(t, err)
	return setup(t, server.Config{Addr: "127.0.0.1:0", TokenHash: hash})
}

// SetupInsecureServer is SetupServer for a server that accepts any token,
// so several owners can share it.
func SetupInsecureServer(t *testing.T) *Env {
	t.Helper()
	return setup(t, server.Config{Addr: "127.0.0.1:0", Insecure: true})
}

func setup(t *testing.T, cfg server.Config) *Env {
	t.Helper()

	srv, err := server.NewServer(cfg)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	client, err := store.NewHTTPClient(ts.URL+APIPrefix, store.WithTimeout(5*time.Second))
	require.NoError(t, err)

	return &Env{Server: srv, HTTP: ts, Client: client}
}

// SeedSession creates a session owned by token holding state and returns
// the stored snapshot.
func SeedSession(t *testing.T, st store.Store, token, name string, state vm.State) store.Snapshot {
	t.Helper()

	ctx := Context(t)
	snap, err := st.Create(ctx, token)
	require.NoError(t, err)

	snap.Name = name
	snap.CPU = store.NewCPU(state)
	require.NoError(t, st.Upsert(ctx, token, snap))

	snap, err = st.Fetch(ctx, token, snap.ID)
	require.NoError(t, err)
	return snap
}
