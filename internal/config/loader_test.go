package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Default(t *testing.T) {
	t.Setenv(EnvToken, "")
	t.Setenv(EnvServerURL, "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultServerURL, cfg.ServerURL)
	assert.Equal(t, DefaultSyncInterval, cfg.Sync.Interval)
	assert.Equal(t, DefaultSyncTimeout, cfg.Sync.Timeout)
	assert.Equal(t, DefaultUITick, cfg.UI.Tick)
	assert.Equal(t, DefaultToastTTL, cfg.UI.ToastTTL)
	assert.Equal(t, DefaultCacheSize, cfg.Decoder.CacheSize)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, DefaultServerAddr, cfg.Server.Addr)
	assert.Empty(t, cfg.Token)
}

func TestLoad_ValidFile(t *testing.T) {
	t.Setenv(EnvToken, "")
	t.Setenv(EnvServerURL, "")

	path := writeConfig(t, `server_url: https://rain.example.com/api/
token: secret
sync:
  interval: 2s
  timeout: 500ms
ui:
  tick: 20ms
  toast_ttl: 10s
decoder:
  cache_size: 128
log:
  level: debug
  file: /tmp/rain.log
server:
  addr: ":7000"
  token_hash: "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://rain.example.com/api/", cfg.ServerURL)
	assert.Equal(t, "secret", cfg.Token)
	assert.Equal(t, 2*time.Second, cfg.Sync.Interval)
	assert.Equal(t, 500*time.Millisecond, cfg.Sync.Timeout)
	assert.Equal(t, 20*time.Millisecond, cfg.UI.Tick)
	assert.Equal(t, 10*time.Second, cfg.UI.ToastTTL)
	assert.Equal(t, 128, cfg.Decoder.CacheSize)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/tmp/rain.log", cfg.Log.File)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Contains(t, cfg.Server.TokenHash, "$argon2id$")
}

func TestLoad_PartialFile(t *testing.T) {
	t.Setenv(EnvToken, "")
	t.Setenv(EnvServerURL, "")

	// Only set the sync interval, rest should keep defaults
	path := writeConfig(t, `sync:
  interval: 5s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Sync.Interval)
	assert.Equal(t, DefaultSyncTimeout, cfg.Sync.Timeout)
	assert.Equal(t, DefaultServerURL, cfg.ServerURL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvToken, " from-env ")
	t.Setenv(EnvServerURL, "http://10.0.0.1:6000/api/")

	path := writeConfig(t, "token: from-file\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Token)
	assert.Equal(t, "http://10.0.0.1:6000/api/", cfg.ServerURL)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, `sync: [`)

	_, err := Load(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoad_BadDuration(t *testing.T) {
	path := writeConfig(t, "sync:\n  interval: soon\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_ValidationErrors(t *testing.T) {
	t.Setenv(EnvToken, "")
	t.Setenv(EnvServerURL, "")

	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"relative server url", "server_url: api/\n", "server_url"},
		{"bad scheme", "server_url: ftp://host/api/\n", "server_url"},
		{"zero interval", "sync:\n  interval: 0s\n", "sync.interval"},
		{"negative timeout", "sync:\n  timeout: -1s\n", "sync.timeout"},
		{"tick too small", "ui:\n  tick: 100us\n", "ui.tick"},
		{"zero toast ttl", "ui:\n  toast_ttl: 0s\n", "ui.toast_ttl"},
		{"negative cache", "decoder:\n  cache_size: -1\n", "decoder.cache_size"},
		{"unknown level", "log:\n  level: loud\n", "log.level"},
		{"empty addr", "server:\n  addr: \"\"\n", "server.addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.True(t, IsValidationError(err))

			var ve ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")

	path, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/xdg", "rain", "config.yaml"), path)
}

func TestValidationError(t *testing.T) {
	err := ValidationError{Field: "sync.interval", Message: "must be positive"}
	assert.Equal(t, "validation error: sync.interval: must be positive", err.Error())
	assert.False(t, IsValidationError(os.ErrNotExist))
}
