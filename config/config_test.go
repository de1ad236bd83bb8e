package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 9000\n"))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Machine.OpenWindow)
	assert.Equal(t, 5*time.Second, cfg.Machine.DeniedWindow)
	assert.Equal(t, 5*time.Minute, cfg.Server.CacheTTL)
	assert.Equal(t, "dispenser.state", cfg.Events.Subject)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, 1, cfg.WorkerPool.Size)
	assert.False(t, cfg.Push.Enabled())
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
machine:
  open_window_ms: 45000
  denied_window_ms: 2500
push:
  vapid_public_key: pub
  vapid_private_key: priv
  subject: mailto:bar@example.com
events:
  url: nats://127.0.0.1:4222
  subject: bar.dispenser
worker_pool:
  size: 3
`))
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, cfg.Machine.OpenWindow)
	assert.Equal(t, 2500*time.Millisecond, cfg.Machine.DeniedWindow)
	assert.True(t, cfg.Push.Enabled())
	assert.Equal(t, "bar.dispenser", cfg.Events.Subject)
	assert.Equal(t, 3, cfg.WorkerPool.Size)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeConfig(t, "server: [not, a, map]\n"))
	assert.Error(t, err)
}
