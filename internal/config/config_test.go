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
	p := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "auth:\n  jwt_secret: testsecret\n"))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.ListenAddr)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, "/var/lib/zonewatch/zonewatch.db", cfg.Database.Path)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenDuration)
	assert.Equal(t, 15*time.Second, cfg.Transport.DialTimeout)
	assert.Equal(t, 60*time.Second, cfg.Ingest.LogInterval)
	assert.Equal(t, 120*time.Second, cfg.Ingest.KillFeedInterval)
	assert.Equal(t, 4, cfg.Ingest.MaxConcurrent)
	assert.Empty(t, cfg.Notify.NatsURL, "NATS stays off unless configured")
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  listen_addr: 0.0.0.0
  http_port: 9000
database:
  path: /tmp/zw.db
ingest:
  max_concurrent: 8
notify:
  nats_url: nats://localhost:4222
`))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.ListenAddr)
	assert.Equal(t, 9000, cfg.Server.HTTPPort)
	assert.Equal(t, "/tmp/zw.db", cfg.Database.Path)
	assert.Equal(t, 8, cfg.Ingest.MaxConcurrent)
	assert.Equal(t, "nats://localhost:4222", cfg.Notify.NatsURL)
	assert.Equal(t, 60*time.Second, cfg.Ingest.LogInterval, "unset durations still default")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestLoadMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [not a mapping"))
	assert.Error(t, err)
}
