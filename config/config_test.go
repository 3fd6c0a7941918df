package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
push:
  vapid_public_key: pub
  vapid_private_key: priv
database:
  dsn: "host=localhost user=livepush dbname=livepush"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8001, cfg.Server.Port)
	assert.Equal(t, 20, cfg.Dispatch.PageSize)
	assert.Equal(t, 3600, cfg.Push.TTL)
	assert.Equal(t, 30*time.Second, cfg.Content.Timeout)
	assert.Equal(t, float64(10), cfg.Server.RateLimitPerSec)
}

func TestLoad_ExplicitValues(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
  allowed_origins:
    - https://live.example.com
    - https://staging.example.com
push:
  vapid_public_key: pub
  vapid_private_key: priv
  ttl: 60
content:
  url: https://cms.example.com/graphql
  timeout_seconds: 5
dispatch:
  page_size: 50
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, []string{"https://live.example.com", "https://staging.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 60, cfg.Push.TTL)
	assert.Equal(t, "https://cms.example.com/graphql", cfg.Content.URL)
	assert.Equal(t, 5*time.Second, cfg.Content.Timeout)
	assert.Equal(t, 50, cfg.Dispatch.PageSize)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("VAPID_PUBLIC_KEY", "env-pub")
	t.Setenv("VAPID_PRIVATE_KEY", "env-priv")
	t.Setenv("DATABASE_DSN", "host=db user=livepush")
	t.Setenv("CONTENT_API_TOKEN", "env-token")

	path := writeConfig(t, `
push:
  vapid_public_key: file-pub
content:
  url: https://cms.example.com/graphql
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-pub", cfg.Push.PublicKey)
	assert.Equal(t, "env-priv", cfg.Push.PrivateKey)
	assert.Equal(t, "host=db user=livepush", cfg.Database.DSN)
	assert.Equal(t, "env-token", cfg.Content.Token)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
