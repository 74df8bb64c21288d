package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 3, cfg.Notion.RateLimit)
	assert.Equal(t, "https://api.apify.com/v2", cfg.Apollo.BaseURL)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.Model)
	assert.Equal(t, int64(1024), cfg.Anthropic.MaxTokens)
	assert.Equal(t, "sqlite", cfg.Journal.Driver)
	assert.Equal(t, 50, cfg.Batch.Size)
	assert.Equal(t, 4, cfg.Batch.Workers)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.InitialBackoff)
	assert.Equal(t, 30*time.Second, cfg.Retry.MaxBackoff)
	assert.Equal(t, int64(4), cfg.Limits.Default.MaxInFlight)
	assert.Equal(t, 250*time.Millisecond, cfg.Limits.Default.MinInterval)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
notion:
  token: secret-token
  prospect_db: db-prospects
  dnc_db: db-dnc
journal:
  driver: postgres
  dsn: postgres://localhost/outreach
batch:
  size: 10
  workers: 2
retry:
  max_attempts: 5
limits:
  per_service:
    anthropic:
      max_in_flight: 2
      min_interval: 1s
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "secret-token", cfg.Notion.Token)
	assert.Equal(t, "db-prospects", cfg.Notion.ProspectDB)
	assert.Equal(t, "postgres", cfg.Journal.Driver)
	assert.Equal(t, 10, cfg.Batch.Size)
	assert.Equal(t, 2, cfg.Batch.Workers)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, int64(2), cfg.Limits.PerService["anthropic"].MaxInFlight)
	assert.Equal(t, time.Second, cfg.Limits.PerService["anthropic"].MinInterval)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadFromEnv(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("OUTREACH_NOTION_TOKEN", "env-token")
	t.Setenv("OUTREACH_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Notion.Token)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestRetryPolicy(t *testing.T) {
	policy := RetryConfig{MaxAttempts: 7}.RetryPolicy()
	assert.Equal(t, 7, policy.MaxAttempts)
	// Unset values keep the resilience defaults.
	assert.Equal(t, 500*time.Millisecond, policy.InitialBackoff)
	assert.Equal(t, 30*time.Second, policy.MaxBackoff)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())

	require.Error(t, InitLogger(LogConfig{Level: "not-a-level"}))
}
