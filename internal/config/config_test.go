package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "ticker-linker.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.InDelta(t, 0.5, cfg.Linker.MinConfidence, 0.001)
	assert.Equal(t, 4, cfg.Linker.BatchWorkers)
	assert.Equal(t, 500, cfg.Linker.SocialTextCap)
	assert.Equal(t, 1000, cfg.Linker.ArticleTextCap)
	assert.Equal(t, 10, cfg.Scrape.TimeoutSecs)
	assert.Equal(t, 50000, cfg.Scrape.MaxContentLength)
	assert.InDelta(t, 1.0, cfg.Scrape.PerHostRPS, 0.001)
	assert.Equal(t, 1, cfg.Scrape.MaxAttempts)
	assert.Equal(t, 8, cfg.Scrape.Workers)
	assert.Empty(t, cfg.Scrape.BlockedHosts)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chTempDir(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/tickers
log:
  level: debug
  format: console
server:
  port: 9090
linker:
  min_confidence: 0.7
  batch_workers: 16
scrape:
  blocked_hosts:
    - paywalled.example.com
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/tickers", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.InDelta(t, 0.7, cfg.Linker.MinConfidence, 0.001)
	assert.Equal(t, 16, cfg.Linker.BatchWorkers)
	assert.Equal(t, []string{"paywalled.example.com"}, cfg.Scrape.BlockedHosts)
	// Defaults still apply for unset values
	assert.Equal(t, 500, cfg.Linker.SocialTextCap)
	assert.Equal(t, 10, cfg.Scrape.TimeoutSecs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chTempDir(t)

	yaml := `
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))
	t.Setenv("TICKERLINKER_SERVER_PORT", "7070")
	t.Setenv("TICKERLINKER_LINKER_BATCH_WORKERS", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Linker.BatchWorkers)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := chTempDir(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [not a map"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read file")
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())

	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))
	assert.False(t, zap.L().Core().Enabled(zap.InfoLevel))
	assert.True(t, zap.L().Core().Enabled(zap.WarnLevel))
}

func TestInitLoggerBadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "loud", Format: "json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}
