package config

import (
	"os"
	"path/filepath"
	"testing"

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

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "radar.db", cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, 3, cfg.Notion.RatePerSec)
	assert.Equal(t, 30, cfg.Ingest.TimeoutSecs)
	assert.Equal(t, 3, cfg.Ingest.MaxRetries)
	assert.Equal(t, 3, cfg.Ingest.MaxConcurrent)
	assert.Equal(t, 100, cfg.Merge.PerSourceCap)
	assert.Equal(t, 200, cfg.Merge.AggregateCap)
	assert.Equal(t, 200, cfg.Cache.MaxSize)
	assert.InDelta(t, 0.85, cfg.Cache.SimilarityThreshold, 0.001)
	assert.Empty(t, cfg.Sources.Feeds)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/radar
log:
  level: debug
  format: console
server:
  port: 9090
sources:
  feeds:
    - name: sourcebottle
      url: https://www.sourcebottle.com/api/opportunities.json
    - name: qwoted
      url: https://app.qwoted.com/export/opps.csv
      format: csv
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/radar", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)

	require.Len(t, cfg.Sources.Feeds, 2)
	assert.Equal(t, "sourcebottle", cfg.Sources.Feeds[0].Name)
	assert.Equal(t, "csv", cfg.Sources.Feeds[1].Format)

	// Defaults still apply for unset values
	assert.Equal(t, 100, cfg.Merge.PerSourceCap)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
log:
  level: info
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("RADAR_LOG_LEVEL", "warn")
	t.Setenv("RADAR_STORE_DRIVER", "postgres")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "postgres", cfg.Store.Driver)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())

	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))

	err := InitLogger(LogConfig{Level: "not-a-level", Format: "json"})
	assert.Error(t, err)
}
