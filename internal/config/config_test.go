package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("QUANTFOLIO_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8010, cfg.Port)
	assert.False(t, cfg.DevMode)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 252, cfg.AnnualizationPct)
	assert.NotEmpty(t, cfg.MarketDataURL)
	assert.NotEmpty(t, cfg.PriceSyncSpec)
	assert.NotEmpty(t, cfg.CachePurgeSpec)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("QUANTFOLIO_DATA_DIR", t.TempDir())
	t.Setenv("QUANTFOLIO_PORT", "9999")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("PERIODS_PER_YEAR", "365")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Port)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 365, cfg.AnnualizationPct)
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("QUANTFOLIO_DATA_DIR", t.TempDir())
	t.Setenv("QUANTFOLIO_PORT", "70000")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_CreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	t.Setenv("QUANTFOLIO_DATA_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.DirExists(t, cfg.DataDir)
}
