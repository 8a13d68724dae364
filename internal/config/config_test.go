package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "sqlite", cfg.Backend)
	require.Equal(t, "crawlwave.db", cfg.DBPath)
	require.Equal(t, 30, int(cfg.RequestTimeout.Seconds()))
	require.Equal(t, 4, cfg.Profile.Workers)
	require.Nil(t, cfg.Profile.MaxQuota)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CRAWLWAVE_BACKEND", "bbolt")
	t.Setenv("CRAWLWAVE_DB_PATH", "/tmp/custom.db")
	t.Setenv("CRAWLWAVE_MAX_QUOTA", "5000")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "bbolt", cfg.Backend)
	require.Equal(t, "/tmp/custom.db", cfg.DBPath)
	require.NotNil(t, cfg.Profile.MaxQuota)
	require.Equal(t, 5000, *cfg.Profile.MaxQuota)
}

func TestLoadRejectsUnreadableConfigFile(t *testing.T) {
	_, err := Load("/nonexistent/path/crawlwave.toml")
	require.Error(t, err)
	require.NoError(t, os.Unsetenv("CRAWLWAVE_BACKEND"))
}
