package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "0.pool.ntp.org", cfg.Client.Server)
	require.Equal(t, 123, cfg.Client.Port)
	require.Equal(t, 3600, cfg.Client.CacheSeconds)
	require.Equal(t, 1000, cfg.Client.TimeoutMillis)

	// the default config file was written
	configPath, err := GetConfigPath()
	require.NoError(t, err)
	_, err = os.Stat(configPath)
	require.NoError(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg := DefaultConfig()
	cfg.Client.Server = "ntp.example.org"
	cfg.Client.TimezoneOffsetHours = -7
	cfg.Client.CacheSeconds = 0
	cfg.Check.Enabled = true
	require.NoError(t, cfg.Save())

	loaded, err := Load()
	require.NoError(t, err)
	require.Equal(t, "ntp.example.org", loaded.Client.Server)
	require.Equal(t, -7, loaded.Client.TimezoneOffsetHours)
	require.Equal(t, 0, loaded.Client.CacheSeconds)
	require.True(t, loaded.Check.Enabled)
}

func TestUpdateFromYAML(t *testing.T) {
	cfg := DefaultConfig()

	err := cfg.UpdateFromYAML("client:\n  server: time.example.net\n  port: 1123\n")
	require.NoError(t, err)
	require.Equal(t, "time.example.net", cfg.Client.Server)
	require.Equal(t, 1123, cfg.Client.Port)

	err = cfg.UpdateFromYAML("client: [not a mapping")
	require.Error(t, err)
}

func TestCheckServerFallback(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, cfg.Client.Server, cfg.CheckServer())

	cfg.Check.Server = "time.example.net"
	require.Equal(t, "time.example.net", cfg.CheckServer())
}

func TestEnsureDataDir(t *testing.T) {
	t.Chdir(t.TempDir())

	dataDir, err := EnsureDataDir()
	require.NoError(t, err)

	for _, subdir := range []string{HistoryDirName, ExportDirName} {
		info, err := os.Stat(filepath.Join(dataDir, subdir))
		require.NoError(t, err)
		require.True(t, info.IsDir())
	}
}
