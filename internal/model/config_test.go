package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.False(t, cfg.Sync.Auto)
	assert.Equal(t, 60, cfg.Sync.IntervalSec)
	assert.NotEmpty(t, cfg.Storage.DBPath)
	assert.Empty(t, cfg.Linear.TeamID)
}

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	want := &AppConfig{
		Linear: LinearConfig{
			TeamID:   "team-1",
			TeamName: "Core",
			CycleID:  "c1",
		},
		Sync: SyncConfig{
			Auto:        true,
			IntervalSec: 120,
		},
		Storage: StorageConfig{
			DBPath: "/tmp/sprintsync-test.db",
		},
	}
	require.NoError(t, SaveConfig(path, want))

	got, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadConfigNormalizesBadInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "sync:\n  auto: true\n  interval_sec: -5\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Sync.IntervalSec)
	assert.True(t, cfg.Sync.Auto)
}
