package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// LinearConfig holds the remote tracker connection settings. The API key
// itself lives in the system keyring, never in the config file.
type LinearConfig struct {
	// TeamID is the tracker team whose cycles and backlog are synced.
	TeamID string `mapstructure:"team_id" yaml:"team_id"`

	// TeamName is the cached display name for the selected team.
	TeamName string `mapstructure:"team_name" yaml:"team_name"`

	// CycleID is the currently selected cycle for single-scope syncs.
	CycleID string `mapstructure:"cycle_id" yaml:"cycle_id"`
}

// SyncConfig holds the background synchronization settings.
type SyncConfig struct {
	// Auto enables the recurring background sync loop.
	Auto bool `mapstructure:"auto" yaml:"auto"`

	// IntervalSec is how often (in seconds) the background loop runs.
	IntervalSec int `mapstructure:"interval_sec" yaml:"interval_sec"`
}

// StorageConfig holds local persistence settings.
type StorageConfig struct {
	// DBPath is the SQLite database file location.
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Linear  LinearConfig  `mapstructure:"linear" yaml:"linear"`
	Sync    SyncConfig    `mapstructure:"sync" yaml:"sync"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/sprintsync/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "sprintsync", "config.yaml")
}

// DefaultDBPath returns the default SQLite database location,
// located at ~/.local/share/sprintsync/sprintsync.db.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "sprintsync.db")
	}
	return filepath.Join(home, ".local", "share", "sprintsync", "sprintsync.db")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Sync: SyncConfig{
			Auto:        false,
			IntervalSec: 60,
		},
		Storage: StorageConfig{
			DBPath: DefaultDBPath(),
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("sync.auto", false)
	v.SetDefault("sync.interval_sec", 60)
	v.SetDefault("storage.db_path", DefaultDBPath())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Sync.IntervalSec <= 0 {
		cfg.Sync.IntervalSec = 60
	}
	if cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = DefaultDBPath()
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("linear.team_id", cfg.Linear.TeamID)
	v.Set("linear.team_name", cfg.Linear.TeamName)
	v.Set("linear.cycle_id", cfg.Linear.CycleID)
	v.Set("sync.auto", cfg.Sync.Auto)
	v.Set("sync.interval_sec", cfg.Sync.IntervalSec)
	v.Set("storage.db_path", cfg.Storage.DBPath)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
