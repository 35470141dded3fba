package pathing

import (
	"os"
	"path/filepath"
)

const (
	defaultDataDir   = "/var/lib/water_tank_monitor"
	defaultConfigDir = "/etc/water_tank_monitor"
)

// EnsureDirs creates the directories the daemons write to.
// Must be called on startup, before config or database access.
func EnsureDirs() error {
	dirs := []string{
		GetDataDir(),
		GetConfigDir(),
	}

	for _, dir := range dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return err
			}
		}
	}
	return nil
}

func GetRecordDbPath() string {
	return filepath.Join(GetDataDir(), "tank-monitor.db")
}

func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), "tank_monitor.toml")
}

// Overridable for development and tests.
func GetDataDir() string {
	if dir := os.Getenv("TANK_MONITOR_DATA_DIR"); dir != "" {
		return dir
	}
	return defaultDataDir
}

func GetConfigDir() string {
	if dir := os.Getenv("TANK_MONITOR_CONFIG_DIR"); dir != "" {
		return dir
	}
	return defaultConfigDir
}
