// Package settings manages persistent user settings for the fleetscan CLI.
package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Settings holds persistent user preferences
type Settings struct {
	// DBPath is the SQLite database holding topology and configuration
	DBPath string `json:"db_path,omitempty"`

	// DriversPath overrides the embedded device driver profiles
	DriversPath string `json:"drivers_path,omitempty"`

	// RedisAddr enables event publishing when set (host:port)
	RedisAddr string `json:"redis_addr,omitempty"`

	// DefaultContainer is the container number used when --can is not given
	DefaultContainer int `json:"default_container,omitempty"`
}

// Dir returns the per-user fleetscan directory
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fleetscan"
	}
	return filepath.Join(home, ".fleetscan")
}

// DefaultSettingsPath returns the default path for the settings file
func DefaultSettingsPath() string {
	return filepath.Join(Dir(), "settings.json")
}

// Load reads settings from the default location
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty settings if file doesn't exist
			return s, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}

	return s, nil
}

// Save writes settings to the default location
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path
func (s *Settings) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetDBPath returns the database path (with fallback)
func (s *Settings) GetDBPath() string {
	if s.DBPath != "" {
		return s.DBPath
	}
	return filepath.Join(Dir(), "fleetscan.db")
}

// Clear resets all settings to defaults
func (s *Settings) Clear() {
	*s = Settings{}
}
