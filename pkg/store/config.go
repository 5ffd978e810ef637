package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/newtron-network/fleetscan/pkg/health"
	"github.com/newtron-network/fleetscan/pkg/util"
)

const configKey = "config"

// Config is the process-wide runtime configuration.
type Config struct {
	RefreshRate       int     `json:"refreshRate"`       // seconds between watch scans
	MaxConnections    int     `json:"maxConnections"`    // in-flight device sessions
	ConnectionTimeout int     `json:"connectionTimeout"` // seconds
	ReadTimeout       int     `json:"readTimeout"`       // seconds
	HashrateThreshold float64 `json:"hashrateThreshold"` // fraction of nameplate
}

// DefaultConfig returns the configuration used when none is stored.
func DefaultConfig() Config {
	return Config{
		RefreshRate:       30,
		MaxConnections:    500,
		ConnectionTimeout: 10,
		ReadTimeout:       15,
		HashrateThreshold: health.DefaultThreshold,
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	v := &util.ValidationBuilder{}
	v.Add(c.RefreshRate > 0, "refreshRate must be positive")
	v.Add(c.MaxConnections >= 0, "maxConnections must not be negative")
	v.Add(c.ConnectionTimeout > 0, "connectionTimeout must be positive")
	v.Add(c.ReadTimeout > 0, "readTimeout must be positive")
	v.Add(c.HashrateThreshold > 0 && c.HashrateThreshold <= 1, "hashrateThreshold must be in (0, 1]")
	return v.Build()
}

func (c Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshRate) * time.Second
}

func (c Config) ConnectTimeoutDuration() time.Duration {
	return time.Duration(c.ConnectionTimeout) * time.Second
}

func (c Config) ReadTimeoutDuration() time.Duration {
	return time.Duration(c.ReadTimeout) * time.Second
}

// LoadConfig returns the stored configuration. Fields missing from the
// stored record keep their defaults.
func (s *Store) LoadConfig(ctx context.Context) (Config, error) {
	cfg := DefaultConfig()

	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, configKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return cfg, nil
	}
	if err != nil {
		return cfg, util.NewPersistenceError("load config", err)
	}
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return cfg, util.NewPersistenceError("load config", err)
	}
	return cfg, nil
}

// SaveConfig validates and stores cfg.
func (s *Store) SaveConfig(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, configKey, string(data))
	if err != nil {
		return util.NewPersistenceError("save config", err)
	}
	return nil
}
