// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every tunable. Fields in the Tunables subset can be
// re-applied to a running registry without restart.
type Config struct {
	Port     int    `env:"PORT" envDefault:"8080"`
	DataPath string `env:"DATA_PATH" envDefault:"./data/parties.json"`
	Backend  string `env:"STORAGE_BACKEND" envDefault:"jsonfile"`
	DBPath   string `env:"DB_PATH" envDefault:"./data/parties.db"`

	Tunables

	SweepInterval    time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
	DistanceInterval time.Duration `env:"DISTANCE_CHECK_INTERVAL" envDefault:"10s"`
	PlayTimeInterval time.Duration `env:"PLAYTIME_INTERVAL" envDefault:"1m"`
	CleanupInterval  time.Duration `env:"CLEANUP_INTERVAL" envDefault:"5m"`
	AutosaveInterval time.Duration `env:"AUTOSAVE_INTERVAL" envDefault:"5m"`
}

// Tunables are the settings the registry consumes directly; each is
// independently re-appliable at runtime via Registry.ApplyConfig.
type Tunables struct {
	InviteExpiration  time.Duration `env:"INVITE_EXPIRATION" envDefault:"5m"`
	CommandCooldown   time.Duration `env:"COMMAND_COOLDOWN" envDefault:"3s"`
	TeleportCooldown  time.Duration `env:"TELEPORT_COOLDOWN" envDefault:"30s"`
	MaxMembers        int           `env:"MAX_MEMBERS" envDefault:"8"`
	MaxPendingInvites int           `env:"MAX_PENDING_INVITES" envDefault:"10"`
	OptimizeMarkers   bool          `env:"OPTIMIZE_MARKERS" envDefault:"true"`
	DistanceCheck     bool          `env:"DISTANCE_CHECK_ENABLED" envDefault:"false"`
	MaxDistance       float64       `env:"MAX_DISTANCE" envDefault:"500"`
	KickOnWorldChange bool          `env:"KICK_ON_WORLD_CHANGE" envDefault:"false"`
	TrackPlayTime     bool          `env:"TRACK_PLAYTIME" envDefault:"true"`
	AsyncSave         bool          `env:"ASYNC_SAVE" envDefault:"true"`
}

// Load parses configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.MaxMembers < 1 {
		return fmt.Errorf("MAX_MEMBERS must be at least 1, got %d", c.MaxMembers)
	}
	if c.MaxPendingInvites < 1 {
		return fmt.Errorf("MAX_PENDING_INVITES must be at least 1, got %d", c.MaxPendingInvites)
	}
	switch c.Backend {
	case "jsonfile", "sqlite":
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Backend)
	}
	return nil
}
