// Package config loads server configuration from an optional YAML file, a
// .env file, and environment variables, in that order of increasing
// precedence, then fills defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Limits LimitsConfig `yaml:"limits"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig covers the listening side.
type ServerConfig struct {
	Port         int      `yaml:"port"`
	RateLimitRPS float64  `yaml:"rate_limit_rps"` // per-identity budget on /game/*
	RateBurst    int      `yaml:"rate_burst"`
	ShutdownWait Duration `yaml:"shutdown_wait"`
}

// LimitsConfig bounds lobby/game residency and drives the reaper.
type LimitsConfig struct {
	MaxLobbies            int      `yaml:"max_lobbies"`
	MaxActiveGames        int      `yaml:"max_active_games"`
	LobbyIdleTimeout      Duration `yaml:"lobby_idle_timeout"`
	GameIdleTimeout       Duration `yaml:"game_idle_timeout"`
	FinishedGameRetention Duration `yaml:"finished_game_retention"`
	CleanupInterval       Duration `yaml:"cleanup_interval"`
}

// LogConfig controls format and level.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // console | json
}

// Duration is a time.Duration that YAML-parses from Go duration strings.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("config: parse duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Load reads configuration. A missing .env is silent; a missing YAML file
// is silent too when path is empty, so the server can run on env vars and
// defaults alone.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	setDefaults(&cfg)
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	var err error
	overrideInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" && err == nil {
			n, perr := strconv.Atoi(v)
			if perr != nil {
				err = fmt.Errorf("config: %s=%q is not an integer: %w", key, v, perr)
				return
			}
			*dst = n
		}
	}
	overrideDuration := func(key string, dst *Duration) {
		if v := os.Getenv(key); v != "" && err == nil {
			d, perr := time.ParseDuration(v)
			if perr != nil {
				err = fmt.Errorf("config: %s=%q is not a duration: %w", key, v, perr)
				return
			}
			*dst = Duration(d)
		}
	}

	overrideInt("PORT", &cfg.Server.Port)
	overrideInt("MAX_LOBBIES", &cfg.Limits.MaxLobbies)
	overrideInt("MAX_ACTIVE_GAMES", &cfg.Limits.MaxActiveGames)
	overrideDuration("LOBBY_IDLE_TIMEOUT", &cfg.Limits.LobbyIdleTimeout)
	overrideDuration("GAME_IDLE_TIMEOUT", &cfg.Limits.GameIdleTimeout)
	overrideDuration("FINISHED_GAME_RETENTION", &cfg.Limits.FinishedGameRetention)
	overrideDuration("CLEANUP_INTERVAL", &cfg.Limits.CleanupInterval)
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" && err == nil {
		f, perr := strconv.ParseFloat(v, 64)
		if perr != nil {
			err = fmt.Errorf("config: RATE_LIMIT_RPS=%q is not a number: %w", v, perr)
		} else {
			cfg.Server.RateLimitRPS = f
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	return err
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitRPS <= 0 {
		cfg.Server.RateLimitRPS = 20
	}
	if cfg.Server.RateBurst <= 0 {
		cfg.Server.RateBurst = 20
	}
	if cfg.Server.ShutdownWait <= 0 {
		cfg.Server.ShutdownWait = Duration(10 * time.Second)
	}
	if cfg.Limits.MaxLobbies <= 0 {
		cfg.Limits.MaxLobbies = 200
	}
	if cfg.Limits.MaxActiveGames <= 0 {
		cfg.Limits.MaxActiveGames = 100
	}
	if cfg.Limits.LobbyIdleTimeout <= 0 {
		cfg.Limits.LobbyIdleTimeout = Duration(30 * time.Minute)
	}
	if cfg.Limits.GameIdleTimeout <= 0 {
		cfg.Limits.GameIdleTimeout = Duration(2 * time.Hour)
	}
	if cfg.Limits.FinishedGameRetention <= 0 {
		cfg.Limits.FinishedGameRetention = Duration(5 * time.Minute)
	}
	if cfg.Limits.CleanupInterval <= 0 {
		cfg.Limits.CleanupInterval = Duration(60 * time.Second)
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
}
