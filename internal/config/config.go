// Package config loads daemon settings from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// AppConfig holds settings parsed from SITEBLOCK_* environment
// variables. The business data (schedules, block list, stats) lives in
// the data directory, not here; this only configures the process.
type AppConfig struct {
	// DataDir is where config, stats, the session journal and the
	// daemon registry live. Defaults to ~/.siteblock.
	DataDir string `koanf:"data_dir" validate:"required"`

	// HostsPath is the system host-resolution table to rewrite.
	HostsPath string `koanf:"hosts_path" validate:"required"`

	// TickSeconds is the schedule reconciliation interval.
	TickSeconds int `koanf:"tick_seconds" validate:"required,gte=5"`

	// CooldownMinutes is the deactivation timer duration.
	CooldownMinutes int `koanf:"cooldown_minutes" validate:"required,gte=1"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`
}

// DEFAULT_APP_CONFIG defines the default process settings. DataDir is
// left empty here and resolved against the home directory at load time.
var DEFAULT_APP_CONFIG = AppConfig{
	HostsPath:       "/etc/hosts",
	TickSeconds:     60,
	CooldownMinutes: 15,
	LogLevel:        "info",
}

// TickInterval returns the reconciliation interval as a duration.
func (c *AppConfig) TickInterval() time.Duration {
	return time.Duration(c.TickSeconds) * time.Second
}

// Cooldown returns the deactivation timer duration.
func (c *AppConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownMinutes) * time.Minute
}

// envLoader loads environment variables with the prefix "SITEBLOCK_",
// lowercasing keys and stripping the prefix. Split out so tests can
// swap it.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "SITEBLOCK_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "SITEBLOCK_"))
			return key, strings.TrimSpace(value)
		},
	}), nil)
}

// defaultLoader loads default values using the structs provider.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// Load parses environment variables and returns an AppConfig with
// defaults applied and validation run.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}
	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("error resolving home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".siteblock")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
