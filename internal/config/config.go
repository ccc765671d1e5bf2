// Package config loads the council configuration file, resolves the model
// registry, and hot-reloads it when the file changes on disk.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/asdersss/EZ-LLMcouncil/internal/model"
)

const (
	DefaultTemperature   = 0.7
	DefaultTimeoutSec    = 120
	DefaultMaxRetries    = 3
	DefaultMaxConcurrent = 10
	DefaultHeartbeatSec  = 15
	DefaultContextTurns  = 3
	DefaultAddr          = ":8080"
	DefaultLogLevel      = "info"
	DefaultDataDir       = "./data"
)

// Load reads and validates the yaml config at path. API keys may reference
// environment variables with ${VAR} syntax; they are expanded here so the
// rest of the system only ever sees resolved values.
func Load(path string) (model.Config, error) {
	var cfg model.Config

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	for i := range cfg.Providers {
		cfg.Providers[i].APIKey = os.ExpandEnv(cfg.Providers[i].APIKey)
		if cfg.Providers[i].APIType == "" {
			cfg.Providers[i].APIType = "openai"
		}
	}

	applyDefaults(&cfg)

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *model.Config) {
	s := &cfg.Settings
	if s.Temperature == 0 {
		s.Temperature = DefaultTemperature
	}
	if s.TimeoutSec == 0 {
		s.TimeoutSec = DefaultTimeoutSec
	}
	if s.MaxRetries == 0 {
		s.MaxRetries = DefaultMaxRetries
	}
	if s.MaxConcurrent == 0 {
		s.MaxConcurrent = DefaultMaxConcurrent
	}
	if s.HeartbeatSec == 0 {
		s.HeartbeatSec = DefaultHeartbeatSec
	}
	if s.ContextTurns == 0 {
		s.ContextTurns = DefaultContextTurns
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultAddr
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = DefaultDataDir
	}
}

func Validate(cfg model.Config) error {
	if len(cfg.Providers) == 0 {
		return fmt.Errorf("config: at least one provider is required")
	}
	for _, p := range cfg.Providers {
		if p.Name == "" {
			return fmt.Errorf("config: provider with empty name")
		}
		if p.URL == "" {
			return fmt.Errorf("config: provider %s has no url", p.Name)
		}
		if p.APIType != "openai" && p.APIType != "anthropic" {
			return fmt.Errorf("config: provider %s has unknown api_type %q", p.Name, p.APIType)
		}
	}
	if cfg.Chairman == "" {
		return fmt.Errorf("config: chairman model is required")
	}
	if cfg.Settings.MaxConcurrent < 1 {
		return fmt.Errorf("config: max_concurrent must be >= 1")
	}
	if cfg.Settings.TimeoutSec < 1 {
		return fmt.Errorf("config: timeout_sec must be >= 1")
	}
	if cfg.Settings.MaxRetries < 1 {
		return fmt.Errorf("config: max_retries must be >= 1")
	}
	return nil
}
