// Package model defines the data structures for the council's configuration,
// meetings, and stage results.
package model

type Config struct {
	Providers []ProviderConfig `yaml:"providers"`
	Chairman  string           `yaml:"chairman"`
	Settings  SettingsConfig   `yaml:"settings"`
	Server    ServerConfig     `yaml:"server"`
	Logging   LoggingConfig    `yaml:"logging"`
	Storage   StorageConfig    `yaml:"storage"`
}

type ProviderConfig struct {
	Name    string          `yaml:"name"`
	URL     string          `yaml:"url"`
	APIKey  string          `yaml:"api_key"`
	APIType string          `yaml:"api_type"` // "openai" (default) or "anthropic"
	Models  []ProviderModel `yaml:"models"`
}

type ProviderModel struct {
	Name        string `yaml:"name"`
	DisplayName string `yaml:"display_name,omitempty"`
	Description string `yaml:"description,omitempty"`
}

type SettingsConfig struct {
	Temperature   float64 `yaml:"temperature"`
	TimeoutSec    int     `yaml:"timeout_sec"`
	MaxRetries    int     `yaml:"max_retries"`
	MaxConcurrent int     `yaml:"max_concurrent"`
	HeartbeatSec  int     `yaml:"heartbeat_sec"`
	ContextTurns  int     `yaml:"context_turns"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type StorageConfig struct {
	DataDir       string `yaml:"data_dir"`
	JournalEvents bool   `yaml:"journal_events"`
}

// ModelConfig is a resolved registry entry for one callable model backend.
// The id is "<model>/<provider>"; APIModelName is what the backend expects
// in the request body (the bare model name).
type ModelConfig struct {
	ID           string
	DisplayName  string
	URL          string
	APIKey       string
	APIType      string
	APIModelName string
	Provider     string
}
