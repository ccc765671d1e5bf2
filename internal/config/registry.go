package config

import (
	"fmt"
	"sync"

	"github.com/asdersss/EZ-LLMcouncil/internal/model"
)

// Registry is the resolved model-id → backend mapping shared by all
// meetings. It is swapped wholesale on config reload so in-flight meetings
// keep the settings they started with.
type Registry struct {
	mu       sync.RWMutex
	models   map[string]model.ModelConfig
	chairman string
	settings model.SettingsConfig
}

// NewRegistry builds a registry from a validated config. Model ids are
// "<model>/<provider>" so the same upstream model offered by two providers
// stays distinguishable.
func NewRegistry(cfg model.Config) *Registry {
	r := &Registry{}
	r.Swap(cfg)
	return r
}

func (r *Registry) Swap(cfg model.Config) {
	models := make(map[string]model.ModelConfig)
	for _, p := range cfg.Providers {
		for _, m := range p.Models {
			id := fmt.Sprintf("%s/%s", m.Name, p.Name)
			display := m.DisplayName
			if display == "" {
				display = m.Name
			}
			models[id] = model.ModelConfig{
				ID:           id,
				DisplayName:  display,
				URL:          p.URL,
				APIKey:       p.APIKey,
				APIType:      p.APIType,
				APIModelName: m.Name,
				Provider:     p.Name,
			}
		}
	}

	r.mu.Lock()
	r.models = models
	r.chairman = cfg.Chairman
	r.settings = cfg.Settings
	r.mu.Unlock()
}

func (r *Registry) Lookup(id string) (model.ModelConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.models[id]
	return cfg, ok
}

func (r *Registry) Chairman() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.chairman
}

func (r *Registry) Settings() model.SettingsConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings
}

// ModelIDs returns the configured ids in no particular order.
func (r *Registry) ModelIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.models))
	for id := range r.models {
		ids = append(ids, id)
	}
	return ids
}
