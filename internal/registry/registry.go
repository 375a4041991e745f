// Package registry resolves inbound model name/version pairs to
// servables. It sits one level above the inference core: the core
// itself never decides what happens to an unresolvable model.
package registry

import (
	"inferd/internal/infer"
	"inferd/internal/label"
	"inferd/pkg/types"
)

// Model is one loaded repository entry: descriptor plus label files.
type Model struct {
	Config types.ModelConfig
	Labels *label.Provider
}

// Registry holds the servables built from a model repository.
type Registry struct {
	servables map[string]*infer.Servable
	configs   []types.ModelConfig
}

// New builds a registry from loaded models. configure is called once
// per servable to install its scheduler (typically
// SetConfiguredScheduler with the backend's run function).
func New(models []*Model, configure func(*infer.Servable) error) (*Registry, error) {
	r := &Registry{servables: make(map[string]*infer.Servable, len(models))}
	for _, m := range models {
		s := infer.NewServable(m.Config, m.Labels)
		if configure != nil {
			if err := configure(s); err != nil {
				return nil, err
			}
		}
		r.servables[m.Config.Name] = s
		r.configs = append(r.configs, m.Config)
	}
	return r, nil
}

// Lookup resolves a model name and version to its servable. Version
// values <= 0 select whatever version is loaded.
func (r *Registry) Lookup(name string, version int64) (*infer.Servable, error) {
	s, ok := r.servables[name]
	if !ok {
		return nil, infer.ErrNotFound("model", name)
	}
	if version > 0 && s.Version() != version {
		return nil, infer.ErrNotFound("model version", name)
	}
	return s, nil
}

// List returns the descriptors of every loaded model.
func (r *Registry) List() []types.ModelConfig {
	out := make([]types.ModelConfig, len(r.configs))
	copy(out, r.configs)
	return out
}

// Ready reports whether the registry serves at least one model.
func (r *Registry) Ready() bool { return len(r.servables) > 0 }

// Status reports every loaded model's serving state.
func (r *Registry) Status() types.StatusResponse {
	resp := types.StatusResponse{Ready: r.Ready()}
	for _, cfg := range r.configs {
		s := r.servables[cfg.Name]
		resp.Models = append(resp.Models, types.ModelStatus{
			Name:         cfg.Name,
			Version:      s.Version(),
			Ready:        s.Ready(),
			MaxBatchSize: cfg.MaxBatchSize,
			Runners:      cfg.Runners,
			QueueDepth:   cfg.QueueDepth,
			Tags:         cfg.Tags,
		})
	}
	return resp
}
