package infrastructure

import (
	"fmt"
	"sort"
	"sync"

	"wordrace/domain/entities"
)

// Registry resolves model id strings from id-only race submissions against
// a configured set of ModelSpecs.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]entities.ModelSpec
}

// NewRegistry creates a registry preloaded with the given specs.
func NewRegistry(specs []entities.ModelSpec) *Registry {
	r := &Registry{specs: make(map[string]entities.ModelSpec, len(specs))}
	for _, spec := range specs {
		r.specs[spec.ID] = spec
	}
	return r
}

// DefaultSpecs is the built-in model set available to id-only submissions.
// Endpoint refs default to the public provider gateways and can be replaced
// at startup via Register.
func DefaultSpecs() []entities.ModelSpec {
	return []entities.ModelSpec{
		{ID: "gpt-4o-mini", Name: "gpt-4o-mini", Provider: entities.ProviderOpenAI, EndpointRef: "https://api.openai.com/v1"},
		{ID: "gpt-4o", Name: "gpt-4o", Provider: entities.ProviderOpenAI, EndpointRef: "https://api.openai.com/v1"},
		{ID: "claude-sonnet", Name: "claude-sonnet-4-20250514", Provider: entities.ProviderAnthropic, EndpointRef: "https://api.anthropic.com/v1"},
		{ID: "gemini-flash", Name: "gemini-2.0-flash", Provider: entities.ProviderGoogle, EndpointRef: "https://generativelanguage.googleapis.com/v1beta/openai"},
		{ID: "llama-70b", Name: "llama-3.3-70b-versatile", Provider: entities.ProviderGroq, EndpointRef: "https://api.groq.com/openai/v1"},
	}
}

// Register adds or replaces a spec.
func (r *Registry) Register(spec entities.ModelSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[spec.ID] = spec
	return nil
}

// Resolve returns the spec for an id, or an error for unknown ids.
func (r *Registry) Resolve(id string) (entities.ModelSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[id]
	if !ok {
		return entities.ModelSpec{}, fmt.Errorf("unknown model id %q", id)
	}
	return spec, nil
}

// List returns all registered specs ordered by id.
func (r *Registry) List() []entities.ModelSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]entities.ModelSpec, 0, len(r.specs))
	for _, spec := range r.specs {
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].ID < specs[j].ID })
	return specs
}
