package entities

import (
	"fmt"
	"strings"
)

// Provider identifies the API family an endpoint speaks. Per-provider
// request shaping (e.g. Anthropic disallowing top_p alongside temperature)
// lives in the adapter layer, keyed off this value.
type Provider string

const (
	ProviderOpenAI     Provider = "openai"
	ProviderAnthropic  Provider = "anthropic"
	ProviderGoogle     Provider = "google"
	ProviderGroq       Provider = "groq"
	ProviderOpenRouter Provider = "openrouter"
)

// ThinkingLevel is the tri-state reasoning knob for a model invocation.
// ThinkingOff is the zero value and means the adapter default.
type ThinkingLevel string

const (
	ThinkingOff    ThinkingLevel = ""
	ThinkingLow    ThinkingLevel = "low"
	ThinkingMedium ThinkingLevel = "medium"
	ThinkingHigh   ThinkingLevel = "high"
)

// Valid reports whether the thinking level is one of the known states.
func (t ThinkingLevel) Valid() bool {
	switch t {
	case ThinkingOff, ThinkingLow, ThinkingMedium, ThinkingHigh:
		return true
	}
	return false
}

// ModelSpec describes one model entry in a race. ID is a stable caller-chosen
// string so score records can be correlated across runs. EndpointRef is opaque
// to the core; only the adapter layer interprets it.
type ModelSpec struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Provider    Provider `json:"provider,omitempty"`
	EndpointRef string   `json:"endpoint_ref,omitempty"`

	// Optional sampling knobs; nil means adapter default.
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`

	Thinking             ThinkingLevel `json:"thinking,omitempty"`
	CustomPromptTemplate string        `json:"custom_prompt_template,omitempty"`
}

// Validate checks the spec for structural problems before a race starts.
func (m ModelSpec) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("model spec requires a non-empty id")
	}
	if !m.Thinking.Valid() {
		return fmt.Errorf("model %s: unknown thinking level %q", m.ID, m.Thinking)
	}
	if m.Temperature != nil && (*m.Temperature < 0 || *m.Temperature > 2) {
		return fmt.Errorf("model %s: temperature %v out of range", m.ID, *m.Temperature)
	}
	if m.TopP != nil && (*m.TopP <= 0 || *m.TopP > 1) {
		return fmt.Errorf("model %s: top_p %v out of range", m.ID, *m.TopP)
	}
	return nil
}

// ValidateModelSpecs checks a race's model list: non-empty, valid entries,
// ids unique within the race.
func ValidateModelSpecs(specs []ModelSpec) error {
	if len(specs) == 0 {
		return fmt.Errorf("at least one model is required")
	}
	seen := make(map[string]bool, len(specs))
	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			return err
		}
		if seen[spec.ID] {
			return fmt.Errorf("duplicate model id %q", spec.ID)
		}
		seen[spec.ID] = true
	}
	return nil
}
