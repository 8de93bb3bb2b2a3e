// ABOUTME: Maps abstract model tiers (default, lightweight) to concrete model handles.
// ABOUTME: Pure lookup over caller override, persona config, process config, and built-in fallbacks.
package playbook

// Built-in fallback models guarantee resolution never fails: a reasoning
// node with no resolvable model would stall the whole run.
const (
	FallbackDefaultModel     = "gpt-5.2"
	FallbackLightweightModel = "gpt-5.2-mini"
)

// ModelHandle identifies a concrete model at a reasoning provider.
type ModelHandle struct {
	Provider string // empty = the provider client's default
	Model    string
}

// PersonaConfig carries a persona's model preferences into a run.
type PersonaConfig struct {
	DefaultModel     string
	LightweightModel string
	Provider         string
}

// ProcessConfig is the process-wide model configuration, captured as a
// read-only snapshot when the resolver is built so configuration changes
// never interfere with in-flight runs.
type ProcessConfig struct {
	DefaultModel     string
	LightweightModel string
	Provider         string

	// FallbackModel, when set, is tried once after a reasoning node
	// exhausts its retries on the resolved model.
	FallbackModel string
}

// Resolver maps a model tier to a concrete handle. It holds no mutable
// state and is safe to share across concurrent runs.
type Resolver struct {
	process ProcessConfig
}

// NewResolver creates a resolver over a snapshot of the process-wide config.
func NewResolver(process ProcessConfig) *Resolver {
	return &Resolver{process: process}
}

// Resolve returns the model handle for the requested tier. The lightweight
// chain is persona, then process, then the built-in constant. The default
// chain additionally honors a caller-supplied override first. Resolution
// never fails.
func (r *Resolver) Resolve(tier ModelTier, persona PersonaConfig, override string) ModelHandle {
	provider := persona.Provider
	if provider == "" {
		provider = r.process.Provider
	}

	if tier == TierLightweight {
		model := persona.LightweightModel
		if model == "" {
			model = r.process.LightweightModel
		}
		if model == "" {
			model = FallbackLightweightModel
		}
		return ModelHandle{Provider: provider, Model: model}
	}

	model := override
	if model == "" {
		model = persona.DefaultModel
	}
	if model == "" {
		model = r.process.DefaultModel
	}
	if model == "" {
		model = FallbackDefaultModel
	}
	return ModelHandle{Provider: provider, Model: model}
}

// FallbackHandle returns the configured fallback model handle, or a zero
// handle when no fallback is configured.
func (r *Resolver) FallbackHandle() ModelHandle {
	if r.process.FallbackModel == "" {
		return ModelHandle{}
	}
	return ModelHandle{Provider: r.process.Provider, Model: r.process.FallbackModel}
}
