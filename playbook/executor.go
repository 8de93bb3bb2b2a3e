// ABOUTME: NodeExecutor interface, closed kind-keyed dispatch table, and the run environment.
// ABOUTME: Declares the narrow boundaries to the provider, tool, and memory collaborators.
package playbook

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/2389-research/playbook/llm"
)

// ProviderClient is the reasoning-provider boundary. The runtime treats
// provider failures uniformly regardless of which concrete provider answered.
type ProviderClient interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// ToolInvoker is the tool boundary. A result may be a single value or a
// tuple-like []any for multi-key expansion.
type ToolInvoker interface {
	Invoke(ctx context.Context, name string, args map[string]any) (any, error)
}

// MemoryWriter is the memory-write boundary. Durability is the
// collaborator's contract, not the runtime's.
type MemoryWriter interface {
	Write(ctx context.Context, tag string, fields map[string]any) error
}

// RunEnv carries the run-scoped collaborators and configuration into
// executors. One RunEnv exists per run; executors never mutate it.
type RunEnv struct {
	Resolver *Resolver
	Provider ProviderClient
	Tools    ToolInvoker
	Memory   MemoryWriter

	Persona       PersonaConfig
	ModelOverride string

	// PinnedModel, when set, bypasses tier resolution entirely. The engine
	// pins the fallback model here for its single post-retry attempt, so
	// lightweight-tier nodes get the fallback too.
	PinnedModel ModelHandle

	// CallTimeout bounds each reasoning/tool boundary call. Zero means
	// the call inherits the run context's deadline only.
	CallTimeout time.Duration

	// Warn surfaces a non-fatal condition (memory drops, degraded
	// behavior) without failing the run.
	Warn func(format string, args ...any)
}

// modelHandle resolves the model for a node's tier, honoring a pinned
// handle over normal resolution.
func (env *RunEnv) modelHandle(node *NodeDefinition) ModelHandle {
	if env.PinnedModel.Model != "" {
		return env.PinnedModel
	}
	return env.Resolver.Resolve(node.Tier(), env.Persona, env.ModelOverride)
}

// callContext derives the context for a single boundary call.
func (env *RunEnv) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if env.CallTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, env.CallTimeout)
}

// warnf forwards to Warn when configured.
func (env *RunEnv) warnf(format string, args ...any) {
	if env.Warn != nil {
		env.Warn(format, args...)
	}
}

// NodeExecutor is the strategy interface implemented once per node kind.
// Execute returns the state delta to apply; the engine applies it only on
// success, so a failing node never half-writes state.
type NodeExecutor interface {
	Kind() NodeKind
	Execute(ctx context.Context, node *NodeDefinition, st *State, env *RunEnv) (Delta, error)
}

// ExecutorRegistry maps node kinds to executors. The kind set is closed:
// an unregistered kind is an engine error, never a silently skipped node.
type ExecutorRegistry struct {
	executors map[NodeKind]NodeExecutor
}

// NewExecutorRegistry creates an empty registry.
func NewExecutorRegistry() *ExecutorRegistry {
	return &ExecutorRegistry{executors: make(map[NodeKind]NodeExecutor)}
}

// Register adds an executor, keyed by its Kind. Registering an already
// registered kind replaces the previous executor.
func (r *ExecutorRegistry) Register(e NodeExecutor) {
	r.executors[e.Kind()] = e
}

// Get returns the executor for the given kind, or nil if not registered.
func (r *ExecutorRegistry) Get(kind NodeKind) NodeExecutor {
	return r.executors[kind]
}

// DefaultExecutors returns a registry with all four built-in executors.
func DefaultExecutors() *ExecutorRegistry {
	reg := NewExecutorRegistry()
	reg.Register(&ReasoningExecutor{})
	reg.Register(&ToolExecutor{})
	reg.Register(&RouterExecutor{})
	reg.Register(&MemorizeExecutor{})
	return reg
}

// safeExecute wraps executor.Execute with panic recovery so one misbehaving
// executor cannot crash the engine. The stack trace is kept for debugging.
func safeExecute(ctx context.Context, executor NodeExecutor, node *NodeDefinition, st *State, env *RunEnv) (delta Delta, err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			delta = nil
			err = fmt.Errorf("executor panic in node %q: %v\n%s", node.ID, r, stack)
		}
	}()
	return executor.Execute(ctx, node, st, env)
}
