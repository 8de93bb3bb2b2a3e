// ABOUTME: Playbook execution engine implementing the Validating -> Running -> {Completed, Failed} lifecycle.
// ABOUTME: Owns the run loop: dispatch to executors, retry with fallback, branch resolution, tracing, step limit.
package playbook

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultMaxSteps is the conservative default step budget per run.
const DefaultMaxSteps = 100

// RunPhase names the engine's lifecycle states for a single run.
type RunPhase string

const (
	PhaseValidating RunPhase = "validating"
	PhaseRunning    RunPhase = "running"
	PhaseCompleted  RunPhase = "completed"
	PhaseFailed     RunPhase = "failed"
)

// EngineEventType identifies the kind of engine lifecycle event.
type EngineEventType string

const (
	EventRunStarted    EngineEventType = "run.started"
	EventRunCompleted  EngineEventType = "run.completed"
	EventRunFailed     EngineEventType = "run.failed"
	EventNodeStarted   EngineEventType = "node.started"
	EventNodeCompleted EngineEventType = "node.completed"
	EventNodeFailed    EngineEventType = "node.failed"
	EventNodeRetrying  EngineEventType = "node.retrying"
)

// EngineEvent is a lifecycle event emitted during playbook execution.
type EngineEvent struct {
	Type      EngineEventType
	ExecID    string
	NodeID    string
	Data      map[string]any
	Timestamp time.Time
}

// Source supplies playbook definitions by id. Implementations live in the
// storage/import layer.
type Source interface {
	GetPlaybook(ctx context.Context, id string) (*Definition, error)
}

// EngineConfig holds the collaborators and policies for an engine.
type EngineConfig struct {
	Source   Source
	Provider ProviderClient
	Tools    ToolInvoker
	Memory   MemoryWriter
	Resolver *Resolver

	Executors    *ExecutorRegistry // nil = DefaultExecutors()
	TraceSink    TraceSink         // nil = NopSink
	MaxSteps     int               // 0 = DefaultMaxSteps
	CallTimeout  time.Duration     // per reasoning/tool call; 0 = none
	DefaultRetry RetryPolicy       // zero MaxAttempts = RetryPolicyStandard()
	EventHandler func(EngineEvent) // optional event callback
	ExtraRules   []Rule            // additional validation rules
}

// RunOptions carries per-run inputs that are not part of the seed state.
type RunOptions struct {
	Persona       PersonaConfig
	ModelOverride string // e.g. an interactive session picked a model

	// TimeoutBudget bounds the whole run. Zero means the caller's context
	// is the only bound.
	TimeoutBudget time.Duration
}

// RunOutcome is the terminal state of a run.
type RunOutcome string

const (
	OutcomeCompleted RunOutcome = "completed"
	OutcomeFailed    RunOutcome = "failed"
)

// RunResult holds the final state of a completed playbook run.
type RunResult struct {
	ExecID     string
	Outcome    RunOutcome
	FinalState map[string]any
	Visited    []string
	Trace      []TraceEntry
	Warnings   []string
}

// Engine executes playbooks. It holds no run-affecting mutable shared state
// beyond the validation cache, so many runs may execute concurrently.
type Engine struct {
	config EngineConfig
	cache  *validationCache
}

// NewEngine creates an engine, filling in defaults for optional config.
func NewEngine(config EngineConfig) *Engine {
	if config.Executors == nil {
		config.Executors = DefaultExecutors()
	}
	if config.TraceSink == nil {
		config.TraceSink = NopSink{}
	}
	if config.MaxSteps <= 0 {
		config.MaxSteps = DefaultMaxSteps
	}
	if config.DefaultRetry.MaxAttempts <= 0 {
		config.DefaultRetry = RetryPolicyStandard()
	}
	if config.Resolver == nil {
		config.Resolver = NewResolver(ProcessConfig{})
	}
	return &Engine{
		config: config,
		cache:  newValidationCache(),
	}
}

// Validate runs validation for a definition without executing it, using the
// engine's extra rules. Results are not cached here; use Run for that.
func (e *Engine) Validate(def *Definition) ([]Diagnostic, error) {
	return ValidateOrError(def, e.config.ExtraRules...)
}

// Run loads a playbook from the configured source and executes it with the
// given seed state. The returned error is a *ValidationError when the graph
// is malformed and a *RunError when execution fails.
func (e *Engine) Run(ctx context.Context, playbookID string, initial map[string]any, opts RunOptions) (*RunResult, error) {
	if e.config.Source == nil {
		return nil, fmt.Errorf("engine has no playbook source configured")
	}
	def, err := e.config.Source.GetPlaybook(ctx, playbookID)
	if err != nil {
		return nil, fmt.Errorf("load playbook %q: %w", playbookID, err)
	}
	return e.RunDefinition(ctx, def, initial, opts)
}

// RunDefinition executes an already-loaded definition. Validation runs once
// per distinct playbook revision; the result is cached.
func (e *Engine) RunDefinition(ctx context.Context, def *Definition, initial map[string]any, opts RunOptions) (*RunResult, error) {
	// Phase: Validating. A malformed graph aborts before any execution and
	// is surfaced to whoever authored or imported the playbook.
	if err := e.cache.check(def, e.config.ExtraRules...); err != nil {
		e.emitEvent(EngineEvent{Type: EventRunFailed, Data: map[string]any{"error": err.Error(), "phase": string(PhaseValidating)}})
		return nil, err
	}

	if opts.TimeoutBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.TimeoutBudget)
		defer cancel()
	}

	st := NewState(initial)
	tr := newTracer(e.config.TraceSink)
	env := &RunEnv{
		Resolver:      e.config.Resolver,
		Provider:      e.config.Provider,
		Tools:         e.config.Tools,
		Memory:        e.config.Memory,
		Persona:       opts.Persona,
		ModelOverride: opts.ModelOverride,
		CallTimeout:   e.config.CallTimeout,
	}
	env.Warn = func(format string, args ...any) {
		st.AddWarning(fmt.Sprintf(format, args...))
	}

	// Phase: Running.
	e.emitEvent(EngineEvent{Type: EventRunStarted, ExecID: st.ExecID(), Data: map[string]any{"playbook": def.ID, "revision": def.Revision}})

	result, err := e.executeLoop(ctx, def, st, tr, env)
	tr.flush(st)

	if err != nil {
		e.emitEvent(EngineEvent{Type: EventRunFailed, ExecID: st.ExecID(), Data: map[string]any{"error": err.Error()}})
		return nil, err
	}

	e.emitEvent(EngineEvent{Type: EventRunCompleted, ExecID: st.ExecID(), Data: map[string]any{"steps": st.Steps()}})
	return result, nil
}

// executeLoop is the core traversal: look up current node, invoke its
// executor, apply the delta, resolve the next node, repeat until terminal.
func (e *Engine) executeLoop(ctx context.Context, def *Definition, st *State, tr *tracer, env *RunEnv) (*RunResult, error) {
	current := def.EntryNode()
	visited := make([]string, 0, len(def.Nodes))

	for {
		// Cancellation is honored between steps only; a node's delta is
		// atomic relative to the state it read.
		select {
		case <-ctx.Done():
			return nil, e.failRun(st, tr, current.ID, ctx.Err())
		default:
		}

		// Step-limit check happens before executing, so a runaway branch
		// loop fails at exactly the configured limit.
		if st.Steps() >= e.config.MaxSteps {
			return nil, e.failRun(st, tr, current.ID, &StepLimitError{Limit: e.config.MaxSteps, NodeID: current.ID})
		}

		node := current
		e.emitEvent(EngineEvent{Type: EventNodeStarted, ExecID: st.ExecID(), NodeID: node.ID})

		executor := e.config.Executors.Get(node.Kind)
		if executor == nil {
			return nil, e.failRun(st, tr, node.ID, fmt.Errorf("no executor registered for kind %q", node.Kind))
		}

		input := st.SnapshotOf(node.InputKeys())
		start := time.Now()
		delta, execErr := e.executeWithRetry(ctx, executor, node, st, env)
		duration := time.Since(start)
		step := st.incrementStep()

		if execErr != nil {
			tr.append(st, TraceEntry{
				ExecID:   st.ExecID(),
				Step:     step,
				NodeID:   node.ID,
				Kind:     node.Kind,
				Input:    input,
				Duration: duration,
				Outcome:  outcomeForError(execErr),
			})
			e.emitEvent(EngineEvent{Type: EventNodeFailed, ExecID: st.ExecID(), NodeID: node.ID, Data: map[string]any{"error": execErr.Error()}})
			return nil, e.failRun(st, tr, node.ID, execErr)
		}

		// Apply the delta all-or-nothing, only on success.
		st.ApplyDelta(delta)
		visited = append(visited, node.ID)

		nextID, nextErr := resolveNext(node, delta)

		entry := TraceEntry{
			ExecID:   st.ExecID(),
			Step:     step,
			NodeID:   node.ID,
			Kind:     node.Kind,
			Input:    input,
			Output:   delta,
			Duration: duration,
			Outcome:  OutcomeOK,
		}
		if nextErr != nil {
			entry.Outcome = outcomeForError(nextErr)
		}
		tr.append(st, entry)

		if nextErr != nil {
			e.emitEvent(EngineEvent{Type: EventNodeFailed, ExecID: st.ExecID(), NodeID: node.ID, Data: map[string]any{"error": nextErr.Error()}})
			return nil, e.failRun(st, tr, node.ID, nextErr)
		}

		e.emitEvent(EngineEvent{Type: EventNodeCompleted, ExecID: st.ExecID(), NodeID: node.ID})

		if nextID == "" {
			// Terminal node: the run completes successfully here.
			return &RunResult{
				ExecID:     st.ExecID(),
				Outcome:    OutcomeCompleted,
				FinalState: st.Snapshot(),
				Visited:    visited,
				Trace:      tr.Entries(),
				Warnings:   st.Warnings(),
			}, nil
		}

		next := def.FindNode(nextID)
		if next == nil {
			// Validation guarantees targets resolve; reaching this means
			// the definition was mutated after validation.
			return nil, e.failRun(st, tr, node.ID, fmt.Errorf("next node %q does not exist", nextID))
		}
		current = next
	}
}

// executeWithRetry runs an executor with the engine's retry policy. Retryable
// node errors on model-backed or tool nodes retry on the same model tier; once
// retries exhaust, model-backed nodes get one attempt on the configured
// fallback model before the node is marked failed.
func (e *Engine) executeWithRetry(ctx context.Context, executor NodeExecutor, node *NodeDefinition, st *State, env *RunEnv) (Delta, error) {
	policy := e.config.DefaultRetry
	if node.Kind == KindMemorize {
		// Memorize handles its own bounded retry and never fails the run.
		policy = RetryPolicyNone()
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		delta, err := safeExecute(ctx, executor, node, st, env)
		if err == nil {
			return delta, nil
		}
		lastErr = err

		var nodeErr *NodeError
		if !errors.As(err, &nodeErr) || !nodeErr.Retryable() || attempt >= policy.MaxAttempts {
			break
		}

		e.emitEvent(EngineEvent{Type: EventNodeRetrying, ExecID: st.ExecID(), NodeID: node.ID, Data: map[string]any{"attempt": attempt, "error": err.Error()}})
		sleepWithContext(ctx, policy.Backoff.DelayForAttempt(attempt-1))
	}

	// One fallback-model attempt for nodes that resolve a model.
	if node.Kind == KindReasoning || node.Kind == KindRouter {
		var nodeErr *NodeError
		if errors.As(lastErr, &nodeErr) && nodeErr.Retryable() {
			if fallback := env.Resolver.FallbackHandle(); fallback.Model != "" && fallback.Model != env.ModelOverride {
				e.emitEvent(EngineEvent{Type: EventNodeRetrying, ExecID: st.ExecID(), NodeID: node.ID, Data: map[string]any{"fallback_model": fallback.Model}})
				// Pin the handle rather than overriding: overrides only
				// beat the default tier, and router nodes run lightweight.
				fbEnv := *env
				fbEnv.PinnedModel = fallback
				delta, err := safeExecute(ctx, executor, node, st, &fbEnv)
				if err == nil {
					return delta, nil
				}
				lastErr = err
			}
		}
	}

	return nil, lastErr
}

// resolveNext determines the node to execute after a successful step.
// Router nodes advance to the chosen candidate; otherwise the node's next
// pointer applies: a literal id, a branch selected by the delta's branch
// key, or termination. An unmapped branch value is a hard failure, never a
// silent default.
func resolveNext(node *NodeDefinition, delta Delta) (string, error) {
	if node.Kind == KindRouter {
		choice, _ := delta[node.RouteField()].(string)
		if choice == "" {
			return "", &NodeError{NodeID: node.ID, Reason: ReasonUnhandledBranch, Message: "router produced no decision"}
		}
		return choice, nil
	}

	next := node.Next
	if next.Terminal() {
		return "", nil
	}
	if next.Node != "" {
		return next.Node, nil
	}

	key := node.branchKey()
	value, ok := delta[key]
	if !ok {
		return "", &NodeError{
			NodeID:  node.ID,
			Reason:  ReasonUnhandledBranch,
			Message: fmt.Sprintf("branch key %q is absent from the node's output", key),
		}
	}
	branchValue := fmt.Sprintf("%v", value)
	target, ok := next.Branch[branchValue]
	if !ok {
		return "", &NodeError{
			NodeID:  node.ID,
			Reason:  ReasonUnhandledBranch,
			Message: fmt.Sprintf("branch value %q matches no declared target", branchValue),
		}
	}
	return target, nil
}

// failRun wraps an error into a RunError with the trace so far.
func (e *Engine) failRun(st *State, tr *tracer, nodeID string, err error) error {
	return &RunError{
		ExecID: st.ExecID(),
		NodeID: nodeID,
		Trace:  tr.Entries(),
		Err:    err,
	}
}

// outcomeForError renders an error as a trace outcome string.
func outcomeForError(err error) string {
	var nodeErr *NodeError
	if errors.As(err, &nodeErr) {
		return ErrorOutcome(nodeErr.Reason)
	}
	if errors.Is(err, context.Canceled) {
		return "error:canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "error:timeout"
	}
	return "error:internal"
}

// emitEvent sends an event to the configured handler, stamping the time.
func (e *Engine) emitEvent(evt EngineEvent) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	if e.config.EventHandler != nil {
		e.config.EventHandler(evt)
	}
}
