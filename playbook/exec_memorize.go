// ABOUTME: Memorize executor: copies tagged state fields to the memory-write boundary.
// ABOUTME: Retries a bounded number of times, then drops the write with a surfaced warning; never fails the run.
package playbook

import (
	"context"
	"time"
)

// memoryRetryAttempts bounds retries of a failing memory write.
const memoryRetryAttempts = 3

// memoryRetryDelay is the fixed pause between memory write attempts.
const memoryRetryDelay = 100 * time.Millisecond

// MemorizeExecutor handles memorize nodes. Memory loss must never abort a
// conversation turn, so every failure path degrades to a warning.
type MemorizeExecutor struct{}

// Kind returns KindMemorize.
func (e *MemorizeExecutor) Kind() NodeKind { return KindMemorize }

// Execute copies the named state fields, tagged, to the memory writer.
// Fields absent from state are skipped with a warning. The executor writes
// no state of its own.
func (e *MemorizeExecutor) Execute(ctx context.Context, node *NodeDefinition, st *State, env *RunEnv) (Delta, error) {
	if env.Memory == nil {
		env.warnf("memorize node %q: no memory writer configured, write dropped", node.ID)
		return nil, nil
	}

	fields := make(map[string]any, len(node.Fields))
	for _, name := range node.Fields {
		value, ok := st.Get(name)
		if !ok {
			env.warnf("memorize node %q: state field %q is absent, skipping", node.ID, name)
			continue
		}
		fields[name] = value
	}
	if len(fields) == 0 {
		env.warnf("memorize node %q: nothing to write for tag %q", node.ID, node.Tag)
		return nil, nil
	}

	var lastErr error
	for attempt := 1; attempt <= memoryRetryAttempts; attempt++ {
		callCtx, cancel := env.callContext(ctx)
		err := env.Memory.Write(callCtx, node.Tag, fields)
		cancel()
		if err == nil {
			return nil, nil
		}
		lastErr = err
		if attempt < memoryRetryAttempts {
			sleepWithContext(ctx, memoryRetryDelay)
		}
		if ctx.Err() != nil {
			break
		}
	}

	memErr := &MemoryError{Tag: node.Tag, Attempts: memoryRetryAttempts, Err: lastErr}
	env.warnf("memorize node %q: %v (write dropped)", node.ID, memErr)
	return nil, nil
}
