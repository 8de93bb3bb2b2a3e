// ABOUTME: Tool executor: builds a tool call from args_input state fields and invokes the tool boundary.
// ABOUTME: A missing required state field fails before the boundary is touched; tuple results expand across output keys.
package playbook

import (
	"context"
	"errors"
	"fmt"
)

// ToolExecutor handles tool invocation nodes.
type ToolExecutor struct{}

// Kind returns KindTool.
func (e *ToolExecutor) Kind() NodeKind { return KindTool }

// Execute reads the state fields named by args_input, invokes the tool
// boundary, and writes the result across the declared output keys.
func (e *ToolExecutor) Execute(ctx context.Context, node *NodeDefinition, st *State, env *RunEnv) (Delta, error) {
	if env.Tools == nil {
		return nil, &NodeError{NodeID: node.ID, Reason: ReasonTool, Message: "no tool invoker configured"}
	}

	args := make(map[string]any, len(node.ArgsInput))
	for param, field := range node.ArgsInput {
		value, ok := st.Get(field)
		if !ok {
			return nil, &NodeError{
				NodeID:  node.ID,
				Reason:  ReasonMissingInput,
				Message: fmt.Sprintf("state field %q (tool parameter %q) is absent", field, param),
			}
		}
		args[param] = value
	}

	callCtx, cancel := env.callContext(ctx)
	defer cancel()

	result, err := env.Tools.Invoke(callCtx, node.Tool, args)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, &NodeError{NodeID: node.ID, Reason: ReasonTimeout, Message: fmt.Sprintf("tool %q timed out", node.Tool), Err: err}
		}
		return nil, &NodeError{NodeID: node.ID, Reason: ReasonTool, Message: fmt.Sprintf("tool %q", node.Tool), Err: err}
	}

	delta, err := decomposeResult(result, node.OutputKeys)
	if err != nil {
		return nil, &NodeError{NodeID: node.ID, Reason: ReasonTool, Message: fmt.Sprintf("tool %q result", node.Tool), Err: err}
	}
	return delta, nil
}
