// ABOUTME: Reasoning executor: renders the prompt, resolves the model tier, and calls the provider.
// ABOUTME: Enforces the declared structured-output schema and spreads results across output keys.
package playbook

import (
	"context"
	"errors"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/2389-research/playbook/llm"
)

// ReasoningExecutor handles reasoning nodes. The provider call is the sole
// suspension point in a run.
type ReasoningExecutor struct{}

// Kind returns KindReasoning.
func (e *ReasoningExecutor) Kind() NodeKind { return KindReasoning }

// Execute renders the node's prompt template against current state, resolves
// its model tier, issues the reasoning call, and decomposes the response
// across the declared output keys.
func (e *ReasoningExecutor) Execute(ctx context.Context, node *NodeDefinition, st *State, env *RunEnv) (Delta, error) {
	if env.Provider == nil {
		return nil, &NodeError{NodeID: node.ID, Reason: ReasonProvider, Message: "no provider configured"}
	}

	prompt := RenderPrompt(node.Prompt, st)
	handle := env.modelHandle(node)

	structured := node.Schema != "" || len(node.OutputKeys) > 1

	callCtx, cancel := env.callContext(ctx)
	defer cancel()

	resp, err := env.Provider.Complete(callCtx, llm.Request{
		Provider:  handle.Provider,
		Model:     handle.Model,
		Prompt:    prompt,
		ForceJSON: structured,
	})
	if err != nil {
		return nil, providerNodeError(node.ID, callCtx, err)
	}

	if !structured {
		return decomposeRaw(node, resp.Text)
	}

	var schema *jsonschema.Schema
	if node.Schema != "" {
		compiled, err := compileSchema(node.Schema)
		if err != nil {
			// The validator rejects uncompilable schemas before execution;
			// reaching this means the definition was mutated after load.
			return nil, &NodeError{NodeID: node.ID, Reason: ReasonSchemaMismatch, Message: "output schema does not compile", Err: err}
		}
		schema = compiled
	}

	value, err := parseStructured(resp.Text, schema)
	if err != nil {
		return nil, &NodeError{NodeID: node.ID, Reason: ReasonSchemaMismatch, Err: err}
	}

	delta, err := decomposeResult(value, node.OutputKeys)
	if err != nil {
		return nil, &NodeError{NodeID: node.ID, Reason: ReasonSchemaMismatch, Err: err}
	}
	return delta, nil
}

// decomposeRaw writes an unstructured response under the node's single
// output key.
func decomposeRaw(node *NodeDefinition, text string) (Delta, error) {
	delta, err := decomposeResult(text, node.OutputKeys)
	if err != nil {
		return nil, &NodeError{NodeID: node.ID, Reason: ReasonSchemaMismatch, Err: err}
	}
	return delta, nil
}

// providerNodeError classifies a provider boundary failure as a timeout or
// a generic provider error.
func providerNodeError(nodeID string, callCtx context.Context, err error) *NodeError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return &NodeError{NodeID: nodeID, Reason: ReasonTimeout, Message: "reasoning call timed out", Err: err}
	}
	return &NodeError{NodeID: nodeID, Reason: ReasonProvider, Err: err}
}
