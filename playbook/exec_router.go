// ABOUTME: Router executor: a constrained lightweight reasoning call whose only valid outputs are candidate node ids.
// ABOUTME: The decision picks the next node; a choice outside the candidate set is a hard unhandled-branch failure.
package playbook

import (
	"context"
	"fmt"
	"strings"

	"github.com/2389-research/playbook/llm"
)

// RouterExecutor handles router nodes. Routers decide where to go, never
// what to pass: argument construction belongs to downstream reasoning and
// tool nodes, which is why routers always run against the lightweight tier.
type RouterExecutor struct{}

// Kind returns KindRouter.
func (e *RouterExecutor) Kind() NodeKind { return KindRouter }

// Execute issues the constrained reasoning call and records the chosen
// candidate under the node's route field.
func (e *RouterExecutor) Execute(ctx context.Context, node *NodeDefinition, st *State, env *RunEnv) (Delta, error) {
	if env.Provider == nil {
		return nil, &NodeError{NodeID: node.ID, Reason: ReasonProvider, Message: "no provider configured"}
	}

	instruction := RenderPrompt(node.Instruction, st)
	handle := env.modelHandle(node)

	prompt := fmt.Sprintf(
		"%s\n\nRespond with exactly one of the following identifiers and nothing else:\n%s",
		instruction, strings.Join(node.Candidates, "\n"),
	)

	callCtx, cancel := env.callContext(ctx)
	defer cancel()

	resp, err := env.Provider.Complete(callCtx, llm.Request{
		Provider: handle.Provider,
		Model:    handle.Model,
		Prompt:   prompt,
	})
	if err != nil {
		return nil, providerNodeError(node.ID, callCtx, err)
	}

	choice, ok := matchCandidate(resp.Text, node.Candidates)
	if !ok {
		return nil, &NodeError{
			NodeID:  node.ID,
			Reason:  ReasonUnhandledBranch,
			Message: fmt.Sprintf("model chose %q, not one of the declared candidates %v", strings.TrimSpace(resp.Text), node.Candidates),
		}
	}

	return Delta{node.RouteField(): choice}, nil
}

// matchCandidate matches the model's answer against the candidate set,
// tolerating surrounding whitespace and case differences only.
func matchCandidate(answer string, candidates []string) (string, bool) {
	trimmed := strings.TrimSpace(answer)
	for _, c := range candidates {
		if trimmed == c {
			return c, true
		}
	}
	lowered := strings.ToLower(trimmed)
	for _, c := range candidates {
		if lowered == strings.ToLower(c) {
			return c, true
		}
	}
	return "", false
}
