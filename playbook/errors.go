// ABOUTME: Error taxonomy for playbook execution: validation, per-step node errors, step limit, and run failure.
// ABOUTME: NodeError carries a machine-readable reason used by the engine's retry and branch policies.
package playbook

import (
	"fmt"
	"strings"

	"github.com/2389-research/playbook/llm"
)

// NodeErrorReason classifies a single-step failure.
type NodeErrorReason string

const (
	ReasonMissingInput    NodeErrorReason = "missing_input"
	ReasonSchemaMismatch  NodeErrorReason = "schema_mismatch"
	ReasonUnhandledBranch NodeErrorReason = "unhandled_branch"
	ReasonTimeout         NodeErrorReason = "timeout"
	ReasonProvider        NodeErrorReason = "provider"
	ReasonTool            NodeErrorReason = "tool"
)

// NodeError is an error raised while executing a single node.
type NodeError struct {
	NodeID  string
	Reason  NodeErrorReason
	Message string
	Err     error
}

func (e *NodeError) Error() string {
	msg := fmt.Sprintf("node %q: %s", e.NodeID, e.Reason)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *NodeError) Unwrap() error { return e.Err }

// Retryable reports whether retrying the node could plausibly succeed.
// Missing inputs and unhandled branches are deterministic given the same
// state, so retrying them is pointless. Provider failures defer to the
// boundary's own classification: a 429 is worth another attempt, a
// rejected API key or a miswired client is not.
func (e *NodeError) Retryable() bool {
	switch e.Reason {
	case ReasonProvider:
		return llm.IsRetryable(e.Err)
	case ReasonTimeout, ReasonTool, ReasonSchemaMismatch:
		return true
	}
	return false
}

// ValidationError aggregates the error-severity diagnostics that make a
// playbook unexecutable. It is always fatal before any node runs.
type ValidationError struct {
	PlaybookID  string
	Diagnostics []Diagnostic
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "playbook %q failed validation with %d error(s)", e.PlaybookID, len(e.Diagnostics))
	for _, d := range e.Diagnostics {
		sb.WriteString("\n  ")
		sb.WriteString(d.String())
	}
	return sb.String()
}

// StepLimitError reports a run that exceeded its configured step budget,
// typically a value-dependent branch loop that static validation cannot see.
type StepLimitError struct {
	Limit  int
	NodeID string // the node that would have executed next
}

func (e *StepLimitError) Error() string {
	return fmt.Sprintf("step limit exceeded: %d step(s) executed, next node would be %q", e.Limit, e.NodeID)
}

// MemoryError reports a memory write that failed after bounded retries.
// It is never fatal to a run; it surfaces as a warning.
type MemoryError struct {
	Tag      string
	Attempts int
	Err      error
}

func (e *MemoryError) Error() string {
	return fmt.Sprintf("memory write for tag %q failed after %d attempt(s): %v", e.Tag, e.Attempts, e.Err)
}

func (e *MemoryError) Unwrap() error { return e.Err }

// RunError is the failure surfaced to the caller. It carries the full trace
// up to the failure point so the failure is reproducible.
type RunError struct {
	ExecID string
	NodeID string
	Trace  []TraceEntry
	Err    error
}

func (e *RunError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("run %s failed at node %q: %v", e.ExecID, e.NodeID, e.Err)
	}
	return fmt.Sprintf("run %s failed: %v", e.ExecID, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }
