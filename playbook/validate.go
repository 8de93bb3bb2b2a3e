// ABOUTME: Structural validation of playbook definitions before any node executes.
// ABOUTME: Pluggable Rule interface with built-in rules for entry, per-kind fields, next targets, and cycles.
package playbook

import (
	"fmt"
	"sync"
)

// Severity represents diagnostic severity level.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// String returns a human-readable name for the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "ERROR"
	case SeverityWarning:
		return "WARNING"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// Diagnostic represents a validation finding tied to a rule and, where
// applicable, the offending node.
type Diagnostic struct {
	Rule     string
	Severity Severity
	Message  string
	NodeID   string // optional
	Fix      string // optional suggested fix
}

// String renders the diagnostic for error messages and CLI output.
func (d Diagnostic) String() string {
	s := fmt.Sprintf("[%s] %s: %s", d.Severity, d.Rule, d.Message)
	if d.NodeID != "" {
		s += fmt.Sprintf(" (node %q)", d.NodeID)
	}
	return s
}

// Rule is the interface for validation rules.
type Rule interface {
	Name() string
	Apply(d *Definition) []Diagnostic
}

// builtinRules returns the built-in rules in the order they are checked:
// entry node, per-kind required fields, next-target resolution, cycles.
func builtinRules() []Rule {
	return []Rule{
		&entryNodeRule{},
		&requiredFieldsRule{},
		&nextTargetRule{},
		&acyclicRule{},
		&reachabilityRule{},
	}
}

// Validate runs all built-in rules plus any extra rules on the definition.
func Validate(d *Definition, extraRules ...Rule) []Diagnostic {
	var diags []Diagnostic
	rules := append(builtinRules(), extraRules...)
	for _, rule := range rules {
		diags = append(diags, rule.Apply(d)...)
	}
	return diags
}

// ValidateOrError runs validation and returns a *ValidationError if any
// error-severity diagnostics exist. Validation is a pure function of the
// definition: the same revision always yields the same result.
func ValidateOrError(d *Definition, extraRules ...Rule) ([]Diagnostic, error) {
	diags := Validate(d, extraRules...)

	var errDiags []Diagnostic
	for _, diag := range diags {
		if diag.Severity == SeverityError {
			errDiags = append(errDiags, diag)
		}
	}
	if len(errDiags) > 0 {
		return diags, &ValidationError{PlaybookID: d.ID, Diagnostics: errDiags}
	}
	return diags, nil
}

// validationCache memoizes validation results keyed by playbook id+revision.
// Entries are written once and read concurrently by running engines.
type validationCache struct {
	mu      sync.RWMutex
	results map[string]error // nil entry = validated ok
}

func newValidationCache() *validationCache {
	return &validationCache{results: make(map[string]error)}
}

// check returns the cached validation result for the definition, running
// validation on a cache miss.
func (c *validationCache) check(d *Definition, extraRules ...Rule) error {
	key := d.CacheKey()

	c.mu.RLock()
	err, ok := c.results[key]
	c.mu.RUnlock()
	if ok {
		return err
	}

	_, err = ValidateOrError(d, extraRules...)

	c.mu.Lock()
	c.results[key] = err
	c.mu.Unlock()
	return err
}

// --- Built-in rules ---

// entryNodeRule checks that the designated entry node exists.
type entryNodeRule struct{}

func (r *entryNodeRule) Name() string { return "entry_node" }

func (r *entryNodeRule) Apply(d *Definition) []Diagnostic {
	if d.Entry == "" {
		return []Diagnostic{{
			Rule:     r.Name(),
			Severity: SeverityError,
			Message:  "playbook designates no entry node",
			Fix:      "set the entry field to an existing node id",
		}}
	}
	if d.FindNode(d.Entry) == nil {
		return []Diagnostic{{
			Rule:     r.Name(),
			Severity: SeverityError,
			Message:  fmt.Sprintf("entry node %q does not exist", d.Entry),
			Fix:      "point entry at a declared node id",
		}}
	}
	return nil
}

// requiredFieldsRule checks that each node carries the fields its kind needs.
type requiredFieldsRule struct{}

func (r *requiredFieldsRule) Name() string { return "required_fields" }

func (r *requiredFieldsRule) Apply(d *Definition) []Diagnostic {
	var diags []Diagnostic

	diag := func(nodeID, msg, fix string) {
		diags = append(diags, Diagnostic{
			Rule:     r.Name(),
			Severity: SeverityError,
			Message:  msg,
			NodeID:   nodeID,
			Fix:      fix,
		})
	}

	for _, id := range d.NodeIDs() {
		node := d.Nodes[id]

		if !node.Kind.Valid() {
			diag(id, fmt.Sprintf("unknown node kind %q", node.Kind), "use one of: reasoning, tool, router, memorize")
			continue
		}

		switch node.Kind {
		case KindReasoning:
			if node.Prompt == "" {
				diag(id, "reasoning node has no prompt", "add a prompt template")
			}
			if len(node.OutputKeys) == 0 {
				diag(id, "reasoning node declares no output_keys", "name at least one state field to receive the result")
			}
			if node.ModelTier != "" && !node.ModelTier.Valid() {
				diag(id, fmt.Sprintf("invalid model_tier %q", node.ModelTier), "use default or lightweight")
			}
			if node.Schema != "" {
				if _, err := compileSchema(node.Schema); err != nil {
					diag(id, fmt.Sprintf("output schema does not compile: %v", err), "fix the JSON schema source")
				}
			}
		case KindTool:
			if node.Tool == "" {
				diag(id, "tool node names no tool", "set the tool field")
			}
		case KindRouter:
			if len(node.Candidates) == 0 {
				diag(id, "router node declares no candidates", "list at least one destination node id")
			}
			if node.Instruction == "" {
				diag(id, "router node has no instruction", "add the instruction used to choose a candidate")
			}
			if !node.Next.Terminal() {
				diag(id, "router node declares a next pointer; its next node is always the chosen candidate", "remove the next field")
			}
		case KindMemorize:
			if len(node.Fields) == 0 {
				diag(id, "memorize node names no state fields", "list the fields to persist")
			}
			if node.Tag == "" {
				diag(id, "memorize node has no tag", "set the memory category tag")
			}
		}

		if len(node.Next.Branch) > 0 && node.branchKey() == "" {
			diag(id, "branch next has no resolvable branch key", "set branch_key or declare output_keys")
		}
	}

	return diags
}

// nextTargetRule checks that every next reference, literal or branch value,
// and every router candidate resolves to a declared node id.
type nextTargetRule struct{}

func (r *nextTargetRule) Name() string { return "next_target" }

func (r *nextTargetRule) Apply(d *Definition) []Diagnostic {
	var diags []Diagnostic
	for _, id := range d.NodeIDs() {
		node := d.Nodes[id]
		for _, target := range node.SuccessorIDs() {
			if d.FindNode(target) == nil {
				diags = append(diags, Diagnostic{
					Rule:     r.Name(),
					Severity: SeverityError,
					Message:  fmt.Sprintf("next target %q does not exist", target),
					NodeID:   id,
					Fix:      fmt.Sprintf("add node %q or fix the reference", target),
				})
			}
		}
	}
	return diags
}

// acyclicRule rejects any static cycle reachable from the entry node,
// using depth-first search over all possible next resolutions.
type acyclicRule struct{}

func (r *acyclicRule) Name() string { return "acyclic" }

func (r *acyclicRule) Apply(d *Definition) []Diagnostic {
	entry := d.EntryNode()
	if entry == nil {
		// entry_node rule reports this
		return nil
	}

	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	color := make(map[string]int)

	var cycleAt string
	var visit func(id string) bool
	visit = func(id string) bool {
		node := d.FindNode(id)
		if node == nil {
			// next_target rule reports dangling references
			return false
		}
		color[id] = inStack
		for _, succ := range node.SuccessorIDs() {
			switch color[succ] {
			case inStack:
				cycleAt = succ
				return true
			case unvisited:
				if visit(succ) {
					return true
				}
			}
		}
		color[id] = done
		return false
	}

	if visit(entry.ID) {
		return []Diagnostic{{
			Rule:     r.Name(),
			Severity: SeverityError,
			Message:  fmt.Sprintf("node %q is reachable from itself; playbooks must be acyclic", cycleAt),
			NodeID:   cycleAt,
			Fix:      "break the cycle; bounded repetition belongs in the caller, not the graph",
		}}
	}
	return nil
}

// reachabilityRule warns about nodes no path from the entry can reach.
type reachabilityRule struct{}

func (r *reachabilityRule) Name() string { return "reachability" }

func (r *reachabilityRule) Apply(d *Definition) []Diagnostic {
	entry := d.EntryNode()
	if entry == nil {
		return nil
	}

	visited := map[string]bool{entry.ID: true}
	queue := []string{entry.ID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		node := d.FindNode(current)
		if node == nil {
			continue
		}
		for _, succ := range node.SuccessorIDs() {
			if !visited[succ] {
				visited[succ] = true
				queue = append(queue, succ)
			}
		}
	}

	var diags []Diagnostic
	for _, id := range d.NodeIDs() {
		if !visited[id] {
			diags = append(diags, Diagnostic{
				Rule:     r.Name(),
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("node %q is not reachable from entry node %q", id, entry.ID),
				NodeID:   id,
				Fix:      fmt.Sprintf("add a path from %q or remove the node", entry.ID),
			})
		}
	}
	return diags
}
