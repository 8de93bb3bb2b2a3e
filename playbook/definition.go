// ABOUTME: Core data model for playbook definitions: typed nodes, next pointers, and branch maps.
// ABOUTME: Defines Definition, NodeDefinition, NodeKind, and Next with lookup and traversal helpers.
package playbook

import (
	"sort"
)

// NodeKind identifies the executor responsible for a node.
type NodeKind string

const (
	KindReasoning NodeKind = "reasoning"
	KindTool      NodeKind = "tool"
	KindRouter    NodeKind = "router"
	KindMemorize  NodeKind = "memorize"
)

// Valid reports whether k is one of the four recognized node kinds.
func (k NodeKind) Valid() bool {
	switch k {
	case KindReasoning, KindTool, KindRouter, KindMemorize:
		return true
	}
	return false
}

// ModelTier is the model-capability class requested by a reasoning node.
type ModelTier string

const (
	TierDefault     ModelTier = "default"
	TierLightweight ModelTier = "lightweight"
)

// Valid reports whether t is a recognized model tier.
func (t ModelTier) Valid() bool {
	return t == TierDefault || t == TierLightweight
}

// Next describes where control flows after a node completes.
// Exactly one of the following holds: Node is set (literal successor),
// Branch is non-empty (output value selects the successor), or both are
// empty (the node is terminal).
type Next struct {
	Node   string            `yaml:"node,omitempty"`
	Branch map[string]string `yaml:"branch,omitempty"`
}

// Terminal reports whether the node has no successor.
func (n Next) Terminal() bool {
	return n.Node == "" && len(n.Branch) == 0
}

// NodeDefinition is one step in a playbook. Kind determines which of the
// kind-specific field groups below are meaningful.
type NodeDefinition struct {
	ID   string   `yaml:"-"`
	Kind NodeKind `yaml:"kind"`
	Next Next     `yaml:"next,omitempty"`

	// Reasoning fields.
	Prompt     string    `yaml:"prompt,omitempty"`
	Schema     string    `yaml:"schema,omitempty"`
	ModelTier  ModelTier `yaml:"model_tier,omitempty"`
	OutputKeys []string  `yaml:"output_keys,omitempty"`

	// BranchKey names the state field consulted when Next.Branch is set.
	// Empty means the node's first output key.
	BranchKey string `yaml:"branch_key,omitempty"`

	// Tool fields. ArgsInput maps tool parameter name to the state field
	// that supplies it.
	Tool      string            `yaml:"tool,omitempty"`
	ArgsInput map[string]string `yaml:"args_input,omitempty"`

	// Router fields.
	Candidates  []string `yaml:"candidates,omitempty"`
	Instruction string   `yaml:"instruction,omitempty"`

	// Memorize fields.
	Fields []string `yaml:"fields,omitempty"`
	Tag    string   `yaml:"tag,omitempty"`
}

// Tier returns the node's requested model tier, defaulting to TierDefault.
func (n *NodeDefinition) Tier() ModelTier {
	if n.Kind == KindRouter {
		// Routers make an enum decision; they always run lightweight.
		return TierLightweight
	}
	if n.ModelTier == "" {
		return TierDefault
	}
	return n.ModelTier
}

// branchKey returns the state field consulted by Next.Branch: the explicit
// BranchKey if set, otherwise the first output key. Empty when neither exists.
func (n *NodeDefinition) branchKey() string {
	if n.BranchKey != "" {
		return n.BranchKey
	}
	if len(n.OutputKeys) > 0 {
		return n.OutputKeys[0]
	}
	return ""
}

// RouteField returns the state field that receives a router node's decision.
func (n *NodeDefinition) RouteField() string {
	if len(n.OutputKeys) > 0 {
		return n.OutputKeys[0]
	}
	return "route"
}

// InputKeys returns the state fields this node reads, used for the trace
// input snapshot. The set depends on the node kind.
func (n *NodeDefinition) InputKeys() []string {
	switch n.Kind {
	case KindReasoning:
		return PromptKeys(n.Prompt)
	case KindRouter:
		return PromptKeys(n.Instruction)
	case KindTool:
		fields := make([]string, 0, len(n.ArgsInput))
		for _, field := range n.ArgsInput {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		return fields
	case KindMemorize:
		return append([]string(nil), n.Fields...)
	}
	return nil
}

// SuccessorIDs returns every node id this node can transfer control to:
// the literal next, all branch targets, and (for routers) all candidates.
// The result is deduplicated and sorted.
func (n *NodeDefinition) SuccessorIDs() []string {
	seen := make(map[string]bool)
	if n.Next.Node != "" {
		seen[n.Next.Node] = true
	}
	for _, target := range n.Next.Branch {
		seen[target] = true
	}
	if n.Kind == KindRouter {
		for _, c := range n.Candidates {
			seen[c] = true
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Definition is an immutable playbook: an identifier, a revision marker,
// a designated entry node, and the node graph.
type Definition struct {
	ID       string                     `yaml:"id"`
	Revision string                     `yaml:"revision"`
	Entry    string                     `yaml:"entry"`
	Nodes    map[string]*NodeDefinition `yaml:"nodes"`
}

// FindNode returns the node with the given id, or nil if not found.
func (d *Definition) FindNode(id string) *NodeDefinition {
	if d.Nodes == nil {
		return nil
	}
	return d.Nodes[id]
}

// EntryNode returns the designated entry node, or nil if it does not exist.
func (d *Definition) EntryNode() *NodeDefinition {
	return d.FindNode(d.Entry)
}

// NodeIDs returns all node ids in sorted order for deterministic output.
func (d *Definition) NodeIDs() []string {
	ids := make([]string, 0, len(d.Nodes))
	for id := range d.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CacheKey identifies this definition revision for validation caching.
func (d *Definition) CacheKey() string {
	return d.ID + "@" + d.Revision
}
