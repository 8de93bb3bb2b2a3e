// ABOUTME: Tests for YAML playbook decoding, including both next-pointer shapes.
// ABOUTME: Structural minimums are enforced at decode time; semantic checks belong to the validator.
package playbook

import (
	"strings"
	"testing"
)

const triageYAML = `
id: support_triage
revision: r3
entry: ask_intent
nodes:
  ask_intent:
    kind: reasoning
    prompt: "Classify the request: {{user_message}}"
    output_keys: [intent]
    next:
      branch:
        order: handle_order
        refund: handle_refund
  handle_order:
    kind: tool
    tool: order_lookup
    args_input:
      q: user_message
    output_keys: [order_info]
    next: respond
  handle_refund:
    kind: reasoning
    prompt: "Draft a refund reply"
    model_tier: lightweight
    output_keys: [order_info]
    next: respond
  respond:
    kind: reasoning
    prompt: "Reply using {{order_info}}"
    output_keys: [reply]
    next: remember
  remember:
    kind: memorize
    fields: [user_message, reply]
    tag: conversation
`

func TestDecodeFullPlaybook(t *testing.T) {
	def, err := Decode([]byte(triageYAML))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if def.ID != "support_triage" || def.Revision != "r3" || def.Entry != "ask_intent" {
		t.Errorf("header = %s/%s entry=%s, want support_triage/r3 entry=ask_intent", def.ID, def.Revision, def.Entry)
	}
	if len(def.Nodes) != 5 {
		t.Fatalf("decoded %d nodes, want 5", len(def.Nodes))
	}

	ask := def.FindNode("ask_intent")
	if ask == nil || ask.ID != "ask_intent" {
		t.Fatal("node ids were not stamped from map keys")
	}
	if ask.Next.Branch["order"] != "handle_order" {
		t.Errorf("branch map = %v, want order -> handle_order", ask.Next.Branch)
	}

	lookup := def.FindNode("handle_order")
	if lookup.Next.Node != "respond" {
		t.Errorf("scalar next decoded to %q, want respond", lookup.Next.Node)
	}
	if lookup.ArgsInput["q"] != "user_message" {
		t.Errorf("args_input = %v, want q -> user_message", lookup.ArgsInput)
	}

	refund := def.FindNode("handle_refund")
	if refund.ModelTier != TierLightweight {
		t.Errorf("model_tier = %q, want lightweight", refund.ModelTier)
	}

	remember := def.FindNode("remember")
	if remember.Tag != "conversation" || len(remember.Fields) != 2 {
		t.Errorf("memorize fields/tag = %v/%q", remember.Fields, remember.Tag)
	}

	if got := def.CacheKey(); got != "support_triage@r3" {
		t.Errorf("CacheKey() = %q, want support_triage@r3", got)
	}
}

func TestDecodeRejectsMalformedDocuments(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		wantMsg string
	}{
		{
			name:    "no id",
			source:  "entry: a\nnodes:\n  a:\n    kind: reasoning\n",
			wantMsg: "no id",
		},
		{
			name:    "no entry",
			source:  "id: p\nnodes:\n  a:\n    kind: reasoning\n",
			wantMsg: "no entry",
		},
		{
			name:    "no nodes",
			source:  "id: p\nentry: a\n",
			wantMsg: "no nodes",
		},
		{
			name:    "unknown kind",
			source:  "id: p\nentry: a\nnodes:\n  a:\n    kind: daydream\n",
			wantMsg: "unknown kind",
		},
		{
			name:    "empty node",
			source:  "id: p\nentry: a\nnodes:\n  a:\n",
			wantMsg: "empty",
		},
		{
			name:    "not yaml",
			source:  "{{{{",
			wantMsg: "parse playbook",
		},
		{
			name: "next with both node and branch",
			source: `
id: p
entry: a
nodes:
  a:
    kind: reasoning
    prompt: x
    output_keys: [k]
    next:
      node: b
      branch:
        v: b
  b:
    kind: reasoning
    prompt: y
    output_keys: [k]
`,
			wantMsg: "both a literal node and a branch",
		},
		{
			name: "next as sequence",
			source: `
id: p
entry: a
nodes:
  a:
    kind: reasoning
    prompt: x
    output_keys: [k]
    next: [b, c]
`,
			wantMsg: "next must be",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.source))
			if err == nil {
				t.Fatal("Decode() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantMsg)
			}
		})
	}
}
