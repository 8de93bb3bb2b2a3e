// ABOUTME: Tests for prompt template rendering and placeholder extraction.
// ABOUTME: Missing fields render empty rather than failing the node.
package playbook

import (
	"reflect"
	"testing"
)

func TestRenderPrompt(t *testing.T) {
	st := NewState(map[string]any{
		"name":  "Ada",
		"count": 3,
		"tags":  []string{"late", "damaged"},
	})

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"plain substitution", "Hello {{name}}", "Hello Ada"},
		{"whitespace in braces", "Hello {{ name }}", "Hello Ada"},
		{"missing field renders empty", "Hi {{nobody}}!", "Hi !"},
		{"non-string value", "{{count}} items", "3 items"},
		{"string slice joins", "issues: {{tags}}", "issues: late, damaged"},
		{"repeated placeholder", "{{name}} and {{name}}", "Ada and Ada"},
		{"no placeholders", "static text", "static text"},
		{"unclosed braces left alone", "{{name", "{{name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RenderPrompt(tt.template, st); got != tt.want {
				t.Errorf("RenderPrompt(%q) = %q, want %q", tt.template, got, tt.want)
			}
		})
	}
}

func TestPromptKeys(t *testing.T) {
	tests := []struct {
		template string
		want     []string
	}{
		{"Hello {{name}}, about {{order_id}}: {{name}}", []string{"name", "order_id"}},
		{"no placeholders", nil},
		{"{{ spaced }}", []string{"spaced"}},
	}

	for _, tt := range tests {
		got := PromptKeys(tt.template)
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("PromptKeys(%q) = %v, want %v", tt.template, got, tt.want)
		}
	}
}
