// ABOUTME: Tests for structured-output parsing and result decomposition across output keys.
// ABOUTME: Raw text never passes where structure was declared.
package playbook

import (
	"reflect"
	"testing"
)

func TestParseStructured(t *testing.T) {
	schema, err := compileSchema(`{"type": "object", "required": ["ok"]}`)
	if err != nil {
		t.Fatalf("compileSchema() error = %v", err)
	}

	if _, err := parseStructured(`{"ok": true}`, schema); err != nil {
		t.Errorf("valid payload rejected: %v", err)
	}
	if _, err := parseStructured(`{"other": 1}`, schema); err == nil {
		t.Error("schema violation accepted")
	}
	if _, err := parseStructured(`plain words`, nil); err == nil {
		t.Error("non-JSON accepted where structure was declared")
	}
	if v, err := parseStructured(`[1, 2]`, nil); err != nil || v == nil {
		t.Errorf("schemaless JSON parse = %v, %v", v, err)
	}
}

func TestDecomposeResult(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		keys    []string
		want    Delta
		wantErr bool
	}{
		{
			name:  "no keys writes nothing",
			value: "anything",
			keys:  nil,
			want:  nil,
		},
		{
			name:  "single key takes whole value",
			value: map[string]any{"nested": true},
			keys:  []string{"result"},
			want:  Delta{"result": map[string]any{"nested": true}},
		},
		{
			name:  "object spread by name",
			value: map[string]any{"a": 1, "b": 2, "extra": 3},
			keys:  []string{"a", "b"},
			want:  Delta{"a": 1, "b": 2},
		},
		{
			name:    "object missing a declared key",
			value:   map[string]any{"a": 1},
			keys:    []string{"a", "b"},
			wantErr: true,
		},
		{
			name:  "array spread in order",
			value: []any{"x", "y"},
			keys:  []string{"first", "second"},
			want:  Delta{"first": "x", "second": "y"},
		},
		{
			name:    "array length mismatch",
			value:   []any{"x"},
			keys:    []string{"first", "second"},
			wantErr: true,
		},
		{
			name:    "scalar with several keys",
			value:   "just one",
			keys:    []string{"a", "b"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decomposeResult(tt.value, tt.keys)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("decomposeResult() = %v, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("decomposeResult() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("decomposeResult() = %v, want %v", got, tt.want)
			}
		})
	}
}
