// ABOUTME: Tests for the tool registry: registration, schema-gated invocation, and listing.
package tool

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func echoTool(name string) Tool {
	return Tool{
		Name: name,
		Exec: func(ctx context.Context, args map[string]any) (any, error) {
			return args, nil
		},
	}
}

func TestRegisterRejectsIncompleteTools(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(Tool{Exec: func(ctx context.Context, args map[string]any) (any, error) { return nil, nil }}); err == nil {
		t.Error("nameless tool registered")
	}
	if err := r.Register(Tool{Name: "noop"}); err == nil {
		t.Error("executor-less tool registered")
	}
	if err := r.Register(Tool{Name: "bad_schema", Schema: `{"type": [`, Exec: echoTool("x").Exec}); err == nil {
		t.Error("uncompilable schema accepted")
	}
}

func TestInvokeUnknownTool(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Invoke(context.Background(), "ghost", nil); err == nil {
		t.Fatal("invoking an unregistered tool succeeded")
	}
}

func TestInvokeValidatesArgsAgainstSchema(t *testing.T) {
	r := NewRegistry()
	schema := `{
		"type": "object",
		"required": ["query"],
		"properties": {
			"query": {"type": "string"},
			"limit": {"type": "integer", "minimum": 1}
		}
	}`
	err := r.Register(Tool{
		Name:   "search",
		Schema: schema,
		Exec: func(ctx context.Context, args map[string]any) (any, error) {
			return fmt.Sprintf("results for %v", args["query"]), nil
		},
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	result, err := r.Invoke(context.Background(), "search", map[string]any{"query": "golang", "limit": 5})
	if err != nil {
		t.Fatalf("valid invocation error = %v", err)
	}
	if result != "results for golang" {
		t.Errorf("result = %v", result)
	}

	if _, err := r.Invoke(context.Background(), "search", map[string]any{"limit": 5}); err == nil {
		t.Error("missing required arg accepted")
	}
	if _, err := r.Invoke(context.Background(), "search", map[string]any{"query": "x", "limit": 0}); err == nil {
		t.Error("out-of-range arg accepted")
	}
	if _, err := r.Invoke(context.Background(), "search", map[string]any{"query": 42}); err == nil {
		t.Error("wrong-typed arg accepted")
	}
}

func TestInvokeWithoutSchemaSkipsValidation(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(echoTool("echo")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	result, err := r.Invoke(context.Background(), "echo", map[string]any{"anything": "goes"})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	args, ok := result.(map[string]any)
	if !ok || args["anything"] != "goes" {
		t.Errorf("result = %v", result)
	}
}

func TestToolErrorsPassThrough(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Tool{
		Name: "flaky",
		Exec: func(ctx context.Context, args map[string]any) (any, error) {
			return nil, fmt.Errorf("backend down")
		},
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, err := r.Invoke(context.Background(), "flaky", nil)
	if err == nil || !strings.Contains(err.Error(), "backend down") {
		t.Errorf("error = %v, want the tool's own error", err)
	}
}

func TestListReturnsSortedNames(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := r.Register(echoTool(name)); err != nil {
			t.Fatalf("Register(%s) error = %v", name, err)
		}
	}

	if got := r.List(); !reflect.DeepEqual(got, []string{"alpha", "mid", "zeta"}) {
		t.Errorf("List() = %v", got)
	}
}
