// ABOUTME: Registry of named tools with JSON-schema argument validation at invocation time.
// ABOUTME: Implements the runtime's tool boundary; results may be single values or tuple-like slices.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Tool is a named capability invokable from a playbook. Schema, when set,
// is a JSON schema source validated against the arguments before Exec runs.
type Tool struct {
	Name        string
	Description string
	Schema      string
	Exec        func(ctx context.Context, args map[string]any) (any, error)
}

// registered pairs a tool with its compiled schema.
type registered struct {
	tool     Tool
	compiled *jsonschema.Schema
}

// Registry holds tools by name. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]registered
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]registered)}
}

// Register adds a tool, compiling its argument schema if one is declared.
// Registering an existing name replaces the previous tool.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tool has no name")
	}
	if t.Exec == nil {
		return fmt.Errorf("tool %q has no executor", t.Name)
	}

	reg := registered{tool: t}
	if t.Schema != "" {
		compiled, err := jsonschema.CompileString(t.Name+".schema.json", t.Schema)
		if err != nil {
			return fmt.Errorf("tool %q schema: %w", t.Name, err)
		}
		reg.compiled = compiled
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name] = reg
	return nil
}

// Invoke runs the named tool after validating args against its schema.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (any, error) {
	r.mu.RLock()
	reg, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("tool %q not registered", name)
	}

	if reg.compiled != nil {
		normalized, err := normalizeArgs(args)
		if err != nil {
			return nil, fmt.Errorf("tool %q args: %w", name, err)
		}
		if err := reg.compiled.Validate(normalized); err != nil {
			return nil, fmt.Errorf("tool %q args rejected by schema: %w", name, err)
		}
	}

	return reg.tool.Exec(ctx, args)
}

// List returns the registered tool names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// normalizeArgs round-trips args through JSON so schema validation sees the
// same value shapes a wire call would (e.g. numbers as float64).
func normalizeArgs(args map[string]any) (any, error) {
	data, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("not JSON-encodable: %w", err)
	}
	var normalized any
	if err := json.Unmarshal(data, &normalized); err != nil {
		return nil, err
	}
	return normalized, nil
}
