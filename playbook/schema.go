// ABOUTME: Structured-output handling: JSON schema compilation, response validation, and result decomposition.
// ABOUTME: Decomposition spreads a multi-valued result across a node's declared output keys in order.
package playbook

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// compileSchema compiles a JSON schema source string.
func compileSchema(source string) (*jsonschema.Schema, error) {
	return jsonschema.CompileString("schema.json", source)
}

// parseStructured decodes a raw provider response as JSON and, when a
// schema is given, validates it. Any failure here is a schema mismatch:
// raw text is never silently passed through where structure was declared.
func parseStructured(raw string, schema *jsonschema.Schema) (any, error) {
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w", err)
	}
	if schema != nil {
		if err := schema.Validate(value); err != nil {
			return nil, fmt.Errorf("response violates output schema: %w", err)
		}
	}
	return value, nil
}

// decomposeResult spreads a result value across the declared output keys.
// With a single key the whole value is written under it. With several keys
// the result must be either an object containing every key or an array of
// matching length, consumed in declared order. Anything else is a mismatch.
func decomposeResult(value any, outputKeys []string) (Delta, error) {
	if len(outputKeys) == 0 {
		return nil, nil
	}
	if len(outputKeys) == 1 {
		return Delta{outputKeys[0]: value}, nil
	}

	switch v := value.(type) {
	case map[string]any:
		delta := make(Delta, len(outputKeys))
		for _, key := range outputKeys {
			fieldValue, ok := v[key]
			if !ok {
				return nil, fmt.Errorf("result object is missing declared output key %q", key)
			}
			delta[key] = fieldValue
		}
		return delta, nil
	case []any:
		if len(v) != len(outputKeys) {
			return nil, fmt.Errorf("result has %d value(s) but %d output keys are declared", len(v), len(outputKeys))
		}
		delta := make(Delta, len(outputKeys))
		for i, key := range outputKeys {
			delta[key] = v[i]
		}
		return delta, nil
	}
	return nil, fmt.Errorf("result is a single value but %d output keys are declared", len(outputKeys))
}
