// ABOUTME: YAML decoding for playbook definitions with a flexible next-pointer shape.
// ABOUTME: Accepts next as a bare node id string or as a mapping with node/branch keys.
package playbook

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML accepts either a scalar node id ("next: handle_order") or a
// mapping form ("next: {branch: {order: handle_order}}").
func (n *Next) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var id string
		if err := value.Decode(&id); err != nil {
			return err
		}
		n.Node = id
		return nil
	case yaml.MappingNode:
		type plain Next
		var p plain
		if err := value.Decode(&p); err != nil {
			return err
		}
		*n = Next(p)
		if n.Node != "" && len(n.Branch) > 0 {
			return fmt.Errorf("next declares both a literal node and a branch map")
		}
		return nil
	}
	return fmt.Errorf("next must be a node id or a mapping, got yaml kind %d", value.Kind)
}

// Decode parses a YAML playbook document into a Definition. It enforces
// the structural minimum (id, entry, nodes, recognized kinds); semantic
// checks belong to the validator.
func Decode(source []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(source, &def); err != nil {
		return nil, fmt.Errorf("parse playbook: %w", err)
	}

	if def.ID == "" {
		return nil, fmt.Errorf("playbook has no id")
	}
	if def.Entry == "" {
		return nil, fmt.Errorf("playbook %q has no entry node", def.ID)
	}
	if len(def.Nodes) == 0 {
		return nil, fmt.Errorf("playbook %q has no nodes", def.ID)
	}

	for id, node := range def.Nodes {
		if node == nil {
			return nil, fmt.Errorf("playbook %q: node %q is empty", def.ID, id)
		}
		node.ID = id
		if !node.Kind.Valid() {
			return nil, fmt.Errorf("playbook %q: node %q has unknown kind %q", def.ID, id, node.Kind)
		}
	}

	return &def, nil
}

// DecodeFile reads and parses a YAML playbook from disk.
func DecodeFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read playbook file: %w", err)
	}
	return Decode(data)
}
