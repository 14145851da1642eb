package mapping

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// --- NodeSpec YAML methods ---

// UnmarshalYAML implements custom YAML unmarshaling for NodeSpec.
// Accepts either a column name (a string field) or a full node object.
func (n *NodeSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var column string

		err := node.Decode(&column)
		if err != nil {
			return err
		}

		*n = NodeSpec{Kind: KindField, Column: column}

		return nil

	case yaml.MappingNode:
		// plain avoids recursing into this method
		type plain NodeSpec

		var p plain

		err := node.Decode(&p)
		if err != nil {
			return err
		}

		*n = NodeSpec(p)

		return nil

	default:
		return fmt.Errorf("line %d: expected column name or node object, got %v", node.Line, node.Kind)
	}
}

// --- CallSpec YAML methods ---

// UnmarshalYAML implements custom YAML unmarshaling for CallSpec.
// Accepts "routine", "callee.routine" or a full call object.
func (c *CallSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var str string

		err := node.Decode(&str)
		if err != nil {
			return err
		}

		*c = ParseCallShorthand(str)

		return nil

	case yaml.MappingNode:
		type plain CallSpec

		var p plain

		err := node.Decode(&p)
		if err != nil {
			return err
		}

		*c = CallSpec(p)

		return nil

	default:
		return fmt.Errorf("line %d: expected routine or call object, got %v", node.Line, node.Kind)
	}
}

// ParseCallShorthand splits "callee.routine" at the last dot.
func ParseCallShorthand(str string) CallSpec {
	lastDot := strings.LastIndex(str, ".")
	if lastDot < 0 {
		return CallSpec{Routine: str}
	}

	return CallSpec{Callee: str[:lastDot], Routine: str[lastDot+1:]}
}

// --- NamedNodes YAML methods ---

// UnmarshalYAML decodes a YAML mapping while keeping its key order.
func (n *NamedNodes) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected mapping, got %v", node.Line, node.Kind)
	}

	out := make(NamedNodes, 0, len(node.Content)/2)

	for i := 0; i+1 < len(node.Content); i += 2 {
		var name string

		err := node.Content[i].Decode(&name)
		if err != nil {
			return err
		}

		spec := &NodeSpec{}

		err = node.Content[i+1].Decode(spec)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		out = append(out, NamedNode{Name: name, Spec: spec})
	}

	*n = out

	return nil
}

// MarshalYAML implements custom YAML marshaling for NamedNodes.
func (n NamedNodes) MarshalYAML() (any, error) {
	out := &yaml.Node{Kind: yaml.MappingNode}

	for _, nn := range n {
		value := &yaml.Node{}

		err := value.Encode(nn.Spec)
		if err != nil {
			return nil, err
		}

		out.Content = append(out.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: nn.Name}, value)
	}

	return out, nil
}

// --- NamedEntities YAML methods ---

// UnmarshalYAML decodes the entities mapping while keeping its key order.
func (e *NamedEntities) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected mapping, got %v", node.Line, node.Kind)
	}

	out := make(NamedEntities, 0, len(node.Content)/2)

	for i := 0; i+1 < len(node.Content); i += 2 {
		var name string

		err := node.Content[i].Decode(&name)
		if err != nil {
			return err
		}

		entity := &EntitySpec{}

		err = node.Content[i+1].Decode(entity)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		entity.Name = name
		out = append(out, entity)
	}

	*e = out

	return nil
}

// MarshalYAML implements custom YAML marshaling for NamedEntities.
func (e NamedEntities) MarshalYAML() (any, error) {
	out := &yaml.Node{Kind: yaml.MappingNode}

	for _, entity := range e {
		value := &yaml.Node{}

		err := value.Encode(entity)
		if err != nil {
			return nil, err
		}

		out.Content = append(out.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: entity.Name}, value)
	}

	return out, nil
}

// Get returns the entity declared under name.
func (e NamedEntities) Get(name string) (*EntitySpec, bool) {
	for _, entity := range e {
		if entity.Name == name {
			return entity, true
		}
	}

	return nil, false
}
