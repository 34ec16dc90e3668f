package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/talgya/climate-net/internal/agents"
)

// AgentTypes is the ordered set of agent templates. In documents it is a
// mapping from type name to template; mapping order is preserved because
// it fixes population order, and with it the random draw order.
type AgentTypes []agents.Template

// UnmarshalYAML decodes a mapping node, keeping key order.
func (a *AgentTypes) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: agents must be a mapping of type name to settings", value.Line)
	}
	out := make(AgentTypes, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, body := value.Content[i], value.Content[i+1]
		var t agents.Template
		if err := body.Decode(&t); err != nil {
			return fmt.Errorf("agent type %q: %w", key.Value, err)
		}
		t.Name = key.Value
		out = append(out, t)
	}
	*a = out
	return nil
}

// MarshalYAML encodes the templates as a mapping in order.
func (a AgentTypes) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, t := range a {
		body := &yaml.Node{}
		if err := body.Encode(t); err != nil {
			return nil, fmt.Errorf("agent type %q: %w", t.Name, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: t.Name},
			body,
		)
	}
	return node, nil
}

// Get returns the template for a type name.
func (a AgentTypes) Get(name string) (*agents.Template, bool) {
	for i := range a {
		if a[i].Name == name {
			return &a[i], true
		}
	}
	return nil, false
}
