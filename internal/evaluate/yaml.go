package evaluate

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/nsreg/internal/graph"
)

// YAML evaluates units whose document is a YAML mapping. Keys keep their
// document order.
type YAML struct{}

func (YAML) Name() string { return "yaml" }

func (YAML) Evaluate(_ context.Context, u Unit) (graph.Props, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(u.Source, &doc); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errNoFields
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("document is not a mapping (line %d)", root.Line)
	}

	var props graph.Props
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		var val any
		if err := value.Decode(&val); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key.Value, err)
		}
		props = append(props, graph.Field{Name: key.Value, Value: val})
	}
	if len(props) == 0 {
		return nil, errNoFields
	}
	return props, nil
}
