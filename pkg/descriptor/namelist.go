package descriptor

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// NamelistSpec describes how the model namelist file is produced: the
// template to load, the destination, and the two substitution modes.
type NamelistSpec struct {
	Description NamelistDescription `yaml:"description,omitempty"`
	File        NamelistFile        `yaml:"file"`
	Fields      NamelistFields      `yaml:"fields"`
}

// NamelistDescription identifies the model family the namelist targets.
type NamelistDescription struct {
	Type    string `yaml:"type,omitempty"`    // e.g. "hmc", "s3m"
	Version string `yaml:"version,omitempty"` // e.g. "3.1.6"
}

// NamelistFile holds the template source and the generated destination.
// Both values may contain brace placeholders and date tokens.
type NamelistFile struct {
	Template string `yaml:"template"`
	Project  string `yaml:"project"`
}

// NamelistFields holds the two substitution modes: unconditional field
// assignment and conditional tag-based completion.
type NamelistFields struct {
	ByValue   map[string]any `yaml:"by_value"`
	ByPattern PatternList    `yaml:"by_pattern"`
}

// Pattern is one by_pattern entry: applied only when Active, replacing the
// value of every namelist field whose name carries the Template tag.
type Pattern struct {
	Name     string
	Active   bool
	Template string
	Value    any
}

// PatternList preserves declaration order, which matters because pattern
// tags may overlap textually.
type PatternList []Pattern

// UnmarshalYAML decodes the by_pattern mapping keeping document order.
func (p *PatternList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("by_pattern: expected mapping, got %s", nodeKind(node))
	}
	out := make(PatternList, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var name string
		if err := node.Content[i].Decode(&name); err != nil {
			return fmt.Errorf("by_pattern key: %w", err)
		}
		if commentKeys[name] {
			continue
		}
		var fields struct {
			Active   bool   `yaml:"active"`
			Template string `yaml:"template"`
			Value    any    `yaml:"value"`
		}
		if err := node.Content[i+1].Decode(&fields); err != nil {
			return fmt.Errorf("by_pattern %q: %w", name, err)
		}
		if fields.Template == "" {
			return fmt.Errorf("by_pattern %q: missing template tag", name)
		}
		out = append(out, Pattern{
			Name:     name,
			Active:   fields.Active,
			Template: fields.Template,
			Value:    fields.Value,
		})
	}
	*p = out
	return nil
}

func nodeKind(n *yaml.Node) string {
	switch n.Kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "unknown"
}
