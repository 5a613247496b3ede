// Package yamlcfg provides the YAML implementation of config.Loader.
package yamlcfg

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/vk/cupidrun/internal/config"
	"github.com/vk/cupidrun/internal/ctxlog"
	"gopkg.in/yaml.v3"
)

// Loader is the YAML-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new YAML configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and translates a YAML control file.
func (l *Loader) Load(ctx context.Context, path string) (*config.Control, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("YAML loader started.", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read control file: %w", err)
	}

	raw, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML file %s: %w", path, err)
	}
	raw.Path = path

	control, err := config.FromRaw(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid control file %s: %w", path, err)
	}

	logger.Debug("YAML loading complete.",
		"notebooks", len(control.Notebooks),
		"scripts", len(control.Scripts),
		"timeseries", control.Timeseries != nil,
	)
	return control, nil
}

// Parse decodes a YAML document into a config.Raw, recording the key order
// of the task sections.
func Parse(data []byte) (config.Raw, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return config.Raw{}, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return config.Raw{}, errors.New("empty document")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return config.Raw{}, fmt.Errorf("top level must be a mapping, got %s", kindName(root.Kind))
	}

	sections := map[string]any{}
	if err := root.Decode(&sections); err != nil {
		return config.Raw{}, err
	}

	return config.Raw{
		Sections:           sections,
		NotebookOrder:      keyOrder(root, "compute_notebooks"),
		ScriptOrder:        keyOrder(root, "compute_scripts"),
		NotebookGroupOrder: groupOrder(root, "compute_notebooks"),
		ScriptGroupOrder:   groupOrder(root, "compute_scripts"),
	}, nil
}

// keyOrder returns the keys of the mapping stored under name, in document
// order, or nil if there is no such mapping.
func keyOrder(mapping *yaml.Node, name string) []string {
	value := mappingValue(mapping, name)
	if value == nil {
		return nil
	}
	keys := make([]string, 0, len(value.Content)/2)
	for j := 0; j+1 < len(value.Content); j += 2 {
		keys = append(keys, value.Content[j].Value)
	}
	return keys
}

// groupOrder maps every task of the named section to the document order of
// its parameter_groups keys.
func groupOrder(root *yaml.Node, section string) map[string][]string {
	tasks := mappingValue(root, section)
	if tasks == nil {
		return nil
	}
	out := map[string][]string{}
	for i := 0; i+1 < len(tasks.Content); i += 2 {
		decl := resolveAlias(tasks.Content[i+1])
		if decl.Kind != yaml.MappingNode {
			continue
		}
		if keys := keyOrder(decl, "parameter_groups"); keys != nil {
			out[tasks.Content[i].Value] = keys
		}
	}
	return out
}

// mappingValue returns the mapping stored under name, following aliases, or
// nil if there is none.
func mappingValue(mapping *yaml.Node, name string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value != name {
			continue
		}
		value := resolveAlias(mapping.Content[i+1])
		if value.Kind != yaml.MappingNode {
			return nil
		}
		return value
	}
	return nil
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "node"
	}
}
