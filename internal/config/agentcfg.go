package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrAgentConfig marks a document that is not a valid agent configuration.
var ErrAgentConfig = errors.New("invalid agent configuration")

// AgentSection is one top-level section of the agent configuration.
type AgentSection struct {
	Name    string
	Enabled bool
	Values  map[string]interface{}
}

// AgentFile is a parsed agent configuration with sections in file order.
type AgentFile struct {
	Sections []AgentSection
}

// Section returns the named section, if present.
func (f *AgentFile) Section(name string) (AgentSection, bool) {
	for _, s := range f.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return AgentSection{}, false
}

// LoadAgentConfig reads and parses the agent configuration at path.
func LoadAgentConfig(path string) (*AgentFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read agent config: %w", err)
	}
	return ParseAgentConfig(data)
}

// ParseAgentConfig parses the current-format agent configuration: a
// mapping of section names to mappings. A section is enabled unless it
// sets "enabled" to false.
func ParseAgentConfig(data []byte) (*AgentFile, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAgentConfig, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrAgentConfig)
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be a mapping", ErrAgentConfig)
	}

	file := &AgentFile{}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		if val.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("%w: section %q (line %d) must be a mapping", ErrAgentConfig, key.Value, val.Line)
		}

		values := make(map[string]interface{})
		if err := val.Decode(&values); err != nil {
			return nil, fmt.Errorf("%w: section %q: %v", ErrAgentConfig, key.Value, err)
		}

		section := AgentSection{Name: key.Value, Enabled: true, Values: values}
		if raw, ok := values["enabled"]; ok {
			enabled, isBool := raw.(bool)
			if !isBool {
				return nil, fmt.Errorf("%w: section %q: enabled must be a boolean", ErrAgentConfig, key.Value)
			}
			section.Enabled = enabled
		}
		file.Sections = append(file.Sections, section)
	}
	return file, nil
}
