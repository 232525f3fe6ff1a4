package legacy

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"cmkagent/internal/config"
	"cmkagent/internal/logger"
)

var (
	// ErrParseSource is returned when the legacy file is not valid INI.
	ErrParseSource = errors.New("cannot parse legacy configuration")
	// ErrDestinationExists is returned when the target exists and overwrite is off.
	ErrDestinationExists = errors.New("destination already exists")
)

// ConversionJob describes one INI to YAML conversion.
type ConversionJob struct {
	Source string
	// Destination defaults to DefaultDestination(Source) when empty.
	Destination string
	Overwrite   bool
}

// listKeys are whitespace-separated lists in the legacy format, per section.
var listKeys = map[string]map[string]bool{
	"global": {
		"only_from":         true,
		"sections":          true,
		"disabled_sections": true,
		"execute":           true,
		"realtime_sections": true,
	},
}

var intPattern = regexp.MustCompile(`^-?(0|[1-9][0-9]*)$`)

// DefaultDestination derives the YAML path from the INI path.
func DefaultDestination(src string) string {
	return strings.TrimSuffix(src, filepath.Ext(src)) + ".yml"
}

// Convert reads job.Source and writes the converted document. With
// Overwrite off an existing destination is left untouched.
func Convert(job ConversionJob) (string, error) {
	log := logger.WithComponent("legacy-convert")

	dst := job.Destination
	if dst == "" {
		dst = DefaultDestination(job.Source)
	}

	src, err := os.ReadFile(job.Source)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", job.Source, err)
	}
	out, err := ConvertBytes(filepath.Base(job.Source), src)
	if err != nil {
		return "", err
	}
	// Refuse to emit something the current parser would reject.
	if _, err := config.ParseAgentConfig(out); err != nil {
		return "", fmt.Errorf("converted output failed validation: %w", err)
	}

	if job.Overwrite {
		err = writeReplace(dst, out)
	} else {
		err = writeExclusive(dst, out)
	}
	if err != nil {
		return "", err
	}

	log.Info().Str("source", job.Source).Str("destination", dst).Msg("Converted legacy configuration")
	return dst, nil
}

// ConvertBytes converts legacy INI content to YAML. name appears in the
// header comment only.
func ConvertBytes(name string, src []byte) ([]byte, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		AllowShadows:             true,
		SpaceBeforeInlineComment: true,
	}, src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseSource, err)
	}

	root := &yaml.Node{
		Kind:        yaml.MappingNode,
		HeadComment: fmt.Sprintf("Converted from %s", name),
	}

	for _, sec := range file.Sections() {
		if sec.Name() == ini.DefaultSection {
			if len(sec.Keys()) > 0 {
				return nil, fmt.Errorf("%w: key %q outside of any section", ErrParseSource, sec.Keys()[0].Name())
			}
			continue
		}
		root.Content = append(root.Content, strNode(sec.Name()), sectionNode(sec))
	}
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("%w: no sections found", ErrParseSource)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(4)
	if err := enc.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	return buf.Bytes(), nil
}

func sectionNode(sec *ini.Section) *yaml.Node {
	node := &yaml.Node{Kind: yaml.MappingNode}
	if !sec.HasKey("enabled") {
		node.Content = append(node.Content, strNode("enabled"), &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: "true"})
	}

	lists := listKeys[sec.Name()]
	for _, key := range sec.Keys() {
		values := key.ValueWithShadows()
		if lists[key.Name()] {
			var split []string
			for _, v := range values {
				split = append(split, strings.Fields(v)...)
			}
			values = split
			node.Content = append(node.Content, strNode(key.Name()), seqNode(values))
			continue
		}
		switch len(values) {
		case 0:
			node.Content = append(node.Content, strNode(key.Name()), strNode(""))
		case 1:
			node.Content = append(node.Content, strNode(key.Name()), scalarNode(values[0]))
		default:
			node.Content = append(node.Content, strNode(key.Name()), seqNode(values))
		}
	}
	return node
}

func seqNode(values []string) *yaml.Node {
	node := &yaml.Node{Kind: yaml.SequenceNode}
	for _, v := range values {
		node.Content = append(node.Content, scalarNode(v))
	}
	return node
}

func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

// scalarNode types a legacy value: yes/no and true/false become booleans,
// plain decimal integers become ints, everything else stays a string.
func scalarNode(v string) *yaml.Node {
	switch strings.ToLower(v) {
	case "yes", "true", "on":
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: "true"}
	case "no", "false", "off":
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: "false"}
	}
	if intPattern.MatchString(v) {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: v}
	}
	return strNode(v)
}

func writeExclusive(dst string, data []byte) error {
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("%w: %s", ErrDestinationExists, dst)
	}
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(dst)
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return nil
}

func writeReplace(dst string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("failed to replace %s: %w", dst, err)
	}
	return nil
}
