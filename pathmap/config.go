package pathmap

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk form of a guest's filesystem view.
//
//	mapdirs:
//	  .: /srv/sandbox
//	  /etc: /srv/sandbox/etc
type Config struct {
	Mapdirs *Table `yaml:"mapdirs"`
}

// UnmarshalYAML decodes a mapping node into t, keeping document order.
func (t *Table) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: mapdirs must be a mapping", node.Line)
	}
	if t.dirs == nil {
		t.dirs = make(map[string]string)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		if k.Kind != yaml.ScalarNode || v.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: mapdirs entries must be scalars", k.Line)
		}
		if v.Value == "" {
			return fmt.Errorf("line %d: empty host directory for %q", v.Line, k.Value)
		}
		t.Set(k.Value, v.Value)
	}
	return nil
}

// MarshalYAML encodes t as a mapping in insertion order.
func (t *Table) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range t.keys {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: t.dirs[k]},
		)
	}
	return node, nil
}

// LoadYAML decodes a Config from r.
func LoadYAML(r io.Reader) (*Config, error) {
	cfg := &Config{Mapdirs: NewTable()}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode path config: %w", err)
	}
	return cfg, nil
}

// LoadFile decodes a Config from the YAML file at path.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadYAML(f)
}
