package edgetype

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the YAML layout accepted by LoadFile.
//
//	types:
//	  - name: follower_of
//	    read_as: Follower of
//	    inverse: followed_by
type File struct {
	Types []EdgeType `yaml:"types"`
}

// LoadFile reads edge type definitions from a YAML file and returns a sealed registry.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading edge types file: %w", err)
	}
	return Parse(data)
}

// Parse builds a sealed registry from YAML bytes.
func Parse(data []byte) (*Registry, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing edge types file: %w", err)
	}

	r := NewRegistry()
	for _, t := range f.Types {
		if _, err := r.Register(t.Name, t.ReadAs); err != nil {
			return nil, err
		}
	}
	for _, t := range f.Types {
		if t.Inverse == "" {
			continue
		}
		if err := r.Associate(t.Name, t.Inverse); err != nil {
			return nil, err
		}
	}
	if err := r.Seal(); err != nil {
		return nil, err
	}
	return r, nil
}
