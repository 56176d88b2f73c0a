package app

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Manifest lists the micro-apps the host shell serves.
type Manifest struct {
	Apps []Entry `yaml:"apps"`
}

// Entry describes one micro-app: its unique name and the path of its
// JavaScript entry file.
type Entry struct {
	Name  string `yaml:"name"`
	Entry string `yaml:"entry"`
}

// LoadManifest reads and validates a YAML manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	seen := make(map[string]struct{})
	for i, entry := range m.Apps {
		if entry.Name == "" {
			return nil, fmt.Errorf("manifest entry %d: name is required", i)
		}
		if entry.Entry == "" {
			return nil, fmt.Errorf("manifest entry %q: entry is required", entry.Name)
		}
		if _, dup := seen[entry.Name]; dup {
			return nil, fmt.Errorf("manifest entry %q: duplicate name", entry.Name)
		}
		seen[entry.Name] = struct{}{}
	}
	return &m, nil
}
