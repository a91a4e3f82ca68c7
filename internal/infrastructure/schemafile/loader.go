// Package schemafile registers score fields declared in a YAML file.
package schemafile

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/answer-evidence/internal/core/scoring"
)

type fileFormat struct {
	Fields []struct {
		Name    string  `yaml:"name"`
		Default float64 `yaml:"default"`
		Merge   string  `yaml:"merge"`
	} `yaml:"fields"`
}

// Parse decodes field entries. Merge defaults to "mean" when omitted.
func Parse(data []byte) ([]scoring.Entry, error) {
	var f fileFormat
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode schema yaml: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Fields))
	out := make([]scoring.Entry, 0, len(f.Fields))
	for i, field := range f.Fields {
		name := strings.TrimSpace(field.Name)
		if name == "" {
			return nil, fmt.Errorf("schema field %d: name is required", i)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("schema field %q declared twice", name)
		}
		seen[name] = struct{}{}

		merge := field.Merge
		if strings.TrimSpace(merge) == "" {
			merge = "mean"
		}
		strategy, err := scoring.ParseMergeStrategy(merge)
		if err != nil {
			return nil, fmt.Errorf("schema field %q: %w", name, err)
		}
		out = append(out, scoring.Entry{Name: name, Default: field.Default, Strategy: strategy})
	}
	return out, nil
}

// Load registers every field in path. An empty path is a no-op.
func Load(path string, registry *scoring.Registry) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read schema file: %w", err)
	}
	entries, err := Parse(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	for _, e := range entries {
		registry.Register(e.Name, e.Default, e.Strategy)
	}
	return nil
}
