package provisions

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"wmoned/internal/registry"
)

// rulesFile is the YAML layout of a rules file. Omitted keys keep their
// default values.
type rulesFile struct {
	AcceptedOutcomes    []string            `yaml:"accepted_outcomes"`
	DeliverableProducts map[string][]string `yaml:"deliverable_products"`
	DocumentsFrom       string              `yaml:"documents_from"`
	DocumentURLPrefix   string              `yaml:"document_url_prefix"`
}

// LoadRules reads a rules file. An empty path yields DefaultRules.
func LoadRules(path string) (Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 - path comes from deployment config
	if err != nil {
		return Rules{}, fmt.Errorf("failed to read rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules parses YAML rules on top of DefaultRules.
func ParseRules(data []byte) (Rules, error) {
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Rules{}, fmt.Errorf("failed to parse rules file: %w", err)
	}

	accepted := f.AcceptedOutcomes
	if accepted == nil {
		accepted = defaultAcceptedOutcomes
	}
	deliverable := f.DeliverableProducts
	if deliverable == nil {
		deliverable = defaultDeliverableProducts
	}

	defaults := DefaultRules()
	r := NewRules(accepted, deliverable)
	r.DocumentsFrom = defaults.DocumentsFrom
	if f.DocumentsFrom != "" {
		d, err := registry.ParseDate(f.DocumentsFrom)
		if err != nil {
			return Rules{}, fmt.Errorf("documents_from: %w", err)
		}
		r.DocumentsFrom = d
	}
	if f.DocumentURLPrefix != "" {
		r.DocumentURLPrefix = f.DocumentURLPrefix
	}
	return r, nil
}
