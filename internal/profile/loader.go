// Package profile parses and validates YAML profile documents. Loading and
// validation are separate passes: Load only checks document structure, while
// Validate resolves every task against a schema registry. All errors raised
// here are fatal authoring errors, detected before any task executes.
package profile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dataprof/dataprof/internal/models"
)

// DefaultName is used when a profile omits the name field.
const DefaultName = "UnnamedProfile"

// Load parses a raw profile document. Structural deviations (top level not a
// mapping, tasks not a sequence, task entry not a mapping, non-numeric
// timeout) fail with MalformedProfile.
func Load(data []byte) (*models.Profile, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, malformed(fmt.Sprintf("parsing YAML: %s", err))
	}

	if len(root.Content) == 0 {
		return nil, malformed("document is empty")
	}
	if root.Content[0].Kind != yaml.MappingNode {
		return nil, malformed("top-level content must be a mapping")
	}

	var p models.Profile
	if err := root.Decode(&p); err != nil {
		return nil, malformed(fmt.Sprintf("decoding profile: %s", err))
	}

	if p.Name == "" {
		p.Name = DefaultName
	}
	return &p, nil
}

// LoadFile reads and parses a profile document from disk.
func LoadFile(path string) (*models.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}
	return Load(data)
}

func malformed(detail string) error {
	return &models.ValidationError{
		Kind:      models.ErrMalformedProfile,
		TaskIndex: -1,
		Detail:    detail,
	}
}
