package manifest

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Loader parses and validates manifest documents.
type Loader struct {
	validator *validator.Validate
}

// NewLoader creates a manifest loader.
func NewLoader() *Loader {
	return &Loader{validator: validator.New()}
}

// Load reads and parses a manifest file.
func (l *Loader) Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	m, err := l.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// Parse parses a manifest document and validates its structure. Field-level
// validation against the resource's argument spec happens later, once the
// resource definition is known.
func (l *Loader) Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := l.validator.Struct(&m); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &m, nil
}
