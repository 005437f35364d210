// Package modules holds the built-in per-resource definitions the CLI can
// reconcile. A definition is just a field spec plus the resource's custom
// verbs; all real logic lives in the engine.
package modules

import (
	"fmt"
	"sort"
	"sync"

	"github.com/foremanctl/foremanctl/pkg/engine"
)

// Definition describes one reconcilable resource type.
type Definition struct {
	// Resource is the API resource collection, e.g. "organizations".
	Resource string

	// Spec is the author-form field spec for the resource.
	Spec map[string]engine.Field

	// NameField is the field used to look up the current entity.
	// Defaults to "name".
	NameField string

	// Search is the lookup search field. Defaults to the name field.
	Search string

	// Verbs lists the custom actions the resource accepts besides the
	// native states.
	Verbs []string

	// ForceUpdate lists flat keys re-sent on every update even when
	// unchanged, for resources whose API drops them otherwise.
	ForceUpdate []string
}

// Registry maps manifest resource names to definitions.
type Registry struct {
	mu          sync.RWMutex
	definitions map[string]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{definitions: make(map[string]Definition)}
}

// Register adds a definition. Registering the same resource twice is a
// configuration mistake and fails.
func (r *Registry) Register(def Definition) error {
	if def.Resource == "" {
		return fmt.Errorf("definition has no resource name")
	}
	if def.NameField == "" {
		def.NameField = "name"
	}
	if def.Search == "" {
		def.Search = def.NameField
	}

	// Normalize eagerly so malformed specs fail at registration, not
	// against server data.
	if _, _, err := engine.NormalizeSpec(def.Spec); err != nil {
		return fmt.Errorf("definition %s: %w", def.Resource, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.definitions[def.Resource]; exists {
		return fmt.Errorf("definition %s already registered", def.Resource)
	}
	r.definitions[def.Resource] = def
	return nil
}

// Get returns the definition for a resource.
func (r *Registry) Get(resource string) (Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.definitions[resource]
	if !ok {
		return Definition{}, fmt.Errorf("no definition for resource %q", resource)
	}
	return def, nil
}

// Resources returns the registered resource names, sorted.
func (r *Registry) Resources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.definitions))
	for name := range r.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builtin returns a registry preloaded with the built-in definitions.
func Builtin() (*Registry, error) {
	r := NewRegistry()
	for _, def := range builtinDefinitions {
		if err := r.Register(def); err != nil {
			return nil, err
		}
	}
	return r, nil
}
