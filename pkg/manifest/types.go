// Package manifest loads the YAML desired-state documents the CLI reconciles.
// A manifest is an ordered list of entries, each naming a resource, a target
// state and the desired entity fields.
package manifest

import (
	"time"
)

// Manifest is one parsed desired-state document.
type Manifest struct {
	// Version is the manifest schema version. Currently always 1.
	Version int `yaml:"version" validate:"required,eq=1"`

	// Entries are the entities to reconcile, in order.
	Entries []Entry `yaml:"entries" validate:"required,min=1,dive"`
}

// Entry declares the desired state of one entity.
type Entry struct {
	// Resource is the resource type, e.g. "organizations".
	Resource string `yaml:"resource" validate:"required"`

	// State is the target state: present, present_with_defaults, absent,
	// or a custom verb the resource accepts.
	State string `yaml:"state" validate:"required"`

	// Scope holds parent-identifying parameters for nested resources.
	// Keys not ending in "_id" are treated as references and resolved by
	// name before reconciliation.
	Scope map[string]interface{} `yaml:"scope,omitempty"`

	// Entity is the desired entity, keyed by logical field name.
	Entity map[string]interface{} `yaml:"entity" validate:"required"`

	// Params is an extra payload for custom verbs.
	Params map[string]interface{} `yaml:"params,omitempty"`
}

// Source records where a manifest came from, for reporting.
type Source struct {
	// Path is the manifest file path.
	Path string `yaml:"-"`

	// LoadedAt is when the manifest was parsed.
	LoadedAt time.Time `yaml:"-"`
}
