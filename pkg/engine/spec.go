package engine

import (
	"fmt"
	"sort"
	"strings"
)

// Kind classifies a field of an entity spec at the wire level.
type Kind string

const (
	// KindScalar is a plain value sent as-is.
	KindScalar Kind = "scalar"

	// KindEntity is a reference to another entity, sent as `<flat_name>` = id.
	KindEntity Kind = "entity"

	// KindEntityList is a list of entity references, sent as a sorted id list.
	KindEntityList Kind = "entity_list"

	// KindNestedList is a list of sub-entities owned by this entity,
	// reconciled by the caller rather than diffed automatically.
	KindNestedList Kind = "nested_list"

	// KindInvisible is settable by internal code but not exposed to callers.
	KindInvisible Kind = "invisible"
)

// Field is the author-facing descriptor for one logical field of a resource.
// Zero values mean "use the default"; the normalizer fills in derived flat
// names, resource types and resolution flags.
type Field struct {
	// Type is the declared field type: one of "str", "int", "bool", "list",
	// "dict", "entity", "entity_list", "nested_list" or "invisible".
	// An empty type means "str".
	Type string

	// FlatName overrides the wire-level key. Entity fields default to
	// "<name>_id", entity list fields to "<name>_ids", everything else to
	// the field name itself.
	FlatName string

	// ResourceType names the API resource collection a reference field
	// resolves against. Entity fields default to the pluralized field name;
	// entity list fields carry plural names already and default to the
	// field name itself.
	ResourceType string

	// Search is the search field used when resolving a string reference.
	// Defaults to "name"; hierarchical resources use "title".
	Search string

	// Aliases are alternative caller-facing names for this field.
	Aliases []string

	// Required marks the field as mandatory in the argument spec.
	Required bool

	// Default is the argument-spec default value.
	Default interface{}

	// Resolve controls whether string references are looked up. Nil means
	// the default: true for entity and entity_list fields.
	Resolve *bool

	// Ensure controls whether the field participates in the generic update
	// diff. Nil means the default: true, except for nested lists, which are
	// reconciled by the caller.
	Ensure *bool

	// Display keeps the full fetched record after resolution instead of the
	// thin id record, for fields that are also used for reporting.
	Display bool

	// Scope names the parent scope parameters that must be supplied when
	// resolving this field or calling its resource.
	Scope []string

	// Elements is the element type for "list" fields in the argument spec.
	Elements string

	// Spec is the nested field spec for nested_list fields.
	Spec map[string]Field
}

// FieldSpec is the canonical, fully-derived form of one field. All defaults
// are resolved; the rest of the engine only ever sees FieldSpecs.
type FieldSpec struct {
	// Name is the logical field name.
	Name string

	// FlatName is the wire-level key, unique within one EntitySpec.
	FlatName string

	// Kind is the wire-level classification.
	Kind Kind

	// Type is the scalar value type for the argument spec.
	Type string

	// ResourceType is the resource collection for reference kinds.
	ResourceType string

	// Search is the search field used to resolve string references.
	Search string

	Aliases  []string
	Required bool
	Default  interface{}

	// Resolve reports whether unresolved string values must be looked up.
	Resolve bool

	// Ensure reports whether absence of the field from the current entity
	// counts as a difference during update diffing.
	Ensure bool

	// Display keeps the full record on resolution.
	Display bool

	// Scope names the scope parameters required by this field's resource.
	Scope []string

	Elements string

	// Nested is the child entity spec for nested list fields.
	Nested *EntitySpec
}

// EntitySpec is an ordered mapping from logical field name to FieldSpec. It
// always includes an "id" field. Field order is deterministic (sorted by
// name) so that derived payloads and argument specs are stable.
type EntitySpec struct {
	fields []FieldSpec
	byName map[string]int
	byFlat map[string]int
}

// Fields returns the spec's fields in deterministic order.
func (s *EntitySpec) Fields() []FieldSpec {
	return s.fields
}

// Field looks up a field by its logical name.
func (s *EntitySpec) Field(name string) (FieldSpec, bool) {
	i, ok := s.byName[name]
	if !ok {
		return FieldSpec{}, false
	}
	return s.fields[i], true
}

// FieldByFlatName looks up a field by its wire-level key.
func (s *EntitySpec) FieldByFlatName(flat string) (FieldSpec, bool) {
	i, ok := s.byFlat[flat]
	if !ok {
		return FieldSpec{}, false
	}
	return s.fields[i], true
}

// Len returns the number of fields, including the implicit id field.
func (s *EntitySpec) Len() int {
	return len(s.fields)
}

// ArgumentSpec describes the caller-facing arguments derived from a field
// spec, for validation by the invoking layer. Invisible fields are excluded.
type ArgumentSpec map[string]Argument

// Argument is one caller-facing argument.
type Argument struct {
	// Type is the argument type ("str", "int", "bool", "list", "dict").
	Type string `json:"type"`

	// Elements is the element type for list arguments.
	Elements string `json:"elements,omitempty"`

	Required bool        `json:"required,omitempty"`
	Default  interface{} `json:"default,omitempty"`
	Aliases  []string    `json:"aliases,omitempty"`

	// Options is the nested argument spec for nested list arguments.
	Options ArgumentSpec `json:"options,omitempty"`
}

// scalarTypes are the argument-spec types accepted for plain fields.
var scalarTypes = map[string]bool{
	"str": true, "int": true, "bool": true, "float": true,
	"list": true, "dict": true, "path": true, "raw": true,
}

// NormalizeSpec expands an author-supplied field spec into the canonical
// EntitySpec used by the resolver and the reconciliation engine, plus the
// caller-facing argument spec. It is pure and idempotent: normalizing the
// author form of an already-canonical spec yields the same structure.
//
// Unknown field types and conflicting flat names are configuration errors,
// raised here before any network activity.
func NormalizeSpec(spec map[string]Field) (*EntitySpec, ArgumentSpec, error) {
	out := &EntitySpec{
		byName: make(map[string]int),
		byFlat: make(map[string]int),
	}
	args := make(ArgumentSpec)

	names := make([]string, 0, len(spec))
	for name := range spec {
		names = append(names, name)
	}
	sort.Strings(names)

	// The id field is always part of the wire spec but never caller-facing.
	if _, declared := spec["id"]; !declared {
		out.add(FieldSpec{Name: "id", FlatName: "id", Kind: KindScalar, Type: "int"})
	}

	for _, name := range names {
		field := spec[name]
		fs, arg, err := normalizeField(name, field)
		if err != nil {
			return nil, nil, err
		}
		if _, dup := out.byFlat[fs.FlatName]; dup {
			return nil, nil, NewConfigurationError(
				fmt.Sprintf("flat name %q of field %q conflicts with another field", fs.FlatName, name), nil).
				WithCode(ErrCodeDuplicateFlatName)
		}
		out.add(fs)
		if fs.Kind != KindInvisible && fs.Name != "id" {
			args[name] = arg
		}
	}

	return out, args, nil
}

// normalizeField derives the canonical FieldSpec and argument entry for one
// author-declared field.
func normalizeField(name string, field Field) (FieldSpec, Argument, error) {
	typ := field.Type
	if typ == "" {
		typ = "str"
	}

	fs := FieldSpec{
		Name:     name,
		FlatName: field.FlatName,
		Type:     typ,
		Aliases:  append([]string(nil), field.Aliases...),
		Required: field.Required,
		Default:  field.Default,
		Display:  field.Display,
		Scope:    append([]string(nil), field.Scope...),
		Elements: field.Elements,
		Search:   field.Search,
	}
	arg := Argument{
		Required: field.Required,
		Default:  field.Default,
		Aliases:  append([]string(nil), field.Aliases...),
	}

	switch {
	case typ == "entity":
		fs.Kind = KindEntity
		if fs.FlatName == "" {
			fs.FlatName = name + "_id"
		}
		fs.ResourceType = field.ResourceType
		if fs.ResourceType == "" {
			fs.ResourceType = Pluralize(name)
		}
		if fs.Search == "" {
			fs.Search = "name"
		}
		fs.Resolve = boolDefault(field.Resolve, true)
		fs.Ensure = boolDefault(field.Ensure, true)
		arg.Type = "str"

	case typ == "entity_list":
		fs.Kind = KindEntityList
		if fs.FlatName == "" {
			fs.FlatName = singularize(name) + "_ids"
		}
		fs.ResourceType = field.ResourceType
		if fs.ResourceType == "" {
			// List field names are already plural ("organizations",
			// "content_views"), so the name is the collection.
			fs.ResourceType = name
		}
		if fs.Search == "" {
			fs.Search = "name"
		}
		fs.Resolve = boolDefault(field.Resolve, true)
		fs.Ensure = boolDefault(field.Ensure, true)
		arg.Type = "list"
		arg.Elements = "str"

	case typ == "nested_list":
		fs.Kind = KindNestedList
		if fs.FlatName == "" {
			fs.FlatName = name
		}
		// Nested collections are reconciled by the caller, not diffed
		// item by item, unless explicitly requested.
		fs.Ensure = boolDefault(field.Ensure, false)
		nested, nestedArgs, err := NormalizeSpec(field.Spec)
		if err != nil {
			return FieldSpec{}, Argument{}, err
		}
		fs.Nested = nested
		arg.Type = "list"
		arg.Elements = "dict"
		arg.Options = nestedArgs

	case typ == "invisible":
		fs.Kind = KindInvisible
		if fs.FlatName == "" {
			fs.FlatName = name
		}
		fs.Ensure = boolDefault(field.Ensure, true)

	case scalarTypes[typ]:
		fs.Kind = KindScalar
		if fs.FlatName == "" {
			fs.FlatName = name
		}
		fs.Ensure = boolDefault(field.Ensure, true)
		arg.Type = typ
		arg.Elements = field.Elements

	default:
		return FieldSpec{}, Argument{}, NewConfigurationError(
			fmt.Sprintf("field %q has unknown type %q", name, typ), nil).
			WithCode(ErrCodeUnknownFieldType)
	}

	return fs, arg, nil
}

// add appends a field and indexes it by name and flat name.
func (s *EntitySpec) add(fs FieldSpec) {
	s.byName[fs.Name] = len(s.fields)
	s.byFlat[fs.FlatName] = len(s.fields)
	s.fields = append(s.fields, fs)
}

func boolDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// Pluralize derives the default resource collection name from a field name
// ("organization" -> "organizations", "host_group" -> "host_groups",
// "smart_proxy" -> "smart_proxies").
func Pluralize(name string) string {
	switch {
	case strings.HasSuffix(name, "y") && !hasVowelBefore(name, len(name)-1):
		return name[:len(name)-1] + "ies"
	case strings.HasSuffix(name, "s"), strings.HasSuffix(name, "x"),
		strings.HasSuffix(name, "z"), strings.HasSuffix(name, "ch"),
		strings.HasSuffix(name, "sh"):
		return name + "es"
	default:
		return name + "s"
	}
}

// singularize undoes Pluralize for deriving "<singular>_ids" flat names from
// plural list field names ("organizations" -> "organization", "repositories"
// -> "repository").
func singularize(name string) string {
	switch {
	case strings.HasSuffix(name, "ies"):
		return name[:len(name)-3] + "y"
	case strings.HasSuffix(name, "xes"), strings.HasSuffix(name, "zes"),
		strings.HasSuffix(name, "ches"), strings.HasSuffix(name, "shes"),
		strings.HasSuffix(name, "sses"):
		return name[:len(name)-2]
	case strings.HasSuffix(name, "s"):
		return name[:len(name)-1]
	default:
		return name
	}
}

// hasVowelBefore reports whether the rune before index i is a vowel.
func hasVowelBefore(s string, i int) bool {
	if i == 0 {
		return false
	}
	return strings.ContainsRune("aeiou", rune(s[i-1]))
}
