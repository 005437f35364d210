package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Resolver replaces name and title references inside a desired entity with
// records retrieved through the API client, respecting parent scope. A failed
// lookup aborts the whole invocation: an entity is either fully resolved or
// the operation fails before any mutating call is issued.
type Resolver struct {
	client Client
	logger zerolog.Logger
}

// NewResolver creates a resolver bound to an API client.
func NewResolver(client Client) *Resolver {
	return &Resolver{
		client: client,
		logger: zerolog.Nop(),
	}
}

// WithLogger returns a copy of the resolver that logs lookups through the
// given logger.
func (r *Resolver) WithLogger(logger zerolog.Logger) *Resolver {
	return &Resolver{client: r.client, logger: logger}
}

// Resolve walks the spec's reference fields and substitutes resolved records
// for string values, mutating the entity in place. Fields whose spec disables
// resolution are skipped, as are values that already carry an id. List
// elements resolve independently, preserving input order; the flattener sorts
// ids later for wire comparison.
func (r *Resolver) Resolve(ctx context.Context, entity Entity, spec *EntitySpec, scope Scope) error {
	for _, fs := range spec.Fields() {
		if fs.Kind != KindEntity && fs.Kind != KindEntityList {
			continue
		}
		if !fs.Resolve {
			continue
		}
		value, present := entity[fs.Name]
		if !present || value == nil {
			continue
		}

		fieldScope, err := r.fieldScope(fs, scope)
		if err != nil {
			return err
		}

		switch fs.Kind {
		case KindEntity:
			resolved, err := r.resolveValue(ctx, fs, value, fieldScope)
			if err != nil {
				return err
			}
			entity[fs.Name] = resolved
		case KindEntityList:
			items, ok := anySlice(value)
			if !ok {
				return NewResolutionError(
					fmt.Sprintf("field %q expects a list of references", fs.Name), nil).
					WithResource(fs.ResourceType)
			}
			resolved := make([]interface{}, len(items))
			for i, item := range items {
				rec, err := r.resolveValue(ctx, fs, item, fieldScope)
				if err != nil {
					return err
				}
				resolved[i] = rec
			}
			entity[fs.Name] = resolved
		}
	}
	return nil
}

// resolveValue resolves one reference value. Already-resolved records pass
// through unchanged.
func (r *Resolver) resolveValue(ctx context.Context, fs FieldSpec, value interface{}, scope Scope) (interface{}, error) {
	if rec, ok := asRecord(value); ok {
		if _, ok := rec.ID(); ok {
			return value, nil
		}
		return nil, NewResolutionError(
			fmt.Sprintf("field %q holds a record without an id", fs.Name), nil).
			WithResource(fs.ResourceType)
	}

	name, ok := value.(string)
	if !ok {
		return nil, NewResolutionError(
			fmt.Sprintf("field %q holds neither a name nor a resolved record", fs.Name), nil).
			WithResource(fs.ResourceType)
	}

	rec, err := r.findOne(ctx, fs.ResourceType, fs.Search, name, scope, false)
	if err != nil {
		return nil, err
	}

	r.logger.Debug().
		Str("resource", fs.ResourceType).
		Str("name", name).
		Msg("resolved reference")

	if fs.Display {
		id, _ := rec.ID()
		full, err := r.client.Show(ctx, fs.ResourceType, id, scope)
		if err != nil {
			return nil, NewResolutionError(
				fmt.Sprintf("failed to fetch %s %q", fs.ResourceType, name), err).
				WithResource(fs.ResourceType).WithOperation("show")
		}
		return full, nil
	}

	// Thin record: id plus the searched value, enough for flattening and
	// user-facing reporting.
	thin := Record{fs.Search: name}
	thin["id"], _ = rec.ID()
	return thin, nil
}

// fieldScope narrows the caller scope down to the parameters the field's
// resource declares, verifying the invariant that every declared scope key is
// supplied.
func (r *Resolver) fieldScope(fs FieldSpec, scope Scope) (Scope, error) {
	if len(fs.Scope) == 0 {
		return scope, nil
	}
	sub, missing := scope.Subset(fs.Scope)
	if len(missing) > 0 {
		return nil, NewResolutionError(
			fmt.Sprintf("field %q requires scope parameters %v", fs.Name, missing), nil).
			WithResource(fs.ResourceType).
			WithCode(ErrCodeMissingScope)
	}
	return sub, nil
}

// FindResource looks up one record by name. With failsafe set, a missing
// record yields a nil record instead of an error; an ambiguous lookup is an
// error either way.
func (r *Resolver) FindResource(ctx context.Context, resource, name string, scope Scope, failsafe bool) (Record, error) {
	return r.findOne(ctx, resource, "name", name, scope, failsafe)
}

// FindResourceByTitle looks up one record by title, for hierarchical
// resources whose names are not unique across the tree.
func (r *Resolver) FindResourceByTitle(ctx context.Context, resource, title string, scope Scope, failsafe bool) (Record, error) {
	return r.findOne(ctx, resource, "title", title, scope, failsafe)
}

// FindResourceBy looks up one record by an arbitrary search field, for
// resources keyed by something other than name or title.
func (r *Resolver) FindResourceBy(ctx context.Context, resource, field, value string, scope Scope, failsafe bool) (Record, error) {
	return r.findOne(ctx, resource, field, value, scope, failsafe)
}

// ShowResource fetches the full record by id. Index search results omit
// fields, so reconciliation diffs must run against the show representation,
// not the thin record a search returns.
func (r *Resolver) ShowResource(ctx context.Context, resource string, id int, scope Scope) (Record, error) {
	rec, err := r.client.Show(ctx, resource, id, scope)
	if err != nil {
		return nil, NewRemoteError(
			fmt.Sprintf("failed to fetch %s %d", resource, id), err).
			WithResource(resource).WithOperation("show")
	}
	return rec, nil
}

// FindResources looks up several records by name in one pass. Any missing or
// ambiguous name fails the whole call.
func (r *Resolver) FindResources(ctx context.Context, resource string, names []string, scope Scope) ([]Record, error) {
	records := make([]Record, 0, len(names))
	for _, name := range names {
		rec, err := r.findOne(ctx, resource, "name", name, scope, false)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// findOne performs one scoped search and enforces the exactly-one invariant.
func (r *Resolver) findOne(ctx context.Context, resource, field, value string, scope Scope, failsafe bool) (Record, error) {
	search := fmt.Sprintf(`%s="%s"`, field, escapeSearch(value))
	results, err := r.client.List(ctx, resource, search, scope)
	if err != nil {
		return nil, NewRemoteError(
			fmt.Sprintf("search for %s %q failed", resource, value), err).
			WithResource(resource).WithOperation("list").
			WithDetail("search", search)
	}
	switch len(results) {
	case 0:
		if failsafe {
			return nil, nil
		}
		return nil, NewResolutionError(
			fmt.Sprintf("no %s found matching %s", resource, search), nil).
			WithResource(resource).
			WithCode(ErrCodeNotFound).
			WithDetail("search", search)
	case 1:
		return results[0], nil
	default:
		return nil, NewResolutionError(
			fmt.Sprintf("found %d %s matching %s, expected exactly one", len(results), resource, search), nil).
			WithResource(resource).
			WithCode(ErrCodeAmbiguous).
			WithDetail("search", search)
	}
}

// escapeSearch escapes quotes in a search value so user input cannot break
// out of the quoted search term.
func escapeSearch(value string) string {
	return strings.ReplaceAll(value, `"`, `\"`)
}
