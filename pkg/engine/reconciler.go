package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
)

// Engine drives one entity from its current state to the state implied by the
// desired entity and the requested state value, issuing at most the necessary
// API calls.
//
// The dry-run capability is fixed at construction: a dry-run engine is
// guaranteed to issue zero mutating calls while still exercising the full
// diff path, so the reported Changed flag matches what a real run would do.
type Engine struct {
	client Client
	dryRun bool
	logger zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithDryRun makes the engine compute but never apply changes.
func WithDryRun(dryRun bool) Option {
	return func(e *Engine) {
		e.dryRun = dryRun
	}
}

// WithLogger sets the engine's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates a reconciliation engine bound to an API client.
func New(client Client, opts ...Option) *Engine {
	e := &Engine{
		client: client,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DryRun reports whether the engine is in dry-run mode.
func (e *Engine) DryRun() bool {
	return e.dryRun
}

// Request describes one reconciliation: a resource, a fully-resolved desired
// entity, the current record (nil when the entity does not exist), and the
// requested state.
type Request struct {
	// Resource is the API resource collection, e.g. "organizations".
	Resource string

	// Desired is the resolved desired entity. Unused for state "absent".
	Desired Entity

	// Current is the current record, or nil if no matching entity exists.
	Current Record

	// State is one of the native states or a custom verb named in Verbs.
	State string

	// Spec is the canonical entity spec for the resource.
	Spec *EntitySpec

	// Scope carries the parent-identifying parameters for nested resources.
	Scope Scope

	// Verbs lists the custom action names this resource accepts. A State
	// value outside the native states must appear here.
	Verbs []string

	// Params is an extra payload sent with a custom verb.
	Params Record

	// ForceUpdate lists flat keys that are re-sent on update even when they
	// do not differ. It layers resource-specific forcing rules on top of
	// the generic diff without changing it.
	ForceUpdate []string
}

// Reconcile executes one reconciliation request and reports whether anything
// changed. API client failures are surfaced as remote errors carrying the
// action and resource type; nothing is retried or rolled back.
func (e *Engine) Reconcile(ctx context.Context, req Request) (*Result, error) {
	if req.Spec == nil {
		return nil, NewConfigurationError("reconcile request has no entity spec", nil).
			WithResource(req.Resource)
	}

	switch req.State {
	case StatePresent:
		if req.Current == nil {
			return e.create(ctx, req)
		}
		return e.update(ctx, req)
	case StatePresentWithDefaults:
		if req.Current == nil {
			return e.create(ctx, req)
		}
		// The entity exists; defaults-only reconciliation never diffs.
		return &Result{Changed: false, Entity: req.Current, Operation: OperationNone}, nil
	case StateAbsent:
		return e.delete(ctx, req)
	default:
		for _, verb := range req.Verbs {
			if verb == req.State {
				return e.callVerb(ctx, req)
			}
		}
		return nil, NewStateError(
			fmt.Sprintf("unsupported state %q", req.State), nil).
			WithResource(req.Resource).
			WithCode(ErrCodeUnsupportedState)
	}
}

// create issues the resource's create call with the flattened desired entity.
func (e *Engine) create(ctx context.Context, req Request) (*Result, error) {
	payload := Flatten(req.Desired, req.Spec)

	if e.dryRun {
		// Synthesize the record a real create would return. The sentinel
		// id marks an entity that does not exist yet.
		fake := make(Record, len(req.Desired)+1)
		for k, v := range req.Desired {
			fake[k] = v
		}
		fake["id"] = DryRunID
		e.logger.Info().Str("resource", req.Resource).Msg("would create entity")
		return &Result{Changed: true, Entity: fake, Operation: OperationCreate}, nil
	}

	created, err := e.client.Create(ctx, req.Resource, payload, req.Scope)
	if err != nil {
		return nil, NewRemoteError("create failed", err).
			WithResource(req.Resource).
			WithOperation("create").
			WithCode(ErrCodeRemoteCall)
	}
	e.logger.Info().Str("resource", req.Resource).Msg("created entity")
	return &Result{Changed: true, Entity: created, Operation: OperationCreate}, nil
}

// update diffs the flattened desired entity against the flattened current
// record and sends only the keys that differ, plus the id. Sending the
// minimal payload avoids touching fields the caller did not declare and
// avoids failing on read-only fields present in the current record.
func (e *Engine) update(ctx context.Context, req Request) (*Result, error) {
	desired := Flatten(req.Desired, req.Spec)
	current := Flatten(Entity(req.Current), req.Spec)

	changed := e.diff(desired, current, req)
	if len(changed) == 0 {
		return &Result{Changed: false, Entity: req.Current, Operation: OperationNone}, nil
	}

	payload := make(Record, len(changed)+1)
	for _, key := range changed {
		payload[key] = desired[key]
	}
	id, ok := req.Current.ID()
	if !ok {
		return nil, NewStateError("current entity has no id", nil).
			WithResource(req.Resource)
	}
	payload["id"] = id

	if e.dryRun {
		merged := copyRecord(req.Current)
		for k, v := range payload {
			merged[k] = v
		}
		merged["id"] = req.Current["id"]
		e.logger.Info().
			Str("resource", req.Resource).
			Strs("fields", changed).
			Msg("would update entity")
		return &Result{Changed: true, Entity: merged, Operation: OperationUpdate, Diff: changed}, nil
	}

	updated, err := e.client.Update(ctx, req.Resource, payload, req.Scope)
	if err != nil {
		return nil, NewRemoteError("update failed", err).
			WithResource(req.Resource).
			WithOperation("update").
			WithCode(ErrCodeRemoteCall)
	}
	e.logger.Info().
		Str("resource", req.Resource).
		Strs("fields", changed).
		Msg("updated entity")
	return &Result{Changed: true, Entity: updated, Operation: OperationUpdate, Diff: changed}, nil
}

// diff returns the sorted flat keys whose desired value differs from the
// current value. Reference lists compare as id sets; everything else compares
// by wire value. A key absent from the current record counts as a difference
// only for fields with ensure semantics, where explicit nulls matter. Keys
// listed in ForceUpdate are always included.
func (e *Engine) diff(desired, current Record, req Request) []string {
	force := make(map[string]bool, len(req.ForceUpdate))
	for _, key := range req.ForceUpdate {
		force[key] = true
	}

	var changed []string
	for key, want := range desired {
		if key == "id" {
			continue
		}
		fs, known := req.Spec.FieldByFlatName(key)
		if known && !fs.Ensure && !force[key] {
			continue
		}
		got, present := current[key]
		if !present {
			// Fall back to the raw record for wire keys the server
			// reports flat rather than nested.
			got, present = req.Current[key]
		}
		if !present {
			if !known || fs.Ensure || force[key] {
				changed = append(changed, key)
			}
			continue
		}
		equal := false
		if known && fs.Kind == KindEntityList {
			equal = idSetsEqual(want, got)
		} else {
			equal = valuesEqual(want, got)
		}
		if !equal || force[key] {
			changed = append(changed, key)
		}
	}

	sort.Strings(changed)
	return changed
}

// delete removes the entity if it exists; deleting an absent entity is a
// no-op.
func (e *Engine) delete(ctx context.Context, req Request) (*Result, error) {
	if req.Current == nil {
		return &Result{Changed: false, Entity: nil, Operation: OperationNone}, nil
	}
	id, ok := req.Current.ID()
	if !ok {
		return nil, NewStateError("current entity has no id", nil).
			WithResource(req.Resource)
	}

	if e.dryRun {
		e.logger.Info().Str("resource", req.Resource).Int("id", id).Msg("would delete entity")
		return &Result{Changed: true, Entity: nil, Operation: OperationDelete}, nil
	}

	if err := e.client.Delete(ctx, req.Resource, id, req.Scope); err != nil {
		return nil, NewRemoteError("delete failed", err).
			WithResource(req.Resource).
			WithOperation("delete").
			WithCode(ErrCodeRemoteCall)
	}
	e.logger.Info().Str("resource", req.Resource).Int("id", id).Msg("deleted entity")
	return &Result{Changed: true, Entity: nil, Operation: OperationDelete}, nil
}

// callVerb issues a single named action against the existing entity. Verbs
// are assumed to always have an effect; there is no generic way to know their
// idempotence.
func (e *Engine) callVerb(ctx context.Context, req Request) (*Result, error) {
	if req.Current == nil {
		return nil, NewStateError(
			fmt.Sprintf("cannot %s a nonexistent %s", req.State, req.Resource), nil).
			WithResource(req.Resource).
			WithOperation(req.State).
			WithCode(ErrCodeMissingEntity)
	}
	id, ok := req.Current.ID()
	if !ok {
		return nil, NewStateError("current entity has no id", nil).
			WithResource(req.Resource)
	}

	if e.dryRun {
		e.logger.Info().
			Str("resource", req.Resource).
			Str("action", req.State).
			Int("id", id).
			Msg("would invoke action")
		return &Result{Changed: true, Entity: req.Current, Operation: OperationAction}, nil
	}

	payload := make(Record, len(req.Params)+len(req.Scope)+1)
	for k, v := range req.Scope {
		payload[k] = v
	}
	for k, v := range req.Params {
		payload[k] = v
	}
	payload["id"] = id

	resp, err := e.client.CallAction(ctx, req.Resource, req.State, payload)
	if err != nil {
		return nil, NewRemoteError(fmt.Sprintf("action %s failed", req.State), err).
			WithResource(req.Resource).
			WithOperation(req.State).
			WithCode(ErrCodeRemoteCall)
	}
	entity := req.Current
	if resp != nil {
		entity = resp
	}
	e.logger.Info().
		Str("resource", req.Resource).
		Str("action", req.State).
		Int("id", id).
		Msg("invoked action")
	return &Result{Changed: true, Entity: entity, Operation: OperationAction}, nil
}
