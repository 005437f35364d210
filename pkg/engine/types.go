package engine

// Record is a server-side record as returned by the API client. Records are
// treated as read-only snapshots; the engine diffs against them but never
// mutates them.
type Record map[string]interface{}

// Entity is a desired-entity description keyed by logical field name.
// Reference fields may hold either an unresolved identifier (a name or title
// string) or an already-resolved Record containing at least an id.
type Entity map[string]interface{}

// Scope is a mapping of parent-identifying query/path parameters (for example
// {"organization_id": 4}) threaded through resolution and API calls for
// resources nested under a parent.
type Scope map[string]interface{}

// ID returns the record's id as an int. JSON decoding turns numbers into
// float64, so both numeric representations are accepted.
func (r Record) ID() (int, bool) {
	return intValue(r["id"])
}

// Name returns the record's name field, if present.
func (r Record) Name() (string, bool) {
	s, ok := r["name"].(string)
	return s, ok
}

// intValue coerces a wire-level numeric value into an int.
func intValue(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case float32:
		return int(n), true
	default:
		return 0, false
	}
}

// Merged returns a copy of the scope with the given extra parameters applied.
// A nil receiver yields a scope containing only the extras.
func (s Scope) Merged(extra Scope) Scope {
	out := make(Scope, len(s)+len(extra))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// Subset returns the scope restricted to the given keys. Keys absent from the
// scope are reported in the second return value.
func (s Scope) Subset(keys []string) (Scope, []string) {
	out := make(Scope, len(keys))
	var missing []string
	for _, k := range keys {
		if v, ok := s[k]; ok {
			out[k] = v
		} else {
			missing = append(missing, k)
		}
	}
	return out, missing
}

// Operation is the kind of remote mutation a reconciliation decided on.
type Operation string

const (
	// OperationNone indicates the entity already matched the desired state.
	OperationNone Operation = "none"

	// OperationCreate indicates the entity was (or would be) created.
	OperationCreate Operation = "create"

	// OperationUpdate indicates the entity was (or would be) updated.
	OperationUpdate Operation = "update"

	// OperationDelete indicates the entity was (or would be) deleted.
	OperationDelete Operation = "delete"

	// OperationAction indicates a custom verb was (or would be) invoked.
	OperationAction Operation = "action"
)

// States understood natively by the reconciliation engine. Any other state
// value is treated as a custom verb and must be declared in Request.Verbs.
const (
	// StatePresent ensures the entity exists and matches the desired entity.
	StatePresent = "present"

	// StatePresentWithDefaults ensures the entity exists but leaves an
	// existing entity untouched regardless of field differences.
	StatePresentWithDefaults = "present_with_defaults"

	// StateAbsent ensures the entity does not exist.
	StateAbsent = "absent"
)

// DryRunID is the sentinel id assigned to records synthesized for entities
// that would be created during a dry run.
const DryRunID = -1

// Result is the outcome of one reconciliation call. Entity is nil after a
// successful delete.
type Result struct {
	// Changed reports whether the reconciliation mutated (or, in dry-run
	// mode, would have mutated) the remote entity.
	Changed bool `json:"changed"`

	// Entity is the resulting entity record, or nil after a delete.
	Entity Record `json:"entity,omitempty"`

	// Operation is the mutation the engine decided on.
	Operation Operation `json:"operation"`

	// Diff lists the flat keys that differed, for update operations.
	Diff []string `json:"diff,omitempty"`
}
