package engine

import (
	"reflect"
	"sort"
)

// Flatten converts an entity containing resolved nested records into the flat
// wire-level record the API expects. Entity references become their id under
// the field's flat name; reference lists become sorted id lists so that diffs
// are deterministic regardless of API ordering; everything else is passed
// through unchanged. Fields holding nil are omitted, not sent as null.
//
// Flatten is pure: it never touches the network and never mutates its input,
// so the same function canonicalizes both desired and current entities before
// comparison.
func Flatten(entity Entity, spec *EntitySpec) Record {
	out := make(Record)
	for _, fs := range spec.Fields() {
		value, present := entity[fs.Name]
		if !present || value == nil {
			continue
		}
		switch fs.Kind {
		case KindEntity:
			if rec, ok := asRecord(value); ok {
				if id, ok := rec.ID(); ok {
					out[fs.FlatName] = id
				}
				continue
			}
			out[fs.FlatName] = value
		case KindEntityList:
			if ids, ok := idList(value); ok {
				out[fs.FlatName] = ids
				continue
			}
			out[fs.FlatName] = value
		default:
			out[fs.FlatName] = value
		}
	}
	return out
}

// asRecord coerces the map shapes a resolved reference can arrive in.
func asRecord(v interface{}) (Record, bool) {
	switch m := v.(type) {
	case Record:
		return m, true
	case Entity:
		return Record(m), true
	case map[string]interface{}:
		return Record(m), true
	default:
		return nil, false
	}
}

// idList extracts the sorted id list from a slice of resolved references.
func idList(v interface{}) ([]int, bool) {
	items, ok := anySlice(v)
	if !ok {
		return nil, false
	}
	ids := make([]int, 0, len(items))
	for _, item := range items {
		rec, ok := asRecord(item)
		if !ok {
			return nil, false
		}
		id, ok := rec.ID()
		if !ok {
			return nil, false
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, true
}

// anySlice coerces the slice shapes a wire value can arrive in.
func anySlice(v interface{}) ([]interface{}, bool) {
	switch s := v.(type) {
	case []interface{}:
		return s, true
	case []Record:
		out := make([]interface{}, len(s))
		for i, r := range s {
			out[i] = r
		}
		return out, true
	case []Entity:
		out := make([]interface{}, len(s))
		for i, r := range s {
			out[i] = r
		}
		return out, true
	case []map[string]interface{}:
		out := make([]interface{}, len(s))
		for i, r := range s {
			out[i] = r
		}
		return out, true
	default:
		return nil, false
	}
}

// valuesEqual compares two flattened wire values. Numbers are compared by
// value rather than by Go type, since the JSON wire protocol delivers every
// number as float64 while locally-built payloads carry ints. Scalar lists
// compare element-wise in order; maps compare key-wise.
func valuesEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if na, ok := floatValue(a); ok {
		nb, ok := floatValue(b)
		return ok && na == nb
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Kind() == reflect.Slice || rb.Kind() == reflect.Slice {
		if ra.Kind() != reflect.Slice || rb.Kind() != reflect.Slice || ra.Len() != rb.Len() {
			return false
		}
		for i := 0; i < ra.Len(); i++ {
			if !valuesEqual(ra.Index(i).Interface(), rb.Index(i).Interface()) {
				return false
			}
		}
		return true
	}
	if ma, ok := asRecord(a); ok {
		mb, ok := asRecord(b)
		if !ok || len(ma) != len(mb) {
			return false
		}
		for k, va := range ma {
			vb, present := mb[k]
			if !present || !valuesEqual(va, vb) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

// idSetsEqual compares two reference-list values as sets of ids, so that
// ordering differences between the server and the caller never register as
// drift.
func idSetsEqual(a, b interface{}) bool {
	ia, ok := coerceIDs(a)
	if !ok {
		return valuesEqual(a, b)
	}
	ib, ok := coerceIDs(b)
	if !ok {
		return valuesEqual(a, b)
	}
	if len(ia) != len(ib) {
		return false
	}
	sort.Ints(ia)
	sort.Ints(ib)
	for i := range ia {
		if ia[i] != ib[i] {
			return false
		}
	}
	return true
}

// coerceIDs accepts either a flat id list or a list of records and returns
// the contained ids.
func coerceIDs(v interface{}) ([]int, bool) {
	if ids, ok := intSlice(v); ok {
		return append([]int(nil), ids...), true
	}
	items, ok := anySlice(v)
	if !ok {
		return nil, false
	}
	ids := make([]int, 0, len(items))
	for _, item := range items {
		if id, ok := intValue(item); ok {
			ids = append(ids, id)
			continue
		}
		rec, ok := asRecord(item)
		if !ok {
			return nil, false
		}
		id, ok := rec.ID()
		if !ok {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

// intSlice coerces []int values produced by Flatten.
func intSlice(v interface{}) ([]int, bool) {
	s, ok := v.([]int)
	return s, ok
}

// copyRecord returns a shallow copy of a record.
func copyRecord(r Record) Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func floatValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
