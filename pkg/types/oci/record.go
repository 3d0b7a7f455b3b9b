package ocitypes

import (
	"fmt"
	"sort"

	ocierrors "github.com/praetorian-inc/ocigraph/pkg/oci/errors"
)

// Record is one normalized OCI resource keyed by wire-format (hyphenated) names,
// e.g. "display-name", "time-created", "compartment-id".
type Record map[string]any

const (
	KeyID            = "id"
	KeyCompartmentID = "compartment-id"
	KeyDisplayName   = "display-name"
	KeyName          = "name"
	KeyTimeCreated   = "time-created"
	KeyDefinedTags   = "defined-tags"
	KeyFreeformTags  = "freeform-tags"
)

// ID returns the resource OCID.
func (r Record) ID() (string, error) {
	return r.RequiredString(KeyID)
}

// CompartmentID returns the owning compartment OCID.
func (r Record) CompartmentID() (string, error) {
	return r.RequiredString(KeyCompartmentID)
}

// RequiredString returns a non-empty string value or a malformed-record error.
func (r Record) RequiredString(key string) (string, error) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", ocierrors.Missing(r.ref(), key)
	}
	s, ok := v.(string)
	if !ok {
		return "", ocierrors.WrongType(r.ref(), key, v)
	}
	if s == "" {
		return "", ocierrors.Missing(r.ref(), key)
	}
	return s, nil
}

// String returns the string at key, or "" when it is absent or not a string.
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Map returns the nested mapping at key.
func (r Record) Map(key string) map[string]any {
	m, _ := r[key].(map[string]any)
	return m
}

// Strings returns a list of strings at key. Non-string elements are formatted.
func (r Record) Strings(key string) []string {
	switch v := r[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			} else if e != nil {
				out = append(out, fmt.Sprint(e))
			}
		}
		return out
	}
	return nil
}

// Scalar returns the value at key if it can be stored as a graph property:
// strings, numbers, booleans and flat lists of one of those. Nested mappings and
// mixed-type lists are dropped.
func (r Record) Scalar(key string) (any, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return nil, false
	}
	switch t := v.(type) {
	case string, bool, float64, float32, int, int32, int64:
		return t, true
	case []any:
		// graph list properties hold a single element type
		flat := make([]any, 0, len(t))
		first := ""
		for _, e := range t {
			kind := scalarKind(e)
			if kind == "" || (first != "" && kind != first) {
				return nil, false
			}
			first = kind
			flat = append(flat, e)
		}
		return flat, true
	case []string:
		return t, true
	}
	return nil, false
}

func scalarKind(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "bool"
	case float64:
		return "float"
	case int, int64:
		return "int"
	}
	return ""
}

// Keys returns the record's keys in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (r Record) ref() string {
	if s, ok := r[KeyID].(string); ok {
		return s
	}
	return ""
}
