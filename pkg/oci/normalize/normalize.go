// Package normalize turns OCI SDK objects, or their JSON serialization, into
// plain nested records keyed by the hyphenated field names used in the OCI API
// documentation ("time-created", "display-name", ...).
package normalize

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/stoewer/go-strcase"

	ocierrors "github.com/praetorian-inc/ocigraph/pkg/oci/errors"
	ocitypes "github.com/praetorian-inc/ocigraph/pkg/types/oci"
)

// KeyFunc rewrites a single mapping key. Implementations must be idempotent.
type KeyFunc func(string) string

// Hyphenate replaces every underscore with a hyphen.
func Hyphenate(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

// WireKey maps both snake_case and the Go SDK's camelCase JSON names onto
// hyphenated wire names: "compartmentId" and "compartment_id" both become "compartment-id".
func WireKey(key string) string {
	if key == "" {
		return key
	}
	return strcase.KebabCase(splitDigitUpper(Hyphenate(key)))
}

// splitDigitUpper puts a separator between a digit and a following capital so
// "ipv6CidrBlock" keeps "ipv6" as its own word.
func splitDigitUpper(key string) string {
	var b strings.Builder
	var prev rune
	for _, r := range key {
		if unicode.IsDigit(prev) && unicode.IsUpper(r) {
			b.WriteRune('-')
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}

type Normalizer struct {
	keyFunc KeyFunc
	opaque  map[string]struct{}
}

type Option func(*Normalizer)

// WithKeyFunc replaces the default Hyphenate key transform.
func WithKeyFunc(fn KeyFunc) Option {
	return func(n *Normalizer) {
		n.keyFunc = fn
	}
}

// WithOpaqueKeys renames the given keys but leaves the keys inside their
// mapping values untouched. Names are matched after transformation.
func WithOpaqueKeys(keys ...string) Option {
	return func(n *Normalizer) {
		for _, k := range keys {
			n.opaque[k] = struct{}{}
		}
	}
}

func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		keyFunc: Hyphenate,
		opaque:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

var defaultNormalizer = New()

// Normalize converts v with the default underscore-to-hyphen transform.
func Normalize(v any) ([]ocitypes.Record, error) {
	return defaultNormalizer.Normalize(v)
}

// Normalize accepts JSON text ([]byte, string, json.RawMessage), decoded JSON
// values, or any value encoding/json can marshal. An object yields one record
// and an array yields one record per element.
func (n *Normalizer) Normalize(v any) ([]ocitypes.Record, error) {
	decoded, err := decode(v)
	if err != nil {
		return nil, err
	}

	switch t := decoded.(type) {
	case map[string]any:
		return []ocitypes.Record{n.Map(t)}, nil
	case []any:
		out := make([]ocitypes.Record, 0, len(t))
		for i, elem := range t {
			m, ok := elem.(map[string]any)
			if !ok {
				return nil, &ocierrors.ParseError{Input: fmt.Sprintf("element %d", i), Err: fmt.Errorf("expected object, got %T", elem)}
			}
			out = append(out, n.Map(m))
		}
		return out, nil
	default:
		return nil, &ocierrors.ParseError{Input: fmt.Sprintf("%T", v), Err: fmt.Errorf("expected object or array, got %T", decoded)}
	}
}

// Map rewrites the keys of m at every mapping depth. Lists and scalars are kept as they are.
func (n *Normalizer) Map(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		key := n.keyFunc(k)
		if nested, ok := v.(map[string]any); ok {
			if _, skip := n.opaque[key]; !skip {
				v = n.Map(nested)
			}
		}
		out[key] = v
	}
	return out
}

func decode(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, &ocierrors.ParseError{Input: "nil", Err: fmt.Errorf("no data")}
	case map[string]any:
		return t, nil
	case ocitypes.Record:
		return map[string]any(t), nil
	case []any:
		return t, nil
	case []map[string]any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = t[i]
		}
		return out, nil
	case string:
		return unmarshal("string", []byte(t))
	case []byte:
		return unmarshal("bytes", t)
	case json.RawMessage:
		return unmarshal("raw message", t)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, &ocierrors.ParseError{Input: fmt.Sprintf("%T", v), Err: err}
	}
	return unmarshal(fmt.Sprintf("%T", v), data)
}

func unmarshal(input string, data []byte) (any, error) {
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &ocierrors.ParseError{Input: input, Err: err}
	}
	return out, nil
}
