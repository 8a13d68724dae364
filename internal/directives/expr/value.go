// Package expr implements the typed extraction DSL's runtime: extractors,
// transformers and aggregators operating on JSON-shaped values
// (spec.md §4.7).
package expr

import (
	"fmt"
	"sort"
	"strings"

	"github.com/codepr/crawlwave/internal/directives/types"
)

// Value is the engine's runtime representation of a JSON value: nil,
// bool, float64, string, []Value or map[string]Value — the same shape
// encoding/json already decodes into, so no custom value type is needed.
type Value = any

// TypeOf infers the runtime Type of v. Only used for sanity-checking
// values produced at runtime against the statically-inferred Type; the
// authoritative type comes from static checking (internal/directives),
// not from this function.
func TypeOf(v Value) types.Type {
	switch x := v.(type) {
	case nil:
		return types.T(types.Any)
	case bool:
		return types.T(types.Bool)
	case float64:
		return types.T(types.Number)
	case string:
		return types.T(types.String)
	case []Value:
		if len(x) == 0 {
			return types.ArrayOf(types.T(types.Any))
		}
		return types.ArrayOf(TypeOf(x[0]))
	case map[string]Value:
		for _, v := range x {
			return types.MapOf(TypeOf(v))
		}
		return types.MapOf(types.T(types.Any))
	default:
		return types.T(types.Any)
	}
}

// canonicalKey renders v into a deterministic string key with sorted
// object keys, the Go stand-in for lib-lopez/src/directives/expressions/
// value_ext.rs's HashableJson — Go maps cannot key on arbitrary JSON
// values directly, so distinct() canonicalizes into a string instead.
func canonicalKey(v Value) string {
	var b strings.Builder
	writeCanonical(&b, v)
	return b.String()
}

func writeCanonical(b *strings.Builder, v Value) {
	switch x := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		fmt.Fprintf(b, "b:%t", x)
	case float64:
		fmt.Fprintf(b, "n:%v", x)
	case string:
		fmt.Fprintf(b, "s:%q", x)
	case []Value:
		b.WriteString("[")
		for i, e := range x {
			if i > 0 {
				b.WriteString(",")
			}
			writeCanonical(b, e)
		}
		b.WriteString("]")
	default:
		if m, ok := v.(map[string]Value); ok {
			keys := make([]string, 0, len(m))
			for k := range m {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			b.WriteString("{")
			for i, k := range keys {
				if i > 0 {
					b.WriteString(",")
				}
				fmt.Fprintf(b, "%q:", k)
				writeCanonical(b, m[k])
			}
			b.WriteString("}")
			return
		}
		fmt.Fprintf(b, "?:%v", x)
	}
}

// forceFloat64 coerces a Number-typed Value to float64, matching
// value_ext.rs's force_f64 lossy-coercion role (Go's encoding/json already
// decodes all JSON numbers to float64, so this is a defensive identity in
// practice, kept for parity with callers that may hold an int).
func forceFloat64(v Value) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}

// cmpValue totally orders two JSON values: Null < Bool < Number < String,
// arrays compare element-wise, matching transformer.rs's cmp_json. Object
// comparison is not defined and panics, matching the original's contract
// (Sort/SortBy reject Map-typed arrays at static-check time, so this path
// is unreachable for a validated rule set).
func cmpValue(a, b Value) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch x := a.(type) {
	case nil:
		return 0
	case bool:
		y := b.(bool)
		if x == y {
			return 0
		}
		if !x {
			return -1
		}
		return 1
	case float64:
		y := b.(float64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	case string:
		return strings.Compare(x, b.(string))
	case []Value:
		y := b.([]Value)
		for i := 0; i < len(x) && i < len(y); i++ {
			if c := cmpValue(x[i], y[i]); c != 0 {
				return c
			}
		}
		return len(x) - len(y)
	default:
		panic("expr: comparing map values is not defined")
	}
}

func rank(v Value) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64:
		return 2
	case string:
		return 3
	default:
		return 4
	}
}
