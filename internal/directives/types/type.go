// Package types implements the six-case type lattice the extraction
// engine statically checks rule sets against, ported from
// lib-lopez/src/type.rs (spec.md §4.7).
package types

import (
	"fmt"
	"strings"
)

// Kind discriminates the Type sum.
type Kind int

const (
	Any Kind = iota
	Bool
	Number
	String
	Array
	Map
)

// Type is a value in the extraction engine's type lattice. Array and Map
// carry an element type; all other kinds ignore Elem.
type Type struct {
	Kind Kind
	Elem *Type
}

func T(k Kind) Type { return Type{Kind: k} }

func ArrayOf(elem Type) Type { return Type{Kind: Array, Elem: &elem} }
func MapOf(elem Type) Type  { return Type{Kind: Map, Elem: &elem} }

func (t Type) IsArray() bool { return t.Kind == Array }
func (t Type) IsMap() bool   { return t.Kind == Map }

func (t Type) String() string {
	switch t.Kind {
	case Any:
		return "any"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return fmt.Sprintf("[%s]", t.Elem.String())
	case Map:
		return fmt.Sprintf("{%s}", t.Elem.String())
	default:
		return "?"
	}
}

// Accepts reports whether a value of type other may be used where t is
// expected: Any accepts everything, arrays/maps require their element
// types to recursively accept, everything else requires an exact kind
// match.
func (t Type) Accepts(other Type) bool {
	if t.Kind == Any {
		return true
	}
	if t.Kind != other.Kind {
		return false
	}
	switch t.Kind {
	case Array, Map:
		return t.Elem.Accepts(*other.Elem)
	default:
		return true
	}
}

// ParseType parses a type expression such as "string", "[number]" or
// "{[bool]}", the Go port of type.rs's nom-based FromStr grammar.
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	t, rest, err := parseType(s)
	if err != nil {
		return Type{}, err
	}
	if strings.TrimSpace(rest) != "" {
		return Type{}, fmt.Errorf("types: trailing input %q", rest)
	}
	return t, nil
}

func parseType(s string) (Type, string, error) {
	s = strings.TrimLeft(s, " \t")
	switch {
	case strings.HasPrefix(s, "any"):
		return T(Any), s[len("any"):], nil
	case strings.HasPrefix(s, "bool"):
		return T(Bool), s[len("bool"):], nil
	case strings.HasPrefix(s, "number"):
		return T(Number), s[len("number"):], nil
	case strings.HasPrefix(s, "string"):
		return T(String), s[len("string"):], nil
	case strings.HasPrefix(s, "["):
		elem, rest, err := parseType(s[1:])
		if err != nil {
			return Type{}, "", err
		}
		rest = strings.TrimLeft(rest, " \t")
		if !strings.HasPrefix(rest, "]") {
			return Type{}, "", fmt.Errorf("types: expected ']' in %q", s)
		}
		return ArrayOf(elem), rest[1:], nil
	case strings.HasPrefix(s, "{"):
		elem, rest, err := parseType(s[1:])
		if err != nil {
			return Type{}, "", err
		}
		rest = strings.TrimLeft(rest, " \t")
		if !strings.HasPrefix(rest, "}") {
			return Type{}, "", fmt.Errorf("types: expected '}' in %q", s)
		}
		return MapOf(elem), rest[1:], nil
	default:
		return Type{}, "", fmt.Errorf("types: cannot parse type from %q", s)
	}
}
