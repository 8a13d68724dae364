package expr

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/codepr/crawlwave/internal/directives/types"
)

// TransformerOp discriminates the 31-case Transformer sum, ported from
// lib-lopez/src/directives/expressions/transformer.rs.
type TransformerOp int

const (
	OpIsNull TransformerOp = iota
	OpIsNotNull
	OpHash
	OpNot
	OpAsNumber
	OpGreaterThan
	OpLesserThan
	OpGreaterOrEqual
	OpLesserOrEqual
	OpBetween
	OpEquals
	OpIn
	OpLength
	OpIsEmpty
	OpGet
	OpGetIdx
	OpFlatten
	OpEach
	OpFilter
	OpAny
	OpAll
	OpSort
	OpSortBy
	OpAsString
	OpPretty
	OpEqualsString
	OpInStrings
	OpCapture
	OpAllCaptures
	OpMatches
	OpReplace
)

// Transformer is a single pure Value -> Value step in a rule's chain.
// Some ops carry operands (a comparison threshold, a regex, an inner
// expression to map/filter with).
type Transformer struct {
	Op         TransformerOp
	Number     float64
	Numbers    []float64
	String     string
	Strings    []string
	Regex      *regexp.Regexp
	Inner      *TransformerExpression // Filter/Any/All/SortBy predicate, Each/Flatten map body
}

func errNotArray(t types.Type) error {
	return fmt.Errorf("expr: expected array type, got %s", t)
}

func typeErr(op TransformerOp, t types.Type) error {
	return fmt.Errorf("expr: transformer %d not defined for type %s", op, t)
}

// TypeFor computes the static output type of applying t to a value of
// input type in, matching transformer.rs's type_for rules exactly.
func (t Transformer) TypeFor(in types.Type) (types.Type, error) {
	any_ := types.T(types.Any)
	switch t.Op {
	case OpIsNull, OpIsNotNull, OpIsEmpty:
		return types.T(types.Bool), nil
	case OpHash, OpAsString:
		return types.T(types.String), nil
	case OpNot:
		if in.Kind != types.Bool && in.Kind != types.Any {
			return types.Type{}, typeErr(t.Op, in)
		}
		return types.T(types.Bool), nil
	case OpAsNumber:
		return types.T(types.Number), nil
	case OpGreaterThan, OpLesserThan, OpGreaterOrEqual, OpLesserOrEqual, OpBetween:
		if in.Kind != types.Number && in.Kind != types.Any {
			return types.Type{}, typeErr(t.Op, in)
		}
		return types.T(types.Bool), nil
	case OpEquals, OpEqualsString:
		return types.T(types.Bool), nil
	case OpIn, OpInStrings:
		return types.T(types.Bool), nil
	case OpLength:
		if in.Kind != types.String && in.Kind != types.Array && in.Kind != types.Map && in.Kind != types.Any {
			return types.Type{}, typeErr(t.Op, in)
		}
		return types.T(types.Number), nil
	case OpGet:
		if in.Kind != types.Map && in.Kind != types.Any {
			return types.Type{}, typeErr(t.Op, in)
		}
		if in.Kind == types.Map {
			return *in.Elem, nil
		}
		return any_, nil
	case OpGetIdx:
		if in.Kind != types.Array && in.Kind != types.Any {
			return types.Type{}, typeErr(t.Op, in)
		}
		if in.Kind == types.Array {
			return *in.Elem, nil
		}
		return any_, nil
	case OpFlatten:
		if in.Kind != types.Array && in.Kind != types.Any {
			return types.Type{}, typeErr(t.Op, in)
		}
		if in.Kind == types.Array && in.Elem.IsArray() {
			return *in.Elem, nil
		}
		return in, nil
	case OpEach:
		if in.Kind == types.Array {
			inner, err := t.Inner.TypeFor(*in.Elem)
			if err != nil {
				return types.Type{}, err
			}
			return types.ArrayOf(inner), nil
		}
		if in.Kind == types.Map {
			inner, err := t.Inner.TypeFor(*in.Elem)
			if err != nil {
				return types.Type{}, err
			}
			return types.MapOf(inner), nil
		}
		if in.Kind == types.Any {
			return any_, nil
		}
		return types.Type{}, typeErr(t.Op, in)
	case OpFilter, OpAny, OpAll:
		if in.Kind != types.Array && in.Kind != types.Any {
			return types.Type{}, typeErr(t.Op, in)
		}
		if in.Kind == types.Array {
			predType, err := t.Inner.TypeFor(*in.Elem)
			if err != nil {
				return types.Type{}, err
			}
			if predType.Kind != types.Bool && predType.Kind != types.Any {
				return types.Type{}, fmt.Errorf("expr: predicate must be bool, got %s", predType)
			}
		}
		if t.Op == OpFilter {
			return in, nil
		}
		return types.T(types.Bool), nil
	case OpSort:
		if in.Kind != types.Array && in.Kind != types.Any {
			return types.Type{}, typeErr(t.Op, in)
		}
		if in.Kind == types.Array && in.Elem.IsMap() {
			return types.Type{}, fmt.Errorf("expr: cannot sort an array of maps")
		}
		return in, nil
	case OpSortBy:
		if in.Kind != types.Array && in.Kind != types.Any {
			return types.Type{}, typeErr(t.Op, in)
		}
		return in, nil
	case OpPretty:
		if in.Kind != types.String && in.Kind != types.Any {
			return types.Type{}, typeErr(t.Op, in)
		}
		return types.T(types.String), nil
	case OpCapture:
		return types.MapOf(types.T(types.String)), nil
	case OpAllCaptures:
		return types.ArrayOf(types.MapOf(types.T(types.String))), nil
	case OpMatches:
		return types.T(types.Bool), nil
	case OpReplace:
		if in.Kind != types.String && in.Kind != types.Any {
			return types.Type{}, typeErr(t.Op, in)
		}
		return types.T(types.String), nil
	default:
		return types.Type{}, fmt.Errorf("expr: unknown transformer op %d", t.Op)
	}
}

// Eval applies t to v. The null short-circuit (any transformer applied to
// a null value yields null) is checked right after IsNull/IsNotNull and
// before every other op-specific case: IsNull/IsNotNull still observe null
// directly, everything else short-circuits.
func (t Transformer) Eval(v Value) Value {
	switch t.Op {
	case OpIsNull:
		return v == nil
	case OpIsNotNull:
		return v != nil
	}
	if v == nil {
		return nil
	}
	switch t.Op {
	case OpHash:
		return canonicalKey(v)
	case OpNot:
		return !v.(bool)
	case OpAsNumber:
		switch x := v.(type) {
		case float64:
			return x
		case string:
			f, err := strconv.ParseFloat(x, 64)
			if err != nil {
				return nil
			}
			return f
		default:
			return nil
		}
	case OpGreaterThan:
		f, _ := forceFloat64(v)
		return f > t.Number
	case OpLesserThan:
		f, _ := forceFloat64(v)
		return f < t.Number
	case OpGreaterOrEqual:
		f, _ := forceFloat64(v)
		return f >= t.Number
	case OpLesserOrEqual:
		f, _ := forceFloat64(v)
		return f <= t.Number
	case OpBetween:
		f, _ := forceFloat64(v)
		return f >= t.Numbers[0] && f <= t.Numbers[1]
	case OpEquals:
		return cmpValue(v, t.Number) == 0
	case OpIn:
		for _, n := range t.Numbers {
			if f, ok := forceFloat64(v); ok && f == n {
				return true
			}
		}
		return false
	case OpLength:
		switch x := v.(type) {
		case string:
			return float64(len([]rune(x)))
		case []Value:
			return float64(len(x))
		case map[string]Value:
			return float64(len(x))
		default:
			return float64(0)
		}
	case OpIsEmpty:
		switch x := v.(type) {
		case string:
			return len(x) == 0
		case []Value:
			return len(x) == 0
		case map[string]Value:
			return len(x) == 0
		default:
			return false
		}
	case OpGet:
		m, _ := v.(map[string]Value)
		return m[t.String]
	case OpGetIdx:
		arr, _ := v.([]Value)
		idx := int(t.Number)
		if idx < 0 || idx >= len(arr) {
			return nil
		}
		return arr[idx]
	case OpFlatten:
		arr, _ := v.([]Value)
		var out []Value
		for _, e := range arr {
			if inner, ok := e.([]Value); ok {
				out = append(out, inner...)
			} else {
				out = append(out, e)
			}
		}
		return out
	case OpEach:
		switch x := v.(type) {
		case []Value:
			out := make([]Value, len(x))
			for i, e := range x {
				out[i] = t.Inner.Eval(e)
			}
			return out
		case map[string]Value:
			out := make(map[string]Value, len(x))
			for k, e := range x {
				out[k] = t.Inner.Eval(e)
			}
			return out
		default:
			return v
		}
	case OpFilter:
		arr, _ := v.([]Value)
		var out []Value
		for _, e := range arr {
			if b, _ := t.Inner.Eval(e).(bool); b {
				out = append(out, e)
			}
		}
		return out
	case OpAny:
		arr, _ := v.([]Value)
		for _, e := range arr {
			if b, _ := t.Inner.Eval(e).(bool); b {
				return true
			}
		}
		return false
	case OpAll:
		arr, _ := v.([]Value)
		for _, e := range arr {
			if b, _ := t.Inner.Eval(e).(bool); !b {
				return false
			}
		}
		return true
	case OpSort:
		arr, _ := v.([]Value)
		out := append([]Value(nil), arr...)
		sort.Slice(out, func(i, j int) bool { return cmpValue(out[i], out[j]) < 0 })
		return out
	case OpSortBy:
		arr, _ := v.([]Value)
		out := append([]Value(nil), arr...)
		keys := make([]Value, len(out))
		for i, e := range out {
			keys[i] = t.Inner.Eval(e)
		}
		idx := make([]int, len(out))
		for i := range idx {
			idx[i] = i
		}
		sort.Slice(idx, func(i, j int) bool { return cmpValue(keys[idx[i]], keys[idx[j]]) < 0 })
		sorted := make([]Value, len(out))
		for i, k := range idx {
			sorted[i] = out[k]
		}
		return sorted
	case OpAsString:
		return fmt.Sprint(v)
	case OpPretty:
		s, _ := v.(string)
		return pretty(s)
	case OpEqualsString:
		s, _ := v.(string)
		return s == t.String
	case OpInStrings:
		s, _ := v.(string)
		for _, cand := range t.Strings {
			if s == cand {
				return true
			}
		}
		return false
	case OpCapture:
		s, _ := v.(string)
		return captureJSON(t.Regex, s)
	case OpAllCaptures:
		s, _ := v.(string)
		matches := t.Regex.FindAllStringSubmatch(s, -1)
		out := make([]Value, 0, len(matches))
		for _, m := range matches {
			out = append(out, groupsToValue(t.Regex, m))
		}
		return out
	case OpMatches:
		s, _ := v.(string)
		return t.Regex.MatchString(s)
	case OpReplace:
		s, _ := v.(string)
		return t.Regex.ReplaceAllString(s, t.String)
	default:
		panic(fmt.Sprintf("expr: type checked: unhandled transformer op %d for value %v", t.Op, v))
	}
}

// captureJSON runs re against s and returns a map of named groups to
// matched text, or nil if re does not match, the Go port of
// transformer.rs's capture_json / capture's `unwrap_or(Value::Null)`.
func captureJSON(re *regexp.Regexp, s string) Value {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	return groupsToValue(re, m)
}

// groupsToValue builds one capture's named-group map from a
// FindStringSubmatch/FindAllStringSubmatch result, used by both capture
// (a single match) and all-captures (one call per match).
func groupsToValue(re *regexp.Regexp, m []string) Value {
	out := make(map[string]Value, len(m))
	for i, name := range re.SubexpNames() {
		if name == "" || i >= len(m) {
			continue
		}
		out[name] = m[i]
	}
	return out
}

// pretty collapses runs of whitespace the way transformer.rs's pretty
// function does: all-whitespace input becomes empty, internal blank lines
// collapse to one, and the result never has more than a single trailing
// newline.
func pretty(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	blank := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			blank = true
			continue
		}
		if blank && len(out) > 0 {
			out = append(out, "")
		}
		blank = false
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, "\n") + "\n"
}

// TransformerExpression is a sequence of Transformers applied left to
// right, ported from transformer.rs's TransformerExpression.
type TransformerExpression struct {
	Steps []Transformer
}

func (e *TransformerExpression) IsEmpty() bool { return e == nil || len(e.Steps) == 0 }

// TypeFor folds TypeFor over the chain.
func (e *TransformerExpression) TypeFor(in types.Type) (types.Type, error) {
	if e == nil {
		return in, nil
	}
	t := in
	for _, step := range e.Steps {
		var err error
		t, err = step.TypeFor(t)
		if err != nil {
			return types.Type{}, err
		}
	}
	return t, nil
}

// Eval folds Eval over the chain.
func (e *TransformerExpression) Eval(v Value) Value {
	if e == nil {
		return v
	}
	for _, step := range e.Steps {
		v = step.Eval(v)
	}
	return v
}
