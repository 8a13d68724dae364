package expr

import (
	"fmt"
	"sort"

	"github.com/PuerkitoBio/goquery"

	"github.com/codepr/crawlwave/internal/directives/types"
)

// AggregatorKind discriminates the seven-case Aggregator sum, ported from
// lib-lopez/src/directives/expressions/aggregator.rs.
type AggregatorKind int

const (
	AggCount AggregatorKind = iota
	AggCountNotNull
	AggFirst
	AggCollect
	AggDistinct
	AggSum
	AggGroup
)

// Aggregator is the inner fold of a named rule; Inner is the per-element
// expression it folds over (unused for AggCount), GroupAgg is the nested
// aggregator used by AggGroup.
type Aggregator struct {
	Kind     AggregatorKind
	Key      Explode // AggGroup's key extractor
	Inner    Explode
	GroupAgg *AggregatorExpression
}

// TypeOf computes the aggregator's static result type, matching
// aggregator.rs's Aggregator::type_of.
func (a Aggregator) TypeOf() (types.Type, error) {
	switch a.Kind {
	case AggCount:
		return types.T(types.Number), nil
	case AggCountNotNull:
		inner, err := a.Inner.TypeOf()
		if err != nil {
			return types.Type{}, err
		}
		if inner.Kind != types.Bool && inner.Kind != types.Any {
			return types.Type{}, fmt.Errorf("expr: count(e) requires e: bool, got %s", inner)
		}
		return types.T(types.Number), nil
	case AggFirst:
		return a.Inner.TypeOf()
	case AggCollect, AggDistinct:
		inner, err := a.Inner.TypeOf()
		if err != nil {
			return types.Type{}, err
		}
		return types.ArrayOf(inner), nil
	case AggSum:
		inner, err := a.Inner.TypeOf()
		if err != nil {
			return types.Type{}, err
		}
		if inner.Kind != types.Number && inner.Kind != types.Any {
			return types.Type{}, fmt.Errorf("expr: sum(e) requires e: number, got %s", inner)
		}
		return types.T(types.Number), nil
	case AggGroup:
		keyType, err := a.Key.TypeOf()
		if err != nil {
			return types.Type{}, err
		}
		if keyType.Kind != types.String && keyType.Kind != types.Any {
			return types.Type{}, fmt.Errorf("expr: group key must be string, got %s", keyType)
		}
		inner, err := a.GroupAgg.TypeOf()
		if err != nil {
			return types.Type{}, err
		}
		return types.MapOf(inner), nil
	default:
		return types.Type{}, fmt.Errorf("expr: unknown aggregator kind %d", a.Kind)
	}
}

// AggregatorExpression wraps an Aggregator with a trailing transformer
// chain, ported from aggregator.rs's AggregatorExpression.
type AggregatorExpression struct {
	Aggregator  Aggregator
	Transformer TransformerExpression
}

func (e *AggregatorExpression) TypeOf() (types.Type, error) {
	inner, err := e.Aggregator.TypeOf()
	if err != nil {
		return types.Type{}, err
	}
	return e.Transformer.TypeFor(inner)
}

// NewState returns a fresh accumulator for e.
func (e *AggregatorExpression) NewState() *AggregatorExpressionState {
	return &AggregatorExpressionState{expr: e, state: newAggregatorState(e.Aggregator)}
}

// AggregatorExpressionState accumulates one rule's result across every
// selected element on a page, then applies the trailing transformer chain
// once at the end.
type AggregatorExpressionState struct {
	expr  *AggregatorExpression
	state aggregatorState
}

// Aggregate folds sel into the running accumulator.
func (s *AggregatorExpressionState) Aggregate(sel *goquery.Selection) {
	s.state.aggregate(sel)
}

// Finalize produces the rule's final Value, applying the trailing
// transformer chain over the folded accumulator value.
func (s *AggregatorExpressionState) Finalize() Value {
	return s.expr.Transformer.Eval(s.state.finalize())
}

// aggregatorState is the internal per-kind running accumulator, ported
// from aggregator.rs's AggregatorState.
type aggregatorState interface {
	aggregate(sel *goquery.Selection)
	finalize() Value
}

func newAggregatorState(a Aggregator) aggregatorState {
	switch a.Kind {
	case AggCount:
		return &countState{}
	case AggCountNotNull:
		return &countNotNullState{inner: a.Inner}
	case AggFirst:
		return &firstState{inner: a.Inner}
	case AggCollect:
		return &collectState{inner: a.Inner}
	case AggDistinct:
		return &distinctState{inner: a.Inner, seen: map[string]bool{}}
	case AggSum:
		return &sumState{inner: a.Inner}
	case AggGroup:
		return &groupState{key: a.Key, inner: a.GroupAgg, buckets: map[string]*AggregatorExpressionState{}}
	default:
		panic(fmt.Sprintf("expr: unknown aggregator kind %d", a.Kind))
	}
}

type countState struct{ n float64 }

func (s *countState) aggregate(sel *goquery.Selection) { s.n++ }
func (s *countState) finalize() Value                  { return s.n }

type countNotNullState struct {
	inner Explode
	n     float64
}

func (s *countNotNullState) aggregate(sel *goquery.Selection) {
	for _, v := range s.inner.Eval(sel) {
		if b, _ := v.(bool); b {
			s.n++
		}
	}
}
func (s *countNotNullState) finalize() Value { return s.n }

type firstState struct {
	inner Explode
	found bool
	value Value
}

func (s *firstState) aggregate(sel *goquery.Selection) {
	if s.found {
		return
	}
	for _, v := range s.inner.Eval(sel) {
		if v != nil {
			s.value = v
			s.found = true
			return
		}
	}
}
func (s *firstState) finalize() Value { return s.value }

type collectState struct {
	inner  Explode
	values []Value
}

func (s *collectState) aggregate(sel *goquery.Selection) {
	s.values = append(s.values, s.inner.Eval(sel)...)
}
func (s *collectState) finalize() Value {
	if s.values == nil {
		return []Value{}
	}
	return s.values
}

type distinctState struct {
	inner  Explode
	seen   map[string]bool
	values []Value
}

func (s *distinctState) aggregate(sel *goquery.Selection) {
	for _, v := range s.inner.Eval(sel) {
		key := canonicalKey(v)
		if s.seen[key] {
			continue
		}
		s.seen[key] = true
		s.values = append(s.values, v)
	}
}
func (s *distinctState) finalize() Value {
	if s.values == nil {
		return []Value{}
	}
	return s.values
}

type sumState struct {
	inner Explode
	total float64
}

func (s *sumState) aggregate(sel *goquery.Selection) {
	for _, v := range s.inner.Eval(sel) {
		if f, ok := forceFloat64(v); ok {
			s.total += f
		}
	}
}
func (s *sumState) finalize() Value { return s.total }

type groupState struct {
	key     Explode
	inner   *AggregatorExpression
	buckets map[string]*AggregatorExpressionState
	order   []string
}

func (s *groupState) aggregate(sel *goquery.Selection) {
	for _, kv := range s.key.Eval(sel) {
		k, ok := kv.(string)
		if !ok {
			continue
		}
		bucket, ok := s.buckets[k]
		if !ok {
			bucket = s.inner.NewState()
			s.buckets[k] = bucket
			s.order = append(s.order, k)
		}
		bucket.Aggregate(sel)
	}
}
func (s *groupState) finalize() Value {
	out := make(map[string]Value, len(s.buckets))
	keys := append([]string(nil), s.order...)
	sort.Strings(keys)
	for _, k := range keys {
		out[k] = s.buckets[k].Finalize()
	}
	return out
}
