package directives

import (
	"fmt"
	"regexp"

	"github.com/codepr/crawlwave/internal/directives/expr"
	"github.com/codepr/crawlwave/internal/directives/parse"
)

var extractorNames = map[string]expr.ExtractorKind{
	"name":        expr.ExtractName,
	"text":        expr.ExtractText,
	"html":        expr.ExtractHTML,
	"inner_html":  expr.ExtractInnerHTML,
	"id":          expr.ExtractID,
	"classes":     expr.ExtractClasses,
	"attrs":       expr.ExtractAttrs,
	"attr":        expr.ExtractAttr,
	"parent":      expr.ExtractParent,
	"children":    expr.ExtractChildren,
	"select_any":  expr.ExtractSelectAny,
	"select_all":  expr.ExtractSelectAll,
}

var aggregatorNames = map[string]expr.AggregatorKind{
	"count":          expr.AggCount,
	"count_not_null": expr.AggCountNotNull,
	"first":          expr.AggFirst,
	"collect":        expr.AggCollect,
	"distinct":       expr.AggDistinct,
	"sum":            expr.AggSum,
	"group_by":       expr.AggGroup,
}

var transformerNames = map[string]expr.TransformerOp{
	"is_null":        expr.OpIsNull,
	"is_not_null":    expr.OpIsNotNull,
	"hash":           expr.OpHash,
	"not":            expr.OpNot,
	"as_number":      expr.OpAsNumber,
	"gt":             expr.OpGreaterThan,
	"lt":             expr.OpLesserThan,
	"gte":            expr.OpGreaterOrEqual,
	"lte":            expr.OpLesserOrEqual,
	"between":        expr.OpBetween,
	"eq":             expr.OpEquals,
	"in":             expr.OpIn,
	"length":         expr.OpLength,
	"is_empty":       expr.OpIsEmpty,
	"get":            expr.OpGet,
	"get_idx":        expr.OpGetIdx,
	"flatten":        expr.OpFlatten,
	"each":           expr.OpEach,
	"filter":         expr.OpFilter,
	"any":            expr.OpAny,
	"all":            expr.OpAll,
	"sort":           expr.OpSort,
	"sort_by":        expr.OpSortBy,
	"as_string":      expr.OpAsString,
	"pretty":         expr.OpPretty,
	"eq_str":         expr.OpEqualsString,
	"in_strings":     expr.OpInStrings,
	"capture":        expr.OpCapture,
	"all_captures":   expr.OpAllCaptures,
	"matches":        expr.OpMatches,
	"replace":        expr.OpReplace,
}

// compileRule turns a parsed RuleDecl's pipeline into an
// expr.AggregatorExpression, matching how directives/parse.rs's AST feeds
// directives/expressions/*.rs's constructors.
func compileRule(calls []parse.Call, exploding bool) (*expr.AggregatorExpression, error) {
	idx := -1
	for i, c := range calls {
		if _, ok := aggregatorNames[c.Name]; ok {
			if idx != -1 {
				return nil, fmt.Errorf("directives: rule has more than one aggregator (%q and %q)", calls[idx].Name, c.Name)
			}
			idx = i
		}
	}
	if idx == -1 {
		return nil, fmt.Errorf("directives: rule pipeline has no terminal aggregator (count/count_not_null/first/collect/distinct/sum/group_by)")
	}
	aggCall := calls[idx]
	pre, post := calls[:idx], calls[idx+1:]

	postChain, err := compileTransformerChain(post)
	if err != nil {
		return nil, err
	}

	if aggCall.Name == "group_by" {
		if len(pre) != 0 {
			return nil, fmt.Errorf("directives: group_by must be the first step of its rule")
		}
		if len(aggCall.Args) != 2 || aggCall.Args[0].Kind != parse.ArgPipeline || aggCall.Args[1].Kind != parse.ArgPipeline {
			return nil, fmt.Errorf("directives: group_by(key-pipeline, value-pipeline) requires two brace-delimited pipelines")
		}
		key, err := compileExplode(aggCall.Args[0].Pipeline, false)
		if err != nil {
			return nil, fmt.Errorf("directives: group_by key: %w", err)
		}
		groupAgg, err := compileRule(aggCall.Args[1].Pipeline, false)
		if err != nil {
			return nil, fmt.Errorf("directives: group_by value: %w", err)
		}
		return &expr.AggregatorExpression{
			Aggregator:  expr.Aggregator{Kind: expr.AggGroup, Key: key, GroupAgg: groupAgg},
			Transformer: *postChain,
		}, nil
	}

	if len(pre) == 0 {
		return nil, fmt.Errorf("directives: rule has no extractor before %q", aggCall.Name)
	}
	inner, err := compileExplode(pre, exploding)
	if err != nil {
		return nil, err
	}
	return &expr.AggregatorExpression{
		Aggregator:  expr.Aggregator{Kind: aggregatorNames[aggCall.Name], Inner: inner},
		Transformer: *postChain,
	}, nil
}

func compileExplode(calls []parse.Call, exploding bool) (expr.Explode, error) {
	if len(calls) == 0 {
		return expr.Explode{}, fmt.Errorf("directives: empty extractor pipeline")
	}
	extractor, err := compileExtractor(calls[0])
	if err != nil {
		return expr.Explode{}, err
	}
	chain, err := compileTransformerChain(calls[1:])
	if err != nil {
		return expr.Explode{}, err
	}
	return expr.Explode{
		Extractor:   extractor,
		Transformer: *chain,
		Exploding:   exploding,
	}, nil
}

// compileExtractor compiles the first call of an extractor pipeline into
// an expr.Extractor, recursing into a brace-delimited nested pipeline for
// the four compound kinds (parent/children/select_any/select_all), matching
// directives/parse.rs's Extractor::parse handling of
// `parent(...)`/`children(...)`/`select-any(..., sel)`/`select-all(..., sel)`.
func compileExtractor(call parse.Call) (expr.Extractor, error) {
	kind, ok := extractorNames[call.Name]
	if !ok {
		return expr.Extractor{}, fmt.Errorf("directives: %q is not an extractor (expected name/text/html/inner_html/id/classes/attrs/attr/parent/children/select_any/select_all)", call.Name)
	}
	switch kind {
	case expr.ExtractAttr:
		if len(call.Args) != 1 || call.Args[0].Kind != parse.ArgString {
			return expr.Extractor{}, fmt.Errorf("directives: attr(name) requires one string argument")
		}
		return expr.Extractor{Kind: kind, Attr: call.Args[0].Str}, nil
	case expr.ExtractParent, expr.ExtractChildren:
		if len(call.Args) != 1 || call.Args[0].Kind != parse.ArgPipeline {
			return expr.Extractor{}, fmt.Errorf("directives: %s(expr) requires one brace-delimited pipeline argument", call.Name)
		}
		inner, err := compileExplode(call.Args[0].Pipeline, false)
		if err != nil {
			return expr.Extractor{}, fmt.Errorf("directives: %s: %w", call.Name, err)
		}
		return expr.Extractor{Kind: kind, Inner: &inner}, nil
	case expr.ExtractSelectAny, expr.ExtractSelectAll:
		if len(call.Args) != 2 || call.Args[0].Kind != parse.ArgPipeline || call.Args[1].Kind != parse.ArgString {
			return expr.Extractor{}, fmt.Errorf("directives: %s(expr, selector) requires a brace-delimited pipeline then a string selector", call.Name)
		}
		inner, err := compileExplode(call.Args[0].Pipeline, false)
		if err != nil {
			return expr.Extractor{}, fmt.Errorf("directives: %s: %w", call.Name, err)
		}
		return expr.Extractor{Kind: kind, Inner: &inner, Selector: call.Args[1].Str}, nil
	default:
		if len(call.Args) != 0 {
			return expr.Extractor{}, fmt.Errorf("directives: %s takes no arguments", call.Name)
		}
		return expr.Extractor{Kind: kind}, nil
	}
}

func compileTransformerChain(calls []parse.Call) (*expr.TransformerExpression, error) {
	steps := make([]expr.Transformer, 0, len(calls))
	for _, c := range calls {
		t, err := compileTransformer(c)
		if err != nil {
			return nil, err
		}
		steps = append(steps, t)
	}
	return &expr.TransformerExpression{Steps: steps}, nil
}

func compileTransformer(call parse.Call) (expr.Transformer, error) {
	op, ok := transformerNames[call.Name]
	if !ok {
		return expr.Transformer{}, fmt.Errorf("directives: %q is not a transformer", call.Name)
	}
	t := expr.Transformer{Op: op}
	switch op {
	case expr.OpGreaterThan, expr.OpLesserThan, expr.OpGreaterOrEqual, expr.OpLesserOrEqual, expr.OpEquals, expr.OpGetIdx:
		n, err := onlyNumberArg(call)
		if err != nil {
			return t, err
		}
		t.Number = n
	case expr.OpBetween:
		if len(call.Args) != 2 {
			return t, fmt.Errorf("directives: between(lo, hi) requires two numbers")
		}
		t.Numbers = []float64{call.Args[0].Num, call.Args[1].Num}
	case expr.OpIn:
		for _, a := range call.Args {
			if a.Kind != parse.ArgNumber {
				return t, fmt.Errorf("directives: in(...) requires number arguments")
			}
			t.Numbers = append(t.Numbers, a.Num)
		}
	case expr.OpGet, expr.OpEqualsString, expr.OpReplace:
		if len(call.Args) == 0 || call.Args[0].Kind != parse.ArgString {
			return t, fmt.Errorf("directives: %s requires a string argument", call.Name)
		}
		t.String = call.Args[0].Str
		if op == expr.OpReplace {
			if len(call.Args) != 2 {
				return t, fmt.Errorf("directives: replace(pattern, with) requires a regex then a string")
			}
			re, err := regexp.Compile(call.Args[0].Str)
			if err != nil {
				return t, fmt.Errorf("directives: replace: %w", err)
			}
			t.Regex = re
			t.String = call.Args[1].Str
		}
	case expr.OpInStrings:
		for _, a := range call.Args {
			if a.Kind != parse.ArgString {
				return t, fmt.Errorf("directives: in_strings(...) requires string arguments")
			}
			t.Strings = append(t.Strings, a.Str)
		}
	case expr.OpCapture, expr.OpAllCaptures, expr.OpMatches:
		if len(call.Args) != 1 || call.Args[0].Kind != parse.ArgRegex {
			return t, fmt.Errorf("directives: %s requires a regex argument", call.Name)
		}
		re, err := regexp.Compile(call.Args[0].Str)
		if err != nil {
			return t, fmt.Errorf("directives: %s: %w", call.Name, err)
		}
		t.Regex = re
	case expr.OpEach, expr.OpFilter, expr.OpAny, expr.OpAll, expr.OpSortBy:
		if len(call.Args) != 1 || call.Args[0].Kind != parse.ArgPipeline {
			return t, fmt.Errorf("directives: %s requires one brace-delimited predicate pipeline", call.Name)
		}
		inner, err := compileTransformerChain(call.Args[0].Pipeline)
		if err != nil {
			return t, err
		}
		t.Inner = inner
	}
	return t, nil
}

func onlyNumberArg(call parse.Call) (float64, error) {
	if len(call.Args) != 1 || call.Args[0].Kind != parse.ArgNumber {
		return 0, fmt.Errorf("directives: %s requires one numeric argument", call.Name)
	}
	return call.Args[0].Num, nil
}
