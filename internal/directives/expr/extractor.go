package expr

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/codepr/crawlwave/internal/directives/types"
)

// ExtractorKind discriminates the twelve-case Extractor sum (spec.md §3,
// §4.7), ported from the generic directives/expressions/extractor.rs's
// variant list as named by directives/parse.rs's Extractor::parse.
type ExtractorKind int

const (
	ExtractName ExtractorKind = iota
	ExtractText
	ExtractHTML
	ExtractInnerHTML
	ExtractID
	ExtractClasses
	ExtractAttrs
	ExtractAttr
	ExtractParent
	ExtractChildren
	ExtractSelectAny
	ExtractSelectAll
)

// Extractor pulls a Value out of a goquery selection. Attr only applies to
// ExtractAttr; Inner and Selector only apply to the four compound kinds
// (Parent/Children select a relative node set, SelectAny/SelectAll also
// filter it by a CSS selector), ported from parse.rs's Extractor::Parent/
// Children/SelectAny/SelectAll(Box<ExtractorExpression>, Selector).
type Extractor struct {
	Kind     ExtractorKind
	Attr     string   // only meaningful when Kind == ExtractAttr
	Inner    *Explode // only meaningful for Parent/Children/SelectAny/SelectAll
	Selector string   // only meaningful for SelectAny/SelectAll
}

// TypeOf is e's static output type. name/text/html/inner-html/id/attr are
// all string-valued; classes/attrs are a fixed-shape array/map of strings;
// parent/select-any pass through the inner expression's type unchanged
// (a single related element); children/select-all wrap it in an array (a
// set of related elements) — matching spec.md §4.7's "parent/children/
// select-* return the inner expression's type, possibly wrapped in array".
func (e Extractor) TypeOf() (types.Type, error) {
	switch e.Kind {
	case ExtractName, ExtractText, ExtractHTML, ExtractInnerHTML, ExtractID, ExtractAttr:
		return types.T(types.String), nil
	case ExtractClasses:
		return types.ArrayOf(types.T(types.String)), nil
	case ExtractAttrs:
		return types.MapOf(types.T(types.String)), nil
	case ExtractParent, ExtractSelectAny:
		return e.Inner.TypeOf()
	case ExtractChildren, ExtractSelectAll:
		inner, err := e.Inner.TypeOf()
		if err != nil {
			return types.Type{}, err
		}
		return types.ArrayOf(inner), nil
	default:
		return types.Type{}, fmt.Errorf("expr: unknown extractor kind %d", e.Kind)
	}
}

// Eval extracts e's raw value from sel.
func (e Extractor) Eval(sel *goquery.Selection) Value {
	switch e.Kind {
	case ExtractName:
		if len(sel.Nodes) == 0 {
			return ""
		}
		return sel.Nodes[0].Data
	case ExtractText:
		return strings.Join(strings.Fields(sel.Text()), " ")
	case ExtractHTML:
		html, err := goquery.OuterHtml(sel)
		if err != nil {
			return ""
		}
		return html
	case ExtractInnerHTML:
		html, err := sel.Html()
		if err != nil {
			return ""
		}
		return html
	case ExtractID:
		v, _ := sel.Attr("id")
		return v
	case ExtractAttr:
		v, _ := sel.Attr(e.Attr)
		return v
	case ExtractClasses:
		class, _ := sel.Attr("class")
		fields := strings.Fields(class)
		out := make([]Value, len(fields))
		for i, f := range fields {
			out[i] = f
		}
		return out
	case ExtractAttrs:
		out := map[string]Value{}
		if len(sel.Nodes) == 0 {
			return out
		}
		for _, a := range sel.Nodes[0].Attr {
			out[a.Key] = a.Val
		}
		return out
	case ExtractParent:
		return e.evalInnerOn(sel.Parent())
	case ExtractChildren:
		var out []Value
		sel.Children().Each(func(_ int, child *goquery.Selection) {
			out = append(out, e.evalInnerOn(child))
		})
		if out == nil {
			out = []Value{}
		}
		return out
	case ExtractSelectAny:
		return e.evalInnerOn(sel.Find(e.Selector).First())
	case ExtractSelectAll:
		var out []Value
		sel.Find(e.Selector).Each(func(_ int, match *goquery.Selection) {
			out = append(out, e.evalInnerOn(match))
		})
		if out == nil {
			out = []Value{}
		}
		return out
	default:
		return nil
	}
}

// evalInnerOn evaluates e.Inner (a non-exploding Explode, so Eval always
// yields exactly one Value) against sel.
func (e Extractor) evalInnerOn(sel *goquery.Selection) Value {
	return e.Inner.Eval(sel)[0]
}

// Explode indicates a bang-prefixed extractor expression whose extracted
// value should be unwrapped into a burst of values (one per array element)
// rather than wrapped as a single value, ported from
// directives/expressions/extractor.rs's ExplodingExtractorExpression.
type Explode struct {
	Extractor   Extractor
	Transformer TransformerExpression
	Exploding   bool
}

// TypeOf returns the type of a single yielded value: the transformer
// chain's output type, unwrapped one Array level if Exploding is set.
// Exploding a non-array-typed expression is a directive validation error
// (internal/directives), never a runtime concern.
func (e Explode) TypeOf() (types.Type, error) {
	extractorType, err := e.Extractor.TypeOf()
	if err != nil {
		return types.Type{}, err
	}
	t, err := e.Transformer.TypeFor(extractorType)
	if err != nil {
		return types.Type{}, err
	}
	if e.Exploding {
		if !t.IsArray() {
			return types.Type{}, errNotArray(t)
		}
		return *t.Elem, nil
	}
	return t, nil
}

// Eval evaluates e against sel, returning the burst of yielded values (a
// single-element slice unless Exploding unwraps an array).
func (e Explode) Eval(sel *goquery.Selection) []Value {
	v := e.Transformer.Eval(e.Extractor.Eval(sel))
	if !e.Exploding {
		return []Value{v}
	}
	arr, ok := v.([]Value)
	if !ok {
		// Directive validation guarantees Exploding only on array-typed
		// expressions; reaching this with a non-array value at runtime is
		// a type-checker bug, matching the original's todo!() contract.
		panic("expr: exploding a non-array value — directive validation bug")
	}
	return arr
}
