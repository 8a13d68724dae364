package directives

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/codepr/crawlwave/internal/directives/types"
)

// Analyze runs every rule in d against the parsed page doc, scoping each
// rule to its declared CSS selector (the page root when Scope is empty)
// and folding every matched element through the rule's aggregator, the Go
// equivalent of directives/mod.rs's per-page rule evaluation pass that
// feeds a crawled page's Vec<(String, serde_json::Value)> analyses.
func Analyze(doc *goquery.Document, d *Directives) []NamedValue {
	out := make([]NamedValue, 0, len(d.Rules))
	for _, r := range d.Rules {
		sel := doc.Selection
		if r.Scope != "" {
			sel = doc.Find(r.Scope)
		}
		state := r.Expr.NewState()
		sel.Each(func(_ int, s *goquery.Selection) {
			state.Aggregate(s)
		})
		out = append(out, NamedValue{Name: r.Name, Value: state.Finalize()})
	}
	return out
}

// NamedValue pairs a rule's name with its finalized extraction result,
// mirroring storage.NamedValue but kept local to this package so callers
// converting into a storage write choose the mapping explicitly.
type NamedValue struct {
	Name  string
	Value any
}

// NamedType pairs a rule's name with its statically-checked result type,
// the directive-side counterpart of storage.NamedType.
type NamedType struct {
	Name string
	Type types.Type
}

// Schema returns the static (name, type) pair for every rule in d, the
// schema MasterBackend.CreateAnalyses records once per wave.
func Schema(d *Directives) ([]NamedType, error) {
	out := make([]NamedType, 0, len(d.Rules))
	for _, r := range d.Rules {
		t, err := r.Expr.TypeOf()
		if err != nil {
			return nil, err
		}
		out = append(out, NamedType{Name: r.Name, Type: t})
	}
	return out, nil
}
