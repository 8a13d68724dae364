package directives

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

// TestAnalyzeNestedSelectAllAggregatesPerElement locks in the mandatory
// select-all(expr, sel) scenario: each matched `ul` yields one array of
// its `li` children's numeric text, and collect() gathers one such array
// per `ul` on the page.
func TestAnalyzeNestedSelectAllAggregatesPerElement(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "main.lcd", `
seed "https://example.com/"
rule xs in "ul" = select_all({ text() | as_number() }, "li") | collect()
`)

	d, err := Load(entry, dir)
	require.NoError(t, err)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
<html><body><ul><li>1</li><li>2</li><li>3</li></ul></body></html>`))
	require.NoError(t, err)

	analyses := Analyze(doc, d)
	require.Len(t, analyses, 1)
	require.Equal(t, "xs", analyses[0].Name)
	require.Equal(t, []any{[]any{1.0, 2.0, 3.0}}, analyses[0].Value)
}

// TestAnalyzeSelectAnyAndChildrenAndParent exercises the remaining
// compound extractors against a small tree, each descending from its
// matched element rather than reading off it directly.
func TestAnalyzeSelectAnyAndChildrenAndParent(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "main.lcd", `
seed "https://example.com/"
rule first_item in "ul" = select_any({ text() }, "li") | first()
rule child_texts in "ul" = children({ text() }) | collect()
rule wrapper_name in "li" = parent({ name() }) | first()
`)

	d, err := Load(entry, dir)
	require.NoError(t, err)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
<html><body><ul><li>one</li><li>two</li></ul></body></html>`))
	require.NoError(t, err)

	analyses := Analyze(doc, d)
	byName := map[string]any{}
	for _, a := range analyses {
		byName[a.Name] = a.Value
	}
	require.Equal(t, "one", byName["first_item"])
	require.Equal(t, []any{[]any{"one", "two"}}, byName["child_texts"])
	require.Equal(t, "ul", byName["wrapper_name"])
}

// TestAnalyzeIDClassesAttrs covers the three simple element-introspection
// extractors against a single tagged element.
func TestAnalyzeIDClassesAttrs(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "main.lcd", `
seed "https://example.com/"
rule id_val in "div" = id() | first()
rule class_vals in "div" = classes() | first()
rule attr_vals in "div" = attrs() | first()
`)

	d, err := Load(entry, dir)
	require.NoError(t, err)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<html><body><div id="main" class="a b" data-x="1"></div></body></html>`))
	require.NoError(t, err)

	analyses := Analyze(doc, d)
	byName := map[string]any{}
	for _, a := range analyses {
		byName[a.Name] = a.Value
	}
	require.Equal(t, "main", byName["id_val"])
	require.Equal(t, []any{"a", "b"}, byName["class_vals"])
	require.Equal(t, map[string]any{"id": "main", "class": "a b", "data-x": "1"}, byName["attr_vals"])
}
