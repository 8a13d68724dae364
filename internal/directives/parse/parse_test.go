package parse

import "testing"

func TestParseBasicFile(t *testing.T) {
	src := `
# a comment
import "news-common"

set max_depth = 5
set quota = 2000

seed "https://example.com/"
allow /articles\/.*/
disallow /admin\/.*/
use_params q, page
ignore_params utm_source

rule title = text() | trim_ws() | first()
rule links = !attr("href") | collect()
`
	f, err := Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(f.Imports) != 1 || f.Imports[0] != "news-common" {
		t.Fatalf("imports = %v", f.Imports)
	}
	if len(f.Sets) != 2 || f.Sets[0].Name != "max_depth" || f.Sets[0].Value != "5" {
		t.Fatalf("sets = %v", f.Sets)
	}
	if len(f.Seeds) != 1 {
		t.Fatalf("seeds = %v", f.Seeds)
	}
	if len(f.Allow) != 1 || len(f.Disallow) != 1 {
		t.Fatalf("allow/disallow = %v %v", f.Allow, f.Disallow)
	}
	if len(f.Rules) != 2 {
		t.Fatalf("rules = %d", len(f.Rules))
	}
	if !f.Rules[1].Exploding {
		t.Fatalf("expected rule 2 to be exploding")
	}
}

func TestParseNestedPipelineArg(t *testing.T) {
	src := `rule big = !attr("data-n") | as_number() | filter({ gt(10) }) | collect()`
	f, err := Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(f.Rules) != 1 {
		t.Fatalf("rules = %d", len(f.Rules))
	}
}

func TestParseErrorUnterminatedString(t *testing.T) {
	_, err := Parse(`seed "https://example.com`)
	if err == nil {
		t.Fatal("expected error")
	}
}
