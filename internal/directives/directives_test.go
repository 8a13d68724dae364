package directives

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadWithImportAndValidate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "common.lcd", `
rule title = text() | first()
`)
	entry := writeFile(t, dir, "main.lcd", `
import "common"

set quota = 50
set max_hits_per_sec = 1.5

seed "https://example.com/articles/"
allow /\/articles\/.*/

rule links = attr("href") | collect()
`)

	d, err := Load(entry, dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(d.Seeds) != 1 {
		t.Fatalf("seeds = %v", d.Seeds)
	}
	if d.Variables.AsPositiveInt(VarQuota) != 50 {
		t.Fatalf("quota = %d", d.Variables.AsPositiveInt(VarQuota))
	}
	names := map[string]bool{}
	for _, r := range d.Rules {
		names[r.Name] = true
	}
	if !names["title"] || !names["links"] {
		t.Fatalf("rules = %v", names)
	}
}

func TestValidateRejectsBadSeed(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "main.lcd", `
seed "not-a-url"
rule title = text() | first()
`)
	_, err := Load(entry, dir)
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestImportCycleDetected(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.lcd", `import "b"`)
	entry := writeFile(t, dir, "b.lcd", `import "a"
seed "https://example.com/"
rule title = text() | first()`)
	_, err := Load(entry, dir)
	if err == nil {
		t.Fatal("expected import cycle error")
	}
}
