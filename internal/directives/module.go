package directives

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/codepr/crawlwave/internal/directives/expr"
	"github.com/codepr/crawlwave/internal/directives/parse"
)

// Rule is one named extraction rule compiled from a directive file's
// `rule name = pipeline` declaration.
type Rule struct {
	Name  string
	Scope string // CSS selector the rule's extractor is scoped under; "" = page root
	Expr  *expr.AggregatorExpression
	File  string // source path, for diagnostics
	Line  int
}

// Module is one loaded and compiled directive file together with its
// resolved imports, ported from lib-lopez/src/directives/mod.rs's Module.
type Module struct {
	Path         string
	Imports      []*Module
	Seeds        []string
	Allow        []string
	Disallow     []string
	Frontier     []string
	UseParams    []string
	IgnoreParams []string
	UseAllParams bool
	Variables    *SetVariables
	Rules        []Rule
}

// Loader resolves and compiles a tree of directive files rooted at one
// entry file, caching by absolute path so a module imported from two
// places is only read and compiled once.
type Loader struct {
	RootDir string
	cache   map[string]*Module
	loading map[string]bool
}

func NewLoader(rootDir string) *Loader {
	return &Loader{RootDir: rootDir, cache: map[string]*Module{}, loading: map[string]bool{}}
}

// Load parses and compiles the directive file at path, recursively
// resolving its imports.
func (l *Loader) Load(path string) (*Module, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return l.load(abs)
}

func (l *Loader) load(abs string) (*Module, error) {
	if m, ok := l.cache[abs]; ok {
		return m, nil
	}
	if l.loading[abs] {
		return nil, fmt.Errorf("directives: import cycle detected at %s", abs)
	}
	l.loading[abs] = true
	defer delete(l.loading, abs)

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("directives: reading %s: %w", abs, err)
	}
	f, err := parse.Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("directives: %s: %w", abs, err)
	}

	mod := &Module{
		Path:         abs,
		Seeds:        f.Seeds,
		Allow:        f.Allow,
		Disallow:     f.Disallow,
		Frontier:     f.Frontier,
		UseParams:    f.UseParams,
		IgnoreParams: f.IgnoreParams,
		UseAllParams: f.UseAllParams,
		Variables:    &SetVariables{values: map[Variable]string{}}, // explicit `set` statements only
	}
	for _, s := range f.Sets {
		v, err := ParseVariable(s.Name)
		if err != nil {
			return nil, fmt.Errorf("directives: %s:%d: %w", abs, s.Line, err)
		}
		if err := mod.Variables.Set(v, s.Value); err != nil {
			return nil, fmt.Errorf("directives: %s:%d: %w", abs, s.Line, err)
		}
	}
	for _, imp := range f.Imports {
		childPath, err := resolveImport(filepath.Dir(abs), l.RootDir, imp)
		if err != nil {
			return nil, fmt.Errorf("directives: %s: %w", abs, err)
		}
		child, err := l.load(childPath)
		if err != nil {
			return nil, err
		}
		mod.Imports = append(mod.Imports, child)
	}
	for _, rd := range f.Rules {
		compiled, err := compileRule(rd.Pipeline, rd.Exploding)
		if err != nil {
			return nil, fmt.Errorf("directives: %s:%d: rule %q: %w", abs, rd.Line, rd.Name, err)
		}
		mod.Rules = append(mod.Rules, Rule{Name: rd.Name, Scope: rd.Scope, Expr: compiled, File: abs, Line: rd.Line})
	}

	l.cache[abs] = mod
	return mod, nil
}

// resolveImport turns an import path's `super`/`root` segments into a
// filesystem location, then tries `<path>.lcd` followed by
// `<path>/module.lcd`, matching the layered module search original_source's
// directives/mod.rs performs for `super::` and crate-root-relative imports.
func resolveImport(currentDir, rootDir, importPath string) (string, error) {
	segments := strings.Split(importPath, "/")
	dir := currentDir
	i := 0
	for i < len(segments) && segments[i] == "super" {
		dir = filepath.Dir(dir)
		i++
	}
	if i < len(segments) && segments[i] == "root" {
		if rootDir == "" {
			return "", fmt.Errorf("import %q uses root/ but no --import-path root was configured", importPath)
		}
		dir = rootDir
		i++
	}
	rest := segments[i:]
	base := filepath.Join(dir, filepath.Join(rest...))

	candidates := []string{base + ".lcd", filepath.Join(base, "module.lcd")}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, nil
		}
	}
	return "", fmt.Errorf("cannot resolve import %q (tried %s)", importPath, strings.Join(candidates, ", "))
}
