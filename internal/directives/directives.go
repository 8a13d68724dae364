package directives

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/codepr/crawlwave/internal/crawler/boundary"
)

// Directives is the flattened, validated view of a Module and every
// module it transitively imports: a single set of seeds, boundaries and
// rules ready to hand to the crawler, matching the aggregate view
// directives/mod.rs builds over a Module tree before a crawl starts.
type Directives struct {
	Root       *Module
	Seeds      []string
	Boundaries boundary.Boundaries
	Variables  *SetVariables
	Rules      []Rule
}

// Load parses path and every module it imports (searching importPath's
// root for `root/...` imports), compiles every rule, flattens the result
// and validates it.
func Load(path, importPath string) (*Directives, error) {
	loader := NewLoader(importPath)
	root, err := loader.Load(path)
	if err != nil {
		return nil, err
	}
	d, err := Flatten(root)
	if err != nil {
		return nil, err
	}
	if err := Validate(d); err != nil {
		return nil, err
	}
	return d, nil
}

// Flatten walks m's import tree depth-first, merging seeds/boundaries/
// rules from every module and letting a module's own `set` statements
// override the defaults and imports it pulled in (imports are visited
// first, so the importing module's own sets are applied last and win).
func Flatten(m *Module) (*Directives, error) {
	d := &Directives{Root: m, Variables: NewSetVariables()}
	seen := map[string]bool{}
	ruleFiles := map[string]string{}

	var allow, disallow, frontier []string
	useParams := map[string]bool{}
	ignoreParams := map[string]bool{}
	useAll := false

	var visit func(mod *Module) error
	visit = func(mod *Module) error {
		if seen[mod.Path] {
			return nil
		}
		seen[mod.Path] = true
		for _, imp := range mod.Imports {
			if err := visit(imp); err != nil {
				return err
			}
		}
		d.Seeds = append(d.Seeds, mod.Seeds...)
		allow = append(allow, mod.Allow...)
		disallow = append(disallow, mod.Disallow...)
		frontier = append(frontier, mod.Frontier...)
		for _, p := range mod.UseParams {
			useParams[p] = true
		}
		for _, p := range mod.IgnoreParams {
			ignoreParams[p] = true
		}
		useAll = useAll || mod.UseAllParams
		for v := range mod.Variables.values {
			_ = d.Variables.Set(v, mod.Variables.AsString(v))
		}
		for _, r := range mod.Rules {
			if prev, ok := ruleFiles[r.Name]; ok && prev != r.File {
				return fmt.Errorf("directives: rule %q defined in both %s and %s", r.Name, prev, r.File)
			}
			ruleFiles[r.Name] = r.File
			d.Rules = append(d.Rules, r)
		}
		return nil
	}
	if err := visit(m); err != nil {
		return nil, err
	}

	b, err := compileBoundaries(allow, disallow, frontier, useAll, useParams, ignoreParams)
	if err != nil {
		return nil, err
	}
	d.Boundaries = b
	return d, nil
}

func compileBoundaries(allow, disallow, frontier []string, useAll bool, useParams, ignoreParams map[string]bool) (boundary.Boundaries, error) {
	allowRe, err := alternation(allow)
	if err != nil {
		return boundary.Boundaries{}, fmt.Errorf("directives: allow: %w", err)
	}
	disallowRe, err := alternation(disallow)
	if err != nil {
		return boundary.Boundaries{}, fmt.Errorf("directives: disallow: %w", err)
	}
	frontierRe, err := alternation(frontier)
	if err != nil {
		return boundary.Boundaries{}, fmt.Errorf("directives: frontier: %w", err)
	}
	return boundary.Boundaries{
		Allow:        allowRe,
		Disallow:     disallowRe,
		Frontier:     frontierRe,
		UseAllParams: useAll,
		UseParams:    useParams,
		IgnoreParams: ignoreParams,
	}, nil
}

// alternation joins one or more regex source fragments into a single
// compiled pattern. A nil result (no fragments) is left for
// boundary.Boundaries to interpret: a nil Allow places no restriction, a
// nil Disallow or Frontier matches nothing.
func alternation(patterns []string) (*regexp.Regexp, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	joined := make([]string, len(patterns))
	for i, p := range patterns {
		joined[i] = "(?:" + p + ")"
	}
	return regexp.Compile(strings.Join(joined, "|"))
}

// defaultModuleName derives a human-readable module name from its path:
// the file's base name without its extension.
func defaultModuleName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
