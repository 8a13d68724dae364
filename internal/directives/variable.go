package directives

import (
	"fmt"
	"strconv"
)

// Variable identifies one of the seven tunables a directive file may
// override via a `set` item, ported from
// lib-lopez/src/directives/variable.rs (spec.md §4.8). EnablePageRank is
// absent from that file's oldest snapshot but present everywhere else in
// the original sources (directives/mod.rs references it); it is included
// here since spec.md §4.8 names it explicitly.
type Variable int

const (
	VarUserAgent Variable = iota
	VarQuota
	VarMaxDepth
	VarMaxHitsPerSec
	VarRequestTimeout
	VarMaxBodySize
	VarEnablePageRank
)

var variableNames = map[string]Variable{
	"user_agent":        VarUserAgent,
	"quota":             VarQuota,
	"max_depth":         VarMaxDepth,
	"max_hits_per_sec":  VarMaxHitsPerSec,
	"request_timeout":   VarRequestTimeout,
	"max_body_size":     VarMaxBodySize,
	"enable_page_rank":  VarEnablePageRank,
}

// ParseVariable resolves a directive-file identifier into a Variable.
func ParseVariable(name string) (Variable, error) {
	v, ok := variableNames[name]
	if !ok {
		return 0, fmt.Errorf("directives: unknown variable %q", name)
	}
	return v, nil
}

func (v Variable) String() string {
	for name, vv := range variableNames {
		if vv == v {
			return name
		}
	}
	return "unknown"
}

// Defaults mirror variable.rs's per-variable default literals and
// validation rules.
const (
	DefaultUserAgent      = "crawlwave/1.0 (+https://github.com/codepr/crawlwave)"
	DefaultQuota          = 1000
	DefaultMaxDepth       = 7
	DefaultMaxHitsPerSec  = 2.5
	DefaultRequestTimeout = 60.0
	DefaultMaxBodySize    = 1 << 20 // 1 MiB
	DefaultEnablePageRank = false
)

// Validate checks a literal value parsed for variable v against its
// declared domain (positivity, integrality, etc.), matching variable.rs's
// retrieve_as_* validation.
func (v Variable) Validate(literal string) error {
	switch v {
	case VarQuota, VarMaxDepth:
		n, err := strconv.Atoi(literal)
		if err != nil || n <= 0 {
			return fmt.Errorf("directives: %s must be a positive integer, got %q", v, literal)
		}
	case VarMaxHitsPerSec, VarRequestTimeout:
		f, err := strconv.ParseFloat(literal, 64)
		if err != nil || f <= 0 {
			return fmt.Errorf("directives: %s must be a positive number, got %q", v, literal)
		}
	case VarMaxBodySize:
		n, err := strconv.ParseInt(literal, 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("directives: %s must be a positive integer, got %q", v, literal)
		}
	case VarEnablePageRank:
		if _, err := strconv.ParseBool(literal); err != nil {
			return fmt.Errorf("directives: %s must be a boolean, got %q", v, literal)
		}
	case VarUserAgent:
		if literal == "" {
			return fmt.Errorf("directives: %s must not be empty", v)
		}
	}
	return nil
}

// SetVariables is the fully-resolved, typed variable table for one
// directive module tree after defaults have been applied.
type SetVariables struct {
	values map[Variable]string
}

// NewSetVariables builds a SetVariables seeded with every default.
func NewSetVariables() *SetVariables {
	return &SetVariables{values: map[Variable]string{
		VarUserAgent:      DefaultUserAgent,
		VarQuota:          strconv.Itoa(DefaultQuota),
		VarMaxDepth:       strconv.Itoa(DefaultMaxDepth),
		VarMaxHitsPerSec:  strconv.FormatFloat(DefaultMaxHitsPerSec, 'f', -1, 64),
		VarRequestTimeout: strconv.FormatFloat(DefaultRequestTimeout, 'f', -1, 64),
		VarMaxBodySize:    strconv.Itoa(DefaultMaxBodySize),
		VarEnablePageRank: strconv.FormatBool(DefaultEnablePageRank),
	}}
}

// Set overrides v's value, validating it first.
func (s *SetVariables) Set(v Variable, literal string) error {
	if err := v.Validate(literal); err != nil {
		return err
	}
	s.values[v] = literal
	return nil
}

func (s *SetVariables) AsString(v Variable) string { return s.values[v] }

func (s *SetVariables) AsPositiveInt(v Variable) int {
	n, _ := strconv.Atoi(s.values[v])
	return n
}

func (s *SetVariables) AsPositiveFloat(v Variable) float64 {
	f, _ := strconv.ParseFloat(s.values[v], 64)
	return f
}

func (s *SetVariables) AsBool(v Variable) bool {
	b, _ := strconv.ParseBool(s.values[v])
	return b
}
