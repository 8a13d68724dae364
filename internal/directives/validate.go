package directives

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate runs every static check the `validate`/`run` CLI subcommands
// require before a crawl starts: seeds must be absolute http(s) URLs, and
// every rule's pipeline must type-check. Diagnostics are collected rather
// than returned on the first failure, matching directives/error.rs's
// ValidationError list, which the `validate` subcommand prints in full.
func Validate(d *Directives) error {
	var problems []string

	if len(d.Seeds) == 0 {
		problems = append(problems, "no seed URLs declared")
	}
	for _, raw := range d.Seeds {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			problems = append(problems, fmt.Sprintf("invalid seed URL %q", raw))
			continue
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			problems = append(problems, fmt.Sprintf("seed URL %q must use http or https", raw))
			continue
		}
		if !d.Boundaries.IsAllowed(u) {
			problems = append(problems, fmt.Sprintf("seed URL %q is disallowed by this module's boundaries", raw))
		}
		if d.Boundaries.IsFrontier(u) {
			problems = append(problems, fmt.Sprintf("seed URL %q is on the frontier; it can never be queued", raw))
		}
	}

	for _, r := range d.Rules {
		if _, err := r.Expr.TypeOf(); err != nil {
			problems = append(problems, fmt.Sprintf("rule %q: %v", r.Name, err))
		}
	}

	if d.Variables.AsPositiveFloat(VarMaxHitsPerSec) <= 0 {
		problems = append(problems, "max_hits_per_sec must be strictly positive")
	}
	if d.Variables.AsPositiveInt(VarQuota) <= 0 {
		problems = append(problems, "quota must be strictly positive")
	}

	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}

// ValidationError aggregates every problem Validate found.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("directives: %d validation error(s):\n  - %s", len(e.Problems), strings.Join(e.Problems, "\n  - "))
}
