// Package robots implements robots.txt exclusion rules and the politely
// degrading fetch policy used to retrieve them (spec.md §4.3).
package robots

import (
	"time"

	"github.com/temoto/robotstxt"
)

// Exclusion holds the parsed robots.txt group for a single origin, for a
// specific user agent.
type Exclusion struct {
	group *robotstxt.Group
}

// NewExclusion parses raw robots.txt content and selects the section
// matching userAgent, falling back to the wildcard (`*`) section —
// temoto/robotstxt.Group.Test already implements the wildcard/anchor path
// matching described by match.go's Match type, so Exclusion simply wraps
// it; Match is kept standalone (and unit-tested against the original's
// documented examples) as the specification of record for that matching
// behavior, in case a future robots.txt parser swap needs re-validating
// against it.
func NewExclusion(body []byte, userAgent string) (*Exclusion, error) {
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil, err
	}
	return &Exclusion{group: data.FindGroup(userAgent)}, nil
}

// Allows reports whether route may be fetched under this exclusion. A nil
// Exclusion (no robots.txt was found) allows everything.
func (e *Exclusion) Allows(route string) bool {
	if e == nil || e.group == nil {
		return true
	}
	return e.group.Test(route)
}

// CrawlDelay returns the robots.txt-declared crawl delay, or 0 if none was
// declared.
func (e *Exclusion) CrawlDelay() time.Duration {
	if e == nil || e.group == nil {
		return 0
	}
	return e.group.CrawlDelay
}
