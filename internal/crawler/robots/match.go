package robots

import "strings"

// Match is a single robots.txt Disallow/Allow rule compiled the way
// lib-lopez/src/crawler/robots.rs compiles them: a `*` wildcard splits the
// pattern into literal segments that must occur in order, and a trailing
// `$` anchors the match so the route must be fully consumed by the last
// segment.
type Match struct {
	segments []string
	anchored bool
}

// NewMatch compiles a raw robots.txt path pattern into a Match.
func NewMatch(pattern string) Match {
	anchored := strings.HasSuffix(pattern, "$")
	if anchored {
		pattern = strings.TrimSuffix(pattern, "$")
	}
	return Match{segments: strings.Split(pattern, "*"), anchored: anchored}
}

// Matches reports whether route satisfies the compiled pattern.
func (m Match) Matches(route string) bool {
	rest := route
	for i, seg := range m.segments {
		if seg == "" {
			continue
		}
		if m.anchored && i == len(m.segments)-1 {
			if i == 0 {
				return rest == seg
			}
			return strings.HasSuffix(rest, seg)
		}
		idx := strings.Index(rest, seg)
		if idx < 0 {
			return false
		}
		if i == 0 && idx != 0 {
			// the first literal segment must match at the start of the route
			return false
		}
		rest = rest[idx+len(seg):]
	}
	if m.anchored {
		return rest == ""
	}
	return true
}
