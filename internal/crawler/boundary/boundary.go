// Package boundary implements URL resolution and the directive-level
// allow/disallow/frontier rules that decide which discovered links are
// worth queueing for a crawl.
package boundary

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"

	"github.com/PuerkitoBio/purell"
)

// CheckedJoin resolves ref against base and rejects anything that would not
// make sense as a crawlable HTTP(S) resource: relative schemes other than
// http/https, missing hosts, and bare fragment references.
func CheckedJoin(base, ref *url.URL) (*url.URL, error) {
	joined := base.ResolveReference(ref)
	if joined.Scheme != "http" && joined.Scheme != "https" {
		return nil, fmt.Errorf("boundary: unsupported scheme %q in %s", joined.Scheme, joined)
	}
	if joined.Host == "" {
		return nil, fmt.Errorf("boundary: missing host in %s", joined)
	}
	if ref.Path == "" && ref.RawQuery == "" && ref.Fragment != "" {
		return nil, fmt.Errorf("boundary: %s is a bare fragment reference", ref)
	}
	normalized, err := purell.NormalizeURLString(joined.String(),
		purell.FlagsUsuallySafeGreedy&^purell.FlagRemoveFragment&^purell.FlagRemoveTrailingSlash)
	if err != nil {
		return joined, nil
	}
	parsed, err := url.Parse(normalized)
	if err != nil {
		return joined, nil
	}
	return parsed, nil
}

// Boundaries holds the compiled allow/disallow/frontier rule sets and the
// query-parameter canonicalization policy assembled from a directive file's
// `boundary` items (spec.md §4.2).
type Boundaries struct {
	Allow    *regexp.Regexp
	Disallow *regexp.Regexp
	Frontier *regexp.Regexp

	UseAllParams bool
	UseParams    map[string]bool
	IgnoreParams map[string]bool
}

// IsAllowed reports whether u may be downloaded: it must not match Disallow,
// and if Allow is set it must also match it. Frontier is not consulted here.
func (b *Boundaries) IsAllowed(u *url.URL) bool {
	s := u.String()
	if b.Disallow != nil && b.Disallow.MatchString(s) {
		return false
	}
	if b.Allow != nil && !b.Allow.MatchString(s) {
		return false
	}
	return true
}

// IsFrontier reports whether u is on the crawl's frontier: such a page may
// still be fetched, but the links found on it are not followed. It is
// independent of whether u is allowed.
func (b *Boundaries) IsFrontier(u *url.URL) bool {
	if b.Frontier == nil {
		return false
	}
	return b.Frontier.MatchString(u.String())
}

// FilterQueryParams rewrites u's query string according to the
// use_all_params/use_params/ignore_params policy, returning a new URL value
// (u itself is left untouched).
func (b *Boundaries) FilterQueryParams(u *url.URL) *url.URL {
	out := *u
	if b.UseAllParams {
		return &out
	}
	q := out.Query()
	kept := url.Values{}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if b.IgnoreParams[k] {
			continue
		}
		if len(b.UseParams) > 0 && !b.UseParams[k] {
			continue
		}
		kept[k] = q[k]
	}
	out.RawQuery = kept.Encode()
	return &out
}

// CleanLinks sorts and deduplicates a slice of URLs by their string form,
// matching the original boundaries.rs Boundaries::clean_links contract.
func CleanLinks(links []*url.URL) []*url.URL {
	sort.Slice(links, func(i, j int) bool { return links[i].String() < links[j].String() })
	out := links[:0]
	var last string
	first := true
	for _, l := range links {
		s := l.String()
		if !first && s == last {
			continue
		}
		out = append(out, l)
		last = s
		first = false
	}
	return out
}
