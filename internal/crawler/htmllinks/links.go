// Package htmllinks extracts outbound anchor and canonical links from an
// HTML document, generalizing the teacher's GoqueryParser
// (crawler/fetcher/parser.go) to tag each link with why it was found
// (spec.md §4.6).
package htmllinks

import (
	"io"
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/codepr/crawlwave/internal/crawler/boundary"
	"github.com/codepr/crawlwave/internal/crawler/reason"
)

// Link is a single outbound reference discovered on a page, resolved
// against the page's URL but not yet filtered by any boundary rule —
// filtering happens exactly once, centrally, in the worker (spec.md §4.9's
// "filtering rule" invariant: this package never applies a boundary rule
// itself; it only skips references that cannot be resolved).
type Link struct {
	URL    *url.URL
	Reason reason.Reason
}

// ExtractLinks parses body as HTML and returns every <a href> and
// <link rel="canonical"> reference, in document order, resolved against
// base via boundary.CheckedJoin. References that fail to resolve (bad
// scheme, missing host, bare fragment) are silently skipped, matching the
// teacher's resolveRelativeURL "ok bool" contract.
func ExtractLinks(base *url.URL, body io.Reader) ([]Link, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, err
	}
	return FromDocument(base, doc), nil
}

// FromDocument extracts links from an already-parsed document, letting a
// caller that also runs the extraction engine over doc (internal/crawler/worker's
// crawl step) parse the body exactly once.
func FromDocument(base *url.URL, doc *goquery.Document) []Link {
	var links []Link
	doc.Find("a[href], link[href]").Each(func(_ int, el *goquery.Selection) {
		href, _ := el.Attr("href")
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved, err := boundary.CheckedJoin(base, ref)
		if err != nil {
			return
		}

		r := reason.Ahref
		if rel, ok := el.Attr("rel"); ok && rel == "canonical" {
			r = reason.Canonical
		} else if el.Is("link") {
			return // non-canonical <link> elements are not link candidates
		}
		links = append(links, Link{URL: resolved, Reason: r})
	})
	return links
}
