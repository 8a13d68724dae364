// Package prettyprint renders a single TestRunReport to stdout for the
// `crawlwave test` subcommand, the Go equivalent of lib-lopez/src/lib.rs's
// println! formatting of a test_url result.
package prettyprint

import (
	"fmt"
	"io"

	"github.com/codepr/crawlwave/internal/crawler/worker"
)

// TestRunReport writes a human-readable rendering of report to w.
func TestRunReport(w io.Writer, report worker.TestRunReport) {
	switch report.Kind {
	case worker.ReportDisallowedByDirectives:
		fmt.Fprintf(w, "%s: disallowed by this module's directives\n", report.ActualURL)
	case worker.ReportDisallowedByOrigin:
		fmt.Fprintf(w, "%s: disallowed by robots.txt\n", report.ActualURL)
	case worker.ReportCrawled:
		crawledResult(w, report.ActualURL.String(), report.Crawled)
	}
}

func crawledResult(w io.Writer, u string, c worker.Crawled) {
	switch c.Kind {
	case worker.KindTimedOut:
		fmt.Fprintf(w, "%s: timed out\n", u)
	case worker.KindError:
		fmt.Fprintf(w, "%s: error: %v\n", u, c.Err)
	case worker.KindBadStatus:
		fmt.Fprintf(w, "%s: bad status %d\n", u, c.StatusCode)
	case worker.KindRedirect:
		fmt.Fprintf(w, "%s: redirect %d -> %s\n", u, c.StatusCode, c.Location)
	case worker.KindSuccess:
		fmt.Fprintf(w, "%s: crawled (status %d)\n", u, c.StatusCode)
		fmt.Fprintf(w, "  %d link(s) found\n", len(c.Links))
		for _, a := range c.Analyses {
			fmt.Fprintf(w, "  %s = %v\n", a.Name, a.Value)
		}
	}
}
