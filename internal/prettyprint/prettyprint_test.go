package prettyprint

import (
	"bytes"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codepr/crawlwave/internal/crawler/worker"
)

func TestTestRunReportDisallowedByDirectives(t *testing.T) {
	u, _ := url.Parse("https://example.com/admin")
	var buf bytes.Buffer
	TestRunReport(&buf, worker.TestRunReport{ActualURL: u, Kind: worker.ReportDisallowedByDirectives})
	require.Contains(t, buf.String(), "disallowed by this module's directives")
}

func TestTestRunReportDisallowedByOrigin(t *testing.T) {
	u, _ := url.Parse("https://example.com/private")
	var buf bytes.Buffer
	TestRunReport(&buf, worker.TestRunReport{ActualURL: u, Kind: worker.ReportDisallowedByOrigin})
	require.Contains(t, buf.String(), "robots.txt")
}

func TestTestRunReportCrawledSuccess(t *testing.T) {
	u, _ := url.Parse("https://example.com/")
	var buf bytes.Buffer
	report := worker.TestRunReport{
		ActualURL: u,
		Kind:      worker.ReportCrawled,
		Crawled: worker.Crawled{
			Kind:       worker.KindSuccess,
			StatusCode: 200,
		},
	}
	TestRunReport(&buf, report)
	require.Contains(t, buf.String(), "crawled (status 200)")
}

func TestTestRunReportRedirect(t *testing.T) {
	u, _ := url.Parse("https://example.com/old")
	var buf bytes.Buffer
	report := worker.TestRunReport{
		ActualURL: u,
		Kind:      worker.ReportCrawled,
		Crawled: worker.Crawled{
			Kind:       worker.KindRedirect,
			StatusCode: 301,
			Location:   "https://example.com/new",
		},
	}
	TestRunReport(&buf, report)
	require.Contains(t, buf.String(), "redirect 301 -> https://example.com/new")
}
