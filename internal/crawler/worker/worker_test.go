package worker

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codepr/crawlwave/internal/crawler/boundary"
	"github.com/codepr/crawlwave/internal/crawler/counter"
	"github.com/codepr/crawlwave/internal/crawler/download"
	"github.com/codepr/crawlwave/internal/crawler/origin"
	"github.com/codepr/crawlwave/internal/crawler/profile"
	"github.com/codepr/crawlwave/internal/crawler/reason"
	"github.com/codepr/crawlwave/internal/directives"
	"github.com/codepr/crawlwave/internal/storage"
)

func newTestWorker(t *testing.T, srv *httptest.Server) *Worker {
	t.Helper()
	d := &directives.Directives{
		Boundaries: boundary.Boundaries{UseAllParams: true},
		Variables:  directives.NewSetVariables(),
	}
	return &Worker{
		ID:             0,
		Downloader:     download.NewHTTPDownloader("crawlwave-test/1.0", 5*time.Second),
		Boundaries:     &d.Boundaries,
		Origins:        origin.NewRegistry(srv.Client(), "crawlwave-test/1.0", 100),
		Directives:     d,
		Counter:        &counter.Counter{},
		Profile:        profile.Default(),
		RequestTimeout: 5 * time.Second,
		MaxBodySize:    1 << 20,
	}
}

func TestCrawlSuccessExtractsLinks(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><a href="/about">About</a><h1>Hello</h1></body></html>`))
	})
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nAllow: /\n"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	w := newTestWorker(t, srv)
	u, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)

	crawled := w.crawl(context.Background(), u)
	require.Equal(t, KindSuccess, crawled.Kind)
	require.Equal(t, 200, crawled.StatusCode)
	require.NotEmpty(t, crawled.Links)
}

func TestCrawlBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	w := newTestWorker(t, srv)
	u, _ := url.Parse(srv.URL + "/missing")

	crawled := w.crawl(context.Background(), u)
	require.Equal(t, KindBadStatus, crawled.Kind)
	require.Equal(t, 404, crawled.StatusCode)
}

func TestCrawlRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "/new")
		w.WriteHeader(http.StatusMovedPermanently)
	}))
	defer srv.Close()

	w := newTestWorker(t, srv)
	u, _ := url.Parse(srv.URL + "/old")

	crawled := w.crawl(context.Background(), u)
	require.Equal(t, KindRedirect, crawled.Kind)
	require.Equal(t, "/new", crawled.Location)
}

func TestCrawlTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	w := newTestWorker(t, srv)
	w.RequestTimeout = 1 * time.Millisecond
	u, _ := url.Parse(srv.URL + "/")

	crawled := w.crawl(context.Background(), u)
	require.Equal(t, KindTimedOut, crawled.Kind)
}

// fakeWorkerBackend records every call it receives, for asserting store's
// persistence decisions without a real storage adapter.
type fakeWorkerBackend struct {
	activeCalls   int
	explored      []storage.OutLink
	exploredDepth int
	analyzed      []storage.NamedValue
	errored       bool
}

func (f *fakeWorkerBackend) EnsureActive(ctx context.Context, u *url.URL) error {
	f.activeCalls++
	return nil
}
func (f *fakeWorkerBackend) EnsureAnalyzed(ctx context.Context, u *url.URL, analyses []storage.NamedValue) error {
	f.analyzed = append(f.analyzed, analyses...)
	return nil
}
func (f *fakeWorkerBackend) EnsureExplored(ctx context.Context, u *url.URL, statusCode, newDepth int, links []storage.OutLink) error {
	f.explored = append(f.explored, links...)
	f.exploredDepth = newDepth
	return nil
}
func (f *fakeWorkerBackend) EnsureError(ctx context.Context, u *url.URL) error {
	f.errored = true
	return nil
}
func (f *fakeWorkerBackend) Close() error { return nil }

// writeDirectiveFile writes content under dir/name, for building a
// *directives.Directives from source text without a fixture repo.
func writeDirectiveFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestCrawlRedirectRecordsEdgeWithIncrementedDepth locks in the
// redirect-as-edge golden scenario: a redirecting page is stored as
// explored with its target as a single redirect-reasoned out-link, queued
// one depth deeper than the page that issued it.
func TestCrawlRedirectRecordsEdgeWithIncrementedDepth(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "/new")
		w.WriteHeader(http.StatusMovedPermanently)
	})
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nAllow: /\n"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	w := newTestWorker(t, srv)
	backend := &fakeWorkerBackend{}
	u, err := url.Parse(srv.URL + "/old")
	require.NoError(t, err)

	require.NoError(t, w.crawlTask(context.Background(), backend, u, 2))
	require.Len(t, backend.explored, 1)
	require.Equal(t, reason.Redirect, backend.explored[0].Reason)
	require.Equal(t, srv.URL+"/new", backend.explored[0].URL.String())
	require.Equal(t, 3, backend.exploredDepth)
}

// TestCrawlTaskRobotsBlockedSkipsWithoutError locks in the
// robots-blocks-without-error golden scenario: a path disallowed by
// robots.txt is skipped silently — no backend call at all, and no error.
func TestCrawlTaskRobotsBlockedSkipsWithoutError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/private", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>secret</body></html>"))
	})
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow: /private\n"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	w := newTestWorker(t, srv)
	backend := &fakeWorkerBackend{}
	u, err := url.Parse(srv.URL + "/private")
	require.NoError(t, err)

	require.NoError(t, w.crawlTask(context.Background(), backend, u, 0))
	require.Equal(t, 0, backend.activeCalls)
	require.Empty(t, backend.explored)
	require.False(t, backend.errored)
}

// TestCrawlTaskHonoursRateLimit locks in the rate-limit-honoured golden
// scenario: two tasks dispatched back to back against the same origin are
// spaced at least the origin's configured minimum interval apart.
func TestCrawlTaskHonoursRateLimit(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html></html>"))
	})
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nAllow: /\n"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	w := newTestWorker(t, srv)
	w.Origins = origin.NewRegistry(srv.Client(), "crawlwave-test/1.0", 20) // 50ms min spacing
	backend := &fakeWorkerBackend{}
	u, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)

	require.NoError(t, w.crawlTask(context.Background(), backend, u, 0))
	start := time.Now()
	require.NoError(t, w.crawlTask(context.Background(), backend, u, 0))
	require.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

// TestCrawlSuccessAggregatesNestedSelectAll locks in the mandatory
// select-all(expr, sel) aggregation scenario at the crawl level: each
// matched `ul` yields one array of its `li` children's numeric text.
func TestCrawlSuccessAggregatesNestedSelectAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><ul><li>1</li><li>2</li><li>3</li></ul></body></html>`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	entry := writeDirectiveFile(t, dir, "main.lcd", fmt.Sprintf(`
seed %q
rule xs in "ul" = select_all({ text() | as_number() }, "li") | collect()
`, srv.URL+"/"))
	d, err := directives.Load(entry, dir)
	require.NoError(t, err)

	w := newTestWorker(t, srv)
	w.Directives = d
	w.Boundaries = &d.Boundaries

	u, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)

	crawled := w.crawl(context.Background(), u)
	require.Equal(t, KindSuccess, crawled.Kind)
	require.Len(t, crawled.Analyses, 1)
	require.Equal(t, "xs", crawled.Analyses[0].Name)
	require.Equal(t, []any{[]any{1.0, 2.0, 3.0}}, crawled.Analyses[0].Value)
}

func TestStorePersistsErrorOutcome(t *testing.T) {
	d := &directives.Directives{
		Boundaries: boundary.Boundaries{UseAllParams: true},
		Variables:  directives.NewSetVariables(),
	}
	w := &Worker{Boundaries: &d.Boundaries, Counter: &counter.Counter{}}
	backend := &fakeWorkerBackend{}
	u, _ := url.Parse("https://example.com/")

	err := w.store(context.Background(), backend, u, 0, Crawled{Kind: KindError})
	require.NoError(t, err)
	require.True(t, backend.errored)
	require.Equal(t, int64(1), w.Counter.NErrors())
}
