// Package worker implements one crawl worker shard: pulling dispatched
// (URL, depth) tasks off a channel, fetching and parsing each page, and
// persisting the outcome. Ported step-for-step from
// lib-lopez/src/crawler/worker.rs's CrawlWorker.
package worker

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html/charset"
	"golang.org/x/sync/errgroup"

	"github.com/codepr/crawlwave/internal/crawler/boundary"
	"github.com/codepr/crawlwave/internal/crawler/counter"
	"github.com/codepr/crawlwave/internal/crawler/download"
	"github.com/codepr/crawlwave/internal/crawler/htmllinks"
	"github.com/codepr/crawlwave/internal/crawler/origin"
	"github.com/codepr/crawlwave/internal/crawler/profile"
	"github.com/codepr/crawlwave/internal/crawler/reason"
	"github.com/codepr/crawlwave/internal/directives"
	"github.com/codepr/crawlwave/internal/runtime"
	"github.com/codepr/crawlwave/internal/storage"
)

// crawledKind discriminates Crawled's five cases.
type crawledKind int

const (
	crawledSuccess crawledKind = iota
	crawledBadStatus
	crawledRedirect
	crawledError
	crawledTimedOut
)

// Exported aliases of the crawledKind values, letting callers outside this
// package (internal/prettyprint) switch on Crawled.Kind without needing the
// unexported type name.
const (
	KindSuccess   = crawledSuccess
	KindBadStatus = crawledBadStatus
	KindRedirect  = crawledRedirect
	KindError     = crawledError
	KindTimedOut  = crawledTimedOut
)

// Crawled is the outcome of one download+parse attempt, the Go sum type
// for worker.rs's `Crawled` enum.
type Crawled struct {
	Kind       crawledKind
	StatusCode int
	Links      []htmllinks.Link
	Analyses   []directives.NamedValue
	Location   string
	Err        error
}

// Task is one dispatched unit of work: a URL at a given link depth.
type Task struct {
	URL   *url.URL
	Depth int
}

// Worker crawls pages belonging to however many origins the master routes
// to it, sharing one Boundaries/Origins/Directives view across every task.
type Worker struct {
	ID             int
	Downloader     download.Downloader
	Boundaries     *boundary.Boundaries
	Origins        *origin.Registry
	Directives     *directives.Directives
	Counter        *counter.Counter
	Profile        *profile.Profile
	RequestTimeout time.Duration
	MaxBodySize    int64
}

// crawl downloads and parses pageURL, classifying the outcome exactly as
// worker.rs's `crawl` method does.
func (w *Worker) crawl(ctx context.Context, pageURL *url.URL) Crawled {
	ctx, cancel := context.WithTimeout(ctx, w.RequestTimeout)
	defer cancel()

	downloaded, err := w.Downloader.Download(ctx, pageURL.String(), w.MaxBodySize)
	if err != nil {
		if ctx.Err() != nil {
			return Crawled{Kind: crawledTimedOut}
		}
		return Crawled{Kind: crawledError, Err: err}
	}

	switch downloaded.Kind {
	case download.KindBadStatus:
		return Crawled{Kind: crawledBadStatus, StatusCode: downloaded.StatusCode}
	case download.KindRedirect:
		return Crawled{Kind: crawledRedirect, StatusCode: downloaded.StatusCode, Location: downloaded.Location}
	case download.KindPage:
		utf8Body, err := charset.NewReader(bytes.NewReader(downloaded.Content), downloaded.ContentType)
		if err != nil {
			return Crawled{Kind: crawledError, Err: err}
		}
		doc, err := goquery.NewDocumentFromReader(utf8Body)
		if err != nil {
			return Crawled{Kind: crawledError, Err: err}
		}
		links := htmllinks.FromDocument(pageURL, doc)
		analyses := directives.Analyze(doc, w.Directives)
		return Crawled{
			Kind:       crawledSuccess,
			StatusCode: downloaded.StatusCode,
			Links:      w.cleanLinks(pageURL, links),
			Analyses:   analyses,
		}
	default:
		return Crawled{Kind: crawledError, Err: fmt.Errorf("worker: unknown downloaded kind %d", downloaded.Kind)}
	}
}

// cleanLinks applies the frontier/allowed/query-canonicalization/dedup
// pass of boundaries.rs's `clean_links` default method. Links keep their
// discovery order (they are not sorted) and are deduplicated per
// (reason, URL) pair. It
// lives here, not in package boundary, because it must combine
// boundary.Boundaries with htmllinks.Link — importing either direction
// would cycle (htmllinks already imports boundary for CheckedJoin).
func (w *Worker) cleanLinks(pageURL *url.URL, links []htmllinks.Link) []storage.OutLink {
	if w.Boundaries.IsFrontier(pageURL) {
		return nil
	}
	out := make([]storage.OutLink, 0, len(links))
	seen := map[string]bool{}
	for _, l := range links {
		cleaned := w.Boundaries.FilterQueryParams(l.URL)
		if !w.Boundaries.IsAllowed(cleaned) {
			continue
		}
		key := fmt.Sprintf("%d|%s", l.Reason, cleaned.String())
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, storage.OutLink{Reason: l.Reason, URL: cleaned})
	}
	return out
}

// store persists crawled exactly as worker.rs's `store` method switches
// over Crawled's five cases.
func (w *Worker) store(ctx context.Context, wb storage.WorkerBackend, pageURL *url.URL, depth int, crawled Crawled) error {
	switch crawled.Kind {
	case crawledSuccess:
		analyses := make([]storage.NamedValue, len(crawled.Analyses))
		for i, a := range crawled.Analyses {
			analyses[i] = storage.NamedValue{Name: a.Name, Value: a.Value}
		}
		if err := wb.EnsureAnalyzed(ctx, pageURL, analyses); err != nil {
			return err
		}
		return wb.EnsureExplored(ctx, pageURL, crawled.StatusCode, depth+1, crawled.Links)

	case crawledBadStatus:
		return wb.EnsureExplored(ctx, pageURL, crawled.StatusCode, depth+1, nil)

	case crawledRedirect:
		parsed, err := url.Parse(crawled.Location)
		if err != nil {
			logrus.WithError(err).WithField("url", pageURL.String()).Debug("unparseable redirect target")
			return nil
		}
		location, err := boundary.CheckedJoin(pageURL, parsed)
		if err != nil {
			logrus.WithError(err).WithField("url", pageURL.String()).Debug("bad redirect target")
			return nil
		}
		if w.Boundaries.IsFrontier(pageURL) {
			return nil
		}
		cleaned := w.Boundaries.FilterQueryParams(location)
		if !w.Boundaries.IsAllowed(cleaned) {
			return nil
		}
		return wb.EnsureExplored(ctx, pageURL, crawled.StatusCode, depth+1,
			[]storage.OutLink{{Reason: reason.Redirect, URL: cleaned}})

	case crawledError:
		logrus.WithError(crawled.Err).WithField("url", pageURL.String()).Debug("crawl error")
		if err := wb.EnsureError(ctx, pageURL); err != nil {
			return err
		}
		w.Counter.RegisterError()
		return nil

	case crawledTimedOut:
		logrus.WithField("url", pageURL.String()).Debug("crawl timed out")
		if err := wb.EnsureError(ctx, pageURL); err != nil {
			return err
		}
		w.Counter.RegisterError()
		return nil

	default:
		return fmt.Errorf("worker: unknown crawled kind %d", crawled.Kind)
	}
}

// crawlTask runs one dispatched task end to end: origin resolution,
// robots/allow check, pacing, download+parse, persist.
func (w *Worker) crawlTask(ctx context.Context, wb storage.WorkerBackend, pageURL *url.URL, depth int) error {
	o, err := w.Origins.Get(ctx, pageURL.Scheme, pageURL.Host)
	if err != nil {
		return err
	}
	if !o.Allows(pageURL.RequestURI()) {
		return nil
	}
	if err := o.Block(ctx); err != nil {
		return err
	}

	if err := wb.EnsureActive(ctx, pageURL); err != nil {
		return err
	}

	w.Counter.IncActive()
	crawled := w.crawl(ctx, pageURL)
	w.Counter.DecActive()

	return w.store(ctx, wb, pageURL, depth, crawled)
}

// ReportKind discriminates TestRunReport's three cases, ported from
// worker.rs's ReportType.
type ReportKind int

const (
	ReportDisallowedByDirectives ReportKind = iota
	ReportDisallowedByOrigin
	ReportCrawled
)

// TestRunReport is the `crawlwave test` subcommand's output, describing
// what would happen to a single URL without writing anything durable.
type TestRunReport struct {
	ActualURL *url.URL
	Kind      ReportKind
	Crawled   Crawled
}

// TestRunURL runs the same allow/origin checks and download+parse pass
// crawlTask does, but never persists anything, matching worker.rs's
// `test_url`. wb is expected to be a no-op/dummy WorkerBackend (see
// internal/storage/dummystore): TestRunURL still calls EnsureActive on it
// for parity with the dispatched-task path, but never calls any of its
// other, persisting methods.
func (w *Worker) TestRunURL(ctx context.Context, wb storage.WorkerBackend, u *url.URL) TestRunReport {
	actual := w.Boundaries.FilterQueryParams(u)

	if !w.Boundaries.IsAllowed(actual) {
		return TestRunReport{ActualURL: actual, Kind: ReportDisallowedByDirectives}
	}

	o, err := w.Origins.Get(ctx, actual.Scheme, actual.Host)
	if err != nil {
		return TestRunReport{ActualURL: actual, Kind: ReportDisallowedByOrigin}
	}
	if !o.Allows(actual.RequestURI()) {
		return TestRunReport{ActualURL: actual, Kind: ReportDisallowedByOrigin}
	}
	if err := wb.EnsureActive(ctx, actual); err != nil {
		return TestRunReport{ActualURL: actual, Kind: ReportDisallowedByOrigin}
	}

	crawled := w.crawl(ctx, actual)
	return TestRunReport{ActualURL: actual, Kind: ReportCrawled, Crawled: crawled}
}

// Run builds Profile.BackendsPerWorker worker-backend connections, then
// consumes tasks off the returned channel with up to MaxTasksPerWorker
// running concurrently, round-robining each task across the open
// connections. It must never filter the stream: every dequeued task is
// counted open, then closed (or errored) exactly once, matching
// worker.rs's explicit "never filter" invariant — the master's quota and
// drain-detection math both depend on n_sent == n_closed eventually
// holding.
func (w *Worker) Run(ctx context.Context, factory storage.WorkerBackendFactory) (chan<- Task, *runtime.Canceler) {
	tasks := make(chan Task, 2*w.Profile.MaxTasksPerWorker)
	canceler := runtime.SpawnOntoThread(ctx, fmt.Sprintf("worker-%d", w.ID), func(ctx context.Context) error {
		logrus.WithField("worker", w.ID).Info("worker started")

		backends := make([]storage.WorkerBackend, 0, w.Profile.BackendsPerWorker)
		for i := 0; i < w.Profile.BackendsPerWorker; i++ {
			wb, err := factory.Build(ctx)
			if err != nil {
				return err
			}
			backends = append(backends, wb)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(w.Profile.MaxTasksPerWorker)

		i := 0
	consume:
		for {
			select {
			case <-ctx.Done():
				break consume
			case t, ok := <-tasks:
				if !ok {
					break consume
				}
				backend := backends[i%len(backends)]
				i++
				task := t
				g.Go(func() error {
					w.Counter.RegisterOpen()
					err := w.crawlTask(gctx, backend, task.URL, task.Depth)
					w.Counter.RegisterClosed()
					if err != nil {
						w.Counter.RegisterError()
						logrus.WithError(err).WithField("url", task.URL.String()).Debug("crawl task failed")
					}
					return nil // never propagate: one task's error must not cancel the others
				})
			}
		}
		_ = g.Wait()

		logrus.WithField("worker", w.ID).Info("stream dried, worker stopping")
		return nil
	})
	return tasks, canceler
}
