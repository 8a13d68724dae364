package master

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codepr/crawlwave/internal/crawler/boundary"
	"github.com/codepr/crawlwave/internal/crawler/counter"
	"github.com/codepr/crawlwave/internal/crawler/download"
	"github.com/codepr/crawlwave/internal/crawler/origin"
	"github.com/codepr/crawlwave/internal/crawler/profile"
	"github.com/codepr/crawlwave/internal/crawler/worker"
	"github.com/codepr/crawlwave/internal/directives"
	"github.com/codepr/crawlwave/internal/storage"
)

// fakeMasterBackend plays back a fixed seed set as a one-shot in-memory
// queue, for exercising Run's dispatch/drain loop without a real storage
// adapter.
type fakeMasterBackend struct {
	mu         sync.Mutex
	seeded     []*url.URL
	analyses   []storage.NamedType
	resetCalls int
	queue      []storage.QueueEntry
}

func (f *fakeMasterBackend) WaveID() int64 { return 1 }

func (f *fakeMasterBackend) EnsureSeeded(ctx context.Context, seeds []*url.URL) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeded = append(f.seeded, seeds...)
	for _, s := range seeds {
		f.queue = append(f.queue, storage.QueueEntry{URL: s, Depth: 0})
	}
	return nil
}

func (f *fakeMasterBackend) CreateAnalyses(ctx context.Context, analyses []storage.NamedType) error {
	f.analyses = analyses
	return nil
}

func (f *fakeMasterBackend) CountCrawled(ctx context.Context) (int, error) { return 0, nil }

func (f *fakeMasterBackend) ResetQueue(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetCalls++
	return nil
}

func (f *fakeMasterBackend) ExistsTaken(ctx context.Context) (bool, error) { return false, nil }

func (f *fakeMasterBackend) Fetch(ctx context.Context, batchSize, maxDepth int) ([]storage.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		return nil, nil
	}
	n := batchSize
	if n > len(f.queue) {
		n = len(f.queue)
	}
	batch := f.queue[:n]
	f.queue = f.queue[n:]
	return batch, nil
}

func (f *fakeMasterBackend) Close() error { return nil }

// fakeWorkerBackend records every explored call, standing in for a real
// storage.WorkerBackend.
type fakeWorkerBackend struct {
	mu       sync.Mutex
	explored int
}

func (f *fakeWorkerBackend) EnsureActive(ctx context.Context, u *url.URL) error { return nil }
func (f *fakeWorkerBackend) EnsureAnalyzed(ctx context.Context, u *url.URL, analyses []storage.NamedValue) error {
	return nil
}
func (f *fakeWorkerBackend) EnsureExplored(ctx context.Context, u *url.URL, statusCode, newDepth int, links []storage.OutLink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.explored++
	return nil
}
func (f *fakeWorkerBackend) EnsureError(ctx context.Context, u *url.URL) error { return nil }
func (f *fakeWorkerBackend) Close() error                                     { return nil }

type fakeWorkerBackendFactory struct{ backend *fakeWorkerBackend }

func (f *fakeWorkerBackendFactory) Build(ctx context.Context) (storage.WorkerBackend, error) {
	return f.backend, nil
}

func newTestMasterWorker(t *testing.T, srv *httptest.Server, shared *counter.Counter) *worker.Worker {
	t.Helper()
	d := &directives.Directives{
		Boundaries: boundary.Boundaries{UseAllParams: true},
		Variables:  directives.NewSetVariables(),
	}
	return &worker.Worker{
		ID:             0,
		Downloader:     download.NewHTTPDownloader("crawlwave-test/1.0", 5*time.Second),
		Boundaries:     &d.Boundaries,
		Origins:        origin.NewRegistry(srv.Client(), "crawlwave-test/1.0", 100),
		Directives:     d,
		Counter:        shared,
		Profile:        profile.Default(),
		RequestTimeout: 5 * time.Second,
		MaxBodySize:    1 << 20,
	}
}

// TestMasterRunDrainsQueueAndFinishes locks in the dispatch/drain loop: a
// single-seed wave with no outbound links must be fully crawled and the
// loop must notice the queue staying empty and finish cleanly well short
// of its quota, rather than hanging forever.
func TestMasterRunDrainsQueueAndFinishes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>no links here</body></html>"))
	})
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nAllow: /\n"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	seedURL, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)

	shared := &counter.Counter{}
	backend := &fakeMasterBackend{}
	wb := &fakeWorkerBackend{}

	m := &Master{
		Backend:    backend,
		Workers:    []*worker.Worker{newTestMasterWorker(t, srv, shared)},
		WorkerFlow: &fakeWorkerBackendFactory{backend: wb},
		Profile: &profile.Profile{
			Workers:           1,
			MaxTasksPerWorker: 2,
			BackendsPerWorker: 1,
			BatchSize:         10,
			LogStatsInterval:  time.Hour,
		},
		Counter: shared,
	}

	err = m.Run(context.Background(), Parameters{
		Seeds:    []*url.URL{seedURL},
		Quota:    100,
		MaxDepth: 5,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), shared.NClosed())
	require.Equal(t, 1, backend.resetCalls)
	require.Equal(t, 1, wb.explored)
}

// TestMasterRunReturnsInterruptedOnCancelledContext locks in the
// interrupted-crawl path: a context already cancelled before dispatch
// starts must surface ErrInterrupted rather than a silent empty success.
func TestMasterRunReturnsInterruptedOnCancelledContext(t *testing.T) {
	backend := &fakeMasterBackend{}
	m := &Master{
		Backend: backend,
		Profile: &profile.Profile{
			Workers:           0,
			MaxTasksPerWorker: 1,
			BackendsPerWorker: 1,
			BatchSize:         10,
			LogStatsInterval:  time.Hour,
		},
		Counter: &counter.Counter{},
	}

	seedURL, err := url.Parse("https://example.com/")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = m.Run(ctx, Parameters{Seeds: []*url.URL{seedURL}, Quota: 10, MaxDepth: 5})
	require.ErrorIs(t, err, ErrInterrupted)
}

// TestMasterRunReturnsIncompleteWhenMachineQuotaIsLower locks in the
// machine-quota-ceiling path: when Profile.MaxQuota is lower than the
// directive's requested quota, a drained queue still reports
// ErrIncomplete instead of a clean finish.
func TestMasterRunReturnsIncompleteWhenMachineQuotaIsLower(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html></html>"))
	})
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nAllow: /\n"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	seedURL, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)

	shared := &counter.Counter{}
	backend := &fakeMasterBackend{}
	wb := &fakeWorkerBackend{}
	maxQuota := 1000

	m := &Master{
		Backend:    backend,
		Workers:    []*worker.Worker{newTestMasterWorker(t, srv, shared)},
		WorkerFlow: &fakeWorkerBackendFactory{backend: wb},
		Profile: &profile.Profile{
			Workers:           1,
			MaxTasksPerWorker: 2,
			BackendsPerWorker: 1,
			BatchSize:         10,
			MaxQuota:          &maxQuota,
			LogStatsInterval:  time.Hour,
		},
		Counter: shared,
	}

	err = m.Run(context.Background(), Parameters{
		Seeds:    []*url.URL{seedURL},
		Quota:    1_000_000,
		MaxDepth: 5,
	})
	require.ErrorIs(t, err, ErrIncomplete)
}
