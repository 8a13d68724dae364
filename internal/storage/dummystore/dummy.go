// Package dummystore backs the `test` CLI subcommand: running a directive
// file against one page should never touch disk, so every write panics if
// reached. Ported from lib-lopez/src/backend/dummy.rs's DummyBackend
// family: every storage operation panics except WaveID and the worker
// view's EnsureActive; the Build*/Remove/Close methods succeed without
// doing anything. A dummy backend is a type-level placeholder, not a
// usable store.
package dummystore

import (
	"context"
	"net/url"

	"github.com/codepr/crawlwave/internal/storage"
)

// Backend is the storage.Backend that hands out dummy master/worker/ranker
// views, none of which may be used for real persistence.
type Backend struct{}

func New() *Backend { return &Backend{} }

func (*Backend) BuildMaster(ctx context.Context) (storage.MasterBackend, error) {
	return masterBackend{}, nil
}

func (*Backend) BuildWorkerFactory(ctx context.Context) (storage.WorkerBackendFactory, error) {
	return workerFactory{}, nil
}

func (*Backend) BuildRanker(ctx context.Context) (storage.PageRanker, error) {
	return pageRanker{}, nil
}

func (*Backend) Remove(ctx context.Context) (storage.WaveRemoveReport, error) {
	return storage.WaveRemoveReport{}, nil
}

func (*Backend) Close() error { return nil }

type masterBackend struct{}

func (masterBackend) WaveID() int64 { return 0 }

func (masterBackend) EnsureSeeded(ctx context.Context, seeds []*url.URL) error {
	panic("dummystore: cannot use dummy MasterBackend")
}

func (masterBackend) CreateAnalyses(ctx context.Context, analyses []storage.NamedType) error {
	panic("dummystore: cannot use dummy MasterBackend")
}

func (masterBackend) CountCrawled(ctx context.Context) (int, error) {
	panic("dummystore: cannot use dummy MasterBackend")
}

func (masterBackend) ResetQueue(ctx context.Context) error {
	panic("dummystore: cannot use dummy MasterBackend")
}

func (masterBackend) ExistsTaken(ctx context.Context) (bool, error) {
	panic("dummystore: cannot use dummy MasterBackend")
}

func (masterBackend) Fetch(ctx context.Context, batchSize, maxDepth int) ([]storage.QueueEntry, error) {
	panic("dummystore: cannot use dummy MasterBackend")
}

func (masterBackend) Close() error { return nil }

type workerFactory struct{}

func (workerFactory) Build(ctx context.Context) (storage.WorkerBackend, error) {
	return workerBackend{}, nil
}

// workerBackend is the one dummystore type actually exercised by the `test`
// CLI subcommand: spec.md §4.9's pipeline calls EnsureActive before the
// download even starts, so unlike the Rust original (which never invokes
// the dummy worker backend at all on the test_url path) this one must not
// panic on that specific call, or every `crawlwave test` invocation would
// crash before producing a report. Every write that would actually persist
// a result still panics.
type workerBackend struct{}

func (workerBackend) EnsureActive(ctx context.Context, u *url.URL) error { return nil }

func (workerBackend) EnsureAnalyzed(ctx context.Context, u *url.URL, analyses []storage.NamedValue) error {
	panic("dummystore: cannot use dummy WorkerBackend")
}

func (workerBackend) EnsureExplored(ctx context.Context, u *url.URL, statusCode, newDepth int, links []storage.OutLink) error {
	panic("dummystore: cannot use dummy WorkerBackend")
}

func (workerBackend) EnsureError(ctx context.Context, u *url.URL) error {
	panic("dummystore: cannot use dummy WorkerBackend")
}

func (workerBackend) Close() error { return nil }

type pageRanker struct{}

func (pageRanker) Linkage(ctx context.Context, visit func(from, to int64) error) error {
	panic("dummystore: cannot use dummy PageRanker")
}

func (pageRanker) PushPageRanks(ctx context.Context, ranked []storage.RankedPage) error {
	panic("dummystore: cannot use dummy PageRanker")
}

func (pageRanker) Close() error { return nil }
