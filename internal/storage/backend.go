// Package storage defines the pluggable persistence contract a crawl wave
// runs against: the durable URL frontier, the crawled/link/analysis
// records, and the PageRank sink. Concrete adapters live in its
// bboltstore, sqlitestore and dummystore subpackages, mirroring the
// original's swappable sqlite/postgres backend trait
// (lib-lopez/src/backend/mod.rs).
package storage

import (
	"context"
	"net/url"

	"github.com/codepr/crawlwave/internal/crawler/reason"
	"github.com/codepr/crawlwave/internal/directives/types"
)

// WaveRemoveReport describes the outcome of removing a named wave,
// ported from backend/mod.rs's WaveRemoveReport.
type WaveRemoveReport struct {
	WasRemoved   bool
	RemovedPages int
}

// NamedType pairs an analysis rule's name with its statically-checked
// result type, for MasterBackend.CreateAnalyses.
type NamedType struct {
	Name string
	Type types.Type
}

// QueueEntry is one pending URL handed from Fetch to the dispatch loop.
type QueueEntry struct {
	URL   *url.URL
	Depth int
}

// OutLink is one outbound link discovered on a page, tagged with why it
// was found.
type OutLink struct {
	Reason reason.Reason
	URL    *url.URL
}

// NamedValue pairs an analysis rule's name with its extracted JSON value.
type NamedValue struct {
	Name  string
	Value any
}

// MasterBackend is the storage surface the dispatch loop needs, ported
// one-for-one from lib-lopez/src/backend/mod.rs's MasterBackend trait
// (spec.md §6's Master operations). All operations are idempotent;
// implementations may transact internally.
type MasterBackend interface {
	// WaveID returns the durable id of the wave this backend was opened
	// against.
	WaveID() int64
	// EnsureSeeded registers each seed as known and as a queue-open entry
	// at depth 0.
	EnsureSeeded(ctx context.Context, seeds []*url.URL) error
	// CreateAnalyses records or re-verifies the wave's analysis schema.
	CreateAnalyses(ctx context.Context, analyses []NamedType) error
	// CountCrawled returns the number of terminal (closed or errored)
	// entries in this wave.
	CountCrawled(ctx context.Context) (int, error)
	// ResetQueue returns every `taken` entry of this wave to `open`; the
	// master issues this once at startup, since no other process is
	// assumed to own the wave concurrently.
	ResetQueue(ctx context.Context) error
	// ExistsTaken reports whether any queue entry is currently `taken`.
	ExistsTaken(ctx context.Context) (bool, error)
	// Fetch atomically selects up to batchSize `open` rows with
	// depth <= maxDepth, preferring smaller depth, marks them `taken` and
	// returns them.
	Fetch(ctx context.Context, batchSize int, maxDepth int) ([]QueueEntry, error)
	Close() error
}

// WorkerBackend is the storage surface a single worker shard needs, ported
// from lib-lopez/src/backend/mod.rs's WorkerBackend trait (spec.md §6's
// Worker operations). Repeated calls for the same (wave, page) must
// converge to the same database state (idempotence, spec.md §8).
type WorkerBackend interface {
	// EnsureActive marks u as currently being fetched; informational
	// bookkeeping only, not load-bearing for correctness.
	EnsureActive(ctx context.Context, u *url.URL) error
	// EnsureAnalyzed records the named analysis results extracted from u.
	EnsureAnalyzed(ctx context.Context, u *url.URL, analyses []NamedValue) error
	// EnsureExplored closes u with statusCode and records its out-edges,
	// registering each target URL as queue-open at newDepth if it is not
	// already closed.
	EnsureExplored(ctx context.Context, u *url.URL, statusCode int, newDepth int, links []OutLink) error
	// EnsureError marks u as terminally errored.
	EnsureError(ctx context.Context, u *url.URL) error
	Close() error
}

// WorkerBackendFactory opens one WorkerBackend per worker shard, letting a
// single logical backend (e.g. one sqlite file) hand out connections or
// namespaced views per shard.
type WorkerBackendFactory interface {
	Build(ctx context.Context) (WorkerBackend, error)
}

// PageRanker is implemented by backends that can serve the crawled link
// graph for offline PageRank computation and persist the resulting scores
// (lib-lopez/src/backend/mod.rs's PageRanker trait; see internal/pagerank).
type PageRanker interface {
	// Linkage streams every (from, to) edge in the wave's link graph to
	// visit, in backend-native order.
	Linkage(ctx context.Context, visit func(from, to int64) error) error
	// PushPageRanks persists one chunk of (PageId, rank) results.
	PushPageRanks(ctx context.Context, ranked []RankedPage) error
	Close() error
}

// RankedPage is one (PageId, rank) pair persisted by PushPageRanks.
type RankedPage struct {
	PageID int64
	Rank   float64
}

// Backend is the top-level, program-lifetime handle a CLI subcommand opens
// once: it resolves (or creates) a named wave and hands out the
// MasterBackend/WorkerBackendFactory/PageRanker views scoped to it, ported
// from lib-lopez/src/backend/mod.rs's Backend trait.
type Backend interface {
	BuildMaster(ctx context.Context) (MasterBackend, error)
	BuildWorkerFactory(ctx context.Context) (WorkerBackendFactory, error)
	BuildRanker(ctx context.Context) (PageRanker, error)
	// Remove deletes the wave's durable state entirely.
	Remove(ctx context.Context) (WaveRemoveReport, error)
	Close() error
}
