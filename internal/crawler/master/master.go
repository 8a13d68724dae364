// Package master implements the crawl dispatch loop: seeding the wave,
// computing the quota ceiling, fanning dispatched tasks out to a fixed
// pool of worker shards, and deciding when the wave is drained or
// finished. Ported from lib-lopez/src/crawler/master.rs's CrawlMaster.
package master

import (
	"context"
	"errors"
	"math"
	"net/url"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/codepr/crawlwave/internal/crawler/counter"
	"github.com/codepr/crawlwave/internal/crawler/profile"
	"github.com/codepr/crawlwave/internal/crawler/worker"
	"github.com/codepr/crawlwave/internal/storage"
	"github.com/codepr/crawlwave/internal/xhash"
)

// ErrInterrupted is returned by Run when ctx is cancelled before the
// dispatch loop finishes, or when fetching a queue batch from storage
// fails, mirroring master.rs's "crawl was interrupted" error path. A worker
// that stops consuming its task channel is not detected.
var ErrInterrupted = errors.New("master: crawl was interrupted")

// ErrIncomplete is returned by Run when the machine's quota ceiling
// (Profile.MaxQuota) is lower than the directive's requested quota: the
// wave made progress but did not reach its target, matching master.rs's
// `Ok(None)` branch (distinct from an interrupted or failed run).
var ErrIncomplete = errors.New("master: crawl incomplete, machine quota ceiling reached before directive quota")

// Parameters are the directive-file-derived values the dispatch loop
// needs, the Go equivalent of master.rs's Configuration::parameters().
type Parameters struct {
	Seeds          []*url.URL
	Analyses       []storage.NamedType
	Quota          int
	MaxDepth       int
	EnablePageRank bool
}

// Master owns one wave's dispatch loop against a fixed set of worker
// shards that were already constructed (Run does not build workers
// itself; it starts each one with Worker.Run and keeps the returned
// channel/Canceler pair).
type Master struct {
	Backend    storage.MasterBackend
	Ranker     storage.PageRanker
	Workers    []*worker.Worker
	WorkerFlow storage.WorkerBackendFactory
	Profile    *profile.Profile
	Counter    *counter.Counter
}

// handler pairs a running worker's task channel with its supervising
// Canceler, mirroring master.rs's WorkerHandler.
type handler struct {
	tasks chan<- worker.Task
	stop  func()
	wait  func() error
}

// Run seeds the wave, computes the effective quota, spawns one goroutine
// per Master.Workers entry, and dispatches Fetch'd batches round-robin by
// origin hash until the quota is reached or the queue drains. On a clean
// finish it triggers PageRank automatically when params.EnablePageRank is
// set, matching master.rs's final branch exactly.
func (m *Master) Run(ctx context.Context, params Parameters) error {
	consumed, err := m.Backend.CountCrawled(ctx)
	if err != nil {
		return err
	}

	maxQuota := math.MaxInt // no machine ceiling unless Profile.MaxQuota is set
	if m.Profile.MaxQuota != nil {
		maxQuota = *m.Profile.MaxQuota
	}
	effectiveQuota := min(maxQuota, params.Quota)
	willCrawlEnd := params.Quota <= maxQuota
	remainingQuota := effectiveQuota - consumed
	if remainingQuota < 0 {
		remainingQuota = 0
	}

	statsCtx, stopStats := context.WithCancel(ctx)
	defer stopStats()
	go counter.LogStats(statsCtx, m.Counter, consumed, effectiveQuota, m.Profile.LogStatsInterval)

	handlers := make([]handler, len(m.Workers))
	for i, w := range m.Workers {
		tasks, canceler := w.Run(ctx, m.WorkerFlow)
		handlers[i] = handler{tasks: tasks, stop: canceler.Stop, wait: canceler.Wait}
	}
	defer func() {
		for _, h := range handlers {
			h.stop()
			_ = h.wait()
		}
	}()

	logrus.WithField("seeds", len(params.Seeds)).Info("seeding wave")
	if err := m.Backend.EnsureSeeded(ctx, params.Seeds); err != nil {
		return err
	}
	if err := m.Backend.CreateAnalyses(ctx, params.Analyses); err != nil {
		return err
	}
	if err := m.Backend.ResetQueue(ctx); err != nil {
		return err
	}

	if remainingQuota == 0 {
		logrus.Warn("empty crawl")
		return nil
	}

	nSent := 0
	hasBeenEmpty := false
	interrupted := false

dispatch:
	for {
		if ctx.Err() != nil {
			interrupted = true
			break
		}

		batch, err := m.Backend.Fetch(ctx, m.Profile.BatchSize, params.MaxDepth)
		if err != nil {
			logrus.WithError(err).Error("error while fetching queue batch")
			interrupted = true
			break dispatch
		}

		if len(batch) == 0 {
			// TODO this is most probably buggy in a very, very clever way...
			if int64(nSent) == m.Counter.NClosed() {
				if hasBeenEmpty {
					logrus.Info("sent/closed counts agree and the queue has been empty twice; done")
					break dispatch
				}
				hasBeenEmpty = true
			}
			select {
			case <-ctx.Done():
				interrupted = true
				break dispatch
			case <-time.After(1 * time.Second):
			}
			continue dispatch
		}
		hasBeenEmpty = false

		sort.Slice(batch, func(i, j int) bool { return batch[i].Depth < batch[j].Depth })

		for _, entry := range batch {
			chosen := xhash.Mod(len(handlers), originKey(entry.URL))
			select {
			case handlers[chosen].tasks <- worker.Task{URL: entry.URL, Depth: entry.Depth}:
				nSent++
			case <-ctx.Done():
				interrupted = true
				break dispatch
			}

			if m.Counter.NClosed() >= int64(remainingQuota) {
				logrus.WithField("quota", remainingQuota+consumed).Info("quota reached")
				break dispatch
			}
		}
	}

	if interrupted {
		logrus.Info("crawl was interrupted")
		return ErrInterrupted
	}
	if !willCrawlEnd {
		logrus.Warn("crawl incomplete: not enough machine quota given")
		return ErrIncomplete
	}

	logrus.Info("crawl done")
	if params.EnablePageRank {
		return m.PageRank(ctx)
	}
	return nil
}

// PageRank recomputes and persists PageRank scores for the wave this
// master is attached to, the Go port of master.rs's
// `page_rank_for_wave_id`/PageRanker.page_rank default method.
func (m *Master) PageRank(ctx context.Context) error {
	return storage.PageRank(ctx, m.Ranker)
}

// originKey reduces u to its origin (scheme://host[:port]) for the
// round-robin hash, matching master.rs's `url.origin()` input to `hash`.
func originKey(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
