package storage

import (
	"context"

	"github.com/codepr/crawlwave/internal/pagerank"
)

// PageRank runs the power-iteration algorithm over ranker's link graph and
// writes the results back in batches. This is the free-function stand-in
// for backend/mod.rs's PageRanker::page_rank default trait method — Go
// interfaces carry no default implementations, so the original's default
// method becomes a helper over the interface instead of a method on it.
// Stride/iterations/batch size are pinned from backend/mod.rs's call site,
// not exposed as tunables (spec.md §4.12 leaves the exact values as an
// implementation parameter).
func PageRank(ctx context.Context, ranker PageRanker) error {
	linkage := func(visit func(from, to int64) error) error {
		return ranker.Linkage(ctx, visit)
	}
	nodes, err := pagerank.PowerIteration(ctx, linkage, pagerank.Stride, pagerank.Iterations)
	if err != nil {
		return err
	}
	for i := 0; i < len(nodes); i += pagerank.BatchSize {
		end := i + pagerank.BatchSize
		if end > len(nodes) {
			end = len(nodes)
		}
		chunk := make([]RankedPage, end-i)
		for j, n := range nodes[i:end] {
			chunk[j] = RankedPage{PageID: n.PageID, Rank: n.Rank}
		}
		if err := ranker.PushPageRanks(ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}
