package pagerank

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPowerIterationThreeCycleIsUniform(t *testing.T) {
	// 1 -> 2 -> 3 -> 1: a symmetric cycle should converge to (close to)
	// equal rank for every node.
	edges := [][2]int64{{1, 2}, {2, 3}, {3, 1}}
	linkage := func(visit func(from, to int64) error) error {
		for _, e := range edges {
			if err := visit(e[0], e[1]); err != nil {
				return err
			}
		}
		return nil
	}

	nodes, err := PowerIteration(context.Background(), linkage, 8, Iterations)
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].PageID < nodes[j].PageID })
	for i := 1; i < len(nodes); i++ {
		require.InDelta(t, nodes[0].Rank, nodes[i].Rank, 0.05)
	}

	var total float64
	for _, n := range nodes {
		total += n.Rank
	}
	require.InDelta(t, 1.0, total, 0.05)
}

func TestPowerIterationSinkStillRanked(t *testing.T) {
	// 1 -> 2, 2 -> 1, 3 has no outgoing edges (a sink): 3 should still
	// appear in the result with a non-negative rank.
	edges := [][2]int64{{1, 2}, {2, 1}, {1, 3}}
	linkage := func(visit func(from, to int64) error) error {
		for _, e := range edges {
			if err := visit(e[0], e[1]); err != nil {
				return err
			}
		}
		return nil
	}

	nodes, err := PowerIteration(context.Background(), linkage, 8, Iterations)
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	for _, n := range nodes {
		require.GreaterOrEqual(t, n.Rank, 0.0)
	}
}

func TestPowerIterationRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	linkage := func(visit func(from, to int64) error) error {
		return visit(1, 2)
	}
	_, err := PowerIteration(ctx, linkage, 8, Iterations)
	require.Error(t, err)
}
