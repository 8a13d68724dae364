// Package pagerank computes an offline PageRank approximation over a
// wave's crawled link graph, ported from lib-lopez/src/page_rank.rs's
// `power_iteration`. The algorithm is a sparse, tiled power iteration over
// the transition matrix implied by the edge list: rayon's data-parallel
// fold/reduce over tiles becomes a worker pool of goroutines sized to
// runtime.GOMAXPROCS, one per (i, j) tile, merged through a results channel
// instead of a parallel BTreeMap reduction.
package pagerank

import (
	"context"
	"math"
	"runtime"
	"sort"

	"github.com/sirupsen/logrus"
)

// Node is one page's final rank, the Go equivalent of the original's
// `(T, f32)` iterator item.
type Node struct {
	PageID int64
	Rank   float64
}

// Stride, Iterations and BatchSize mirror the constants the original
// hard-codes at its call site (lib-lopez/src/crawler/master.rs): tile width
// 2048, 8 power-iteration rounds, and a 1024-row PushPageRanks batch size.
const (
	Stride     = 2048
	Iterations = 8
	BatchSize  = 1024
)

type tile struct {
	minJ  int
	batch []float32
}

type edge struct{ from, to int32 }

// PowerIteration runs the algorithm over the edge stream produced by
// linkage, which must call visit once per (from, to) edge and return
// promptly on a non-nil error. The returned slice is sorted by PageID for
// deterministic PushPageRanks batching.
func PowerIteration(ctx context.Context, linkage func(visit func(from, to int64) error) error, stride, iterations int) ([]Node, error) {
	index := make(map[int64]int32)
	var states []int64

	idFor := func(node int64) int32 {
		if id, ok := index[node]; ok {
			return id
		}
		id := int32(len(states))
		states = append(states, node)
		index[node] = id
		return id
	}

	var transition []edge

	if err := linkage(func(from, to int64) error {
		transition = append(transition, edge{idFor(from), idFor(to)})
		return nil
	}); err != nil {
		return nil, err
	}

	nStates := len(states)
	if nStates == 0 {
		return nil, nil
	}
	logrus.WithField("pages", nStates).Info("starting PageRank power iteration")

	sort.Slice(transition, func(i, j int) bool { return transition[i].from < transition[j].from })

	const noOffset = -1
	offsetMin := make([]int, nStates)
	offsetMax := make([]int, nStates)
	for i := range offsetMin {
		offsetMin[i] = noOffset
	}
	for i, e := range transition {
		if offsetMin[e.from] == noOffset || i < offsetMin[e.from] {
			offsetMin[e.from] = i
		}
		if i > offsetMax[e.from] {
			offsetMax[e.from] = i
		}
	}

	nStrides := nStates / stride
	if nStates%stride != 0 {
		nStrides++
	}

	state := make([]float64, nStates)
	uniform := 1 / float64(nStates)
	for i := range state {
		state[i] = uniform
	}

	workers := runtime.GOMAXPROCS(0)
	if workers < 1 {
		workers = 1
	}

	for iter := 0; iter < iterations; iter++ {
		logrus.WithField("iteration", iter+1).Debug("page rank iteration")
		newState := make([]float64, nStates)
		for i := range newState {
			newState[i] = uniform
		}

		type coord struct{ i, j int }
		coords := make([]coord, 0, nStrides*nStrides)
		for i := 0; i < nStrides; i++ {
			for j := 0; j < nStrides; j++ {
				coords = append(coords, coord{i, j})
			}
		}

		tiles := make(chan tile, len(coords))
		work := make(chan coord)
		done := make(chan struct{})
		for w := 0; w < workers; w++ {
			go func() {
				for c := range work {
					tiles <- computeTile(c.i, c.j, stride, nStates, state, offsetMin, offsetMax, transition)
				}
				done <- struct{}{}
			}()
		}
		go func() {
			for _, c := range coords {
				work <- c
			}
			close(work)
		}()
		go func() {
			for w := 0; w < workers; w++ {
				<-done
			}
			close(tiles)
		}()

		merged := make(map[int][]float32)
		for t := range tiles {
			existing, ok := merged[t.minJ]
			if !ok {
				merged[t.minJ] = t.batch
				continue
			}
			for k := range existing {
				existing[k] += t.batch[k]
			}
		}

		var lostJuice float64
		for from := 0; from < nStates; from++ {
			if offsetMin[from] == noOffset {
				lostJuice += state[from]
			}
		}
		restartDiffusion := (0.15 + 0.85*lostJuice) / float64(nStates)

		for minJ, batch := range merged {
			for j, v := range batch {
				idx := minJ + j
				if idx < nStates {
					newState[idx] = float64(v)*0.85 + restartDiffusion
				}
			}
		}

		var norm, klDiv float64
		for i := range newState {
			norm += newState[i]
			if state[i] > 0 {
				klDiv += -state[i] * math.Log2(newState[i]/state[i])
			}
		}

		logrus.WithFields(logrus.Fields{"norm": norm, "kl_divergence": klDiv}).Debug("page rank iteration converged")
		state = newState

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	logrus.Info("page rank done")
	out := make([]Node, nStates)
	for i, id := range states {
		out[i] = Node{PageID: id, Rank: state[i]}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PageID < out[j].PageID })
	return out, nil
}

func computeTile(i, j, stride, nStates int, state []float64, offsetMin, offsetMax []int, transition []edge) tile {
	batch := make([]float32, stride)
	minJ, supJ := j*stride, min(nStates, (j+1)*stride)
	minI, supI := i*stride, min(nStates, (i+1)*stride)

	for fromID := minI; fromID < supI; fromID++ {
		om, oM := offsetMin[fromID], offsetMax[fromID]
		if om == -1 {
			continue
		}
		individualShare := float32(1/float64(oM-om+1)) * float32(state[fromID])
		for _, e := range transition[om : oM+1] {
			toID := int(e.to)
			if toID >= minJ && toID < supJ {
				batch[toID-minJ] += individualShare
			}
		}
	}
	return tile{minJ: minJ, batch: batch}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
