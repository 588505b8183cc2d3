package pagerank

import (
	"fmt"
	"log/slog"
)

const (
	DefaultDamping    = 0.85
	DefaultIterations = 20
)

type Options struct {
	Damping    float64
	Iterations int
}

func (o Options) validate() error {
	if o.Damping < 0 || o.Damping > 1 {
		return fmt.Errorf("damping must be within [0,1], got %v", o.Damping)
	}
	if o.Iterations < 0 {
		return fmt.Errorf("iterations must be non-negative, got %d", o.Iterations)
	}
	return nil
}

// Compute runs exactly opts.Iterations synchronous power iterations and
// min-max normalizes the result. Each iteration gives every node
//
//	(1-d)/N + d*sink/N + d * sum(score(src)/outdegree(src))
//
// where sink is the mass of nodes without out-links and the sum runs over the
// distinct sources linking to the node. Outdegree counts duplicate links.
// An empty graph yields an empty map.
func Compute(g *Graph, opts Options) (map[int]float64, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	n := len(g.Nodes)
	if n == 0 {
		return map[int]float64{}, nil
	}

	pos := make(map[int]int, n)
	for i, id := range g.Nodes {
		pos[id] = i
	}

	outdeg := make([]int, n)
	incoming := make([][]int, n)
	for i, id := range g.Nodes {
		targets := g.Adjacency[id]
		outdeg[i] = len(targets)
		seen := make(map[int]struct{}, len(targets))
		for _, t := range targets {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			incoming[pos[t]] = append(incoming[pos[t]], i)
		}
	}

	fn := float64(n)
	d := opts.Damping
	scores := make([]float64, n)
	for i := range scores {
		scores[i] = 1.0 / fn
	}
	next := make([]float64, n)

	for iter := 0; iter < opts.Iterations; iter++ {
		sink := 0.0
		for i := range scores {
			if outdeg[i] == 0 {
				sink += scores[i]
			}
		}
		base := (1-d)/fn + d*(sink/fn)
		for i := range next {
			rank := base
			for _, src := range incoming[i] {
				rank += d * (scores[src] / float64(outdeg[src]))
			}
			next[i] = rank
		}
		scores, next = next, scores
	}

	slog.Debug("pagerank iterations complete", "component", "pagerank", "nodes", n, "iterations", opts.Iterations)
	return normalize(g.Nodes, scores), nil
}

func normalize(nodes []int, scores []float64) map[int]float64 {
	lo, hi := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	out := make(map[int]float64, len(nodes))
	span := hi - lo
	for i, id := range nodes {
		if span == 0 {
			out[id] = 0
			continue
		}
		out[id] = (scores[i] - lo) / span
	}
	return out
}
