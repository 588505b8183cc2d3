package pagerank

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/indexer/segment"
	apperrors "github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/errors"
)

var defaults = Options{Damping: DefaultDamping, Iterations: DefaultIterations}

var urls = map[int]string{
	1: "http://a",
	2: "http://b",
	3: "http://c",
	4: "http://d",
}

func TestBuildGraph(t *testing.T) {
	links := map[int][]string{
		1: {"http://b", "http://a", "http://elsewhere", "http://c", "http://b"},
		2: {"http://a"},
		5: {},
	}
	g := BuildGraph(links, urls)
	if !reflect.DeepEqual(g.Nodes, []int{1, 2, 3, 5}) {
		t.Errorf("nodes = %v", g.Nodes)
	}
	if !reflect.DeepEqual(g.Adjacency[1], []int{2, 3, 2}) {
		t.Errorf("adjacency[1] = %v", g.Adjacency[1])
	}
	if len(g.Adjacency[5]) != 0 || g.Edges() != 4 {
		t.Errorf("adjacency = %v, edges = %d", g.Adjacency, g.Edges())
	}
}

func TestComputeSymmetricPairIsZeroAfterNormalization(t *testing.T) {
	g := BuildGraph(map[int][]string{1: {"http://b"}, 2: {"http://a"}}, urls)
	scores, err := Compute(g, defaults)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(scores, map[int]float64{1: 0, 2: 0}) {
		t.Errorf("scores = %v", scores)
	}
}

func TestComputeSelfLoopOnly(t *testing.T) {
	g := BuildGraph(map[int][]string{1: {"http://a"}}, urls)
	scores, err := Compute(g, defaults)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(scores, map[int]float64{1: 0}) {
		t.Errorf("scores = %v", scores)
	}
}

func TestComputeEmptyGraph(t *testing.T) {
	scores, err := Compute(BuildGraph(nil, urls), defaults)
	if err != nil || len(scores) != 0 {
		t.Errorf("scores = %v, err = %v", scores, err)
	}
}

func TestComputeStar(t *testing.T) {
	g := BuildGraph(map[int][]string{1: {"http://c"}, 2: {"http://c"}}, urls)
	scores, err := Compute(g, defaults)
	if err != nil {
		t.Fatal(err)
	}
	if scores[3] != 1 || scores[1] != 0 || scores[2] != 0 {
		t.Errorf("scores = %v", scores)
	}
}

// naive rescans every node for incoming links each iteration.
func naive(g *Graph, d float64, iterations int) map[int]float64 {
	n := float64(len(g.Nodes))
	scores := make(map[int]float64)
	for _, node := range g.Nodes {
		scores[node] = 1 / n
	}
	contains := func(list []int, x int) bool {
		for _, v := range list {
			if v == x {
				return true
			}
		}
		return false
	}
	for i := 0; i < iterations; i++ {
		sink := 0.0
		for _, node := range g.Nodes {
			if len(g.Adjacency[node]) == 0 {
				sink += scores[node]
			}
		}
		next := make(map[int]float64)
		for _, node := range g.Nodes {
			rank := (1-d)/n + d*(sink/n)
			for _, src := range g.Nodes {
				if adj, ok := g.Adjacency[src]; ok && contains(adj, node) {
					rank += d * (scores[src] / float64(len(adj)))
				}
			}
			next[node] = rank
		}
		scores = next
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range scores {
		lo = math.Min(lo, s)
		hi = math.Max(hi, s)
	}
	for k, s := range scores {
		if hi == lo {
			scores[k] = 0
		} else {
			scores[k] = (s - lo) / (hi - lo)
		}
	}
	return scores
}

func TestComputeMatchesNaiveScan(t *testing.T) {
	links := map[int][]string{
		1: {"http://b", "http://c", "http://b"},
		2: {"http://c"},
		3: {"http://a", "http://d"},
	}
	g := BuildGraph(links, urls)
	got, err := Compute(g, defaults)
	if err != nil {
		t.Fatal(err)
	}
	want := naive(g, DefaultDamping, DefaultIterations)
	for id, w := range want {
		if math.Abs(got[id]-w) > 1e-12 {
			t.Errorf("node %d: got %v, want %v", id, got[id], w)
		}
		if got[id] < 0 || got[id] > 1 {
			t.Errorf("node %d out of [0,1]: %v", id, got[id])
		}
	}
}

func TestComputeRejectsBadOptions(t *testing.T) {
	g := BuildGraph(map[int][]string{1: {"http://b"}}, urls)
	for _, opts := range []Options{{Damping: 1.5, Iterations: 20}, {Damping: 0.85, Iterations: -1}} {
		if _, err := Compute(g, opts); err == nil {
			t.Errorf("Compute(%+v) accepted invalid options", opts)
		}
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	files := Files{
		Links:  filepath.Join(dir, "page_links.json"),
		URLs:   filepath.Join(dir, "urls.txt"),
		Output: filepath.Join(dir, "pagerank.json"),
	}
	if _, err := Run(context.Background(), files, defaults); !errors.Is(err, apperrors.ErrIndexMissing) {
		t.Fatalf("missing inputs: err = %v", err)
	}

	segment.WriteLinks(files.Links, map[int][]string{1: {"http://c"}, 2: {"http://c"}})
	segment.WriteDocValues(files.URLs, urls)
	stats, err := Run(context.Background(), files, defaults)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Nodes != 3 || stats.Edges != 2 || stats.Iterations != DefaultIterations {
		t.Errorf("stats = %+v", stats)
	}
	scores, err := segment.ReadPageRank(files.Output)
	if err != nil {
		t.Fatal(err)
	}
	if scores[3] != 1 || len(scores) != 3 {
		t.Errorf("written scores = %v", scores)
	}
}
