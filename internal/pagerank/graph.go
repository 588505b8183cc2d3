// Package pagerank builds the document link graph from crawler output and
// scores it with fixed-iteration power-method PageRank.
package pagerank

import "sort"

// Graph is the document-level link graph. Adjacency keeps every surviving
// link in crawl order, duplicates included; Nodes is sorted ascending.
type Graph struct {
	Nodes     []int
	Adjacency map[int][]int
}

// Edges counts adjacency entries, duplicates included.
func (g *Graph) Edges() int {
	n := 0
	for _, targets := range g.Adjacency {
		n += len(targets)
	}
	return n
}

// BuildGraph resolves each source's raw outgoing URLs to doc ids through the
// url map. URLs outside the collection and self links are dropped. Every
// source becomes a node even when none of its links survive; so does every
// surviving target. When two ids share a URL the higher id wins.
func BuildGraph(links map[int][]string, urls map[int]string) *Graph {
	ids := make([]int, 0, len(urls))
	for id := range urls {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	urlToID := make(map[string]int, len(urls))
	for _, id := range ids {
		urlToID[urls[id]] = id
	}

	g := &Graph{Adjacency: make(map[int][]int, len(links))}
	nodes := make(map[int]struct{}, len(links))
	for src, outgoing := range links {
		nodes[src] = struct{}{}
		valid := make([]int, 0, len(outgoing))
		for _, u := range outgoing {
			target, ok := urlToID[u]
			if !ok || target == src {
				continue
			}
			valid = append(valid, target)
			nodes[target] = struct{}{}
		}
		g.Adjacency[src] = valid
	}

	g.Nodes = make([]int, 0, len(nodes))
	for id := range nodes {
		g.Nodes = append(g.Nodes, id)
	}
	sort.Ints(g.Nodes)
	return g
}
