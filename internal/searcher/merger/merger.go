// Package merger selects the top-K ranked results.
package merger

import (
	"container/heap"

	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/searcher/ranker"
)

const DefaultLimit = 20

// TopK returns the k highest-scoring results in descending score order.
// Equal scores keep their input order. k <= 0 selects DefaultLimit.
func TopK(results []ranker.Result, k int) []ranker.Result {
	if k <= 0 {
		k = DefaultLimit
	}
	h := &resultHeap{}
	for i, r := range results {
		heap.Push(h, entry{result: r, seq: i})
		if h.Len() > k {
			heap.Pop(h)
		}
	}
	out := make([]ranker.Result, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(entry).result
	}
	return out
}

type entry struct {
	result ranker.Result
	seq    int
}

// resultHeap is a min-heap on (score, -seq): its root is the entry that
// ranks last.
type resultHeap []entry

func (h resultHeap) Len() int { return len(h) }

func (h resultHeap) Less(i, j int) bool {
	if h[i].result.Score != h[j].result.Score {
		return h[i].result.Score < h[j].result.Score
	}
	return h[i].seq > h[j].seq
}

func (h resultHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *resultHeap) Push(x interface{}) {
	*h = append(*h, x.(entry))
}

func (h *resultHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
