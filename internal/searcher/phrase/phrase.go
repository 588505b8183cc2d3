// Package phrase finds documents containing a sequence of terms at
// consecutive positions.
package phrase

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/searcher/store"
)

// Docs returns the documents in which terms occur contiguously and in order.
// The result is empty as soon as one term is not indexed. A document is
// accepted at its first matching start position.
func Docs(snap *store.Snapshot, terms []string) *roaring.Bitmap {
	if len(terms) == 0 {
		return roaring.New()
	}
	lists := make([]*store.TermPostings, len(terms))
	sets := make([]*roaring.Bitmap, len(terms))
	for i, term := range terms {
		tp := snap.Postings(term)
		if tp == nil {
			return roaring.New()
		}
		lists[i] = tp
		sets[i] = tp.Docs
	}

	candidates := roaring.FastAnd(sets...)
	matched := roaring.New()
	it := candidates.Iterator()
	for it.HasNext() {
		doc := int(it.Next())
		if contiguous(lists, doc) {
			matched.Add(uint32(doc))
		}
	}
	return matched
}

func contiguous(lists []*store.TermPostings, doc int) bool {
	postings := make([]*store.Posting, len(lists))
	for i, tp := range lists {
		postings[i] = tp.Get(doc)
		if postings[i] == nil {
			return false
		}
	}
	for _, start := range postings[0].Positions {
		ok := true
		for i := 1; i < len(postings); i++ {
			if !postings[i].Has(start + i) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}
