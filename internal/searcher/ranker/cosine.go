// Package ranker scores documents against a query with TF-IDF cosine
// similarity and blends the result with PageRank.
package ranker

import (
	"math"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/searcher/store"
)

// Scored is a document's cosine similarity to the query.
type Scored struct {
	DocID  int
	Cosine float64
}

// Cosine scores every document sharing a scoreable term with the query.
// Results are in first-touch order: query terms by first occurrence, then
// documents ascending within each term. Documents outside restrict are
// skipped when restrict is non-nil; their global norms are still used.
// Zero scores are omitted and values are never clamped.
func Cosine(snap *store.Snapshot, terms []string, restrict *roaring.Bitmap) []Scored {
	queryTF := make(map[string]int, len(terms))
	distinct := make([]string, 0, len(terms))
	for _, term := range terms {
		if queryTF[term] == 0 {
			distinct = append(distinct, term)
		}
		queryTF[term]++
	}

	dots := make(map[int]float64)
	order := make([]int, 0)
	queryNormSq := 0.0
	for _, term := range distinct {
		idf, ok := snap.IDF(term)
		if !ok {
			continue
		}
		wq := float64(queryTF[term]) * idf
		queryNormSq += wq * wq

		tp := snap.Postings(term)
		if tp == nil {
			continue
		}
		it := tp.Docs.Iterator()
		for it.HasNext() {
			id := it.Next()
			if restrict != nil && !restrict.Contains(id) {
				continue
			}
			doc := int(id)
			wd := float64(len(tp.Get(doc).Positions)) * idf
			if _, seen := dots[doc]; !seen {
				order = append(order, doc)
			}
			dots[doc] += wq * wd
		}
	}

	queryNorm := math.Sqrt(queryNormSq)
	out := make([]Scored, 0, len(order))
	for _, doc := range order {
		dot := dots[doc]
		if dot == 0 {
			continue
		}
		denom := queryNorm * snap.Norm(doc)
		if denom <= 0 {
			continue
		}
		out = append(out, Scored{DocID: doc, Cosine: dot / denom})
	}
	return out
}
