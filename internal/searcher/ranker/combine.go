package ranker

import (
	"math"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/searcher/store"
)

const (
	DefaultCosineWeight   = 0.7
	DefaultPageRankWeight = 0.3
	DefaultPrecision      = 4
)

type Weights struct {
	Cosine   float64
	PageRank float64
}

// Result is one ranked document as served to callers.
type Result struct {
	DocID    int     `json:"doc_id"`
	Title    string  `json:"title"`
	URL      string  `json:"url"`
	Score    float64 `json:"score"`
	Cosine   float64 `json:"cosine"`
	PageRank float64 `json:"pagerank"`
}

// Combine blends each cosine score with the document's PageRank and attaches
// display fields. Order follows scored. Numeric fields are rounded to
// precision decimals; a negative precision leaves them unrounded.
func Combine(snap *store.Snapshot, scored []Scored, w Weights, precision int) []Result {
	out := make([]Result, len(scored))
	for i, s := range scored {
		pr := snap.PageRank(s.DocID)
		out[i] = Result{
			DocID:    s.DocID,
			Title:    snap.Title(s.DocID),
			URL:      snap.URL(s.DocID),
			Score:    Round(w.Cosine*s.Cosine+w.PageRank*pr, precision),
			Cosine:   Round(s.Cosine, precision),
			PageRank: Round(pr, precision),
		}
	}
	return out
}

// Round rounds the exact binary value of v to precision decimals, breaking
// exact ties to even.
func Round(v float64, precision int) float64 {
	if precision < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', precision, 64), 64)
	if err != nil {
		return v
	}
	return r
}
