package ranker

import (
	"math"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/searcher/store/storetest"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestCosine(t *testing.T) {
	snap := storetest.Load(t, storetest.ThreeDocs())
	low, high := math.Log10(1.5), math.Log10(3)
	norm2 := math.Sqrt(low*low + high*high)

	tests := []struct {
		name     string
		terms    []string
		restrict *roaring.Bitmap
		want     []Scored
	}{
		{"single term", []string{"cat"}, nil, []Scored{{1, 1 / math.Sqrt2}, {2, low / norm2}}},
		{"repeated query term", []string{"cat", "cat"}, nil, []Scored{{1, 1 / math.Sqrt2}, {2, low / norm2}}},
		{"rare term", []string{"dog"}, nil, []Scored{{2, high / norm2}}},
		{"first touch order", []string{"dog", "cat"}, nil, []Scored{{2, 1}, {1, low / (norm2 * math.Sqrt2)}}},
		{"restricted keeps global norm", []string{"cat"}, roaring.BitmapOf(2), []Scored{{2, low / norm2}}},
		{"unknown term", []string{"unicorn"}, nil, nil},
		{"no terms", nil, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cosine(snap, tt.terms, tt.restrict)
			if len(got) != len(tt.want) {
				t.Fatalf("Cosine(%v) = %v, want %v", tt.terms, got, tt.want)
			}
			for i := range got {
				if got[i].DocID != tt.want[i].DocID || !approx(got[i].Cosine, tt.want[i].Cosine) {
					t.Errorf("[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestCosineUbiquitousTermScoresZero(t *testing.T) {
	// a term every document contains has idf 0 and contributes nothing
	snap := storetest.Load(t, storetest.Corpus{Texts: map[int]string{1: "sun moon", 2: "sun"}})
	if got := Cosine(snap, []string{"sun"}, nil); len(got) != 0 {
		t.Errorf("Cosine = %v, want none", got)
	}
	got := Cosine(snap, []string{"sun", "moon"}, nil)
	if len(got) != 1 || got[0].DocID != 1 || !approx(got[0].Cosine, 1) {
		t.Errorf("Cosine = %v", got)
	}
}

func TestCombine(t *testing.T) {
	c := storetest.ThreeDocs()
	c.Titles = map[int]string{1: "Cats"}
	c.URLs = map[int]string{1: "http://a"}
	c.PageRank = map[int]float64{1: 0.5}
	snap := storetest.Load(t, c)

	got := Combine(snap, Cosine(snap, []string{"cat"}, nil), Weights{Cosine: DefaultCosineWeight, PageRank: DefaultPageRankWeight}, DefaultPrecision)
	want := []Result{
		{DocID: 1, Title: "Cats", URL: "http://a", Score: 0.645, Cosine: 0.7071, PageRank: 0.5},
		{DocID: 2, Title: "No Title", URL: "#", Score: 0.2424, Cosine: 0.3462, PageRank: 0},
	}
	if len(got) != len(want) {
		t.Fatalf("Combine = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestRound(t *testing.T) {
	tests := []struct {
		v    float64
		p    int
		want float64
	}{
		{0.12346, 4, 0.1235},
		{0.5, 0, 0},
		{1.5, 0, 2},
		{0.125, 2, 0.12},
		{2.675, 2, 2.67},
		{0.00015, 4, 0.0001},
		{1.0 / 3, 2, 0.33},
		{0.123456789, -1, 0.123456789},
	}
	for _, tt := range tests {
		if got := Round(tt.v, tt.p); got != tt.want {
			t.Errorf("Round(%v, %d) = %v, want %v", tt.v, tt.p, got, tt.want)
		}
	}
}
