package phrase

import (
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/searcher/store/storetest"
)

func TestDocs(t *testing.T) {
	snap := storetest.Load(t, storetest.Corpus{Texts: map[int]string{
		1: "cat hat",
		2: "cat dog",
		3: "hat",
		4: "hat sits near cat then cat hat again",
		5: "big cat red hat",
	}})

	tests := []struct {
		name  string
		terms []string
		want  []uint32
	}{
		{"adjacent pair", []string{"cat", "hat"}, []uint32{1, 4}},
		{"reversed order", []string{"hat", "cat"}, nil},
		{"both present but apart", []string{"big", "hat"}, nil},
		{"three terms", []string{"big", "cat", "red"}, []uint32{5}},
		{"unknown term", []string{"cat", "unicorn"}, nil},
		{"repeated term", []string{"cat", "cat"}, nil},
		{"no terms", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Docs(snap, tt.terms).ToArray()
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Docs(%v) = %v, want %v", tt.terms, got, tt.want)
			}
		})
	}
}

func TestDocsSubsetOfIntersection(t *testing.T) {
	snap := storetest.Load(t, storetest.Corpus{Texts: map[int]string{
		1: "red fox jumps", 2: "fox red", 3: "red fox red fox", 4: "fox",
	}})
	got := Docs(snap, []string{"red", "fox"})
	both := snap.Postings("red").Docs.Clone()
	both.And(snap.Postings("fox").Docs)
	for _, doc := range got.ToArray() {
		if !both.Contains(doc) {
			t.Errorf("doc %d matched without containing every term", doc)
		}
	}
	if !reflect.DeepEqual(got.ToArray(), []uint32{1, 3}) {
		t.Errorf("got %v", got.ToArray())
	}
}
