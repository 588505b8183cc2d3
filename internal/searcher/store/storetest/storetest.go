// Package storetest builds small on-disk indexes for tests.
package storetest

import (
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/searcher/store"
)

// Corpus describes a fixture. Texts are indexed with the default
// normalizer; nil Titles, URLs or PageRank leave that file absent.
type Corpus struct {
	Texts    map[int]string
	Titles   map[int]string
	URLs     map[int]string
	PageRank map[int]float64
}

// ThreeDocs is the cat/hat/dog corpus: df(cat)=2, df(dog)=1, df(hat)=2, N=3.
func ThreeDocs() Corpus {
	return Corpus{
		Texts: map[int]string{1: "cat hat", 2: "cat dog", 3: "hat"},
	}
}

// Write indexes c into dir and returns the file locations.
func Write(t testing.TB, dir string, c Corpus) store.Files {
	t.Helper()
	files := store.Files{
		Meta:       filepath.Join(dir, "meta.json"),
		Dictionary: filepath.Join(dir, "dictionary.txt"),
		Postings:   filepath.Join(dir, "postings.txt"),
		Titles:     filepath.Join(dir, "titles.txt"),
		URLs:       filepath.Join(dir, "urls.txt"),
		PageRank:   filepath.Join(dir, "pagerank.json"),
	}
	mi := index.NewMemoryIndex(tokenizer.New(nil))
	for id, text := range c.Texts {
		mi.AddDocument(id, text)
	}
	entries := mi.Snapshot()
	counts := mi.DocTokenCounts()
	must(t, segment.WriteDictionary(files.Dictionary, entries))
	must(t, segment.WritePostings(files.Postings, entries))
	must(t, segment.WriteMeta(files.Meta, segment.Meta{N: len(counts), DocTokenCounts: counts}))
	if c.Titles != nil {
		must(t, segment.WriteDocValues(files.Titles, c.Titles))
	}
	if c.URLs != nil {
		must(t, segment.WriteDocValues(files.URLs, c.URLs))
	}
	if c.PageRank != nil {
		must(t, segment.WritePageRank(files.PageRank, c.PageRank))
	}
	return files
}

// Load writes c into a temp dir and loads it.
func Load(t testing.TB, c Corpus) *store.Snapshot {
	t.Helper()
	snap, err := store.Load(Write(t, t.TempDir(), c))
	if err != nil {
		t.Fatalf("loading fixture: %v", err)
	}
	return snap
}

func must(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
}
