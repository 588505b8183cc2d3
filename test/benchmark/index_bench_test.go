// Package benchmark contains Go benchmarks for the indexer, the index store
// and the search pipeline, measuring throughput and allocation behaviour.
package benchmark

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/pagerank"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/searcher/store"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/searcher/store/storetest"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/config"
)

var vocabulary = []string{
	"crawler", "search", "ranking", "authority", "index",
	"query", "engine", "link", "page", "document",
}

// docText produces a deterministic document body for id.
func docText(id int) string {
	words := make([]string, 0, 12)
	for j := 0; j < 12; j++ {
		words = append(words, vocabulary[(id*7+j*3)%len(vocabulary)])
	}
	return strings.Join(words, " ")
}

func syntheticCorpus(n int) storetest.Corpus {
	c := storetest.Corpus{
		Texts:    make(map[int]string, n),
		PageRank: make(map[int]float64, n),
	}
	for i := 1; i <= n; i++ {
		c.Texts[i] = docText(i)
		c.PageRank[i] = float64(i%100) / 100
	}
	return c
}

// BenchmarkMemoryIndexAdd measures per-document insert throughput into the
// in-memory positional index.
func BenchmarkMemoryIndexAdd(b *testing.B) {
	mi := index.NewMemoryIndex(tokenizer.New(nil))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mi.AddDocument(i+1, docText(i))
	}
}

// BenchmarkMemoryIndexSnapshot measures the sorted export written to the
// dictionary and postings files.
func BenchmarkMemoryIndexSnapshot(b *testing.B) {
	mi := index.NewMemoryIndex(tokenizer.New(nil))
	for i := 1; i <= 5000; i++ {
		mi.AddDocument(i, docText(i))
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = mi.Snapshot()
	}
}

// BenchmarkBuild measures a full collection-to-files build.
func BenchmarkBuild(b *testing.B) {
	for _, docs := range []int{100, 1000, 5000} {
		b.Run(fmt.Sprintf("docs_%d", docs), func(b *testing.B) {
			var sb strings.Builder
			for i := 1; i <= docs; i++ {
				fmt.Fprintf(&sb, ".I %d\n.T\nPage %d\n.W\n%s\n.X\nhttp://example.org/%d\n", i, i, docText(i), i)
			}
			cfg := config.Default().Index
			cfg.DataDir = b.TempDir()
			if err := os.WriteFile(cfg.Path(cfg.CollectionFile), []byte(sb.String()), 0o644); err != nil {
				b.Fatal(err)
			}
			builder := indexer.NewBuilder(cfg, tokenizer.New(nil))

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := builder.Build(context.Background()); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkSnapshotLoad measures reading the index files into a scoring-ready
// snapshot, norms included.
func BenchmarkSnapshotLoad(b *testing.B) {
	files := storetest.Write(b, b.TempDir(), syntheticCorpus(5000))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := store.Load(files); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkPageRank measures the power iteration over a ring with chords.
func BenchmarkPageRank(b *testing.B) {
	for _, nodes := range []int{1000, 10000} {
		b.Run(fmt.Sprintf("nodes_%d", nodes), func(b *testing.B) {
			urls := make(map[int]string, nodes)
			links := make(map[int][]string, nodes)
			for i := 1; i <= nodes; i++ {
				urls[i] = fmt.Sprintf("http://example.org/%d", i)
			}
			for i := 1; i <= nodes; i++ {
				links[i] = []string{urls[i%nodes+1], urls[(i*7)%nodes+1]}
			}
			g := pagerank.BuildGraph(links, urls)
			opts := pagerank.Options{Damping: pagerank.DefaultDamping, Iterations: pagerank.DefaultIterations}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := pagerank.Compute(g, opts); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
