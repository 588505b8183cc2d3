package executor

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/searcher/store"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/searcher/store/storetest"
	apperrors "github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/metrics"
)

type staticSource struct{ snap *store.Snapshot }

func (s staticSource) Current() *store.Snapshot { return s.snap }

type panicSource struct{}

func (panicSource) Current() *store.Snapshot { panic("index exploded") }

func newExecutor(t *testing.T, c storetest.Corpus) *Executor {
	t.Helper()
	return New(staticSource{storetest.Load(t, c)}, tokenizer.New(nil), DefaultOptions(), nil)
}

func docIDs(r *SearchResult) []int {
	out := make([]int, len(r.Results))
	for i, res := range r.Results {
		out[i] = res.DocID
	}
	return out
}

func TestSearch(t *testing.T) {
	withRank := storetest.ThreeDocs()
	withRank.PageRank = map[int]float64{2: 1}

	tests := []struct {
		name   string
		corpus storetest.Corpus
		query  string
		want   []int
		scores []float64
		phrase bool
	}{
		{"single term", storetest.ThreeDocs(), "cat", []int{1, 2}, []float64{0.495, 0.2424}, false},
		{"pagerank reorders", withRank, "cat", []int{2, 1}, []float64{0.5424, 0.495}, false},
		{"adjacent phrase", storetest.ThreeDocs(), `"cat hat"`, []int{1}, nil, true},
		{"reversed phrase", storetest.ThreeDocs(), `"hat cat"`, []int{}, nil, true},
		{"phrase with unknown term", storetest.ThreeDocs(), `"cat unicorn"`, []int{}, nil, true},
		{"quoted single term is plain", storetest.ThreeDocs(), `"dog"`, []int{2}, nil, false},
		{"unknown term", storetest.ThreeDocs(), "unicorn", []int{}, nil, false},
		{"stopwords only", storetest.ThreeDocs(), "the of and", []int{}, nil, false},
		{"blank", storetest.ThreeDocs(), "   ", []int{}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newExecutor(t, tt.corpus).Search(context.Background(), tt.query)
			ids := docIDs(got)
			if fmt.Sprint(ids) != fmt.Sprint(tt.want) {
				t.Fatalf("Search(%q) = %v, want %v", tt.query, ids, tt.want)
			}
			if got.Phrase != tt.phrase || got.Query != tt.query {
				t.Errorf("phrase = %v, query = %q", got.Phrase, got.Query)
			}
			for i, s := range tt.scores {
				if got.Results[i].Score != s {
					t.Errorf("score[%d] = %v, want %v", i, got.Results[i].Score, s)
				}
			}
		})
	}
}

func TestSearchOmitsDocsWithoutQueryTerms(t *testing.T) {
	got := newExecutor(t, storetest.ThreeDocs()).Search(context.Background(), "cat")
	for _, r := range got.Results {
		if r.DocID == 3 {
			t.Fatal("doc 3 has no cat and should not be ranked")
		}
	}
	if got.TotalHits != 2 || got.Results[0].Title != store.DefaultTitle || got.Results[0].URL != store.DefaultURL {
		t.Errorf("result = %+v", got)
	}
}

func TestSearchTruncatesToMaxResults(t *testing.T) {
	texts := map[int]string{}
	for i := 1; i <= 30; i++ {
		texts[i] = "cat"
	}
	for i := 31; i <= 35; i++ {
		texts[i] = "dog"
	}
	got := newExecutor(t, storetest.Corpus{Texts: texts}).Search(context.Background(), "cat")
	if len(got.Results) != 20 || got.TotalHits != 30 {
		t.Fatalf("returned %d of %d", len(got.Results), got.TotalHits)
	}
	// all scores tie, so input order (ascending doc id) is kept
	for i, r := range got.Results {
		if r.DocID != i+1 {
			t.Fatalf("position %d holds doc %d", i, r.DocID)
		}
	}
}

func TestExecuteNotReady(t *testing.T) {
	e := New(staticSource{}, tokenizer.New(nil), DefaultOptions(), nil)
	if _, err := e.Execute(context.Background(), e.Parse("cat")); !errors.Is(err, apperrors.ErrNotReady) {
		t.Fatalf("err = %v", err)
	}
	if got := e.Search(context.Background(), "cat"); len(got.Results) != 0 {
		t.Errorf("Search = %+v", got)
	}
}

func TestExecuteRecoversPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	e := New(panicSource{}, tokenizer.New(nil), DefaultOptions(), m)

	got, err := e.Execute(context.Background(), e.Parse("cat"))
	if err != nil || got == nil || len(got.Results) != 0 {
		t.Fatalf("Execute = %+v, %v", got, err)
	}
	var out dto.Metric
	if err := m.SearchFailuresTotal.Write(&out); err != nil {
		t.Fatal(err)
	}
	if out.GetCounter().GetValue() != 1 {
		t.Errorf("search_failures_total = %v", out.GetCounter().GetValue())
	}
}

func TestExecuteReportsGeneration(t *testing.T) {
	files := storetest.Write(t, t.TempDir(), storetest.ThreeDocs())
	h := store.NewHolder(files, nil)
	if _, err := h.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := h.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	e := New(h, tokenizer.New(nil), DefaultOptions(), nil)
	if got := e.Search(context.Background(), "cat"); got.Generation != 2 {
		t.Errorf("generation = %d", got.Generation)
	}
}
