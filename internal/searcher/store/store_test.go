package store_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/searcher/store"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/searcher/store/storetest"
	apperrors "github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/metrics"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestLoadThreeDocs(t *testing.T) {
	snap := storetest.Load(t, storetest.ThreeDocs())

	if snap.N != 3 {
		t.Fatalf("N = %d, want 3", snap.N)
	}
	for term, want := range map[string]int{"cat": 2, "dog": 1, "hat": 2} {
		if df, ok := snap.DocFreq(term); !ok || df != want {
			t.Errorf("df(%s) = %d,%v, want %d", term, df, ok, want)
		}
	}
	if _, ok := snap.IDF("unicorn"); ok {
		t.Error("unknown term reported an idf")
	}

	low := math.Log10(3.0 / 2.0)
	high := math.Log10(3.0)
	wantNorms := map[int]float64{
		1: math.Sqrt(2 * low * low),
		2: math.Sqrt(low*low + high*high),
		3: low,
	}
	for doc, want := range wantNorms {
		if got := snap.Norm(doc); !approx(got, want) {
			t.Errorf("norm(%d) = %v, want %v", doc, got, want)
		}
	}

	cat := snap.Postings("cat")
	if cat == nil || cat.Docs.GetCardinality() != 2 || !cat.Docs.Contains(1) || !cat.Docs.Contains(2) {
		t.Fatalf("cat postings = %+v", cat)
	}
	p := cat.Get(1)
	if p == nil || p.TF != 1 || !p.Has(0) || p.Has(1) || p.Has(-1) {
		t.Errorf("cat@1 = %+v", p)
	}
	if cat.Get(3) != nil {
		t.Error("cat should not occur in doc 3")
	}
	if snap.Postings("unicorn") != nil {
		t.Error("unknown term returned postings")
	}
}

func TestLoadDefaultsWhenOptionalFilesMissing(t *testing.T) {
	snap := storetest.Load(t, storetest.ThreeDocs())
	if snap.Title(1) != store.DefaultTitle || snap.URL(1) != store.DefaultURL || snap.PageRank(1) != 0 {
		t.Errorf("defaults = %q %q %v", snap.Title(1), snap.URL(1), snap.PageRank(1))
	}
	st := snap.Stats()
	if st.Titles != 0 || st.URLs != 0 || st.PageRank != 0 || st.Terms != 3 || st.Dictionary != 3 {
		t.Errorf("stats = %+v", st)
	}
}

func TestLoadDocValues(t *testing.T) {
	c := storetest.ThreeDocs()
	c.Titles = map[int]string{1: "Cats in Hats"}
	c.URLs = map[int]string{1: "http://a", 2: "http://b"}
	c.PageRank = map[int]float64{1: 0.25, 2: 1}
	snap := storetest.Load(t, c)

	if snap.Title(1) != "Cats in Hats" || snap.Title(2) != store.DefaultTitle {
		t.Errorf("titles = %q %q", snap.Title(1), snap.Title(2))
	}
	if snap.URL(2) != "http://b" || snap.URL(3) != store.DefaultURL {
		t.Errorf("urls = %q %q", snap.URL(2), snap.URL(3))
	}
	if snap.PageRank(1) != 0.25 || snap.PageRank(3) != 0 {
		t.Errorf("pagerank = %v %v", snap.PageRank(1), snap.PageRank(3))
	}
}

func TestLoadPostingsTermMissingFromDictionary(t *testing.T) {
	files := storetest.Write(t, t.TempDir(), storetest.ThreeDocs())
	if err := os.WriteFile(files.Dictionary, []byte("cat 2\nhat 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	snap, err := store.Load(files)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	dog := snap.Postings("dog")
	if dog == nil || dog.Get(2) == nil {
		t.Fatalf("dog postings = %+v, want doc 2 kept for lookup", dog)
	}
	if _, ok := snap.IDF("dog"); ok {
		t.Error("term absent from the dictionary reported an idf")
	}
	if got, want := snap.Norm(2), math.Log10(1.5); !approx(got, want) {
		t.Errorf("norm(2) = %v, want %v (cat only)", got, want)
	}
	if scored := ranker.Cosine(snap, []string{"dog"}, nil); len(scored) != 0 {
		t.Errorf("cosine(dog) = %+v, want empty", scored)
	}
}

func TestLoadCorruptPageRankFallsBack(t *testing.T) {
	files := storetest.Write(t, t.TempDir(), storetest.ThreeDocs())
	if err := os.WriteFile(files.PageRank, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	snap, err := store.Load(files)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.PageRank(1) != 0 {
		t.Errorf("pagerank = %v", snap.PageRank(1))
	}
}

func TestLoadRequiredFiles(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *store.Files) error
		wantErr error
	}{
		{"missing meta", func(f *store.Files) error { return os.Remove(f.Meta) }, apperrors.ErrIndexMissing},
		{"missing dictionary", func(f *store.Files) error { return os.Remove(f.Dictionary) }, apperrors.ErrIndexMissing},
		{"missing postings", func(f *store.Files) error { return os.Remove(f.Postings) }, apperrors.ErrIndexMissing},
		{"corrupt postings", func(f *store.Files) error {
			return os.WriteFile(f.Postings, []byte("cat -> not a posting list\n"), 0o644)
		}, apperrors.ErrIndexCorrupt},
		{"negative doc id", func(f *store.Files) error {
			return os.WriteFile(f.Postings, []byte("cat -> -1:1:0\n"), 0o644)
		}, apperrors.ErrIndexCorrupt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := storetest.Write(t, t.TempDir(), storetest.ThreeDocs())
			if err := tt.mutate(&files); err != nil {
				t.Fatal(err)
			}
			_, err := store.Load(files)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestHolderReload(t *testing.T) {
	files := storetest.Write(t, t.TempDir(), storetest.ThreeDocs())
	reg := prometheus.NewRegistry()
	h := store.NewHolder(files, metrics.New(reg))

	if h.Current() != nil {
		t.Fatal("holder should start empty")
	}
	if err := h.Ready(context.Background()); !errors.Is(err, apperrors.ErrNotReady) {
		t.Fatalf("Ready before load = %v", err)
	}

	var swaps []uint64
	h.OnSwap(func(old, current *store.Snapshot) {
		if old != nil && old.Generation+1 != current.Generation {
			t.Errorf("hook saw %d -> %d", old.Generation, current.Generation)
		}
		swaps = append(swaps, current.Generation)
	})

	first, err := h.Reload(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if first.Generation != 1 || h.Current() != first || h.Ready(context.Background()) != nil {
		t.Fatalf("after first reload: gen %d", first.Generation)
	}

	if err := os.Remove(files.Postings); err != nil {
		t.Fatal(err)
	}
	if _, err := h.Reload(context.Background()); !errors.Is(err, apperrors.ErrIndexMissing) {
		t.Fatalf("reload with missing postings = %v", err)
	}
	if h.Current() != first {
		t.Error("failed reload replaced the serving snapshot")
	}

	storetest.Write(t, filepath.Dir(files.Meta), storetest.ThreeDocs())
	second, err := h.Reload(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if second.Generation != 2 || h.Current() != second {
		t.Errorf("second generation = %d", second.Generation)
	}
	if len(swaps) != 2 || swaps[0] != 1 || swaps[1] != 2 {
		t.Errorf("swaps = %v", swaps)
	}
}

func TestHolderReloadCanceledContext(t *testing.T) {
	files := storetest.Write(t, t.TempDir(), storetest.ThreeDocs())
	h := store.NewHolder(files, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Either the load wins the race or the canceled wait does; both are fine
	// as long as no error other than cancellation surfaces.
	if _, err := h.Reload(ctx); err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestHolderConcurrentReaders(t *testing.T) {
	files := storetest.Write(t, t.TempDir(), storetest.ThreeDocs())
	h := store.NewHolder(files, nil)
	if _, err := h.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				snap := h.Current()
				if snap == nil || snap.N != 3 {
					t.Error("reader saw an incomplete snapshot")
					return
				}
			}
		}()
	}
	for i := 0; i < 5; i++ {
		if _, err := h.Reload(context.Background()); err != nil {
			t.Error(err)
		}
	}
	wg.Wait()
	if h.Current().Generation < 2 {
		t.Errorf("generation = %d", h.Current().Generation)
	}
}
