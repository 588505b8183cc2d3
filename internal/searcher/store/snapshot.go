// Package store loads the flat index files into an immutable, scoring-ready
// Snapshot and swaps snapshots atomically on reload.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/errors"
)

const (
	DefaultURL   = "#"
	DefaultTitle = "No Title"
)

// Files locates the index files a Snapshot is loaded from.
type Files struct {
	Meta       string
	Dictionary string
	Postings   string
	Titles     string
	URLs       string
	PageRank   string
}

func FilesFromConfig(cfg config.IndexConfig) Files {
	return Files{
		Meta:       cfg.Path(cfg.MetaFile),
		Dictionary: cfg.Path(cfg.DictionaryFile),
		Postings:   cfg.Path(cfg.PostingsFile),
		Titles:     cfg.Path(cfg.TitlesFile),
		URLs:       cfg.Path(cfg.URLsFile),
		PageRank:   cfg.Path(cfg.PageRankFile),
	}
}

// Posting is one document's occurrences of a term. TF is the count recorded
// in the postings file; scoring uses len(Positions).
type Posting struct {
	TF        int
	Positions []int
	positions *roaring.Bitmap
}

// Has reports whether the term occurs at pos.
func (p *Posting) Has(pos int) bool {
	if pos < 0 || int64(pos) > math.MaxUint32 {
		return false
	}
	return p.positions.Contains(uint32(pos))
}

// TermPostings is every document containing one term.
type TermPostings struct {
	Docs  *roaring.Bitmap
	byDoc map[int]*Posting
}

// Get returns the posting for doc, or nil when the term does not occur
// there.
func (tp *TermPostings) Get(doc int) *Posting {
	return tp.byDoc[doc]
}

// Snapshot is a fully loaded, read-only index. It is safe for concurrent
// use; a reload builds a new Snapshot rather than mutating this one.
type Snapshot struct {
	N          int
	Generation uint64
	LoadedAt   time.Time

	df       map[string]int
	terms    map[string]*TermPostings
	norms    map[int]float64
	titles   map[int]string
	urls     map[int]string
	pagerank map[int]float64
}

// DocFreq returns df(term) and whether the dictionary lists the term.
func (s *Snapshot) DocFreq(term string) (int, bool) {
	df, ok := s.df[term]
	return df, ok
}

// IDF returns log10(N/df) for terms with a usable document frequency.
func (s *Snapshot) IDF(term string) (float64, bool) {
	df, ok := s.df[term]
	if !ok || df <= 0 || s.N <= 0 {
		return 0, false
	}
	return math.Log10(float64(s.N) / float64(df)), true
}

// Postings returns the postings for term, or nil for an unknown term.
func (s *Snapshot) Postings(term string) *TermPostings {
	return s.terms[term]
}

func (s *Snapshot) Norm(doc int) float64 { return s.norms[doc] }

func (s *Snapshot) Title(doc int) string {
	if t, ok := s.titles[doc]; ok {
		return t
	}
	return DefaultTitle
}

func (s *Snapshot) URL(doc int) string {
	if u, ok := s.urls[doc]; ok {
		return u
	}
	return DefaultURL
}

func (s *Snapshot) PageRank(doc int) float64 { return s.pagerank[doc] }

type Stats struct {
	Generation uint64    `json:"generation"`
	Documents  int       `json:"documents"`
	Terms      int       `json:"terms"`
	Dictionary int       `json:"dictionary_terms"`
	Titles     int       `json:"titles"`
	URLs       int       `json:"urls"`
	PageRank   int       `json:"pagerank_scores"`
	LoadedAt   time.Time `json:"loaded_at"`
}

func (s *Snapshot) Stats() Stats {
	return Stats{
		Generation: s.Generation,
		Documents:  s.N,
		Terms:      len(s.terms),
		Dictionary: len(s.df),
		Titles:     len(s.titles),
		URLs:       len(s.urls),
		PageRank:   len(s.pagerank),
		LoadedAt:   s.LoadedAt,
	}
}

// Load reads every index file into a new Snapshot with generation 0. Meta,
// dictionary and postings are required; titles, urls and pagerank fall back
// to empty maps when missing or unreadable.
func Load(files Files) (*Snapshot, error) {
	logger := slog.Default().With("component", "index-store")
	start := time.Now()

	meta, err := segment.ReadMeta(files.Meta)
	if err != nil {
		return nil, err
	}
	s := &Snapshot{
		N:     meta.N,
		terms: make(map[string]*TermPostings),
		norms: make(map[int]float64),
	}

	s.pagerank = optional(logger, "pagerank", files.PageRank, segment.ReadPageRank)
	s.urls = optional(logger, "urls", files.URLs, segment.ReadDocValues)
	s.titles = optional(logger, "titles", files.Titles, segment.ReadDocValues)

	if s.df, err = segment.ReadDictionary(files.Dictionary); err != nil {
		return nil, err
	}

	normSq := make(map[int]float64)
	err = segment.ReadPostings(files.Postings, func(term string, postings index.PostingList) error {
		tp := s.terms[term]
		if tp == nil {
			tp = &TermPostings{Docs: roaring.New(), byDoc: make(map[int]*Posting, len(postings))}
			s.terms[term] = tp
		}
		idf, scoreable := s.IDF(term)
		for _, p := range postings {
			if p.DocID < 0 || int64(p.DocID) > math.MaxUint32 {
				return fmt.Errorf("term %q: doc id %d out of range", term, p.DocID)
			}
			bm := roaring.New()
			for _, pos := range p.Positions {
				if pos < 0 || int64(pos) > math.MaxUint32 {
					return fmt.Errorf("term %q doc %d: position %d out of range", term, p.DocID, pos)
				}
				bm.Add(uint32(pos))
			}
			tp.Docs.Add(uint32(p.DocID))
			tp.byDoc[p.DocID] = &Posting{TF: p.Frequency, Positions: p.Positions, positions: bm}
			if scoreable {
				w := float64(p.Frequency) * idf
				normSq[p.DocID] += w * w
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrIndexMissing) || errors.Is(err, apperrors.ErrIndexCorrupt) {
			return nil, err
		}
		return nil, apperrors.Corrupt(files.Postings, 0, err)
	}
	for doc, sq := range normSq {
		s.norms[doc] = math.Sqrt(sq)
	}
	for _, tp := range s.terms {
		tp.Docs.RunOptimize()
	}

	s.LoadedAt = time.Now()
	logger.Info("index loaded",
		"documents", s.N,
		"terms", len(s.terms),
		"dictionary_terms", len(s.df),
		"titles", len(s.titles),
		"urls", len(s.urls),
		"pagerank_scores", len(s.pagerank),
		"duration", time.Since(start),
	)
	return s, nil
}

func optional[V any](logger *slog.Logger, name, path string, read func(string) (map[int]V, error)) map[int]V {
	values, err := read(path)
	if err == nil {
		return values
	}
	if errors.Is(err, apperrors.ErrIndexMissing) {
		logger.Warn("optional index file missing, using defaults", "file", name, "path", path)
	} else {
		logger.Warn("optional index file unreadable, using defaults", "file", name, "path", path, "error", err)
	}
	return map[int]V{}
}
