// Package indexer builds the flat positional index from the crawler's
// document collection.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/indexer/collection"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/config"
)

type BuildStats struct {
	Documents int           `json:"documents"`
	Terms     int           `json:"terms"`
	Postings  int           `json:"postings"`
	Skipped   int           `json:"skipped"`
	URLs      int           `json:"urls_written"`
	Duration  time.Duration `json:"duration"`
}

type Builder struct {
	cfg        config.IndexConfig
	normalizer *tokenizer.Normalizer
	writeURLs  bool
	logger     *slog.Logger
}

type Option func(*Builder)

// WithURLs makes Build emit the urls file from the records' .X sections
// when no urls file exists yet.
func WithURLs(enabled bool) Option {
	return func(b *Builder) { b.writeURLs = enabled }
}

func NewBuilder(cfg config.IndexConfig, normalizer *tokenizer.Normalizer, opts ...Option) *Builder {
	if normalizer == nil {
		normalizer = tokenizer.New(nil)
	}
	b := &Builder{
		cfg:        cfg,
		normalizer: normalizer,
		logger:     slog.Default().With("component", "indexer"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build parses the collection, indexes every record and writes dictionary,
// postings, meta and titles. Identical input produces byte-identical files.
func (b *Builder) Build(ctx context.Context) (*BuildStats, error) {
	start := time.Now()
	collectionPath := b.cfg.Path(b.cfg.CollectionFile)
	parsed, err := collection.ParseFile(collectionPath)
	if err != nil {
		return nil, fmt.Errorf("parsing collection: %w", err)
	}
	b.logger.Info("collection parsed",
		"path", collectionPath,
		"documents", len(parsed.Documents),
		"skipped", parsed.Skipped,
	)

	memIndex := index.NewMemoryIndex(b.normalizer)
	titles := make(map[int]string, len(parsed.Documents))
	urls := make(map[int]string)
	for i, doc := range parsed.Documents {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("indexing aborted: %w", err)
			}
		}
		tokens := memIndex.AddDocument(doc.ID, doc.Text)
		titles[doc.ID] = doc.Title
		if doc.URL != "" {
			urls[doc.ID] = doc.URL
		}
		b.logger.Debug("document indexed", "doc_id", doc.ID, "token_count", tokens)
	}

	entries := memIndex.Snapshot()
	files := []struct {
		name  string
		write func(path string) error
	}{
		{b.cfg.DictionaryFile, func(p string) error { return segment.WriteDictionary(p, entries) }},
		{b.cfg.PostingsFile, func(p string) error { return segment.WritePostings(p, entries) }},
		{b.cfg.MetaFile, func(p string) error {
			counts := memIndex.DocTokenCounts()
			return segment.WriteMeta(p, segment.Meta{N: len(counts), DocTokenCounts: counts})
		}},
		{b.cfg.TitlesFile, func(p string) error { return segment.WriteDocValues(p, titles) }},
	}
	for _, f := range files {
		path := b.cfg.Path(f.name)
		if err := f.write(path); err != nil {
			return nil, fmt.Errorf("writing %s: %w", f.name, err)
		}
	}

	stats := &BuildStats{
		Documents: memIndex.DocCount(),
		Terms:     len(entries),
		Postings:  memIndex.PostingCount(),
		Skipped:   parsed.Skipped,
	}
	if b.writeURLs {
		n, err := b.writeURLFile(urls)
		if err != nil {
			return nil, err
		}
		stats.URLs = n
	}
	stats.Duration = time.Since(start)
	b.logger.Info("index built",
		"documents", stats.Documents,
		"terms", stats.Terms,
		"postings", stats.Postings,
		"skipped", stats.Skipped,
		"duration", stats.Duration,
	)
	return stats, nil
}

func (b *Builder) writeURLFile(urls map[int]string) (int, error) {
	path := b.cfg.Path(b.cfg.URLsFile)
	if _, err := os.Stat(path); err == nil {
		b.logger.Info("urls file already present, leaving it untouched", "path", path)
		return 0, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("checking urls file: %w", err)
	}
	if err := segment.WriteDocValues(path, urls); err != nil {
		return 0, fmt.Errorf("writing urls: %w", err)
	}
	return len(urls), nil
}
