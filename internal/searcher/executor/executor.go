// Package executor runs a query against the serving snapshot: phrase
// filtering, cosine scoring, PageRank blending and top-K selection.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/searcher/phrase"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/searcher/store"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/tracing"
)

type SearchResult struct {
	Query      string          `json:"query"`
	Phrase     bool            `json:"phrase"`
	TotalHits  int             `json:"total_hits"`
	Generation uint64          `json:"generation"`
	Results    []ranker.Result `json:"results"`
}

// SnapshotSource yields the snapshot a query runs against. *store.Holder
// satisfies it.
type SnapshotSource interface {
	Current() *store.Snapshot
}

type Options struct {
	Weights    ranker.Weights
	MaxResults int
	Precision  int
}

func OptionsFromConfig(cfg config.SearchConfig) Options {
	return Options{
		Weights:    ranker.Weights{Cosine: cfg.CosineWeight, PageRank: cfg.PageRankWeight},
		MaxResults: cfg.MaxResults,
		Precision:  cfg.Precision,
	}
}

func DefaultOptions() Options {
	return Options{
		Weights:    ranker.Weights{Cosine: ranker.DefaultCosineWeight, PageRank: ranker.DefaultPageRankWeight},
		MaxResults: merger.DefaultLimit,
		Precision:  ranker.DefaultPrecision,
	}
}

type Executor struct {
	source     SnapshotSource
	normalizer *tokenizer.Normalizer
	opts       Options
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// New creates an Executor. m may be nil.
func New(source SnapshotSource, normalizer *tokenizer.Normalizer, opts Options, m *metrics.Metrics) *Executor {
	return &Executor{
		source:     source,
		normalizer: normalizer,
		opts:       opts,
		metrics:    m,
		logger:     slog.Default().With("component", "query-executor"),
	}
}

func (e *Executor) Parse(raw string) *parser.QueryPlan {
	return parser.Parse(raw, e.normalizer)
}

// Search parses and executes raw. It never fails: any error, including a
// missing snapshot, yields an empty result.
func (e *Executor) Search(ctx context.Context, raw string) *SearchResult {
	result, err := e.Execute(ctx, e.Parse(raw))
	if err != nil {
		logger.FromContext(ctx).Warn("search returned no results", "query", raw, "error", err)
		return emptyResult(raw, false, 0)
	}
	return result
}

// Execute runs plan against the current snapshot. It returns ErrNotReady
// when nothing is loaded; a panic while scoring is recovered into an empty
// result and counted as a search failure.
func (e *Executor) Execute(ctx context.Context, plan *parser.QueryPlan) (result *SearchResult, err error) {
	start := time.Now()
	queryType := "plain"
	if plan.Phrase {
		queryType = "phrase"
	}
	if plan.Empty {
		e.observe("empty", queryType, 0, start)
		return emptyResult(plan.RawQuery, false, 0), nil
	}

	var generation uint64
	defer func() {
		if r := recover(); r != nil {
			logger.FromContext(ctx).Error("search panicked",
				"component", "query-executor",
				"query", plan.RawQuery,
				"generation", generation,
				"panic", fmt.Sprint(r),
			)
			if e.metrics != nil {
				e.metrics.SearchFailuresTotal.Inc()
			}
			e.observe("error", queryType, 0, start)
			result, err = emptyResult(plan.RawQuery, plan.Phrase, generation), nil
		}
	}()

	snap := e.source.Current()
	if snap == nil {
		e.observe("error", queryType, 0, start)
		return nil, apperrors.ErrNotReady
	}
	generation = snap.Generation

	ctx, root := tracing.StartSpan(ctx, "search", "")
	defer func() {
		root.End()
		root.Log(e.logger)
	}()
	root.SetAttr("query", plan.RawQuery)
	root.SetAttr("terms", len(plan.Terms))
	root.SetAttr("generation", snap.Generation)

	var restrict *roaring.Bitmap
	if plan.Phrase {
		_, span := tracing.StartChildSpan(ctx, "phrase")
		restrict = phrase.Docs(snap, plan.Terms)
		span.SetAttr("docs", restrict.GetCardinality())
		span.End()
		if restrict.IsEmpty() {
			e.observe("zero_result", queryType, 0, start)
			return emptyResult(plan.RawQuery, true, snap.Generation), nil
		}
	}

	_, span := tracing.StartChildSpan(ctx, "cosine")
	scored := ranker.Cosine(snap, plan.Terms, restrict)
	span.SetAttr("scored", len(scored))
	span.End()

	_, span = tracing.StartChildSpan(ctx, "combine")
	combined := ranker.Combine(snap, scored, e.opts.Weights, e.opts.Precision)
	top := merger.TopK(combined, e.opts.MaxResults)
	span.SetAttr("returned", len(top))
	span.End()

	resultType := "hit"
	if len(top) == 0 {
		resultType = "zero_result"
	}
	e.observe(resultType, queryType, len(top), start)
	e.logger.Debug("query executed",
		"query", plan.RawQuery,
		"terms", plan.Terms,
		"phrase", plan.Phrase,
		"candidates", len(scored),
		"results", len(top),
	)
	return &SearchResult{
		Query:      plan.RawQuery,
		Phrase:     plan.Phrase,
		TotalHits:  len(scored),
		Generation: snap.Generation,
		Results:    top,
	}, nil
}

func (e *Executor) observe(resultType, queryType string, returned int, start time.Time) {
	if e.metrics == nil {
		return
	}
	e.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	e.metrics.SearchLatency.WithLabelValues(queryType).Observe(time.Since(start).Seconds())
	e.metrics.SearchResultsCount.Observe(float64(returned))
}

func emptyResult(query string, isPhrase bool, generation uint64) *SearchResult {
	return &SearchResult{
		Query:      query,
		Phrase:     isPhrase,
		Generation: generation,
		Results:    []ranker.Result{},
	}
}
