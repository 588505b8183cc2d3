// Package handler exposes the searcher over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/searcher/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/middleware"
)

type SearchExecutor interface {
	Parse(raw string) *parser.QueryPlan
	Execute(ctx context.Context, plan *parser.QueryPlan) (*executor.SearchResult, error)
}

// IndexHolder is satisfied by *store.Holder.
type IndexHolder interface {
	Current() *store.Snapshot
	Reload(ctx context.Context) (*store.Snapshot, error)
}

type Handler struct {
	executor  SearchExecutor
	holder    IndexHolder
	cache     *cache.QueryCache
	collector *analytics.Collector
	logger    *slog.Logger
}

// New creates a Handler. queryCache and collector may be nil.
func New(exec SearchExecutor, holder IndexHolder, queryCache *cache.QueryCache, collector *analytics.Collector) *Handler {
	return &Handler{
		executor:  exec,
		holder:    holder,
		cache:     queryCache,
		collector: collector,
		logger:    slog.Default().With("component", "search-handler"),
	}
}

// Register mounts every searcher route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/index/stats", h.IndexStats)
	mux.HandleFunc("POST /api/v1/admin/reload", h.Reload)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	if !r.URL.Query().Has("q") {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	query := r.URL.Query().Get("q")
	plan := h.executor.Parse(query)

	var (
		result   *executor.SearchResult
		err      error
		cacheHit bool
	)
	switch {
	case plan.Empty:
		result = &executor.SearchResult{Query: query, Results: []ranker.Result{}}
	case h.cache != nil && h.holder.Current() != nil:
		generation := h.holder.Current().Generation
		result, cacheHit, err = h.cache.GetOrCompute(ctx, plan, generation, func() (*executor.SearchResult, error) {
			return h.executor.Execute(ctx, plan)
		})
	default:
		result, err = h.executor.Execute(ctx, plan)
	}
	// Only ErrNotReady reaches here in practice: the executor turns scoring
	// failures into an empty result, and cmd/searcher refuses to start
	// without a first snapshot.
	if err != nil {
		log.Error("search execution failed", "query", query, "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), "search unavailable")
		return
	}
	if result.Query != query {
		shared := *result
		shared.Query = query
		result = &shared
	}

	latency := time.Since(start)
	log.Info("search completed",
		"query", query,
		"phrase", result.Phrase,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"generation", result.Generation,
		"latency_ms", latency.Milliseconds(),
	)
	if h.collector != nil {
		event := analytics.NewSearchEvent()
		event.Query = query
		event.TermCount = len(plan.Terms)
		event.Phrase = result.Phrase
		event.TotalHits = result.TotalHits
		event.Returned = len(result.Results)
		event.LatencyMs = latency.Milliseconds()
		event.CacheHit = cacheHit
		event.Generation = result.Generation
		event.RequestID = middleware.GetRequestID(ctx)
		h.collector.Track(event)
	}

	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	snap := h.holder.Current()
	if snap == nil {
		h.writeError(w, http.StatusServiceUnavailable, apperrors.ErrNotReady.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, snap.Stats())
}

func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	snap, err := h.holder.Reload(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("admin reload failed", "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":     "reloaded",
		"generation": snap.Generation,
		"documents":  snap.N,
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	h.writeJSON(w, http.StatusOK, h.cache.Stats())
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
