package store

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	apperrors "github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/metrics"
)

// SwapHook runs after a new snapshot becomes current. old is nil on the
// first load.
type SwapHook func(old, current *Snapshot)

// Holder owns the snapshot serving queries. Readers call Current and keep
// using the returned snapshot for the whole query; Reload builds the next
// snapshot off to the side and publishes it with a single atomic store.
type Holder struct {
	files      Files
	current    atomic.Pointer[Snapshot]
	generation atomic.Uint64
	group      singleflight.Group
	hooksMu    sync.RWMutex
	hooks      []SwapHook
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewHolder creates an empty Holder; call Reload to load the first snapshot.
// m may be nil.
func NewHolder(files Files, m *metrics.Metrics) *Holder {
	return &Holder{
		files:   files,
		metrics: m,
		logger:  slog.Default().With("component", "index-holder"),
	}
}

// Current returns the serving snapshot, or nil before the first successful
// load.
func (h *Holder) Current() *Snapshot {
	return h.current.Load()
}

// OnSwap registers a hook that runs after every successful swap.
func (h *Holder) OnSwap(hook SwapHook) {
	h.hooksMu.Lock()
	h.hooks = append(h.hooks, hook)
	h.hooksMu.Unlock()
}

// Ready reports ErrNotReady until a snapshot is loaded.
func (h *Holder) Ready(ctx context.Context) error {
	if h.Current() == nil {
		return apperrors.ErrNotReady
	}
	return nil
}

// Reload loads the index files into a new snapshot and swaps it in.
// Concurrent calls share one load. On failure the previous snapshot keeps
// serving and the error is returned. ctx only bounds the wait; an abandoned
// load still completes and swaps.
func (h *Holder) Reload(ctx context.Context) (*Snapshot, error) {
	ch := h.group.DoChan("reload", func() (interface{}, error) {
		return h.load()
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Holder) load() (*Snapshot, error) {
	next, err := Load(h.files)
	if err != nil {
		h.logger.Error("index reload failed, keeping previous snapshot",
			"error", err,
			"serving_generation", h.generation.Load(),
		)
		if h.metrics != nil {
			h.metrics.IndexReloadsTotal.WithLabelValues("failure").Inc()
		}
		return nil, err
	}
	next.Generation = h.generation.Add(1)
	old := h.current.Swap(next)

	if h.metrics != nil {
		h.metrics.IndexReloadsTotal.WithLabelValues("success").Inc()
		h.metrics.IndexGeneration.Set(float64(next.Generation))
		h.metrics.IndexDocuments.Set(float64(next.N))
		h.metrics.IndexTerms.Set(float64(len(next.terms)))
		h.metrics.IndexPageRankScores.Set(float64(len(next.pagerank)))
	}
	h.logger.Info("index snapshot swapped", "generation", next.Generation, "documents", next.N)

	h.hooksMu.RLock()
	hooks := append([]SwapHook(nil), h.hooks...)
	h.hooksMu.RUnlock()
	for _, hook := range hooks {
		hook(old, next)
	}
	return next, nil
}
