// Package cache stores search results in Redis keyed by the normalized query
// and the index generation that produced them.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/resilience"
)

const keyPrefix = "search:"

// Backend is the key-value store behind the cache. *pkgredis.Client
// satisfies it; a missing key must be reported with a redis nil error.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type Stats struct {
	Hits    int64                   `json:"hits"`
	Misses  int64                   `json:"misses"`
	Total   int64                   `json:"total"`
	HitRate string                  `json:"hit_rate"`
	Circuit string                  `json:"circuit"`
	Breaker resilience.BreakerStats `json:"breaker"`
}

type QueryCache struct {
	backend Backend
	ttl     time.Duration
	breaker *resilience.Breaker
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a QueryCache. m may be nil.
func New(backend Backend, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	logger := slog.Default().With("component", "query-cache")
	breaker := resilience.NewBreaker("query-cache", resilience.BreakerConfig{
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("cache breaker state changed", "from", from.String(), "to", to.String())
			if m != nil {
				m.BreakerState.WithLabelValues(name).Set(float64(to))
				m.BreakerTransitions.WithLabelValues(name, to.String()).Inc()
			}
		},
	})
	if m != nil {
		m.BreakerState.WithLabelValues(breaker.Name()).Set(float64(resilience.StateClosed))
	}
	return &QueryCache{
		backend: backend,
		ttl:     ttl,
		metrics: m,
		logger:  logger,
		breaker: breaker,
	}
}

// Get looks up plan's result for the given generation. Backend errors count
// as misses.
func (c *QueryCache) Get(ctx context.Context, plan *parser.QueryPlan, generation uint64) (*executor.SearchResult, bool) {
	key := Key(plan, generation)
	var data string
	err := c.breaker.Do(func() error {
		var err error
		data, err = c.backend.Get(ctx, key)
		if pkgredis.IsNilError(err) {
			data = ""
			return nil
		}
		return err
	})
	if err != nil {
		if !errors.Is(err, resilience.ErrCircuitOpen) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return nil, false
	}
	if data == "" {
		c.miss()
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	c.logger.Debug("cache hit", "query", plan.RawQuery, "key", key)
	return &result, true
}

// Set stores result under the generation it was computed from.
func (c *QueryCache) Set(ctx context.Context, plan *parser.QueryPlan, result *executor.SearchResult) {
	key := Key(plan, result.Generation)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Do(func() error {
		return c.backend.Set(ctx, key, data, c.ttl)
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result or runs compute, sharing one
// computation among concurrent identical queries. The bool reports a hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	plan *parser.QueryPlan,
	generation uint64,
	compute func() (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, plan, generation); ok {
		return result, true, nil
	}
	val, err, _ := c.group.Do(Key(plan, generation), func() (interface{}, error) {
		result, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, plan, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*executor.SearchResult), false, nil
}

// Invalidate deletes every cached result.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	var deleted int64
	err := c.breaker.Do(func() error {
		var err error
		deleted, err = c.backend.FlushByPattern(ctx, keyPrefix+"*")
		return err
	})
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	breaker := c.breaker.Stats()
	total := hits + misses
	var rate float64
	if total > 0 {
		rate = float64(hits) / float64(total) * 100
	}
	return Stats{
		Hits:    hits,
		Misses:  misses,
		Total:   total,
		HitRate: fmt.Sprintf("%.1f%%", rate),
		Circuit: breaker.State,
		Breaker: breaker,
	}
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// Key identifies a plan's result at one index generation. Queries that
// normalize to the same terms share a key.
func Key(plan *parser.QueryPlan, generation uint64) string {
	mode := "plain"
	if plan.Phrase {
		mode = "phrase"
	}
	raw := fmt.Sprintf("%s|%s|gen=%d", mode, strings.Join(plan.Terms, ","), generation)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
