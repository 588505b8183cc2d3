// Package reload triggers index snapshot reloads from SIGHUP and from
// index-complete notifications on Kafka.
package reload

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/searcher/store"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/kafka"
)

const reloadTimeout = 2 * time.Minute

// Reloader is satisfied by *store.Holder.
type Reloader interface {
	Reload(ctx context.Context) (*store.Snapshot, error)
}

// Invalidator drops cached results; *cache.QueryCache satisfies it.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Run reloads once and logs the outcome. A failure leaves the previous
// snapshot serving.
func Run(ctx context.Context, r Reloader, trigger string) {
	logger := slog.Default().With("component", "index-reload", "trigger", trigger)
	ctx, cancel := context.WithTimeout(ctx, reloadTimeout)
	defer cancel()
	snap, err := r.Reload(ctx)
	if err != nil {
		logger.Error("index reload failed", "error", err)
		return
	}
	logger.Info("index reloaded", "generation", snap.Generation, "documents", snap.N)
}

// HandleIndexComplete reloads on every index-complete event. Messages that do
// not decode are skipped; reload failures are logged, not retried.
func HandleIndexComplete(r Reloader) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-reload")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[analytics.IndexCompleteEvent](value)
		if err != nil {
			logger.Warn("ignoring undecodable index-complete message", "key", string(key), "error", err)
			return nil
		}
		if event.Type != analytics.EventIndexComplete {
			logger.Warn("ignoring unexpected event", "type", event.Type)
			return nil
		}
		logger.Info("index-complete received", "kind", event.Kind, "generated_at", event.GeneratedAt)
		Run(ctx, r, "kafka:"+event.Kind)
		return nil
	}
}

// WatchSignals reloads each time one of sigs arrives until ctx is done.
func WatchSignals(ctx context.Context, r Reloader, sigs ...os.Signal) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)
	go func() {
		defer signal.Stop(ch)
		for {
			select {
			case sig := <-ch:
				Run(ctx, r, "signal:"+sig.String())
			case <-ctx.Done():
				return
			}
		}
	}()
}

// InvalidateOnSwap returns a hook that clears the query cache after every
// swap that replaces an earlier snapshot.
func InvalidateOnSwap(c Invalidator) store.SwapHook {
	logger := slog.Default().With("component", "index-reload")
	return func(old, current *store.Snapshot) {
		if old == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.Invalidate(ctx); err != nil {
			logger.Warn("cache invalidation after reload failed", "generation", current.Generation, "error", err)
		}
	}
}
