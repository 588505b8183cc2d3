// Command searcher loads the index into memory and serves ranked search over
// HTTP. It reloads the index on SIGHUP, on POST /api/v1/admin/reload and on
// index-complete events from Kafka.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/searcher/reload"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/searcher/store"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "data_dir", cfg.Index.DataDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, nil)
		defer shutdownMetrics(context.Background())
	}

	normalizer, err := tokenizer.FromFile(cfg.Index.Path(cfg.Index.StopwordsFile))
	if err != nil {
		slog.Error("failed to load stopwords", "error", err)
		os.Exit(1)
	}

	holder := store.NewHolder(store.FilesFromConfig(cfg.Index), m)
	// Search answers 503 until a snapshot exists, so never serve without one.
	if _, err := holder.Reload(ctx); err != nil {
		slog.Error("failed to load index", "error", err)
		os.Exit(1)
	}

	checker := health.NewChecker()
	checker.Register("index", health.PingCheck(holder.Ready, false))

	var queryCache *cache.QueryCache
	if cfg.Search.CacheEnabled {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			holder.OnSwap(reload.InvalidateOnSwap(queryCache))
			checker.Register("redis", health.PingCheck(redisClient.Ping, true))
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	var collector *analytics.Collector
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		collector = analytics.NewCollector(producer, cfg.Analytics.BufferSize)
		collector.Start(ctx)
		defer collector.Close()

		// every replica reloads, so each joins a group of its own
		group := fmt.Sprintf("%s-searcher-%s", cfg.Kafka.ConsumerGroup, replicaID())
		reloadConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete, group, reload.HandleIndexComplete(holder))
		go func() {
			if err := reloadConsumer.Start(ctx); err != nil {
				slog.Error("index-complete consumer error", "error", err)
			}
		}()
		slog.Info("kafka enabled",
			"analytics_topic", cfg.Kafka.Topics.AnalyticsEvents,
			"reload_topic", cfg.Kafka.Topics.IndexComplete,
			"reload_group", group,
		)
	}

	reload.WatchSignals(ctx, holder, syscall.SIGHUP)

	exec := executor.New(holder, normalizer, executor.OptionsFromConfig(cfg.Search), m)
	h := handler.New(exec, holder, queryCache, collector)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Search.Timeout)(chain)
	if cfg.Server.RateLimit > 0 {
		chain = middleware.RateLimit(ratelimit.New(ctx, cfg.Server.RateLimit, time.Minute))(chain)
	}
	chain = middleware.Metrics(m)(chain)
	chain = middleware.CORS(middleware.CORSFromOrigins(cfg.Server.AllowOrigins))(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr, "generation", holder.Current().Generation)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	// in-flight requests may still track analytics until Shutdown returns
	<-drained

	slog.Info("search service stopped")
}

func replicaID() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return uuid.NewString()
}
