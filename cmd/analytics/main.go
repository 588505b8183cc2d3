// Command analytics starts the standalone analytics aggregation service.
//
// It consumes search events and index-complete notifications from Kafka,
// aggregates them in memory (query volume, latency percentiles, cache hit
// rate, zero-result queries, index rebuilds), snapshots the aggregate to
// Postgres when enabled, and serves GET /api/v1/analytics for dashboards.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
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

	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/postgres"
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
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, nil)
		defer shutdownMetrics(context.Background())
	}

	agg := analytics.NewAggregator()
	checker := health.NewChecker()

	group := cfg.Kafka.ConsumerGroup + "-analytics"
	for _, topic := range []string{cfg.Kafka.Topics.AnalyticsEvents, cfg.Kafka.Topics.IndexComplete} {
		consumer := kafka.NewConsumer(cfg.Kafka, topic, group, agg.HandleEvent(), kafka.FromBeginning())
		go func(topic string) {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("analytics consumer error", "topic", topic, "error", err)
			}
		}(topic)
	}
	slog.Info("analytics consumers started",
		"topics", []string{cfg.Kafka.Topics.AnalyticsEvents, cfg.Kafka.Topics.IndexComplete},
		"group", group,
	)

	var snapshots analytics.SnapshotLister
	if cfg.Postgres.Enabled {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		snapshotStore := aggregator.NewStore(db)
		if err := snapshotStore.Init(ctx); err != nil {
			slog.Error("failed to prepare analytics schema", "error", err)
			os.Exit(1)
		}
		if latest, err := snapshotStore.LatestSnapshot(ctx); err != nil {
			slog.Warn("could not restore analytics from postgres", "error", err)
		} else if latest != nil {
			agg.Restore(*latest)
		}
		snapshotStore.StartPeriodicSave(ctx, agg, cfg.Analytics.SnapshotInterval, cfg.Analytics.SnapshotRetention)
		snapshots = snapshotStore
		checker.Register("postgres", health.PingCheck(db.Ping, false))
	}

	h := analytics.NewHandler(agg, snapshots)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", h.Stats)
	mux.HandleFunc("GET /api/v1/analytics/snapshots", h.Snapshots)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
	chain = middleware.CORS(middleware.CORSFromOrigins(cfg.Server.AllowOrigins))(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("analytics service stopped")
}
