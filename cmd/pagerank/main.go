// Command pagerank scores the crawled link graph and writes the PageRank
// file the searcher loads.
//
// Usage:
//
//	go run ./cmd/pagerank [-config configs/development.yaml] [-iterations 20] [-damping 0.85]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/pagerank"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	iterations := flag.Int("iterations", -1, "power iterations (overrides config when >= 0)")
	damping := flag.Float64("damping", -1, "damping factor (overrides config when >= 0)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	opts := pagerank.Options{Damping: cfg.PageRank.Damping, Iterations: cfg.PageRank.Iterations}
	if *iterations >= 0 {
		opts.Iterations = *iterations
	}
	if *damping >= 0 {
		opts.Damping = *damping
	}
	files := pagerank.Files{
		Links:  cfg.Index.Path(cfg.Index.LinksFile),
		URLs:   cfg.Index.Path(cfg.Index.URLsFile),
		Output: cfg.Index.Path(cfg.Index.PageRankFile),
	}
	slog.Info("starting pagerank",
		"links", files.Links,
		"urls", files.URLs,
		"damping", opts.Damping,
		"iterations", opts.Iterations,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := pagerank.Run(ctx, files, opts)
	if err != nil {
		slog.Error("pagerank failed", "error", err)
		os.Exit(1)
	}

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
		defer producer.Close()

		event := analytics.NewIndexCompleteEvent(analytics.KindPageRank)
		event.Nodes = stats.Nodes
		pubCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := analytics.AnnounceIndexComplete(pubCtx, producer, event); err != nil {
			slog.Warn("pagerank written but completion was not announced", "error", err)
		}
	}

	slog.Info("pagerank finished",
		"nodes", stats.Nodes,
		"edges", stats.Edges,
		"output", files.Output,
		"duration", stats.Duration,
	)
}
