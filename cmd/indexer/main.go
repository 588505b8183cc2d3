// Command indexer builds the flat-file index from the crawled collection.
//
// Usage:
//
//	go run ./cmd/indexer [-config configs/development.yaml] [-write-urls]
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
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	writeURLs := flag.Bool("write-urls", false, "write the urls file from the collection when it does not exist")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting index build",
		"data_dir", cfg.Index.DataDir,
		"collection", cfg.Index.CollectionFile,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	normalizer, err := tokenizer.FromFile(cfg.Index.Path(cfg.Index.StopwordsFile))
	if err != nil {
		slog.Error("failed to load stopwords", "error", err)
		os.Exit(1)
	}

	builder := indexer.NewBuilder(cfg.Index, normalizer, indexer.WithURLs(*writeURLs))
	stats, err := builder.Build(ctx)
	if err != nil {
		slog.Error("index build failed", "error", err)
		os.Exit(1)
	}

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
		defer producer.Close()

		event := analytics.NewIndexCompleteEvent(analytics.KindIndex)
		event.Documents = stats.Documents
		event.Terms = stats.Terms
		pubCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := analytics.AnnounceIndexComplete(pubCtx, producer, event); err != nil {
			slog.Warn("index built but completion was not announced; reload searchers manually", "error", err)
		} else {
			slog.Info("index completion announced", "topic", cfg.Kafka.Topics.IndexComplete)
		}
	}

	slog.Info("index build finished",
		"documents", stats.Documents,
		"terms", stats.Terms,
		"postings", stats.Postings,
		"skipped", stats.Skipped,
		"urls_written", stats.URLs,
		"duration", stats.Duration,
	)
}
