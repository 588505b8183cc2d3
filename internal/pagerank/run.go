package pagerank

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/indexer/segment"
)

// Files names the inputs and output of a PageRank run.
type Files struct {
	Links  string
	URLs   string
	Output string
}

type Stats struct {
	Nodes      int           `json:"nodes"`
	Edges      int           `json:"edges"`
	Iterations int           `json:"iterations"`
	Duration   time.Duration `json:"duration"`
}

// Run reads the crawler's link graph and url map, computes PageRank and
// writes the normalized scores. Both inputs are required.
func Run(ctx context.Context, files Files, opts Options) (*Stats, error) {
	logger := slog.Default().With("component", "pagerank")
	start := time.Now()

	links, err := segment.ReadLinks(files.Links)
	if err != nil {
		return nil, fmt.Errorf("loading link graph: %w", err)
	}
	urls, err := segment.ReadDocValues(files.URLs)
	if err != nil {
		return nil, fmt.Errorf("loading url map: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g := BuildGraph(links, urls)
	logger.Info("link graph built", "nodes", len(g.Nodes), "edges", g.Edges(), "urls", len(urls))

	scores, err := Compute(g, opts)
	if err != nil {
		return nil, err
	}
	if err := segment.WritePageRank(files.Output, scores); err != nil {
		return nil, fmt.Errorf("writing pagerank: %w", err)
	}

	stats := &Stats{
		Nodes:      len(g.Nodes),
		Edges:      g.Edges(),
		Iterations: opts.Iterations,
		Duration:   time.Since(start),
	}
	logger.Info("pagerank written", "path", files.Output, "nodes", stats.Nodes, "duration", stats.Duration)
	return stats, nil
}
