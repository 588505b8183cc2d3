// Command loadtest replays search queries against a running searcher and
// reports latency percentiles, hit rates and status codes.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

var defaultQueries = []string{
	"web crawler",
	"search engine",
	"information retrieval",
	"inverted index",
	"link analysis",
	"page rank",
	`"search engine"`,
	`"inverted index"`,
	"cosine similarity",
	"term frequency",
	"document ranking",
	"hypertext",
	"query processing",
	"stemming",
	"nonexistentterm",
}

type config struct {
	baseURL     string
	concurrency int
	duration    time.Duration
	queries     []string
}

type searchResponse struct {
	TotalHits int  `json:"total_hits"`
	Phrase    bool `json:"phrase"`
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the searcher")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	queryFile := flag.String("queries", "", "file with one query per line (default: built-in list)")
	flag.Parse()

	queries := defaultQueries
	if *queryFile != "" {
		loaded, err := loadQueries(*queryFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "loading queries: %v\n", err)
			os.Exit(1)
		}
		queries = loaded
	}

	cfg := config{
		baseURL:     strings.TrimRight(*baseURL, "/"),
		concurrency: *concurrency,
		duration:    *duration,
		queries:     queries,
	}

	fmt.Println("=== WebRank Search Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.baseURL)
	fmt.Printf("Concurrency: %d\n", cfg.concurrency)
	fmt.Printf("Duration:    %s\n", cfg.duration)
	fmt.Printf("Queries:     %d unique\n", len(cfg.queries))
	fmt.Println()

	stats := run(cfg)
	stats.Report(os.Stdout, cfg.duration)
	if stats.Total() == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the searcher running?")
		os.Exit(1)
	}
}

// loadQueries reads non-blank lines; lines starting with # are skipped.
func loadQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var queries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		queries = append(queries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("%s contains no queries", path)
	}
	return queries, nil
}

func run(cfg config) *Stats {
	stats := NewStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.concurrency * 2,
			MaxIdleConnsPerHost: cfg.concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.duration)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.concurrency; w++ {
		worker := w
		g.Go(func() error {
			for i := worker; ctx.Err() == nil; i++ {
				query := cfg.queries[i%len(cfg.queries)]
				stats.Record(search(ctx, client, cfg.baseURL, query))
			}
			return nil
		})
	}

	fmt.Print("Running")
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	g.Wait()
	fmt.Println(" done!")
	fmt.Println()
	return stats
}

func search(ctx context.Context, client *http.Client, baseURL, query string) Sample {
	target := baseURL + "/api/v1/search?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Sample{Err: err}
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		// Requests cut off by the end of the run are not failures.
		if ctx.Err() != nil {
			return Sample{Canceled: true}
		}
		return Sample{Latency: time.Since(start), Err: err}
	}
	defer resp.Body.Close()

	sample := Sample{Status: resp.StatusCode}
	if resp.StatusCode == http.StatusOK {
		var body searchResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			sample.Err = fmt.Errorf("decoding response: %w", err)
		}
		sample.Hits = body.TotalHits
		sample.Phrase = body.Phrase
	}
	sample.Latency = time.Since(start)
	return sample
}
