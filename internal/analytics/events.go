// Package analytics collects search events from the searcher, aggregates
// them in the analytics service and snapshots the aggregate to Postgres.
package analytics

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventSearch        EventType = "search"
	EventIndexComplete EventType = "index_complete"
)

// Kinds of offline job that announce completion.
const (
	KindIndex    = "index"
	KindPageRank = "pagerank"
)

type SearchEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Query      string    `json:"query"`
	TermCount  int       `json:"term_count"`
	Phrase     bool      `json:"phrase"`
	TotalHits  int       `json:"total_hits"`
	Returned   int       `json:"returned"`
	LatencyMs  int64     `json:"latency_ms"`
	CacheHit   bool      `json:"cache_hit"`
	Generation uint64    `json:"generation"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}

// IndexCompleteEvent is published by the indexer and pagerank commands after
// their output files are in place. Searchers reload on receipt.
type IndexCompleteEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Kind        string    `json:"kind"`
	Documents   int       `json:"documents,omitempty"`
	Terms       int       `json:"terms,omitempty"`
	Nodes       int       `json:"nodes,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

func NewSearchEvent() SearchEvent {
	return SearchEvent{ID: uuid.NewString(), Type: EventSearch, Timestamp: time.Now().UTC()}
}

func NewIndexCompleteEvent(kind string) IndexCompleteEvent {
	return IndexCompleteEvent{
		ID:          uuid.NewString(),
		Type:        EventIndexComplete,
		Kind:        kind,
		GeneratedAt: time.Now().UTC(),
	}
}
