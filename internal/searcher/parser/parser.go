// Package parser turns raw query text into a query plan.
package parser

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/indexer/tokenizer"
)

type QueryPlan struct {
	RawQuery string
	Terms    []string
	// Phrase requires Terms to occur contiguously. It is only set when
	// there are at least two terms.
	Phrase bool
	// Empty marks a blank query; nothing should be scored.
	Empty bool
}

// Parse normalizes raw with the same normalizer used at index time. A
// double quote anywhere makes the whole query a phrase; quotes are stripped
// before normalizing.
func Parse(raw string, n *tokenizer.Normalizer) *QueryPlan {
	plan := &QueryPlan{RawQuery: raw, Terms: []string{}}
	if strings.TrimSpace(raw) == "" {
		plan.Empty = true
		return plan
	}
	text := raw
	quoted := strings.Contains(raw, `"`)
	if quoted {
		text = strings.ReplaceAll(raw, `"`, "")
	}
	plan.Terms = n.Normalize(text)
	plan.Phrase = quoted && len(plan.Terms) >= 2
	return plan
}
