package parser

import (
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/indexer/tokenizer"
)

func TestParse(t *testing.T) {
	n := tokenizer.New(nil)
	tests := []struct {
		name   string
		raw    string
		terms  []string
		phrase bool
		empty  bool
	}{
		{"blank", "   ", []string{}, false, true},
		{"plain", "cat hat", []string{"cat", "hat"}, false, false},
		{"quoted", `"cat hat"`, []string{"cat", "hat"}, true, false},
		{"stray quote", `cat "hat`, []string{"cat", "hat"}, true, false},
		{"quoted single term degrades", `"cat"`, []string{"cat"}, false, false},
		{"stopwords dropped", `"the cat"`, []string{"cat"}, false, false},
		{"only stopwords", "the and of", []string{}, false, false},
		{"case folded", "CAT Hat", []string{"cat", "hat"}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Parse(tt.raw, n)
			if plan.RawQuery != tt.raw {
				t.Errorf("RawQuery = %q", plan.RawQuery)
			}
			terms := plan.Terms
			if terms == nil {
				terms = []string{}
			}
			if !reflect.DeepEqual(terms, tt.terms) || plan.Phrase != tt.phrase || plan.Empty != tt.empty {
				t.Errorf("Parse(%q) = %+v, want terms %v phrase %v empty %v", tt.raw, plan, tt.terms, tt.phrase, tt.empty)
			}
		})
	}
}
