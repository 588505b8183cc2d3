// Package tokenizer turns raw text into the stem sequence shared by indexing
// and querying. It lower-cases input, extracts ASCII letter runs (optionally
// hyphen-joined), removes stop-words and applies the Snowball English stemmer.
package tokenizer

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/kljensen/snowball/english"
)

var wordPattern = regexp.MustCompile(`[a-z]+(?:-[a-z]+)*`)

var defaultStopWords = []string{
	"a", "an", "and", "are", "as", "at",
	"be", "by", "for", "from", "has", "he",
	"in", "is", "it", "its", "of", "on",
	"or", "that", "the", "to", "was", "were",
	"will", "with", "this", "but", "they",
	"have", "had", "what", "when", "where",
	"who", "which", "their", "if", "each",
	"do", "not", "no", "so", "can",
}

// Token represents a single normalised term and its ordinal position in the
// token stream.
type Token struct {
	Term     string
	Position int
}

// Normalizer holds the stop-word set. It is immutable after construction and
// safe for concurrent use; build one per process and share it.
type Normalizer struct {
	stopwords map[string]struct{}
}

// New creates a Normalizer. A nil set selects DefaultStopwords.
func New(stopwords map[string]struct{}) *Normalizer {
	if stopwords == nil {
		stopwords = DefaultStopwords()
	}
	return &Normalizer{stopwords: stopwords}
}

// DefaultStopwords returns a fresh copy of the built-in English stop-word set.
func DefaultStopwords() map[string]struct{} {
	m := make(map[string]struct{}, len(defaultStopWords))
	for _, w := range defaultStopWords {
		m[w] = struct{}{}
	}
	return m
}

// LoadStopwords reads one word per line, lower-cased and trimmed; blank lines
// are ignored.
func LoadStopwords(path string) (map[string]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening stopwords file: %w", err)
	}
	defer f.Close()
	set := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		w := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if w != "" {
			set[w] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading stopwords file: %w", err)
	}
	return set, nil
}

// FromFile builds a Normalizer from a stop-word file, falling back to the
// built-in list when path is empty or the file does not exist.
func FromFile(path string) (*Normalizer, error) {
	if path == "" {
		return New(nil), nil
	}
	set, err := LoadStopwords(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(nil), nil
		}
		return nil, err
	}
	return New(set), nil
}

// Normalize returns the stems of text in left-to-right order, repeats kept.
func (n *Normalizer) Normalize(text string) []string {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	stems := make([]string, 0, len(words))
	for _, word := range words {
		if _, isStop := n.stopwords[word]; isStop {
			continue
		}
		stems = append(stems, stem(word))
	}
	return stems
}

// Tokenize is Normalize with zero-based ordinal positions attached.
func (n *Normalizer) Tokenize(text string) []Token {
	stems := n.Normalize(text)
	tokens := make([]Token, len(stems))
	for i, s := range stems {
		tokens[i] = Token{Term: s, Position: i}
	}
	return tokens
}

// IsStopword reports whether word (already lower-cased) is filtered out.
func (n *Normalizer) IsStopword(word string) bool {
	_, ok := n.stopwords[word]
	return ok
}

func stem(word string) string {
	return english.Stem(word, true)
}
