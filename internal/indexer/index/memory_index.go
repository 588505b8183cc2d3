package index

import (
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/indexer/tokenizer"
)

// MemoryIndex is the build-time positional inverted index:
// term -> doc id -> posting.
type MemoryIndex struct {
	mu         sync.RWMutex
	normalizer *tokenizer.Normalizer
	index      map[string]map[int]*Posting
	docTokens  map[int]int
	postings   int
}

func NewMemoryIndex(normalizer *tokenizer.Normalizer) *MemoryIndex {
	if normalizer == nil {
		normalizer = tokenizer.New(nil)
	}
	return &MemoryIndex{
		normalizer: normalizer,
		index:      make(map[string]map[int]*Posting),
		docTokens:  make(map[int]int),
	}
}

// AddDocument tokenizes text and appends every token position to the
// document's posting for that term. It returns the document's token count.
// Re-adding a doc id replaces its previous postings.
func (m *MemoryIndex) AddDocument(docID int, text string) int {
	tokens := m.normalizer.Tokenize(text)

	termData := make(map[string]*Posting)
	for _, token := range tokens {
		p, exists := termData[token.Term]
		if !exists {
			p = &Posting{
				DocID:     docID,
				Positions: make([]int, 0, 4),
			}
			termData[token.Term] = p
		}
		p.Frequency++
		p.Positions = append(p.Positions, token.Position)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.docTokens[docID]; exists {
		m.removeLocked(docID)
	}
	for term, posting := range termData {
		if _, exists := m.index[term]; !exists {
			m.index[term] = make(map[int]*Posting)
		}
		m.index[term][docID] = posting
		m.postings++
	}
	m.docTokens[docID] = len(tokens)
	return len(tokens)
}

func (m *MemoryIndex) removeLocked(docID int) {
	for term, docs := range m.index {
		if _, ok := docs[docID]; ok {
			delete(docs, docID)
			m.postings--
			if len(docs) == 0 {
				delete(m.index, term)
			}
		}
	}
	delete(m.docTokens, docID)
}

// Search returns the postings for an already-normalized term.
func (m *MemoryIndex) Search(term string) PostingList {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs, exists := m.index[term]
	if !exists {
		return nil
	}
	result := make(PostingList, 0, len(docs))
	for _, posting := range docs {
		result = append(result, *posting)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DocID < result[j].DocID
	})
	return result
}

// Snapshot returns every term sorted lexicographically with postings sorted
// by doc id. Positions keep emission order, which is ascending.
func (m *MemoryIndex) Snapshot() []TermEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]TermEntry, 0, len(m.index))
	for term, docs := range m.index {
		postings := make(PostingList, 0, len(docs))
		for _, posting := range docs {
			postings = append(postings, *posting)
		}
		sort.Slice(postings, func(i, j int) bool {
			return postings[i].DocID < postings[j].DocID
		})
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: postings,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

// DocTokenCounts returns a copy of doc id -> token count. Documents with no
// tokens are included.
func (m *MemoryIndex) DocTokenCounts() map[int]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[int]int, len(m.docTokens))
	for id, n := range m.docTokens {
		out[id] = n
	}
	return out
}

func (m *MemoryIndex) DocCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docTokens)
}

func (m *MemoryIndex) TermCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.index)
}

func (m *MemoryIndex) PostingCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.postings
}

func (m *MemoryIndex) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = make(map[string]map[int]*Posting)
	m.docTokens = make(map[int]int)
	m.postings = 0
}
