package index

// Posting is one (term, document) pair: the term's zero-based positions in
// the document's token stream. Frequency always equals len(Positions).
type Posting struct {
	DocID     int
	Frequency int
	Positions []int
}

// PostingList is sorted by DocID ascending.
type PostingList []Posting

type TermEntry struct {
	Term     string
	Postings PostingList
}

// DocFreq is the number of documents containing the term.
func (e TermEntry) DocFreq() int {
	return len(e.Postings)
}
