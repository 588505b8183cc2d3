// Package segment reads and writes the flat index files shared by the
// builder, the PageRank job and the searcher:
//
//	dictionary  "<term> <df>"
//	postings    "<term> -> <doc>:<tf>:<p1,p2,...> ; <doc>:<tf>:<...>"
//	meta        {"N": int, "doc_token_counts": {"<doc>": int}}
//	titles/urls "<doc> <value>"
//	pagerank    {"<doc>": float}
//	links       {"<doc>": ["<url>", ...]}
//
// Every write goes to a temp file that is synced and renamed into place.
package segment

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/indexer/index"
)

// Meta is the contents of the meta file.
type Meta struct {
	N              int         `json:"N"`
	DocTokenCounts map[int]int `json:"doc_token_counts"`
}

// writeAtomic creates path by writing to path.tmp and renaming on success.
func writeAtomic(path string, fill func(w *bufio.Writer) error) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", path, err)
		}
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp file %s: %w", tmpPath, err)
	}
	defer os.Remove(tmpPath)
	defer f.Close()

	w := bufio.NewWriterSize(f, 256*1024)
	if err := fill(w); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming %s: %w", tmpPath, err)
	}
	return nil
}

// WriteDictionary writes one "<term> <df>" line per entry, in entry order.
func WriteDictionary(path string, entries []index.TermEntry) error {
	return writeAtomic(path, func(w *bufio.Writer) error {
		for _, e := range entries {
			if _, err := fmt.Fprintf(w, "%s %d\n", e.Term, e.DocFreq()); err != nil {
				return err
			}
		}
		return nil
	})
}

// WritePostings writes one postings line per entry, in entry order.
func WritePostings(path string, entries []index.TermEntry) error {
	return writeAtomic(path, func(w *bufio.Writer) error {
		for _, e := range entries {
			if _, err := w.WriteString(FormatPostingsLine(e)); err != nil {
				return err
			}
			if err := w.WriteByte('\n'); err != nil {
				return err
			}
		}
		return nil
	})
}

// FormatPostingsLine renders an entry without the trailing newline.
func FormatPostingsLine(e index.TermEntry) string {
	var b strings.Builder
	b.WriteString(e.Term)
	b.WriteString(" -> ")
	for i, p := range e.Postings {
		if i > 0 {
			b.WriteString(" ; ")
		}
		b.WriteString(strconv.Itoa(p.DocID))
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(p.Frequency))
		b.WriteByte(':')
		for j, pos := range p.Positions {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Itoa(pos))
		}
	}
	return b.String()
}

// WriteMeta writes the meta JSON. Map keys are emitted in sorted order.
func WriteMeta(path string, meta Meta) error {
	if meta.DocTokenCounts == nil {
		meta.DocTokenCounts = map[int]int{}
	}
	return writeJSON(path, meta)
}

// WriteDocValues writes "<doc> <value>" lines sorted by doc id.
func WriteDocValues(path string, values map[int]string) error {
	ids := make([]int, 0, len(values))
	for id := range values {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return writeAtomic(path, func(w *bufio.Writer) error {
		for _, id := range ids {
			if _, err := fmt.Fprintf(w, "%d %s\n", id, values[id]); err != nil {
				return err
			}
		}
		return nil
	})
}

// WritePageRank writes the doc id -> score JSON object.
func WritePageRank(path string, scores map[int]float64) error {
	if scores == nil {
		scores = map[int]float64{}
	}
	return writeJSON(path, scores)
}

// WriteLinks writes a link graph in the crawler's format. The indexer never
// produces links; fixtures and tools do.
func WriteLinks(path string, links map[int][]string) error {
	if links == nil {
		links = map[int][]string{}
	}
	return writeJSON(path, links)
}

func writeJSON(path string, v any) error {
	return writeAtomic(path, func(w *bufio.Writer) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
		return w.WriteByte('\n')
	})
}
