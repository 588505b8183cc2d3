// Package collection parses the crawler's tagged record stream.
//
// Each record opens with ".I <id>" and carries sections introduced by
// marker lines: ".T" title, ".W" body, ".X" source url. ".B", ".A", ".N",
// ".K" and ".C" introduce sections whose content is ignored.
package collection

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/errors"
)

const maxLineSize = 16 * 1024 * 1024

// Document is one parsed record.
type Document struct {
	ID    int
	Title string
	// Text is the indexable text: title lines followed by body lines.
	Text string
	URL  string
}

// Result holds documents in first-appearance order.
type Result struct {
	Documents []Document
	Skipped   int
}

type section int

const (
	sectionNone section = iota
	sectionTitle
	sectionBody
	sectionURL
	sectionOther
)

var markers = map[string]section{
	".T": sectionTitle,
	".W": sectionBody,
	".X": sectionURL,
	".B": sectionOther,
	".A": sectionOther,
	".N": sectionOther,
	".K": sectionOther,
	".C": sectionOther,
}

type record struct {
	rawID string
	title []string
	text  []string
	url   []string
}

func (r *record) document() (Document, error) {
	id, err := strconv.Atoi(strings.TrimSpace(r.rawID))
	if err != nil {
		return Document{}, err
	}
	if id < 0 {
		return Document{}, fmt.Errorf("negative id %d", id)
	}
	return Document{
		ID:    id,
		Title: strings.TrimSpace(strings.Join(r.title, " ")),
		Text:  strings.TrimSpace(strings.Join(r.text, " ")),
		URL:   strings.TrimSpace(strings.Join(r.url, " ")),
	}, nil
}

// Parse reads records from r. Records with a non-integer or negative id are
// skipped and counted; a later record with an id already seen replaces the
// earlier one in place. A line is a section marker when its first
// whitespace-separated field is exactly a known marker; anything after the
// marker on that line is dropped.
func Parse(r io.Reader) (*Result, error) {
	logger := slog.Default().With("component", "collection")
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	res := &Result{}
	seen := make(map[int]int)
	var cur *record
	mode := sectionNone

	flush := func() {
		if cur == nil {
			return
		}
		doc, err := cur.document()
		if err != nil {
			res.Skipped++
			logger.Warn("skipping record with invalid id", "id", cur.rawID, "error", err)
			return
		}
		if idx, ok := seen[doc.ID]; ok {
			logger.Warn("duplicate record id, keeping the later one", "id", doc.ID)
			res.Documents[idx] = doc
			return
		}
		seen[doc.ID] = len(res.Documents)
		res.Documents = append(res.Documents, doc)
	}

	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) > 0 && fields[0] == ".I" {
			flush()
			cur = &record{rawID: strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), ".I"))}
			mode = sectionNone
			continue
		}
		if len(fields) > 0 {
			if s, ok := markers[fields[0]]; ok {
				mode = s
				continue
			}
		}
		if cur == nil {
			continue
		}
		switch mode {
		case sectionTitle:
			cur.title = append(cur.title, line)
			cur.text = append(cur.text, line)
		case sectionBody:
			cur.text = append(cur.text, line)
		case sectionURL:
			cur.url = append(cur.url, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading collection: %w", err)
	}
	flush()
	return res, nil
}

// ParseFile opens path and parses it. A missing file wraps ErrIndexMissing.
func ParseFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Missing(path, err)
	}
	defer f.Close()
	return Parse(f)
}
