package segment

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/errors"
)

const maxLineSize = 64 * 1024 * 1024

var errEmptyPositions = errors.New("empty position list")

func open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Missing(path, err)
	}
	return f, nil
}

func newScanner(f *os.File) *bufio.Scanner {
	s := bufio.NewScanner(f)
	s.Buffer(make([]byte, 64*1024), maxLineSize)
	return s
}

// ReadMeta loads the meta file. A missing file or missing "N" is fatal.
func ReadMeta(path string) (*Meta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Missing(path, err)
	}
	var raw struct {
		N              *int        `json:"N"`
		DocTokenCounts map[int]int `json:"doc_token_counts"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, apperrors.Corrupt(path, 0, err)
	}
	if raw.N == nil {
		return nil, apperrors.Corrupt(path, 0, errors.New(`missing "N"`))
	}
	return &Meta{N: *raw.N, DocTokenCounts: raw.DocTokenCounts}, nil
}

// ReadDictionary loads term -> df. Lines that are not exactly "<term> <int>"
// are skipped.
func ReadDictionary(path string) (map[string]int, error) {
	f, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	df := make(map[string]int)
	skipped := 0
	scanner := newScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			skipped++
			continue
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			skipped++
			continue
		}
		df[fields[0]] = n
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.Corrupt(path, 0, err)
	}
	if skipped > 0 {
		slog.Warn("skipped malformed dictionary lines", "path", path, "count", skipped)
	}
	return df, nil
}

// ReadPostings streams the postings file, calling fn once per term line in
// file order. Blank lines are ignored; any malformed line aborts the read.
func ReadPostings(path string, fn func(term string, postings index.PostingList) error) error {
	f, err := open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := newScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		term, postings, err := ParsePostingsLine(line)
		if err != nil {
			return apperrors.Corrupt(path, lineNo, err)
		}
		if err := fn(term, postings); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return apperrors.Corrupt(path, lineNo, err)
	}
	return nil
}

// ParsePostingsLine is the inverse of FormatPostingsLine.
func ParsePostingsLine(line string) (string, index.PostingList, error) {
	term, rest, ok := strings.Cut(line, " -> ")
	if !ok || term == "" || strings.Contains(rest, " -> ") {
		return "", nil, fmt.Errorf("expected \"<term> -> <postings>\"")
	}
	entries := strings.Split(strings.TrimSpace(rest), " ; ")
	postings := make(index.PostingList, 0, len(entries))
	for _, entry := range entries {
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return "", nil, fmt.Errorf("posting %q: expected doc:tf:positions", entry)
		}
		docID, err := strconv.Atoi(parts[0])
		if err != nil {
			return "", nil, fmt.Errorf("posting %q: doc id: %w", entry, err)
		}
		tf, err := strconv.Atoi(parts[1])
		if err != nil {
			return "", nil, fmt.Errorf("posting %q: tf: %w", entry, err)
		}
		if parts[2] == "" {
			return "", nil, fmt.Errorf("posting %q: %w", entry, errEmptyPositions)
		}
		rawPositions := strings.Split(parts[2], ",")
		positions := make([]int, len(rawPositions))
		for i, raw := range rawPositions {
			p, err := strconv.Atoi(raw)
			if err != nil {
				return "", nil, fmt.Errorf("posting %q: position: %w", entry, err)
			}
			positions[i] = p
		}
		postings = append(postings, index.Posting{DocID: docID, Frequency: tf, Positions: positions})
	}
	return term, postings, nil
}

// ReadDocValues loads "<doc> <value>" lines. The line is trimmed and split
// on the first single space; lines without a value or with a non-integer id
// are skipped. A missing file wraps ErrIndexMissing.
func ReadDocValues(path string) (map[int]string, error) {
	f, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	values := make(map[int]string)
	scanner := newScanner(f)
	for scanner.Scan() {
		idPart, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), " ")
		if !ok {
			continue
		}
		id, err := strconv.Atoi(idPart)
		if err != nil {
			continue
		}
		values[id] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.Corrupt(path, 0, err)
	}
	return values, nil
}

// ReadPageRank loads doc id -> score. Keys that are not integers are
// skipped.
func ReadPageRank(path string) (map[int]float64, error) {
	var raw map[string]float64
	if err := readJSON(path, &raw); err != nil {
		return nil, err
	}
	scores := make(map[int]float64, len(raw))
	for k, v := range raw {
		id, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		scores[id] = v
	}
	return scores, nil
}

// ReadLinks loads the crawler's link graph: doc id -> outgoing raw URLs.
// Keys that are not integers are skipped.
func ReadLinks(path string) (map[int][]string, error) {
	var raw map[string][]string
	if err := readJSON(path, &raw); err != nil {
		return nil, err
	}
	links := make(map[int][]string, len(raw))
	for k, v := range raw {
		id, err := strconv.Atoi(k)
		if err != nil {
			slog.Warn("skipping link source with non-integer id", "path", path, "id", k)
			continue
		}
		links[id] = v
	}
	return links, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperrors.Missing(path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperrors.Corrupt(path, 0, err)
	}
	return nil
}
