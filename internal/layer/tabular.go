package layer

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Entry is one row of tabular tagger output, before it has been positioned
// in a plaintext.
type Entry struct {
	Literal string `json:"literal"`
	Lemma   string `json:"lemma,omitempty"`
	POS     string `json:"pos,omitempty"`
}

// Header is the column row WriteTSV emits. ReadEntries skips a first row
// only when each of its first three columns names the matching field.
var Header = []string{"literal", "lemma", "pos"}

var headerAliases = []map[string]bool{
	{"literal": true, "word": true, "token": true, "form": true},
	{"lemma": true},
	{"pos": true, "tag": true},
}

// ReadEntries reads "literal, lemma, pos" rows separated by comma, or by tab
// when comma is '\t'. Missing trailing columns are left empty. Lines
// starting with "# " are comments; a bare "#" is a token.
func ReadEntries(r io.Reader, comma rune) ([]Entry, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}
	if comma == '\t' {
		rows := make([][]string, len(lines))
		for i, line := range lines {
			rows[i] = strings.Split(line, "\t")
		}
		return toEntries(rows), nil
	}

	cr := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read entries: %w", err)
		}
		rows = append(rows, rec)
	}
	return toEntries(rows), nil
}

// readLines returns the non-empty, non-comment lines of r. Tab separated
// tagger output uses bare quote characters as literals, so no quoting
// rules apply at this level.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" || isComment(line) {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read entries: %w", err)
	}
	return lines, nil
}

func isComment(line string) bool { return strings.HasPrefix(line, "# ") }

func isHeader(rec []string) bool {
	if len(rec) < len(headerAliases) {
		return false
	}
	for i, names := range headerAliases {
		if !names[strings.ToLower(strings.TrimSpace(rec[i]))] {
			return false
		}
	}
	return true
}

func toEntries(rows [][]string) []Entry {
	var entries []Entry
	for i, rec := range rows {
		if i == 0 && isHeader(rec) {
			continue
		}
		if len(rec) == 0 || (len(rec) == 1 && rec[0] == "") {
			continue
		}
		e := Entry{Literal: rec[0]}
		if len(rec) > 1 {
			e.Lemma = strings.TrimSpace(rec[1])
		}
		if len(rec) > 2 {
			e.POS = strings.TrimSpace(rec[2])
		}
		entries = append(entries, e)
	}
	return entries
}

// WriteTSV writes a header row, then the layer's terms in offset order as
// literal, lemma, pos rows.
func WriteTSV(w io.Writer, l *Layer) error {
	if _, err := fmt.Fprintln(w, strings.Join(Header, "\t")); err != nil {
		return fmt.Errorf("write tsv: %w", err)
	}
	for _, t := range l.SortedTerms() {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", t.Literal(), t.Lemma, t.POS); err != nil {
			return fmt.Errorf("write tsv: %w", err)
		}
	}
	return nil
}
