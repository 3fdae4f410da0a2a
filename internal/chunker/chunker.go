package chunker

import (
	"github.com/dgallion1/annomerge/internal/doctree"
)

// Config controls chunking behavior.
type Config struct {
	ChunkSize int // Target chunk size in tokens.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{ChunkSize: 1500}
}

// ChunkDocument partitions the document plaintext into chunks of roughly
// cfg.ChunkSize tokens for the tagger. Chunks never overlap and their texts
// concatenate to the plaintext exactly, so tagger output for consecutive
// chunks can be aligned as one stream. Cuts fall on block starts where
// possible, then on sentence starts, then between words.
func ChunkDocument(doc *doctree.Document, cfg Config) []doctree.Chunk {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1500
	}
	text := doc.Plaintext
	if text == "" {
		return nil
	}

	var blockStarts []int
	for _, b := range doc.Blocks {
		if b.Offset > 0 && b.Offset < len(text) {
			blockStarts = append(blockStarts, b.Offset)
		}
	}

	cuts := cutRange(text, 0, len(text), blockStarts, cfg.ChunkSize, 0)
	bounds := append(append([]int{0}, cuts...), len(text))

	chunks := make([]doctree.Chunk, 0, len(bounds)-1)
	for i := 0; i+1 < len(bounds); i++ {
		from, to := bounds[i], bounds[i+1]
		first, last := pages(doc.Blocks, from, to)
		chunks = append(chunks, doctree.Chunk{
			Text:       text[from:to],
			Index:      i,
			Offset:     from,
			Breadcrumb: breadcrumb(doc.Blocks, from),
			PageStart:  first,
			PageEnd:    last,
		})
	}
	return chunks
}

// splitters yield finer cut candidates for pieces that are still too large.
var splitters = []func(text string, from, to int) []int{sentenceStarts, wordStarts}

// cutRange returns the cut points strictly inside (from, to), packing
// candidates greedily and refining oversized pieces with the next splitter.
func cutRange(text string, from, to int, cands []int, size, level int) []int {
	var out []int
	prev := from
	for _, c := range append(pack(text, from, to, cands, size), to) {
		out = append(out, refine(text, prev, c, size, level)...)
		if c != to {
			out = append(out, c)
		}
		prev = c
	}
	return out
}

func refine(text string, from, to, size, level int) []int {
	if level >= len(splitters) || EstimateTokens(text[from:to]) <= size {
		return nil
	}
	return cutRange(text, from, to, splitters[level](text, from, to), size, level+1)
}

// pack picks, from the sorted candidates, the cuts that keep each piece
// within size. A piece that cannot be brought within size by these
// candidates is emitted as is.
func pack(text string, from, to int, cands []int, size int) []int {
	var cuts []int
	start, fit := from, from
	for _, c := range cands {
		if c <= start || c >= to {
			continue
		}
		if EstimateTokens(text[start:c]) <= size {
			fit = c
			continue
		}
		if fit > start {
			cuts = append(cuts, fit)
			start = fit
		}
		if EstimateTokens(text[start:c]) <= size {
			fit = c
		} else {
			cuts = append(cuts, c)
			start, fit = c, c
		}
	}
	if fit > start && EstimateTokens(text[start:to]) > size {
		cuts = append(cuts, fit)
	}
	return cuts
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r' || b == '\f'
}

// sentenceStarts returns offsets of words that follow a sentence-final
// '.', '!' or '?' and whitespace.
func sentenceStarts(text string, from, to int) []int {
	var out []int
	var lastMark byte
	for i := from; i < to; i++ {
		if isSpace(text[i]) {
			continue
		}
		if i > from && isSpace(text[i-1]) && (lastMark == '.' || lastMark == '!' || lastMark == '?') {
			out = append(out, i)
		}
		lastMark = text[i]
	}
	return out
}

// wordStarts returns offsets of every word after the first.
func wordStarts(text string, from, to int) []int {
	var out []int
	for i := from + 1; i < to; i++ {
		if !isSpace(text[i]) && isSpace(text[i-1]) {
			out = append(out, i)
		}
	}
	return out
}

// breadcrumb returns the heading hierarchy in effect at offset.
func breadcrumb(blocks []doctree.Block, offset int) []string {
	type entry struct {
		level int
		title string
	}
	var stack []entry
	for _, b := range blocks {
		if b.Offset > offset {
			break
		}
		if b.Kind != doctree.KindHeading {
			continue
		}
		for len(stack) > 0 && stack[len(stack)-1].level >= b.Level {
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, entry{level: b.Level, title: b.Text})
	}
	if len(stack) == 0 {
		return nil
	}
	out := make([]string, len(stack))
	for i, e := range stack {
		out[i] = e.title
	}
	return out
}

// pages returns the first and last source page among blocks overlapping
// [from, to).
func pages(blocks []doctree.Block, from, to int) (int, int) {
	first, last := 0, 0
	for _, b := range blocks {
		if b.Page == 0 || b.End() <= from || b.Offset >= to {
			continue
		}
		if first == 0 || b.Page < first {
			first = b.Page
		}
		last = max(last, b.Page)
	}
	return first, last
}
