package doctree

import (
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/dgallion1/annomerge/internal/layer"
)

// Block kinds.
const (
	KindHeading   = "heading"
	KindParagraph = "paragraph"
)

// BlockSeparator joins blocks in the plaintext of non-markup documents.
const BlockSeparator = "\n\n"

// Document is a parsed upload: the plaintext a tagger sees and, for markup
// formats, the tree annotations are merged back into.
type Document struct {
	Title     string
	Format    string // adapter name ("tei", "folia") or the parser kind ("text", "markdown", ...)
	Plaintext string
	Blocks    []Block

	// Set for markup documents only.
	Tree     *xmlquery.Node
	Existing *layer.Layer // word elements already present in Tree
}

// Block is a heading or paragraph positioned in the plaintext.
type Block struct {
	Kind   string
	Level  int // heading level, 0 for paragraphs
	Text   string
	Page   int // source page (0 if N/A)
	Offset int // byte offset of Text in Plaintext
}

// End returns the exclusive end offset of the block.
func (b Block) End() int { return b.Offset + len(b.Text) }

// Markup reports whether the document carries a tree to merge into.
func (d *Document) Markup() bool { return d.Tree != nil }

// AddBlock appends text as a new block, separated from the previous one by
// BlockSeparator. Empty text is ignored.
func (d *Document) AddBlock(kind string, level int, text string, page int) {
	if text == "" {
		return
	}
	if d.Plaintext != "" {
		d.Plaintext += BlockSeparator
	}
	d.Blocks = append(d.Blocks, Block{
		Kind:   kind,
		Level:  level,
		Text:   text,
		Page:   page,
		Offset: len(d.Plaintext),
	})
	d.Plaintext += text
}

// SplitBlocks derives paragraph blocks from an existing plaintext: runs of
// non-blank lines separated by blank lines. Offsets point into plaintext.
func SplitBlocks(plaintext string) []Block { return split(plaintext, false) }

// SplitLines derives one paragraph block per non-blank line.
func SplitLines(plaintext string) []Block { return split(plaintext, true) }

func split(plaintext string, perLine bool) []Block {
	var blocks []Block
	start, end, pos := -1, 0, 0
	flush := func() {
		if start >= 0 {
			blocks = append(blocks, Block{Kind: KindParagraph, Text: plaintext[start:end], Offset: start})
			start = -1
		}
	}
	for _, line := range strings.SplitAfter(plaintext, "\n") {
		body := strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(body) == "" {
			flush()
		} else {
			if start < 0 {
				start = pos
			}
			end = pos + len(body)
			if perLine {
				flush()
			}
		}
		pos += len(line)
	}
	flush()
	return blocks
}

// Chunk is a contiguous slice of a document's plaintext sent to the tagger
// in one request. The chunks of a document partition its plaintext.
type Chunk struct {
	Text       string   // plaintext[Offset:Offset+len(Text)]
	Index      int      // Sequence number within document
	Offset     int      // byte offset in the document plaintext
	Breadcrumb []string // Heading hierarchy in effect at the chunk start
	PageStart  int
	PageEnd    int
}
