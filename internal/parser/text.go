package parser

import (
	"io"
	"strings"

	"github.com/dgallion1/annomerge/internal/doctree"
)

// TextParser handles plain text files. The plaintext is the file content
// with line endings normalized to "\n"; nothing else is rewritten, so
// offsets computed against it stay valid for the original file.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")

	return &doctree.Document{
		Title:     titleFrom(filename, ".txt"),
		Format:    "text",
		Plaintext: text,
		Blocks:    doctree.SplitBlocks(text),
	}, nil
}
