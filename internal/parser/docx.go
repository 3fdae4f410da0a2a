package parser

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/dgallion1/annomerge/internal/doctree"
)

// DOCXParser handles .docx files. Heading styles become heading blocks,
// every other non-empty paragraph a paragraph block.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	tmp, size, cleanup, err := spool(r, "annomerge-docx-*.docx")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	parsed, err := docx.Parse(tmp, size)
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	doc := &doctree.Document{
		Title:  titleFrom(filename, ".docx"),
		Format: "docx",
	}
	for _, item := range parsed.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := paragraphText(para)
		style := ""
		if para.Properties != nil && para.Properties.Style != nil {
			style = para.Properties.Style.Val
		}
		if level := styleHeadingLevel(style); level > 0 {
			doc.AddBlock(doctree.KindHeading, level, text, 0)
			continue
		}
		doc.AddBlock(doctree.KindParagraph, 0, text, 0)
	}
	return doc, nil
}

// styleHeadingLevel maps Word paragraph styles ("Heading2", "heading 2",
// "Title") to a heading level, 0 for body styles.
func styleHeadingLevel(style string) int {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	if s == "title" {
		return 1
	}
	rest, ok := strings.CutPrefix(s, "heading")
	if !ok {
		return 0
	}
	level, err := strconv.Atoi(rest)
	if err != nil || level < 1 || level > 6 {
		return 0
	}
	return level
}

func paragraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return collapseSpace(buf.String())
}
