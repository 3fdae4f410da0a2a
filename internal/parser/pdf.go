package parser

import (
	"fmt"
	"io"
	"os/exec"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/dgallion1/annomerge/internal/doctree"
)

// PDFParser extracts one paragraph block per page. Pages whose text the
// Go reader cannot recover are retried with pdftotext when the fallback
// is enabled.
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	tmp, _, cleanup, err := spool(r, "annomerge-pdf-*.pdf")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	pages, err := readPDFPages(tmp.Name())
	if (err != nil || blank(pages)) && p.FallbackPdftotext {
		pages, err = pdftotextPages(tmp.Name())
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	doc := &doctree.Document{
		Title:  titleFrom(filename, ".pdf"),
		Format: "pdf",
	}
	for i, page := range pages {
		doc.AddBlock(doctree.KindParagraph, 0, pageText(page), i+1)
	}
	return doc, nil
}

// readPDFPages returns the plain text of every page; unreadable pages are
// empty strings so page numbers stay aligned.
func readPDFPages(path string) ([]string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pages := make([]string, reader.NumPage())
	for i := range pages {
		page := reader.Page(i + 1)
		if page.V.IsNull() {
			continue
		}
		if text, err := page.GetPlainText(nil); err == nil {
			pages[i] = text
		}
	}
	return pages, nil
}

func pdftotextPages(path string) ([]string, error) {
	out, err := exec.Command("pdftotext", "-layout", path, "-").Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	return strings.Split(strings.TrimSuffix(string(out), "\f"), "\f"), nil
}

// pageText keeps the line structure of a page but drops layout padding and
// blank lines.
func pageText(page string) string {
	var lines []string
	for line := range strings.Lines(page) {
		if line = collapseSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func blank(pages []string) bool {
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			return false
		}
	}
	return true
}
