package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/annomerge/internal/doctree"
)

// Parser converts raw document bytes into a Document.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.Document, error)
}

// SupportedExtensions lists document extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
	".xml":      true,
	".tei":      true,
	".folia":    true,
}

// Options tune the parsers returned by ForFileOptions.
type Options struct {
	// Format forces the markup adapter for XML uploads instead of
	// detecting it from the root element.
	Format            string
	// DefaultFormat is used when the root element does not identify the
	// format.
	DefaultFormat     string
	FallbackPdftotext bool
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	return ForFileOptions(filename, Options{})
}

// ForFileOptions is ForFile with parser options applied.
func ForFileOptions(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.FallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	case ".xml", ".tei", ".folia":
		return &XMLParser{Format: opts.Format, Default: opts.DefaultFormat}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

func titleFrom(filename string, exts ...string) string {
	title := filename
	for _, ext := range exts {
		title = strings.TrimSuffix(title, ext)
	}
	return title
}
