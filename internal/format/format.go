// Package format knows how annotation-bearing markup dialects encode text and
// tokens. The merger and the import walk are format agnostic; everything
// dialect specific goes through an Adapter.
package format

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/antchfx/xmlquery"
)

// ErrUnsupported is returned (wrapped) for formats without an adapter.
var ErrUnsupported = errors.New("unsupported format")

// UnsupportedError names the format that could not be handled.
type UnsupportedError struct {
	Format string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported format %q", e.Format)
}

func (e *UnsupportedError) Unwrap() error { return ErrUnsupported }

// Annotation is what gets written onto a word element.
type Annotation struct {
	Lemma string
	POS   string
	// Punct marks a punctuation token; it is rendered without a lemma.
	Punct bool
	// Anomaly marks a punctuation tag on a literal with letters or digits;
	// the pos is dropped instead of guessed.
	Anomaly bool
}

// WordInfo is the annotation read back from an existing word element.
type WordInfo struct {
	ID     string
	Lemma  string
	POS    string
	Tagset string
}

// Adapter describes one markup dialect.
type Adapter interface {
	Name() string
	// Textable reports whether the walk descends into element n.
	Textable(n *xmlquery.Node) bool
	// CarriesText reports whether text children of n belong to the plaintext.
	CarriesText(n *xmlquery.Node) bool
	// Block elements end with a newline in the plaintext.
	Block(n *xmlquery.Node) bool
	// Separator is synthetic plaintext emitted before element n.
	Separator(n *xmlquery.Node) string
	IsWord(n *xmlquery.Node) bool
	ReadWord(n *xmlquery.Node) WordInfo
	// NewWord builds a detached word element. Text goes into content.
	NewWord(parent *xmlquery.Node, id string, a Annotation) (elem, content *xmlquery.Node)
	// Annotate rewrites the annotation of an existing word element.
	Annotate(elem *xmlquery.Node, a Annotation)
	IsPunctuation(pos string) bool
	// Finalize runs once after all edits of a merge.
	Finalize(root *xmlquery.Node)
}

var registry = map[string]func() Adapter{
	"tei":   func() Adapter { return NewTEI() },
	"folia": func() Adapter { return NewFoLiA() },
}

// Names lists the registered formats.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForName returns a fresh adapter for the named format.
func ForName(name string) (Adapter, error) {
	ctor, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, &UnsupportedError{Format: name}
	}
	return ctor(), nil
}

// punctuationHeads are the tag heads treated as punctuation by default.
var punctuationHeads = map[string]bool{
	"LET":    true,
	"PUNCT":  true,
	"PUN":    true,
	"PC":     true,
	"PU":     true,
	"INTERP": true,
	"$.":     true,
	"$,":     true,
	"$(":     true,
}

func setOf(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}
