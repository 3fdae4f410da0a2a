package merge

import (
	"sort"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/dgallion1/annomerge/internal/format"
	"github.com/dgallion1/annomerge/internal/xmltree"
)

// segment maps a text node onto the plaintext range [start, end).
type segment struct {
	node  int
	start int
	end   int
}

// wordSpan is the plaintext range of a word element already in the tree.
type wordSpan struct {
	node  int
	start int
	end   int
}

// scan is a read-only pass over a tree. Nodes it reports are referenced by
// index into nodes, assigned in document order.
type scan struct {
	adapter  format.Adapter
	nodes    []*xmlquery.Node
	text     strings.Builder
	segments []segment
	words    []wordSpan
}

func scanTree(doc *xmlquery.Node, a format.Adapter) *scan {
	s := &scan{adapter: a}
	if doc.Type == xmlquery.ElementNode {
		s.element(doc, false)
		return s
	}
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			s.element(c, false)
		}
	}
	return s
}

// contentText is the plaintext a detached subtree would contribute if it
// were in scope.
func contentText(a format.Adapter, n *xmlquery.Node) string {
	s := &scan{adapter: a}
	s.children(n, true)
	return s.text.String()
}

func (s *scan) plaintext() string { return s.text.String() }

func (s *scan) id(n *xmlquery.Node) int {
	s.nodes = append(s.nodes, n)
	return len(s.nodes) - 1
}

func (s *scan) element(n *xmlquery.Node, inWord bool) {
	if !s.adapter.Textable(n) {
		return
	}
	word := !inWord && s.adapter.IsWord(n)
	start := s.text.Len()
	s.children(n, inWord || word)
	if word && s.text.Len() > start {
		s.words = append(s.words, wordSpan{node: s.id(n), start: start, end: s.text.Len()})
	}
	if s.adapter.Block(n) {
		if t := s.text.String(); t != "" && !strings.HasSuffix(t, "\n") {
			s.text.WriteByte('\n')
		}
	}
}

func (s *scan) children(n *xmlquery.Node, inWord bool) {
	carries := s.adapter.CarriesText(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == xmlquery.ElementNode:
			s.text.WriteString(s.adapter.Separator(c))
			s.element(c, inWord)
		case carries && xmltree.IsText(c) && c.Data != "":
			start := s.text.Len()
			s.text.WriteString(c.Data)
			s.segments = append(s.segments, segment{node: s.id(c), start: start, end: s.text.Len()})
		}
	}
}

// segmentAt returns the index of the segment holding plaintext byte off.
func (s *scan) segmentAt(off int) (int, bool) {
	i := sort.Search(len(s.segments), func(i int) bool { return s.segments[i].end > off })
	if i == len(s.segments) || s.segments[i].start > off {
		return 0, false
	}
	return i, true
}

// wordOverlapping returns the first existing word that overlaps [start, end).
func (s *scan) wordOverlapping(start, end int) (wordSpan, bool) {
	i := sort.Search(len(s.words), func(i int) bool { return s.words[i].end > start })
	if i == len(s.words) || s.words[i].start >= end {
		return wordSpan{}, false
	}
	return s.words[i], true
}
