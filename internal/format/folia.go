package format

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/antchfx/xmlquery"

	"github.com/dgallion1/annomerge/internal/layer"
	"github.com/dgallion1/annomerge/internal/xmltree"
)

// FoLiA handles FoLiA documents. Text lives in <t> elements; tokens are <w>
// elements with their own <t>, and <pos>/<lemma> annotation children.
type FoLiA struct {
	textable   map[string]bool
	structural map[string]bool
	textMarkup map[string]bool
	blocks     map[string]bool
	punctHeads map[string]bool
}

// NewFoLiA returns a FoLiA adapter with the default element sets.
func NewFoLiA() *FoLiA {
	return &FoLiA{
		textable: setOf(
			"FoLiA", "text", "speech", "div", "p", "s", "head", "list", "item",
			"table", "row", "cell", "quote", "utt", "part", "event", "entry",
			"term", "def", "example", "label", "w", "t", "t-style", "t-str",
		),
		structural: setOf(
			"w", "s", "p", "div", "head", "list", "item", "table", "row", "cell",
			"quote", "utt", "part", "event", "entry", "term", "def", "example",
		),
		textMarkup: setOf("t", "t-style", "t-str"),
		blocks: setOf(
			"div", "p", "s", "head", "list", "item", "table", "row", "cell",
			"utt", "event", "entry", "def", "example",
		),
		punctHeads: punctuationHeads,
	}
}

func (f *FoLiA) Name() string { return "folia" }

// Textable admits a <t> only when it holds the current text of a word, or
// of a structure that has not been split into smaller structures.
func (f *FoLiA) Textable(n *xmlquery.Node) bool {
	if !f.textable[n.Data] {
		return false
	}
	if n.Data != "t" {
		return true
	}
	if class := xmltree.Attr(n, "class"); class != "" && class != "current" {
		return false
	}
	parent := n.Parent
	if parent == nil || f.IsWord(parent) {
		return true
	}
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && f.structural[c.Data] {
			return false
		}
	}
	return true
}

func (f *FoLiA) CarriesText(n *xmlquery.Node) bool { return f.textMarkup[n.Data] }

func (f *FoLiA) Block(n *xmlquery.Node) bool { return f.blocks[n.Data] }

// Separator puts a space between two adjacent words unless the first one
// says space="no".
func (f *FoLiA) Separator(n *xmlquery.Node) string {
	if !f.IsWord(n) {
		return ""
	}
	prev := n.PrevSibling
	for prev != nil && prev.Type != xmlquery.ElementNode {
		prev = prev.PrevSibling
	}
	if prev == nil || !f.IsWord(prev) || xmltree.Attr(prev, "space") == "no" {
		return ""
	}
	return " "
}

func (f *FoLiA) IsWord(n *xmlquery.Node) bool {
	return n.Type == xmlquery.ElementNode && n.Data == "w"
}

func (f *FoLiA) ReadWord(n *xmlquery.Node) WordInfo {
	info := WordInfo{ID: xmltree.Attr(n, "xml:id")}
	if pos := firstChild(n, "pos"); pos != nil {
		info.POS = xmltree.Attr(pos, "class")
		info.Tagset = xmltree.Attr(pos, "set")
	}
	if lemma := firstChild(n, "lemma"); lemma != nil {
		info.Lemma = xmltree.Attr(lemma, "class")
	}
	return info
}

func (f *FoLiA) NewWord(parent *xmlquery.Node, id string, a Annotation) (*xmlquery.Node, *xmlquery.Node) {
	elem := xmltree.NewElement("w", parent)
	if id != "" {
		xmltree.SetAttr(elem, "xml:id", id)
	}
	if a.Punct {
		xmltree.SetAttr(elem, "class", "PUNCTUATION")
	}
	content := xmltree.NewElement("t", parent)
	xmltree.AppendChild(elem, content)
	f.Annotate(elem, a)
	return elem, content
}

func (f *FoLiA) Annotate(elem *xmlquery.Node, a Annotation) {
	if a.Anomaly {
		if pos := firstChild(elem, "pos"); pos != nil {
			xmltree.Detach(pos)
		}
		return
	}
	if a.POS != "" {
		pos := ensureChild(elem, "pos")
		xmltree.SetAttr(pos, "class", a.POS)
		if head := layer.PosHead(a.POS); head != "" && head != a.POS {
			xmltree.SetAttr(pos, "head", head)
		}
	}
	if a.Lemma != "" && !a.Punct {
		xmltree.SetAttr(ensureChild(elem, "lemma"), "class", a.Lemma)
	}
}

func (f *FoLiA) IsPunctuation(pos string) bool {
	return f.punctHeads[strings.ToUpper(layer.PosHead(pos))]
}

// Finalize moves words that were wrapped inside a structure-level <t> out
// to become siblings of that <t>. The <t> keeps the running text; a word
// directly followed by a non-space character gets space="no".
func (f *FoLiA) Finalize(root *xmlquery.Node) {
	var containers []*xmlquery.Node
	var find func(*xmlquery.Node)
	find = func(n *xmlquery.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != xmlquery.ElementNode || f.IsWord(c) {
				continue
			}
			if c.Data == "t" && c.Parent != nil && !f.IsWord(c.Parent) {
				if hasWord(c, f) {
					containers = append(containers, c)
				}
				continue
			}
			find(c)
		}
	}
	find(root)
	for _, t := range containers {
		f.hoist(t)
	}
}

type placedWord struct {
	elem *xmlquery.Node
	end  int
}

func (f *FoLiA) hoist(t *xmlquery.Node) {
	var words []placedWord
	pos := 0
	var walk func(*xmlquery.Node)
	walk = func(n *xmlquery.Node) {
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			switch {
			case f.IsWord(c):
				text := ""
				if wt := firstChild(c, "t"); wt != nil {
					text = xmltree.Text(wt)
				}
				pos += len(text)
				words = append(words, placedWord{elem: c, end: pos})
				xmltree.InsertBefore(c, xmltree.NewText(text))
				xmltree.Detach(c)
			case xmltree.IsText(c):
				pos += len(c.Data)
			case c.Type == xmlquery.ElementNode:
				walk(c)
			}
			c = next
		}
	}
	walk(t)
	xmltree.Normalize(t)

	text := xmltree.Text(t)
	ref := t
	for _, w := range words {
		if r, _ := utf8.DecodeRuneInString(text[w.end:]); w.end < len(text) && !unicode.IsSpace(r) {
			xmltree.SetAttr(w.elem, "space", "no")
		}
		xmltree.InsertAfter(ref, w.elem)
		ref = w.elem
	}
}

func hasWord(n *xmlquery.Node, f *FoLiA) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if f.IsWord(c) || (c.Type == xmlquery.ElementNode && hasWord(c, f)) {
			return true
		}
	}
	return false
}

func firstChild(n *xmlquery.Node, local string) *xmlquery.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && c.Data == local {
			return c
		}
	}
	return nil
}

func ensureChild(n *xmlquery.Node, local string) *xmlquery.Node {
	if c := firstChild(n, local); c != nil {
		return c
	}
	c := xmltree.NewElement(local, n)
	xmltree.AppendChild(n, c)
	return c
}
