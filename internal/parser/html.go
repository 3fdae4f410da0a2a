package parser

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dgallion1/annomerge/internal/doctree"
)

// HTMLParser handles HTML files. Headings and paragraph-level elements
// become blocks with collapsed whitespace; scripts, styles and page chrome
// are skipped.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	doc := &doctree.Document{
		Title:  titleFrom(filename, ".html", ".htm"),
		Format: "html",
	}
	if title := findElement(root, atom.Title); title != nil {
		if t := nodeText(title); t != "" {
			doc.Title = t
		}
	}

	start := root
	if body := findElement(root, atom.Body); body != nil {
		start = body
	}
	collectBlocks(doc, start)
	return doc, nil
}

func collectBlocks(doc *doctree.Document, n *html.Node) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Nav, atom.Footer, atom.Header, atom.Noscript:
			return
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			doc.AddBlock(doctree.KindHeading, int(n.Data[1]-'0'), nodeText(n), 0)
			return
		case atom.P, atom.Li, atom.Td, atom.Th, atom.Blockquote, atom.Pre, atom.Dd, atom.Dt, atom.Figcaption:
			doc.AddBlock(doctree.KindParagraph, 0, nodeText(n), 0)
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectBlocks(doc, c)
	}
}

// nodeText is the collapsed text under n. <br> counts as a space so
// adjacent lines do not fuse into one token.
func nodeText(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			buf.WriteString(n.Data)
		case n.Type == html.ElementNode && n.DataAtom == atom.Br:
			buf.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return collapseSpace(buf.String())
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}
