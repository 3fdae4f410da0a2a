// Package xmltree is the mutable markup tree used by the merger. It parses
// with xmlquery and adds the surgery xmlquery lacks: deep clones, text
// splits, sibling insertion and a serializer that writes text verbatim.
package xmltree

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// xmlNamespace is the URI bound to the reserved "xml" prefix.
const xmlNamespace = "http://www.w3.org/XML/1998/namespace"

// Parse reads a document into a tree.
func Parse(r io.Reader) (*xmlquery.Node, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse xml: %w", err)
	}
	return doc, nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*xmlquery.Node, error) {
	return Parse(strings.NewReader(s))
}

// Root returns the document element.
func Root(doc *xmlquery.Node) *xmlquery.Node {
	if doc == nil {
		return nil
	}
	if doc.Type == xmlquery.ElementNode {
		return doc
	}
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			return c
		}
	}
	return nil
}

// Select evaluates an XPath expression against n.
func Select(n *xmlquery.Node, expr string) ([]*xmlquery.Node, error) {
	compiled, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile xpath %q: %w", expr, err)
	}
	return xmlquery.QuerySelectorAll(n, compiled), nil
}

// IsText reports whether n carries character data.
func IsText(n *xmlquery.Node) bool {
	return n != nil && (n.Type == xmlquery.TextNode || n.Type == xmlquery.CharDataNode)
}

// IsElement reports whether n is an element named local (any prefix).
func IsElement(n *xmlquery.Node, local string) bool {
	return n != nil && n.Type == xmlquery.ElementNode && n.Data == local
}

// NewElement returns a detached element that shares the prefix and
// namespace of like, so it serializes in the same namespace.
func NewElement(local string, like *xmlquery.Node) *xmlquery.Node {
	n := &xmlquery.Node{Type: xmlquery.ElementNode, Data: local}
	if like != nil && like.Type == xmlquery.ElementNode {
		n.Prefix = like.Prefix
		n.NamespaceURI = like.NamespaceURI
	}
	return n
}

// NewText returns a detached text node.
func NewText(s string) *xmlquery.Node {
	return &xmlquery.Node{Type: xmlquery.TextNode, Data: s}
}

// ShallowClone copies n and its attributes but no children or links.
func ShallowClone(n *xmlquery.Node) *xmlquery.Node {
	c := &xmlquery.Node{
		Type:         n.Type,
		Data:         n.Data,
		Prefix:       n.Prefix,
		NamespaceURI: n.NamespaceURI,
		ProcInst:     n.ProcInst,
	}
	if len(n.Attr) > 0 {
		c.Attr = make([]xmlquery.Attr, len(n.Attr))
		copy(c.Attr, n.Attr)
	}
	return c
}

// Clone deep-copies the subtree rooted at n. The copy is detached.
func Clone(n *xmlquery.Node) *xmlquery.Node {
	c := ShallowClone(n)
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		AppendChild(c, Clone(child))
	}
	return c
}

// Detach unlinks n from its parent and siblings. It is a no-op for a node
// that is already detached.
func Detach(n *xmlquery.Node) {
	if n.Parent != nil {
		if n.Parent.FirstChild == n {
			n.Parent.FirstChild = n.NextSibling
		}
		if n.Parent.LastChild == n {
			n.Parent.LastChild = n.PrevSibling
		}
	}
	if n.PrevSibling != nil {
		n.PrevSibling.NextSibling = n.NextSibling
	}
	if n.NextSibling != nil {
		n.NextSibling.PrevSibling = n.PrevSibling
	}
	n.Parent, n.PrevSibling, n.NextSibling = nil, nil, nil
}

// AppendChild moves n to the end of parent's children.
func AppendChild(parent, n *xmlquery.Node) {
	Detach(n)
	n.Parent = parent
	if parent.LastChild == nil {
		parent.FirstChild = n
		parent.LastChild = n
		return
	}
	n.PrevSibling = parent.LastChild
	parent.LastChild.NextSibling = n
	parent.LastChild = n
}

// InsertBefore moves n in front of ref.
func InsertBefore(ref, n *xmlquery.Node) {
	Detach(n)
	n.Parent = ref.Parent
	n.NextSibling = ref
	n.PrevSibling = ref.PrevSibling
	if ref.PrevSibling != nil {
		ref.PrevSibling.NextSibling = n
	} else if ref.Parent != nil {
		ref.Parent.FirstChild = n
	}
	ref.PrevSibling = n
}

// InsertAfter moves n right behind ref.
func InsertAfter(ref, n *xmlquery.Node) {
	Detach(n)
	n.Parent = ref.Parent
	n.PrevSibling = ref
	n.NextSibling = ref.NextSibling
	if ref.NextSibling != nil {
		ref.NextSibling.PrevSibling = n
	} else if ref.Parent != nil {
		ref.Parent.LastChild = n
	}
	ref.NextSibling = n
}

// SplitText cuts the text node n at byte offset at. n keeps the prefix; the
// returned node holds the suffix and is inserted right after n.
func SplitText(n *xmlquery.Node, at int) *xmlquery.Node {
	at = max(0, min(at, len(n.Data)))
	rest := &xmlquery.Node{Type: n.Type, Data: n.Data[at:]}
	n.Data = n.Data[:at]
	InsertAfter(n, rest)
	return rest
}

// Unwrap replaces the element n by its children.
func Unwrap(n *xmlquery.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		InsertBefore(n, c)
		c = next
	}
	Detach(n)
}

// Normalize merges adjacent text nodes below n and drops empty ones.
func Normalize(n *xmlquery.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		switch {
		case c.Type == xmlquery.TextNode && c.Data == "":
			Detach(c)
		case c.Type == xmlquery.TextNode && next != nil && next.Type == xmlquery.TextNode:
			c.Data += next.Data
			Detach(next)
			continue
		case c.Type == xmlquery.ElementNode:
			Normalize(c)
		}
		c = next
	}
}

// Text concatenates all character data below n.
func Text(n *xmlquery.Node) string {
	var b strings.Builder
	var walk func(*xmlquery.Node)
	walk = func(n *xmlquery.Node) {
		if IsText(n) {
			b.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// Children returns the element children of n, optionally filtered by local
// name.
func Children(n *xmlquery.Node, local string) []*xmlquery.Node {
	var out []*xmlquery.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && (local == "" || c.Data == local) {
			out = append(out, c)
		}
	}
	return out
}

// Bytes serializes n.
func Bytes(n *xmlquery.Node) []byte {
	var buf bytes.Buffer
	_ = Serialize(&buf, n)
	return buf.Bytes()
}

// String serializes n.
func String(n *xmlquery.Node) string {
	return string(Bytes(n))
}
