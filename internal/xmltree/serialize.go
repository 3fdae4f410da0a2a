package xmltree

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
)

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", `"`, "&quot;",
		"\n", "&#xA;", "\r", "&#xD;", "\t", "&#x9;")
)

// Serialize writes n without reformatting: text and whitespace are emitted
// exactly as they are in the tree, so plaintext offsets survive a round trip.
func Serialize(w io.Writer, n *xmlquery.Node) error {
	bw := bufio.NewWriter(w)
	writeNode(bw, n)
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("serialize xml: %w", err)
	}
	return nil
}

func qualified(prefix, local string) string {
	if prefix == xmlNamespace {
		prefix = "xml"
	}
	if prefix == "" {
		return local
	}
	return prefix + ":" + local
}

func writeAttrs(w *bufio.Writer, attrs []xmlquery.Attr) {
	for _, a := range attrs {
		w.WriteByte(' ')
		w.WriteString(qualified(a.Name.Space, a.Name.Local))
		w.WriteString(`="`)
		attrEscaper.WriteString(w, a.Value)
		w.WriteByte('"')
	}
}

func writeNode(w *bufio.Writer, n *xmlquery.Node) {
	switch n.Type {
	case xmlquery.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeNode(w, c)
		}
	case xmlquery.DeclarationNode:
		w.WriteString("<?")
		w.WriteString(n.Data)
		writeAttrs(w, n.Attr)
		w.WriteString("?>")
	case xmlquery.CommentNode:
		w.WriteString("<!--")
		w.WriteString(n.Data)
		w.WriteString("-->")
	case xmlquery.CharDataNode:
		w.WriteString("<![CDATA[")
		w.WriteString(n.Data)
		w.WriteString("]]>")
	case xmlquery.TextNode:
		textEscaper.WriteString(w, n.Data)
	case xmlquery.ElementNode:
		name := qualified(n.Prefix, n.Data)
		w.WriteByte('<')
		w.WriteString(name)
		writeAttrs(w, n.Attr)
		if n.FirstChild == nil {
			w.WriteString("/>")
			return
		}
		w.WriteByte('>')
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeNode(w, c)
		}
		w.WriteString("</")
		w.WriteString(name)
		w.WriteByte('>')
	default:
		w.WriteString(n.OutputXML(true))
	}
}
