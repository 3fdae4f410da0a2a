package xmltree

import (
	"encoding/xml"
	"strings"

	"github.com/antchfx/xmlquery"
)

func splitName(name string) xml.Name {
	if prefix, local, ok := strings.Cut(name, ":"); ok {
		return xml.Name{Space: prefix, Local: local}
	}
	return xml.Name{Local: name}
}

func sameName(a, b xml.Name) bool {
	if a.Local != b.Local {
		return false
	}
	if a.Space == b.Space {
		return true
	}
	return (a.Space == "xml" && b.Space == xmlNamespace) || (a.Space == xmlNamespace && b.Space == "xml")
}

// Attr returns the value of the attribute name ("local" or "prefix:local").
func Attr(n *xmlquery.Node, name string) string {
	v, _ := LookupAttr(n, name)
	return v
}

// LookupAttr is Attr that also reports presence.
func LookupAttr(n *xmlquery.Node, name string) (string, bool) {
	want := splitName(name)
	for _, a := range n.Attr {
		if sameName(a.Name, want) {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr sets or replaces an attribute. New attributes are appended.
func SetAttr(n *xmlquery.Node, name, value string) {
	want := splitName(name)
	for i := range n.Attr {
		if sameName(n.Attr[i].Name, want) {
			n.Attr[i].Value = value
			return
		}
	}
	a := xmlquery.Attr{Name: want, Value: value}
	if want.Space == "xml" {
		a.NamespaceURI = xmlNamespace
	}
	n.Attr = append(n.Attr, a)
}

// RemoveAttr drops an attribute if present.
func RemoveAttr(n *xmlquery.Node, name string) {
	want := splitName(name)
	for i := range n.Attr {
		if sameName(n.Attr[i].Name, want) {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}
