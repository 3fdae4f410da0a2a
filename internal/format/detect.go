package format

import (
	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

var detectors = []struct {
	name string
	expr *xpath.Expr
}{
	{"tei", xpath.MustCompile("/*[local-name()='TEI' or local-name()='TEI.2' or local-name()='teiCorpus']")},
	{"folia", xpath.MustCompile("/*[local-name()='FoLiA']")},
}

// Detect picks the adapter matching the document element.
func Detect(doc *xmlquery.Node) (Adapter, error) {
	for _, d := range detectors {
		if xmlquery.QuerySelector(doc, d.expr) != nil {
			return ForName(d.name)
		}
	}
	root := ""
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			root = c.Data
			break
		}
	}
	return nil, &UnsupportedError{Format: "<" + root + ">"}
}
