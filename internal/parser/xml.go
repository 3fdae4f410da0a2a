package parser

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/dgallion1/annomerge/internal/doctree"
	"github.com/dgallion1/annomerge/internal/format"
	"github.com/dgallion1/annomerge/internal/merge"
	"github.com/dgallion1/annomerge/internal/xmltree"
)

// ExistingLayer names the layer read from word elements already present in
// an uploaded markup document.
const ExistingLayer = "existing"

// XMLParser handles TEI and FoLiA documents. The plaintext is derived from
// the tree under the format adapter's rules, so offsets into it address the
// tree when annotations are merged back.
type XMLParser struct {
	// Format selects the adapter by name; empty means detect it from the
	// root element.
	Format string
	// Default is tried when detection fails.
	Default string
}

func (p *XMLParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	tree, err := xmltree.Parse(r)
	if err != nil {
		return nil, err
	}

	a, err := p.adapter(tree)
	if err != nil {
		return nil, err
	}

	ex, err := merge.Extract(tree, a, ExistingLayer)
	if err != nil {
		return nil, fmt.Errorf("read %s document: %w", a.Name(), err)
	}

	title := titleFrom(filename, ".xml", ".tei", ".folia")
	if t := markupTitle(tree); t != "" {
		title = t
	}

	return &doctree.Document{
		Title:     title,
		Format:    a.Name(),
		Plaintext: ex.Plaintext,
		Blocks:    doctree.SplitLines(ex.Plaintext),
		Tree:      tree,
		Existing:  ex.Layer,
	}, nil
}

func (p *XMLParser) adapter(tree *xmlquery.Node) (format.Adapter, error) {
	if p.Format != "" {
		return format.ForName(p.Format)
	}
	a, err := format.Detect(tree)
	if err != nil && p.Default != "" && errors.Is(err, format.ErrUnsupported) {
		return format.ForName(p.Default)
	}
	return a, err
}

// titleQueries locate a document title in the TEI header and FoLiA metadata.
var titleQueries = []string{
	"//*[local-name()='teiHeader']//*[local-name()='titleStmt']/*[local-name()='title']",
	"//*[local-name()='metadata']/*[local-name()='meta'][@id='title']",
}

func markupTitle(tree *xmlquery.Node) string {
	for _, q := range titleQueries {
		nodes, err := xmltree.Select(tree, q)
		if err != nil || len(nodes) == 0 {
			continue
		}
		if t := strings.Join(strings.Fields(nodes[0].InnerText()), " "); t != "" {
			return t
		}
	}
	return ""
}
