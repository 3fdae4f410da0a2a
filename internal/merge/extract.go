package merge

import (
	"fmt"

	"github.com/antchfx/xmlquery"

	"github.com/dgallion1/annomerge/internal/format"
	"github.com/dgallion1/annomerge/internal/layer"
)

// Extraction is what an annotated document yields: its plaintext and the
// layer of word elements positioned on it.
type Extraction struct {
	Plaintext string
	Layer     *layer.Layer
}

// Extract reads the plaintext and every existing word element from doc.
// Word elements without an id get a synthesized one.
func Extract(doc *xmlquery.Node, a format.Adapter, name string) (*Extraction, error) {
	s := scanTree(doc, a)
	pt := s.plaintext()
	b := layer.NewBuilder(name, "")
	tagset := ""
	for _, w := range s.words {
		info := a.ReadWord(s.nodes[w.node])
		wf := layer.WordForm{
			ID:      info.ID,
			Literal: pt[w.start:w.end],
			Offset:  w.start,
			Length:  w.end - w.start,
		}
		if info.Lemma == "" && info.POS == "" {
			b.AddWordForm(wf)
		} else {
			b.Add(wf, info.Lemma, info.POS)
		}
		if tagset == "" {
			tagset = info.Tagset
		}
	}
	l, err := b.Tagset(tagset).Build()
	if err != nil {
		return nil, fmt.Errorf("extract layer: %w", err)
	}
	return &Extraction{Plaintext: pt, Layer: l}, nil
}
