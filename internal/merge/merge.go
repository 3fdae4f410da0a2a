// Package merge writes an annotation layer into an existing markup tree and
// reads one back out of it. Both directions share a single walk that
// derives the plaintext from the tree under a format adapter's rules.
package merge

import (
	"errors"

	"github.com/antchfx/xmlquery"

	"github.com/dgallion1/annomerge/internal/format"
	"github.com/dgallion1/annomerge/internal/layer"
	"github.com/dgallion1/annomerge/internal/xmltree"
)

// Merger inserts word elements for a layer into a tree.
type Merger struct {
	Adapter  format.Adapter
	Reporter Reporter
	// MaxClimb bounds range extraction for fragmented tokens. Zero means
	// DefaultMaxClimb.
	MaxClimb int
}

// NewMerger returns a merger for the given format.
func NewMerger(a format.Adapter, r Reporter) *Merger {
	return &Merger{Adapter: a, Reporter: r, MaxClimb: DefaultMaxClimb}
}

func (m *Merger) maxClimb() int {
	if m.MaxClimb <= 0 {
		return DefaultMaxClimb
	}
	return m.MaxClimb
}

func (m *Merger) mismatch(rep *Report, mm Mismatch) {
	rep.Mismatches = append(rep.Mismatches, mm)
	if m.Reporter != nil {
		m.Reporter.Report(mm)
	}
}

// Merge returns a copy of doc with the layer's word forms wrapped in (or
// written onto) word elements. doc itself is never modified. Tokens that
// do not line up with the document are reported and skipped; a token that
// cannot be wrapped without corrupting the tree fails the whole merge with
// a *MergeError.
func (m *Merger) Merge(doc *xmlquery.Node, l *layer.Layer) (*xmlquery.Node, *Report, error) {
	if m.Adapter == nil {
		return nil, nil, errors.New("merge: no format adapter")
	}
	tree := xmltree.Clone(doc)
	s := scanTree(tree, m.Adapter)
	rep := &Report{}
	edits := m.plan(s, l, rep)
	if err := m.apply(s, edits, rep); err != nil {
		return nil, rep, err
	}
	m.Adapter.Finalize(tree)
	return tree, rep, nil
}
