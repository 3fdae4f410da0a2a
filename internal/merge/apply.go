package merge

import (
	"fmt"

	"github.com/antchfx/xmlquery"

	"github.com/dgallion1/annomerge/internal/xmltree"
)

// DefaultMaxClimb bounds how many ancestors a fragmented token may climb
// through on either side before the merge gives up.
const DefaultMaxClimb = 8

// apply runs the edits last to first. Every split keeps the prefix in the
// original text node, so nodes referenced by earlier edits stay valid.
func (m *Merger) apply(s *scan, edits []edit, rep *Report) error {
	var pending []*xmlquery.Node
	for i := len(edits) - 1; i >= 0; i-- {
		e := edits[i]
		switch e.kind {
		case editRewrite:
			m.Adapter.Annotate(s.nodes[e.word], e.ann)
			rep.Rewritten++
		case editWrap:
			emptied, err := m.wrap(s, e)
			if err != nil {
				return err
			}
			pending = append(pending, emptied...)
			rep.Inserted++
		}
	}
	rep.Deleted += m.prune(pending)
	return nil
}

func (m *Merger) wrap(s *scan, e edit) ([]*xmlquery.Node, error) {
	first, last := s.nodes[e.first], s.nodes[e.last]

	if first == last {
		mid := xmltree.SplitText(first, e.from)
		rest := xmltree.SplitText(mid, e.to-e.from)
		elem, content := m.Adapter.NewWord(mid.Parent, e.wf.ID, e.ann)
		xmltree.InsertBefore(mid, elem)
		xmltree.AppendChild(content, mid)
		if err := m.verify(e, content); err != nil {
			return nil, err
		}
		return []*xmlquery.Node{first, rest}, nil
	}

	head := xmltree.SplitText(first, e.from)
	rest := xmltree.SplitText(last, e.to)
	touched, err := m.extract(head, last, e)
	if err != nil {
		return nil, err
	}
	return append([]*xmlquery.Node{first, rest}, touched...), nil
}

// frame is one level of a boundary path: the original node that stays in
// the tree and the detached piece carrying its contained part.
type frame struct {
	node  *xmlquery.Node
	piece *xmlquery.Node
}

// extract moves the range [first, last] (both text nodes, both fully
// contained) into a new word element inserted under their closest common
// ancestor. Ancestors only partially inside the range are shallow-cloned:
// the clone takes the contained part, the original keeps the rest.
func (m *Merger) extract(first, last *xmlquery.Node, e edit) ([]*xmlquery.Node, error) {
	up, down, common, err := m.boundaryPaths(first, last, e)
	if err != nil {
		return nil, err
	}
	a, b := up[len(up)-1], down[len(down)-1]

	elem, content := m.Adapter.NewWord(common, e.wf.ID, e.ann)
	xmltree.InsertAfter(a, elem)
	var middle []*xmlquery.Node
	for c := elem.NextSibling; c != nil && c != b; c = c.NextSibling {
		middle = append(middle, c)
	}

	start := climbStart(up)
	end := climbEnd(down)

	xmltree.AppendChild(content, start[len(start)-1].piece)
	for _, c := range middle {
		xmltree.AppendChild(content, c)
	}
	xmltree.AppendChild(content, end[len(end)-1].piece)

	if err := m.verify(e, content); err != nil {
		return nil, err
	}

	var touched []*xmlquery.Node
	for _, f := range start[1:] {
		touched = append(touched, f.node)
	}
	for _, f := range end[1:] {
		touched = append(touched, f.node)
	}
	return touched, nil
}

// boundaryPaths returns the ancestor chains from first and last up to (not
// including) their closest common ancestor.
func (m *Merger) boundaryPaths(first, last *xmlquery.Node, e edit) (up, down []*xmlquery.Node, common *xmlquery.Node, err error) {
	limit := m.maxClimb()
	depth := make(map[*xmlquery.Node]int)
	chain := []*xmlquery.Node{last}
	for n := last.Parent; n != nil; n = n.Parent {
		depth[n] = len(chain)
		chain = append(chain, n)
	}

	up = []*xmlquery.Node{first}
	for n := first.Parent; ; n = n.Parent {
		if n == nil {
			return nil, nil, nil, m.fail(e, "boundaries share no ancestor")
		}
		if d, ok := depth[n]; ok {
			common = n
			down = chain[:d]
			break
		}
		up = append(up, n)
		if len(up)-1 > limit {
			return nil, nil, nil, m.fail(e, fmt.Sprintf("start boundary climbs more than %d levels", limit))
		}
	}
	if len(down)-1 > limit {
		return nil, nil, nil, m.fail(e, fmt.Sprintf("end boundary climbs more than %d levels", limit))
	}
	return up, down, common, nil
}

// climbStart walks from the first text node up to the child of the common
// ancestor. At each level everything from the path node onwards belongs to
// the range. The last frame's piece is the fragment for the common ancestor.
func climbStart(up []*xmlquery.Node) []frame {
	frames := []frame{{node: up[0], piece: up[0]}}
	for k := 1; k < len(up); k++ {
		below := frames[k-1]
		orig := up[k]
		clone := xmltree.ShallowClone(orig)
		from := below.node
		if k > 1 {
			xmltree.AppendChild(clone, below.piece)
			from = below.node.NextSibling
		}
		for c := from; c != nil; {
			next := c.NextSibling
			xmltree.AppendChild(clone, c)
			c = next
		}
		frames = append(frames, frame{node: orig, piece: clone})
	}
	return frames
}

// climbEnd mirrors climbStart: at each level everything up to the path node
// belongs to the range.
func climbEnd(down []*xmlquery.Node) []frame {
	frames := []frame{{node: down[0], piece: down[0]}}
	for k := 1; k < len(down); k++ {
		below := frames[k-1]
		orig := down[k]
		clone := xmltree.ShallowClone(orig)
		stop := below.node
		if k == 1 {
			stop = below.node.NextSibling
		}
		for c := orig.FirstChild; c != nil && c != stop; {
			next := c.NextSibling
			xmltree.AppendChild(clone, c)
			c = next
		}
		if k > 1 {
			xmltree.AppendChild(clone, below.piece)
		}
		frames = append(frames, frame{node: orig, piece: clone})
	}
	return frames
}

func (m *Merger) verify(e edit, content *xmlquery.Node) error {
	if got := contentText(m.Adapter, content); got != e.text {
		return m.fail(e, fmt.Sprintf("reassembled %q", got))
	}
	return nil
}

func (m *Merger) fail(e edit, reason string) error {
	return &MergeError{WordFormID: e.wf.ID, Literal: e.wf.Literal, Offset: e.wf.Offset, Reason: reason}
}

// prune removes text nodes emptied by splits and elements emptied by range
// extraction. Block elements are kept even when empty.
func (m *Merger) prune(nodes []*xmlquery.Node) int {
	deleted := 0
	for _, n := range nodes {
		if n.Parent == nil {
			continue
		}
		if xmltree.IsText(n) {
			if n.Data == "" {
				xmltree.Detach(n)
			}
			continue
		}
		if n.Type == xmlquery.ElementNode && isEmpty(n) && !m.Adapter.Block(n) && !m.Adapter.IsWord(n) {
			xmltree.Detach(n)
			deleted++
		}
	}
	return deleted
}

func isEmpty(n *xmlquery.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !xmltree.IsText(c) || c.Data != "" {
			return false
		}
	}
	return true
}
