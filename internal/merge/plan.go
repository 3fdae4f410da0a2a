package merge

import (
	"unicode"

	"github.com/dgallion1/annomerge/internal/align"
	"github.com/dgallion1/annomerge/internal/format"
	"github.com/dgallion1/annomerge/internal/layer"
)

type editKind int

const (
	editWrap editKind = iota
	editRewrite
)

// edit is one planned change. Nodes are referenced by scan index so the plan
// never holds positions that the apply pass could invalidate.
type edit struct {
	kind editKind
	wf   layer.WordForm
	ann  format.Annotation
	// planned plaintext slice
	text string

	// wrap: the text nodes holding the first and last byte, with the local
	// start offset in first and the local exclusive end offset in last.
	first, last int
	from, to    int

	// rewrite: the existing word element.
	word int
}

func (m *Merger) plan(s *scan, l *layer.Layer, rep *Report) []edit {
	pt := s.plaintext()
	var edits []edit
	prevEnd := 0

	for _, wf := range l.SortedWordForms() {
		end := wf.End()
		miss := func(kind MismatchKind, text string) {
			m.mismatch(rep, Mismatch{Kind: kind, WordFormID: wf.ID, Literal: wf.Literal, Text: text, Offset: wf.Offset})
		}
		if wf.Length == 0 || end > len(pt) {
			rep.Skipped++
			miss(KindUncovered, "")
			continue
		}
		text := pt[wf.Offset:end]
		if wf.Offset < prevEnd {
			rep.Skipped++
			miss(KindOverlap, text)
			continue
		}

		term, hasTerm := l.TermFor(wf.ID)
		ann, anomaly := m.annotation(wf, term, hasTerm)

		if w, ok := s.wordOverlapping(wf.Offset, end); ok {
			existing := pt[w.start:w.end]
			if w.start != wf.Offset || (w.end != end && !align.PunctEquivalent(existing, wf.Literal)) {
				rep.Skipped++
				miss(KindWordConflict, existing)
				continue
			}
			if !align.PunctEquivalent(existing, wf.Literal) {
				miss(KindLiteral, existing)
			}
			if anomaly {
				miss(KindPunctAnomaly, existing)
			}
			edits = append(edits, edit{kind: editRewrite, wf: wf, ann: ann, text: existing, word: w.node})
			prevEnd = max(end, w.end)
			continue
		}

		first, ok1 := s.segmentAt(wf.Offset)
		last, ok2 := s.segmentAt(end - 1)
		if !ok1 || !ok2 {
			rep.Skipped++
			miss(KindUncovered, text)
			continue
		}
		contiguous := true
		for k := first; k < last; k++ {
			if s.segments[k].end != s.segments[k+1].start {
				contiguous = false
				break
			}
		}
		if !contiguous {
			rep.Skipped++
			miss(KindBoundary, text)
			continue
		}

		if !align.PunctEquivalent(text, wf.Literal) {
			miss(KindLiteral, text)
		}
		if anomaly {
			miss(KindPunctAnomaly, text)
		}
		fs, ls := s.segments[first], s.segments[last]
		edits = append(edits, edit{
			kind:  editWrap,
			wf:    wf,
			ann:   ann,
			text:  text,
			first: fs.node,
			last:  ls.node,
			from:  wf.Offset - fs.start,
			to:    end - ls.start,
		})
		prevEnd = end
	}
	return edits
}

// annotation resolves what a word element should carry. A punctuation tag
// on a literal containing letters or digits is an anomaly: the pos is
// dropped rather than guessed.
func (m *Merger) annotation(wf layer.WordForm, t layer.Term, ok bool) (format.Annotation, bool) {
	if !ok {
		return format.Annotation{}, false
	}
	a := format.Annotation{Lemma: t.Lemma, POS: t.POS}
	if t.POS == "" || !m.Adapter.IsPunctuation(t.POS) {
		return a, false
	}
	for _, r := range wf.Literal {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return format.Annotation{Lemma: t.Lemma, Anomaly: true}, true
		}
	}
	a.Punct = true
	return a, false
}
