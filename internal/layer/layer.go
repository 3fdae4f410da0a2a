// Package layer holds the annotation data model: word forms positioned in a
// document's plaintext, the terms (lemma/pos) attached to them, and the
// immutable layer that groups both.
package layer

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ErrInvalidLayer is returned (wrapped) when a layer violates its invariants.
var ErrInvalidLayer = errors.New("invalid layer")

// InvalidLayerError describes which invariant a layer violates.
type InvalidLayerError struct {
	Layer  string
	Reason string
}

func (e *InvalidLayerError) Error() string {
	return fmt.Sprintf("invalid layer %q: %s", e.Layer, e.Reason)
}

func (e *InvalidLayerError) Unwrap() error { return ErrInvalidLayer }

// WordForm is one token occurrence. Offset and Length are byte positions in
// the UTF-8 plaintext of the document.
type WordForm struct {
	ID      string `json:"id"`
	Literal string `json:"literal"`
	Offset  int    `json:"offset"`
	Length  int    `json:"length"`
}

// End returns the exclusive end offset.
func (w WordForm) End() int { return w.Offset + w.Length }

// Span returns the (offset, length) pair of the word form.
func (w WordForm) Span() Span { return Span{Offset: w.Offset, Length: w.Length} }

// Span is a byte range in the plaintext.
type Span struct {
	Offset int `json:"offset"`
	Length int `json:"length"`
}

// Term is a linguistic annotation attached to one or more word forms.
type Term struct {
	Lemma   string
	POS     string
	Targets []WordForm
}

// PosHead returns the tag in front of the feature list.
func (t Term) PosHead() string { return PosHead(t.POS) }

// PosHeadGroup returns the heads of all '+'-joined sub tags.
func (t Term) PosHeadGroup() string { return PosHeadGroup(t.POS) }

// FirstOffset is the smallest target offset, or -1 for a term without targets.
func (t Term) FirstOffset() int {
	if len(t.Targets) == 0 {
		return -1
	}
	first := t.Targets[0].Offset
	for _, wf := range t.Targets[1:] {
		first = min(first, wf.Offset)
	}
	return first
}

// Literal joins the target literals in offset order.
func (t Term) Literal() string {
	if len(t.Targets) == 1 {
		return t.Targets[0].Literal
	}
	targets := slices.Clone(t.Targets)
	slices.SortStableFunc(targets, func(a, b WordForm) int { return a.Offset - b.Offset })
	parts := make([]string, len(targets))
	for i, wf := range targets {
		parts[i] = wf.Literal
	}
	return strings.Join(parts, " ")
}

// Spans returns the target spans sorted by offset, then length.
func (t Term) Spans() []Span {
	spans := make([]Span, len(t.Targets))
	for i, wf := range t.Targets {
		spans[i] = wf.Span()
	}
	slices.SortFunc(spans, func(a, b Span) int {
		if a.Offset != b.Offset {
			return a.Offset - b.Offset
		}
		return a.Length - b.Length
	})
	return slices.Compact(spans)
}

// SameSpans reports whether both terms cover the same set of spans.
func (t Term) SameSpans(o Term) bool {
	return slices.Equal(t.Spans(), o.Spans())
}

func (t Term) clone() Term {
	t.Targets = slices.Clone(t.Targets)
	return t
}

// Layer is an immutable set of word forms and the terms that annotate them.
// It is only constructed through a Builder.
type Layer struct {
	name      string
	tagset    string
	wordForms []WordForm
	terms     []Term
	byID      map[string]int
}

// Name returns the layer name.
func (l *Layer) Name() string { return l.name }

// Tagset returns the tagset reference of the layer, if any.
func (l *Layer) Tagset() string { return l.tagset }

// Len returns the number of word forms.
func (l *Layer) Len() int { return len(l.wordForms) }

// WordForms returns a copy of the word forms in layer order.
func (l *Layer) WordForms() []WordForm { return slices.Clone(l.wordForms) }

// Terms returns a copy of the terms in layer order.
func (l *Layer) Terms() []Term {
	out := make([]Term, len(l.terms))
	for i, t := range l.terms {
		out[i] = t.clone()
	}
	return out
}

// SortedTerms returns the terms ordered by FirstOffset. Terms sharing an
// offset keep their layer order.
func (l *Layer) SortedTerms() []Term {
	out := l.Terms()
	slices.SortStableFunc(out, func(a, b Term) int { return a.FirstOffset() - b.FirstOffset() })
	return out
}

// SortedWordForms returns the word forms ordered by offset.
func (l *Layer) SortedWordForms() []WordForm {
	out := l.WordForms()
	slices.SortStableFunc(out, func(a, b WordForm) int { return a.Offset - b.Offset })
	return out
}

// TermFor returns the term that targets the word form with the given id.
func (l *Layer) TermFor(id string) (Term, bool) {
	i, ok := l.byID[id]
	if !ok {
		return Term{}, false
	}
	return l.terms[i].clone(), true
}

type termRef struct {
	lemma   string
	pos     string
	indices []int
	ids     []string
}

// Builder assembles a Layer. Word forms without an id get one synthesized
// from the id prefix when Build runs.
type Builder struct {
	name      string
	tagset    string
	prefix    string
	wordForms []WordForm
	terms     []termRef
}

// NewBuilder starts a layer with the given name and tagset.
func NewBuilder(name, tagset string) *Builder {
	return &Builder{name: name, tagset: tagset, prefix: "w"}
}

// IDPrefix sets the prefix used for synthesized word form ids.
func (b *Builder) IDPrefix(prefix string) *Builder {
	if prefix != "" {
		b.prefix = prefix
	}
	return b
}

// Tagset overrides the tagset reference.
func (b *Builder) Tagset(tagset string) *Builder {
	b.tagset = tagset
	return b
}

// AddWordForm appends a word form and returns its position in the builder.
func (b *Builder) AddWordForm(wf WordForm) int {
	b.wordForms = append(b.wordForms, wf)
	return len(b.wordForms) - 1
}

// AddTerm attaches a term to word forms previously returned by AddWordForm.
func (b *Builder) AddTerm(lemma, pos string, targets ...int) {
	b.terms = append(b.terms, termRef{lemma: lemma, pos: pos, indices: targets})
}

// AddTermByID attaches a term to word forms referenced by id.
func (b *Builder) AddTermByID(lemma, pos string, ids ...string) {
	b.terms = append(b.terms, termRef{lemma: lemma, pos: pos, ids: ids})
}

// Add appends a word form together with a single-target term.
func (b *Builder) Add(wf WordForm, lemma, pos string) {
	b.AddTerm(lemma, pos, b.AddWordForm(wf))
}

// Build validates the collected word forms and terms and returns the layer
// with its word form index.
func (b *Builder) Build() (*Layer, error) {
	invalid := func(format string, args ...any) error {
		return &InvalidLayerError{Layer: b.name, Reason: fmt.Sprintf(format, args...)}
	}

	wordForms := slices.Clone(b.wordForms)
	seen := make(map[string]int, len(wordForms))
	for i, wf := range wordForms {
		if wf.Offset < 0 || wf.Length < 0 {
			return nil, invalid("word form %d has negative span (%d,%d)", i, wf.Offset, wf.Length)
		}
		if wf.ID == "" {
			continue
		}
		if _, dup := seen[wf.ID]; dup {
			return nil, invalid("duplicate word form id %q", wf.ID)
		}
		seen[wf.ID] = i
	}

	next := 1
	for i := range wordForms {
		if wordForms[i].ID != "" {
			continue
		}
		for {
			id := b.prefix + strconv.Itoa(next)
			next++
			if _, taken := seen[id]; !taken {
				wordForms[i].ID = id
				seen[id] = i
				break
			}
		}
	}

	terms := make([]Term, 0, len(b.terms))
	byID := make(map[string]int, len(wordForms))
	for ti, ref := range b.terms {
		t := Term{Lemma: ref.lemma, POS: ref.pos}
		for _, idx := range ref.indices {
			if idx < 0 || idx >= len(wordForms) {
				return nil, invalid("term %d targets unknown word form #%d", ti, idx)
			}
			t.Targets = append(t.Targets, wordForms[idx])
		}
		for _, id := range ref.ids {
			idx, ok := seen[id]
			if !ok {
				return nil, invalid("term %d targets unknown word form %q", ti, id)
			}
			t.Targets = append(t.Targets, wordForms[idx])
		}
		if len(t.Targets) == 0 {
			return nil, invalid("term %d has no targets", ti)
		}
		for _, wf := range t.Targets {
			if prev, dup := byID[wf.ID]; dup && prev != len(terms) {
				return nil, invalid("word form %q is targeted by more than one term", wf.ID)
			}
			byID[wf.ID] = len(terms)
		}
		terms = append(terms, t)
	}

	return &Layer{
		name:      b.name,
		tagset:    b.tagset,
		wordForms: wordForms,
		terms:     terms,
		byID:      byID,
	}, nil
}
