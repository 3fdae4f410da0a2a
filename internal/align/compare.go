package align

import "github.com/dgallion1/annomerge/internal/layer"

// TermFilter selects which terms a comparison records. A nil filter accepts
// every term.
type TermFilter func(layer.Term) bool

// FilterMode decides how the two filters combine for matched pairs.
type FilterMode int

const (
	// ModeAll records a match only when both filters accept it.
	ModeAll FilterMode = iota
	// ModeAny records a match when either filter accepts it.
	ModeAny
)

// Options configures Compare.
type Options struct {
	HypoFilter TermFilter
	RefFilter  TermFilter
	Mode       FilterMode
}

// Match pairs a hypothesis term with the reference term at the same position.
type Match struct {
	Hypo layer.Term
	Ref  layer.Term
}

func (m Match) EqualLemma() bool   { return m.Hypo.Lemma == m.Ref.Lemma }
func (m Match) EqualPOS() bool     { return m.Hypo.POS == m.Ref.POS }
func (m Match) EqualPosHead() bool { return m.Hypo.PosHead() == m.Ref.PosHead() }
func (m Match) EqualPosLemma() bool {
	return m.EqualLemma() && m.EqualPOS()
}

// Comparison is the outcome of aligning two layers.
type Comparison struct {
	Matches  []Match
	HypoOnly []layer.Term
	RefOnly  []layer.Term
}

// Summary counts the comparison outcome.
type Summary struct {
	Matches       int `json:"matches"`
	EqualLemma    int `json:"equal_lemma"`
	EqualPOS      int `json:"equal_pos"`
	EqualPosHead  int `json:"equal_pos_head"`
	EqualPosLemma int `json:"equal_pos_lemma"`
	HypoOnly      int `json:"hypo_only"`
	RefOnly       int `json:"ref_only"`
}

// Summary tallies the matches per predicate.
func (c *Comparison) Summary() Summary {
	s := Summary{
		Matches:  len(c.Matches),
		HypoOnly: len(c.HypoOnly),
		RefOnly:  len(c.RefOnly),
	}
	for _, m := range c.Matches {
		if m.EqualLemma() {
			s.EqualLemma++
		}
		if m.EqualPOS() {
			s.EqualPOS++
		}
		if m.EqualPosHead() {
			s.EqualPosHead++
		}
		if m.EqualPosLemma() {
			s.EqualPosLemma++
		}
	}
	return s
}

func accepts(f TermFilter, t layer.Term) bool {
	return f == nil || f(t)
}

// Compare merge-joins the offset-sorted terms of both layers. Terms starting
// at the same offset match when they cover the same spans, or when their
// literals differ by one trailing punctuation character. Filters only decide
// what is recorded, never which pairs match.
func Compare(hypo, ref *layer.Layer, opts Options) *Comparison {
	hs := hypo.SortedTerms()
	rs := ref.SortedTerms()
	c := &Comparison{}

	match := func(h, r layer.Term) {
		hok, rok := accepts(opts.HypoFilter, h), accepts(opts.RefFilter, r)
		keep := hok && rok
		if opts.Mode == ModeAny {
			keep = hok || rok
		}
		if keep {
			c.Matches = append(c.Matches, Match{Hypo: h, Ref: r})
		}
	}
	hypoOnly := func(h layer.Term) {
		if accepts(opts.HypoFilter, h) {
			c.HypoOnly = append(c.HypoOnly, h)
		}
	}
	refOnly := func(r layer.Term) {
		if accepts(opts.RefFilter, r) {
			c.RefOnly = append(c.RefOnly, r)
		}
	}

	i, j := 0, 0
	for i < len(hs) && j < len(rs) {
		h, r := hs[i], rs[j]
		ho, ro := h.FirstOffset(), r.FirstOffset()
		switch {
		case ho < ro:
			hypoOnly(h)
			i++
		case ho > ro:
			refOnly(r)
			j++
		case h.SameSpans(r) || PunctEquivalent(h.Literal(), r.Literal()):
			match(h, r)
			i++
			j++
		default:
			hypoOnly(h)
			refOnly(r)
			i++
			j++
		}
	}
	for ; i < len(hs); i++ {
		hypoOnly(hs[i])
	}
	for ; j < len(rs); j++ {
		refOnly(rs[j])
	}
	return c
}

// Swap returns the comparison with hypothesis and reference exchanged.
func (c *Comparison) Swap() *Comparison {
	out := &Comparison{HypoOnly: c.RefOnly, RefOnly: c.HypoOnly}
	for _, m := range c.Matches {
		out.Matches = append(out.Matches, Match{Hypo: m.Ref, Ref: m.Hypo})
	}
	return out
}
