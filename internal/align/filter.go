package align

import (
	"slices"

	"github.com/dgallion1/annomerge/internal/layer"
)

// PosHeadFilter accepts terms whose pos head is one of heads. No heads
// means no filter.
func PosHeadFilter(heads ...string) TermFilter {
	if len(heads) == 0 {
		return nil
	}
	return func(t layer.Term) bool { return slices.Contains(heads, t.PosHead()) }
}

// LemmaFilter accepts terms with one of the given lemmas. No lemmas means
// no filter.
func LemmaFilter(lemmas ...string) TermFilter {
	if len(lemmas) == 0 {
		return nil
	}
	return func(t layer.Term) bool { return slices.Contains(lemmas, t.Lemma) }
}

// AllOf accepts a term when every non-nil filter does. It returns nil when
// all filters are nil.
func AllOf(filters ...TermFilter) TermFilter {
	var set []TermFilter
	for _, f := range filters {
		if f != nil {
			set = append(set, f)
		}
	}
	switch len(set) {
	case 0:
		return nil
	case 1:
		return set[0]
	}
	return func(t layer.Term) bool {
		for _, f := range set {
			if !f(t) {
				return false
			}
		}
		return true
	}
}
