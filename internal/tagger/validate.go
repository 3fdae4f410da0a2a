package tagger

import (
	"strings"
	"unicode"

	"github.com/dgallion1/annomerge/internal/layer"
)

// MaxLiteralBytes bounds a single token literal. Longer "tokens" are tagger
// failures (whole lines echoed back) and would only produce alignment gaps
// or swallow real tokens.
const MaxLiteralBytes = 200

// ValidEntry trims the fields of e in place and reports whether the entry
// is usable: a non-empty literal of bounded length without control
// characters.
func ValidEntry(e *layer.Entry) bool {
	if e == nil {
		return false
	}
	e.Literal = strings.TrimSpace(e.Literal)
	e.Lemma = strings.TrimSpace(e.Lemma)
	e.POS = strings.TrimSpace(e.POS)
	if e.Literal == "" || len(e.Literal) > MaxLiteralBytes {
		return false
	}
	if strings.IndexFunc(e.Literal, unicode.IsControl) >= 0 {
		return false
	}
	return true
}

// Sanitize returns the valid entries, trimmed, in their original order.
func Sanitize(entries []layer.Entry) []layer.Entry {
	out := make([]layer.Entry, 0, len(entries))
	for i := range entries {
		e := entries[i]
		if ValidEntry(&e) {
			out = append(out, e)
		}
	}
	return out
}
