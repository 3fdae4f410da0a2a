package align

import (
	"strings"
	"unicode/utf8"
)

// trailingPunct is the set of characters the rescue rule may strip.
const trailingPunct = `.,;:!?"')]}…»«”’`

// stripOne removes exactly one trailing punctuation character, if present.
func stripOne(s string) (string, bool) {
	r, size := utf8.DecodeLastRuneInString(s)
	if size == 0 || !strings.ContainsRune(trailingPunct, r) {
		return s, false
	}
	return s[:len(s)-size], true
}

// PunctEquivalent reports whether a and b are equal, or equal once exactly
// one trailing punctuation character is removed from one of them.
func PunctEquivalent(a, b string) bool {
	if a == b {
		return true
	}
	if s, ok := stripOne(a); ok && s == b {
		return true
	}
	if s, ok := stripOne(b); ok && s == a {
		return true
	}
	return false
}
