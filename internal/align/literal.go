// Package align positions tagger output on a plaintext and compares two
// annotation layers over the same plaintext.
package align

import (
	"fmt"
	"strings"

	"github.com/dgallion1/annomerge/internal/layer"
)

// Gap is an entry whose literal could not be located in the plaintext.
type Gap struct {
	Index   int    `json:"index"`
	Literal string `json:"literal"`
}

// LiteralResult is the layer built by Literals plus the entries it dropped.
type LiteralResult struct {
	Layer *layer.Layer
	Gaps  []Gap
}

// LiteralOptions names the produced layer.
type LiteralOptions struct {
	Name     string
	Tagset   string
	IDPrefix string
}

// Literals walks the entries in order and places each at the first
// occurrence of its literal at or after the cursor. An entry that cannot be
// found is recorded as a Gap and the cursor stays where it was.
func Literals(entries []layer.Entry, plaintext string, opts LiteralOptions) (*LiteralResult, error) {
	b := layer.NewBuilder(opts.Name, opts.Tagset).IDPrefix(opts.IDPrefix)
	res := &LiteralResult{}

	cursor := 0
	for i, e := range entries {
		if e.Literal == "" {
			res.Gaps = append(res.Gaps, Gap{Index: i, Literal: e.Literal})
			continue
		}
		at := strings.Index(plaintext[cursor:], e.Literal)
		if at < 0 {
			res.Gaps = append(res.Gaps, Gap{Index: i, Literal: e.Literal})
			continue
		}
		offset := cursor + at
		b.Add(layer.WordForm{Literal: e.Literal, Offset: offset, Length: len(e.Literal)}, e.Lemma, e.POS)
		cursor = offset + len(e.Literal)
	}

	l, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("align literals: %w", err)
	}
	res.Layer = l
	return res, nil
}
