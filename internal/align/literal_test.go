package align

import (
	"testing"

	"github.com/dgallion1/annomerge/internal/layer"
	"github.com/google/go-cmp/cmp"
)

func TestLiteralsScholenLoop(t *testing.T) {
	entries := []layer.Entry{
		{Literal: "scholen", Lemma: "school", POS: "NOU(num=pl)"},
		{Literal: "loop", Lemma: "lopen", POS: "VRB(fin)"},
	}
	res, err := Literals(entries, "scholen loop", LiteralOptions{Name: "tagger"})
	if err != nil {
		t.Fatal(err)
	}
	want := []layer.WordForm{
		{ID: "w1", Literal: "scholen", Offset: 0, Length: 7},
		{ID: "w2", Literal: "loop", Offset: 8, Length: 4},
	}
	if diff := cmp.Diff(want, res.Layer.WordForms()); diff != "" {
		t.Errorf("word forms mismatch (-want +got):\n%s", diff)
	}
	if len(res.Gaps) != 0 {
		t.Errorf("expected no gaps, got %v", res.Gaps)
	}
}

func TestLiteralsRecordsGapsAndKeepsCursor(t *testing.T) {
	entries := []layer.Entry{
		{Literal: "a"},
		{Literal: "zzz"},
		{Literal: ""},
		{Literal: "b"},
	}
	res, err := Literals(entries, "a b", LiteralOptions{})
	if err != nil {
		t.Fatal(err)
	}
	want := []Gap{{Index: 1, Literal: "zzz"}, {Index: 2, Literal: ""}}
	if diff := cmp.Diff(want, res.Gaps); diff != "" {
		t.Errorf("gaps mismatch (-want +got):\n%s", diff)
	}
	wfs := res.Layer.WordForms()
	if len(wfs) != 2 || wfs[1].Offset != 2 {
		t.Fatalf("unexpected word forms %+v", wfs)
	}
}

func TestLiteralsNoBacktracking(t *testing.T) {
	// "de" is consumed at offset 0; the later entry must come after it.
	entries := []layer.Entry{{Literal: "de"}, {Literal: "de"}, {Literal: "x"}}
	res, err := Literals(entries, "de x de", LiteralOptions{})
	if err != nil {
		t.Fatal(err)
	}
	wfs := res.Layer.WordForms()
	if len(wfs) != 2 {
		t.Fatalf("expected 2 word forms, got %d", len(wfs))
	}
	if wfs[1].Offset != 5 {
		t.Errorf("expected second de at 5, got %d", wfs[1].Offset)
	}
	if len(res.Gaps) != 1 || res.Gaps[0].Literal != "x" {
		t.Errorf("expected x to be a gap, got %v", res.Gaps)
	}
}

func TestLiteralsRoundTrip(t *testing.T) {
	plaintext := "Het regent, zei ze. “Ja!”"
	entries := []layer.Entry{
		{Literal: "Het"}, {Literal: "regent"}, {Literal: ","}, {Literal: "zei"},
		{Literal: "ze"}, {Literal: "."}, {Literal: "nope"}, {Literal: "“"},
		{Literal: "Ja"}, {Literal: "!"}, {Literal: "”"},
	}
	res, err := Literals(entries, plaintext, LiteralOptions{})
	if err != nil {
		t.Fatal(err)
	}
	var got, want []string
	for _, wf := range res.Layer.WordForms() {
		got = append(got, plaintext[wf.Offset:wf.End()])
	}
	skip := map[int]bool{}
	for _, g := range res.Gaps {
		skip[g.Index] = true
	}
	for i, e := range entries {
		if !skip[i] {
			want = append(want, e.Literal)
		}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("re-extracted literals differ (-want +got):\n%s", diff)
	}
}
