package xmltree

import (
	"strings"
	"testing"

	"github.com/antchfx/xmlquery"
)

func mustParse(t *testing.T, s string) *xmlquery.Node {
	t.Helper()
	doc, err := ParseString(s)
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestSerializeKeepsWhitespace(t *testing.T) {
	in := "<?xml version=\"1.0\"?>\n<p xml:id=\"a\">  one &amp; <hi>two</hi>\n three<lb/></p>"
	doc := mustParse(t, in)
	if got := String(doc); got != in {
		t.Errorf("expected %q, got %q", in, got)
	}
}

func TestSerializeAddsDeclarationWhenMissing(t *testing.T) {
	doc := mustParse(t, "<p>x</p>")
	got := String(doc)
	if !strings.HasSuffix(got, "<p>x</p>") {
		t.Errorf("unexpected output %q", got)
	}
}

func TestSplitText(t *testing.T) {
	doc := mustParse(t, "<p>abcdef</p>")
	p := Root(doc)
	rest := SplitText(p.FirstChild, 2)
	if p.FirstChild.Data != "ab" || rest.Data != "cdef" {
		t.Fatalf("expected ab|cdef, got %q|%q", p.FirstChild.Data, rest.Data)
	}
	if p.LastChild != rest || rest.Parent != p {
		t.Error("suffix node is not linked as last child")
	}
	if got := Text(p); got != "abcdef" {
		t.Errorf("text changed: %q", got)
	}
}

func TestInsertAndDetach(t *testing.T) {
	doc := mustParse(t, "<p><a/><c/></p>")
	p := Root(doc)
	a, c := p.FirstChild, p.LastChild
	b := NewElement("b", p)
	InsertAfter(a, b)
	z := NewElement("z", p)
	InsertBefore(a, z)
	if got := String(p); got != "<p><z/><a/><b/><c/></p>" {
		t.Fatalf("unexpected tree %s", got)
	}
	Detach(z)
	Detach(c)
	if got := String(p); got != "<p><a/><b/></p>" {
		t.Fatalf("unexpected tree after detach %s", got)
	}
	if p.FirstChild != a || p.LastChild != b {
		t.Error("first/last child links not updated")
	}
}

func TestCloneIsDeepAndDetached(t *testing.T) {
	doc := mustParse(t, `<p n="1"><hi>x</hi>y</p>`)
	p := Root(doc)
	c := Clone(p)
	if c.Parent != nil {
		t.Error("clone should be detached")
	}
	SetAttr(c, "n", "2")
	c.FirstChild.FirstChild.Data = "changed"
	if Attr(p, "n") != "1" || Text(p) != "xy" {
		t.Error("clone shares state with the original")
	}
}

func TestAttrHelpers(t *testing.T) {
	doc := mustParse(t, `<w xml:id="w1" lemma="a">x</w>`)
	w := Root(doc)
	if got := Attr(w, "xml:id"); got != "w1" {
		t.Errorf("expected w1, got %q", got)
	}
	SetAttr(w, "pos", "N")
	RemoveAttr(w, "lemma")
	if _, ok := LookupAttr(w, "lemma"); ok {
		t.Error("lemma should be removed")
	}
	if got := String(w); got != `<w xml:id="w1" pos="N">x</w>` {
		t.Errorf("unexpected serialization %s", got)
	}
	n := NewElement("pc", w)
	SetAttr(n, "xml:id", "w2")
	if got := String(n); got != `<pc xml:id="w2"/>` {
		t.Errorf("unexpected serialization %s", got)
	}
}

func TestUnwrapAndNormalize(t *testing.T) {
	doc := mustParse(t, "<p>a<w>b</w>c</p>")
	p := Root(doc)
	Unwrap(p.FirstChild.NextSibling)
	Normalize(p)
	if p.FirstChild != p.LastChild || p.FirstChild.Data != "abc" {
		t.Errorf("expected one text node abc, got %s", String(p))
	}
}

func TestSelect(t *testing.T) {
	doc := mustParse(t, `<TEI xmlns="http://www.tei-c.org/ns/1.0"><text><w>a</w><w>b</w></text></TEI>`)
	nodes, err := Select(doc, "//*[local-name()='w']")
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 2 {
		t.Errorf("expected 2 nodes, got %d", len(nodes))
	}
	if _, err := Select(doc, "//["); err == nil {
		t.Error("expected a compile error")
	}
}
