package format

import (
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/dgallion1/annomerge/internal/layer"
	"github.com/dgallion1/annomerge/internal/xmltree"
)

// TEI handles TEI P5 documents with <w>/<pc> tokens carrying lemma and pos
// attributes.
type TEI struct {
	textable   map[string]bool
	blocks     map[string]bool
	breaks     map[string]bool
	punctHeads map[string]bool
}

// NewTEI returns a TEI adapter with the default element sets.
func NewTEI() *TEI {
	return &TEI{
		textable: setOf(
			"TEI", "TEI.2", "teiCorpus", "text", "group", "body", "front", "back",
			"div", "div1", "div2", "div3", "div4", "div5", "div6", "div7",
			"p", "head", "s", "cl", "phr", "l", "lg", "ab", "seg", "hi",
			"name", "persName", "placeName", "orgName", "geogName", "rs", "date",
			"quote", "q", "said", "cit", "cell", "row", "table", "item", "list",
			"label", "w", "pc", "emph", "foreign", "term", "title", "add", "unclear",
			"corr", "reg", "expan", "orig", "choice", "supplied", "num", "measure",
			"mentioned", "soCalled", "distinct", "gloss", "sp", "speaker", "stage",
			"opener", "closer", "salute", "signed", "dateline", "byline", "docTitle",
			"titlePart", "titlePage", "argument", "epigraph", "trailer", "postscript",
			"floatingText", "lem", "rdg", "app", "subst", "damage", "restore",
		),
		blocks: setOf(
			"div", "div1", "div2", "div3", "div4", "div5", "div6", "div7",
			"p", "head", "l", "ab", "item", "cell", "row", "lg", "list", "table",
			"sp", "speaker", "stage", "opener", "closer", "trailer", "titlePart",
			"docTitle", "byline", "dateline", "argument", "epigraph",
		),
		breaks:     setOf("lb", "cb", "pb"),
		punctHeads: punctuationHeads,
	}
}

func (t *TEI) Name() string { return "tei" }

func (t *TEI) Textable(n *xmlquery.Node) bool { return t.textable[n.Data] }

func (t *TEI) CarriesText(n *xmlquery.Node) bool { return t.textable[n.Data] }

func (t *TEI) Block(n *xmlquery.Node) bool { return t.blocks[n.Data] }

// Separator turns line, column and page breaks into a newline unless they are
// marked as word-internal with break="no".
func (t *TEI) Separator(n *xmlquery.Node) string {
	if !t.breaks[n.Data] || xmltree.Attr(n, "break") == "no" {
		return ""
	}
	return "\n"
}

func (t *TEI) IsWord(n *xmlquery.Node) bool { return n.Data == "w" || n.Data == "pc" }

func (t *TEI) ReadWord(n *xmlquery.Node) WordInfo {
	id := xmltree.Attr(n, "xml:id")
	if id == "" {
		id = xmltree.Attr(n, "id")
	}
	return WordInfo{
		ID:    id,
		Lemma: xmltree.Attr(n, "lemma"),
		POS:   xmltree.Attr(n, "pos"),
	}
}

func (t *TEI) NewWord(parent *xmlquery.Node, id string, a Annotation) (*xmlquery.Node, *xmlquery.Node) {
	name := "w"
	if a.Punct {
		name = "pc"
	}
	elem := xmltree.NewElement(name, parent)
	if id != "" {
		xmltree.SetAttr(elem, "xml:id", id)
	}
	if a.Lemma != "" && !a.Punct && !a.Anomaly {
		xmltree.SetAttr(elem, "lemma", a.Lemma)
	}
	if a.POS != "" && !a.Anomaly {
		xmltree.SetAttr(elem, "pos", a.POS)
	}
	return elem, elem
}

// Annotate only sets what the annotation carries, so rewriting an element
// with the values it already has leaves it unchanged.
func (t *TEI) Annotate(elem *xmlquery.Node, a Annotation) {
	if a.Anomaly {
		xmltree.RemoveAttr(elem, "pos")
		return
	}
	switch {
	case a.Punct:
		xmltree.RemoveAttr(elem, "lemma")
	case a.Lemma != "":
		xmltree.SetAttr(elem, "lemma", a.Lemma)
	}
	if a.POS != "" {
		xmltree.SetAttr(elem, "pos", a.POS)
	}
}

func (t *TEI) IsPunctuation(pos string) bool {
	return t.punctHeads[strings.ToUpper(layer.PosHead(pos))]
}

func (t *TEI) Finalize(*xmlquery.Node) {}
