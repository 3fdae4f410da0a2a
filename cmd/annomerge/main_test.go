package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ulikunitz/xz"
)

const teiDoc = `<TEI xmlns="http://www.tei-c.org/ns/1.0"><text><body><p>scholen loop</p></body></text></TEI>`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeXZ(t *testing.T, dir, name, content string) string {
	t.Helper()
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return writeFile(t, dir, name, buf.String())
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestMergeCommand(t *testing.T) {
	dir := t.TempDir()
	doc := writeXZ(t, dir, "letter.xml.xz", teiDoc)
	ann := writeFile(t, dir, "letter.tsv", "scholen\tschool\tNOU\nloop\tlopen\tVRB\n")
	out := filepath.Join(dir, "merged.xml")

	_, stderr, err := runCLI(t, "merge", doc, ann, "-o", out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stderr, "inserted 2") {
		t.Errorf("expected report on stderr, got %q", stderr)
	}
	merged, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(merged), `lemma="lopen"`) {
		t.Errorf("expected merged annotations, got %s", merged)
	}
}

func TestMergeCommand_PlainTextRejected(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "notes.txt", "scholen loop")
	ann := writeFile(t, dir, "notes.tsv", "scholen\tschool\tNOU\n")

	if _, _, err := runCLI(t, "merge", doc, ann); err == nil {
		t.Error("expected error for a plaintext document")
	}
}

func TestAlignCommand(t *testing.T) {
	dir := t.TempDir()
	text := writeFile(t, dir, "text.txt", "de kat zit")
	ann := writeFile(t, dir, "a.csv", "literal,lemma,pos\nde,de,LID\nhond,hond,NOU\nzit,zitten,VRB\n")

	stdout, stderr, err := runCLI(t, "align", ann, "--text", text, "--layer", "cli")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stderr, "aligned 2 of 3 entries (1 gaps)") {
		t.Errorf("unexpected stderr %q", stderr)
	}
	var got struct {
		Name      string `json:"name"`
		WordForms []struct {
			Literal string `json:"literal"`
			Offset  int    `json:"offset"`
		} `json:"wordforms"`
	}
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("invalid layer json: %v", err)
	}
	if got.Name != "cli" || len(got.WordForms) != 2 || got.WordForms[1].Offset != 7 {
		t.Errorf("unexpected layer %+v", got)
	}
}

func TestAlignCommand_NeedsSource(t *testing.T) {
	dir := t.TempDir()
	ann := writeFile(t, dir, "a.tsv", "de\tde\tLID\n")
	if _, _, err := runCLI(t, "align", ann); err == nil {
		t.Error("expected error without --text or --document")
	}
}

func TestExtractCommand(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "letter.xml", teiDoc)

	stdout, _, err := runCLI(t, "extract", doc, "--plaintext")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stdout != "scholen loop\n" {
		t.Errorf("expected plaintext %q, got %q", "scholen loop\n", stdout)
	}
}

func TestExtractCommand_TSV(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "tagged.xml", `<TEI xmlns="http://www.tei-c.org/ns/1.0"><text><body><p><w lemma="de" pos="LID">de</w> <w lemma="kat" pos="NOU">kat</w><pc pos="LET">.</pc></p></body></text></TEI>`)

	stdout, _, err := runCLI(t, "extract", doc, "--tsv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "literal\tlemma\tpos\nde\tde\tLID\nkat\tkat\tNOU\n.\t\tLET\n"
	if stdout != want {
		t.Errorf("expected %q, got %q", want, stdout)
	}
}

func TestEvaluateCommand(t *testing.T) {
	dir := t.TempDir()
	hypo := writeFile(t, dir, "hypo.json", `{"name":"hypo","wordforms":[{"id":"a","literal":"kat","offset":3,"length":3}],"terms":[{"lemma":"kat","pos":"NOU","targets":["a"]}]}`)
	ref := writeFile(t, dir, "ref.json", `{"name":"ref","wordforms":[{"id":"b","literal":"kat","offset":3,"length":3}],"terms":[{"lemma":"kat","pos":"VRB","targets":["b"]}]}`)

	stdout, _, err := runCLI(t, "evaluate", hypo, ref, "--json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sum struct {
		Matches    int `json:"matches"`
		EqualLemma int `json:"equal_lemma"`
		EqualPOS   int `json:"equal_pos"`
	}
	if err := json.Unmarshal([]byte(stdout), &sum); err != nil {
		t.Fatalf("invalid summary json: %v", err)
	}
	if sum.Matches != 1 || sum.EqualLemma != 1 || sum.EqualPOS != 0 {
		t.Errorf("unexpected summary %+v", sum)
	}

	stdout, _, err = runCLI(t, "evaluate", hypo, ref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "lemma\t1\t100.00%") {
		t.Errorf("unexpected table %q", stdout)
	}
}
