// Command annomerge aligns, extracts, merges and evaluates token
// annotations on TEI and FoLiA documents from the command line.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/dgallion1/annomerge/internal/align"
	"github.com/dgallion1/annomerge/internal/layer"
	"github.com/dgallion1/annomerge/internal/logging"
	"github.com/dgallion1/annomerge/internal/parser"
	"github.com/dgallion1/annomerge/internal/pipeline"
)

// CLI defines the command-line interface.
type CLI struct {
	LogLevel string `name:"log-level" default:"warn" enum:"debug,info,warn,error" help:"Log level for diagnostics on stderr"`

	Align    AlignCmd    `cmd:"" help:"Align tabular annotations on a plaintext or document"`
	Extract  ExtractCmd  `cmd:"" help:"Print the plaintext and word layer of a TEI or FoLiA document"`
	Merge    MergeCmd    `cmd:"" help:"Merge annotations into a TEI or FoLiA document"`
	Evaluate EvaluateCmd `cmd:"" help:"Compare a hypothesis layer with a reference layer"`
}

// Globals is bound into every command's Run.
type Globals struct {
	Log    *slog.Logger
	Stdout io.Writer
	Stderr io.Writer
}

func (g *Globals) processor(maxClimb int) *pipeline.Processor {
	return &pipeline.Processor{Log: g.Log, MaxClimb: maxClimb, FallbackPdftotext: true}
}

// AlignCmd positions annotation entries on a plaintext.
type AlignCmd struct {
	Annotations string `arg:"" help:"Annotation entries (tsv or csv, optionally .xz)"`
	Document    string `name:"document" short:"d" help:"Document to take the plaintext from" xor:"source"`
	Text        string `name:"text" short:"t" help:"Plaintext file" xor:"source"`
	Format      string `name:"format" short:"f" help:"Force the markup format (tei, folia)"`
	Layer       string `name:"layer" default:"annotations" help:"Name of the produced layer"`
	Tagset      string `name:"tagset" help:"Tagset reference recorded on the layer"`
	Output      string `name:"output" short:"o" default:"-" help:"Output file for the layer JSON"`
}

func (c *AlignCmd) Run(g *Globals) error {
	var plaintext string
	switch {
	case c.Text == "" && c.Document == "":
		return errors.New("one of --document or --text is required")
	case c.Text != "":
		data, _, err := readInput(c.Text)
		if err != nil {
			return err
		}
		plaintext = string(data)
	default:
		data, name, err := readInput(c.Document)
		if err != nil {
			return err
		}
		doc, err := g.processor(0).Parse(data, name, c.Format)
		if err != nil {
			return fmt.Errorf("parse %s: %w", c.Document, err)
		}
		plaintext = doc.Plaintext
	}

	ann, err := readAnnotations(c.Annotations)
	if err != nil {
		return err
	}
	if ann.Layer != nil {
		return errors.New("align needs tsv or csv entries, got a layer")
	}
	res, err := align.Literals(ann.Entries, plaintext, align.LiteralOptions{Name: c.Layer, Tagset: c.Tagset})
	if err != nil {
		return fmt.Errorf("align: %w", err)
	}
	for _, gap := range res.Gaps {
		g.Log.Debug("literal not found", "index", gap.Index, "literal", gap.Literal)
	}
	fmt.Fprintf(g.Stderr, "aligned %d of %d entries (%d gaps)\n", res.Layer.Len(), len(ann.Entries), len(res.Gaps))

	out, err := json.MarshalIndent(res.Layer, "", "  ")
	if err != nil {
		return fmt.Errorf("encode layer: %w", err)
	}
	return writeOutput(g, c.Output, append(out, '\n'))
}

// ExtractCmd reads the plaintext and existing word elements of a document.
type ExtractCmd struct {
	Document  string `arg:"" help:"TEI or FoLiA document (optionally .xz)"`
	Format    string `name:"format" short:"f" help:"Force the markup format (tei, folia)"`
	Plaintext bool   `name:"plaintext" xor:"view" help:"Print only the plaintext"`
	TSV       bool   `name:"tsv" xor:"view" help:"Print the existing word annotations as literal/lemma/pos rows"`
	Output    string `name:"output" short:"o" default:"-" help:"Output file"`
}

func (c *ExtractCmd) Run(g *Globals) error {
	data, name, err := readInput(c.Document)
	if err != nil {
		return err
	}
	doc, err := g.processor(0).Parse(data, name, c.Format)
	if err != nil {
		return fmt.Errorf("parse %s: %w", c.Document, err)
	}
	if !doc.Markup() {
		return fmt.Errorf("%s is not a TEI or FoLiA document", c.Document)
	}
	if c.Plaintext {
		return writeOutput(g, c.Output, []byte(doc.Plaintext))
	}
	if c.TSV {
		var buf bytes.Buffer
		if err := layer.WriteTSV(&buf, doc.Existing); err != nil {
			return err
		}
		return writeOutput(g, c.Output, buf.Bytes())
	}

	out, err := json.MarshalIndent(map[string]any{
		"title":     doc.Title,
		"format":    doc.Format,
		"plaintext": doc.Plaintext,
		"layer":     doc.Existing,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode extraction: %w", err)
	}
	return writeOutput(g, c.Output, append(out, '\n'))
}

// MergeCmd merges annotations into a document and writes the merged XML.
type MergeCmd struct {
	Document    string `arg:"" help:"TEI or FoLiA document (optionally .xz)"`
	Annotations string `arg:"" help:"Annotations: tsv/csv entries or layer JSON (optionally .xz)"`
	Format      string `name:"format" short:"f" help:"Force the markup format (tei, folia)"`
	MaxClimb    int    `name:"max-climb" default:"8" help:"Ancestor levels a fragmented token may climb"`
	Output      string `name:"output" short:"o" default:"-" help:"Output file for the merged XML"`
}

func (c *MergeCmd) Run(g *Globals) error {
	data, name, err := readInput(c.Document)
	if err != nil {
		return err
	}
	proc := g.processor(c.MaxClimb)
	doc, err := proc.Parse(data, name, c.Format)
	if err != nil {
		return fmt.Errorf("parse %s: %w", c.Document, err)
	}
	if !doc.Markup() {
		return fmt.Errorf("%s: %w", c.Document, pipeline.ErrNotMarkup)
	}

	ann, err := readAnnotations(c.Annotations)
	if err != nil {
		return err
	}
	aligned, err := pipeline.Align(doc, ann, "annotations")
	if err != nil {
		return fmt.Errorf("align: %w", err)
	}
	out, rep, err := proc.Merge(doc, aligned.Layer)
	if err != nil {
		return fmt.Errorf("merge %s: %w", c.Document, err)
	}
	fmt.Fprintf(g.Stderr, "inserted %d, rewritten %d, deleted %d, skipped %d, mismatches %d, gaps %d\n",
		rep.Inserted, rep.Rewritten, rep.Deleted, rep.Skipped, len(rep.Mismatches), len(aligned.Gaps))
	return writeOutput(g, c.Output, out)
}

// EvaluateCmd compares two layers over the same plaintext.
type EvaluateCmd struct {
	Hypothesis string   `arg:"" help:"Hypothesis layer JSON"`
	Reference  string   `arg:"" help:"Reference layer JSON"`
	HypoPos    []string `name:"hypo-pos" help:"Only record hypothesis terms with these pos heads"`
	RefPos     []string `name:"ref-pos" help:"Only record reference terms with these pos heads"`
	Mode       string   `name:"mode" default:"all" enum:"all,any" help:"Record matches accepted by both filters (all) or either (any)"`
	JSON       bool     `name:"json" help:"Print the summary as JSON"`
}

func (c *EvaluateCmd) Run(g *Globals) error {
	hypo, err := readLayer(c.Hypothesis)
	if err != nil {
		return err
	}
	ref, err := readLayer(c.Reference)
	if err != nil {
		return err
	}

	opts := align.Options{
		HypoFilter: align.PosHeadFilter(c.HypoPos...),
		RefFilter:  align.PosHeadFilter(c.RefPos...),
		Mode:       align.ModeAll,
	}
	if c.Mode == "any" {
		opts.Mode = align.ModeAny
	}
	sum := align.Compare(hypo, ref, opts).Summary()

	if c.JSON {
		out, err := json.MarshalIndent(sum, "", "  ")
		if err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}
		return writeOutput(g, "-", append(out, '\n'))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "matches\t%d\n", sum.Matches)
	fmt.Fprintf(&b, "lemma\t%d\t%s\n", sum.EqualLemma, ratio(sum.EqualLemma, sum.Matches))
	fmt.Fprintf(&b, "pos\t%d\t%s\n", sum.EqualPOS, ratio(sum.EqualPOS, sum.Matches))
	fmt.Fprintf(&b, "pos head\t%d\t%s\n", sum.EqualPosHead, ratio(sum.EqualPosHead, sum.Matches))
	fmt.Fprintf(&b, "pos+lemma\t%d\t%s\n", sum.EqualPosLemma, ratio(sum.EqualPosLemma, sum.Matches))
	fmt.Fprintf(&b, "hypothesis only\t%d\n", sum.HypoOnly)
	fmt.Fprintf(&b, "reference only\t%d\n", sum.RefOnly)
	return writeOutput(g, "-", []byte(b.String()))
}

func ratio(n, total int) string {
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", 100*float64(n)/float64(total))
}

func readAnnotations(path string) (*parser.Annotations, error) {
	data, name, err := readInput(path)
	if err != nil {
		return nil, err
	}
	ann, err := parser.ReadAnnotations(bytes.NewReader(data), name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ann, nil
}

func readLayer(path string) (*layer.Layer, error) {
	data, _, err := readInput(path)
	if err != nil {
		return nil, err
	}
	l, err := layer.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return l, nil
}

func writeOutput(g *Globals, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := g.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func run(args []string, stdout, stderr io.Writer) error {
	var cli CLI
	p, err := kong.New(&cli,
		kong.Name("annomerge"),
		kong.Description("Offset-based annotation alignment and merging for TEI and FoLiA"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		return err
	}
	ctx, err := p.Parse(args)
	if err != nil {
		return err
	}
	return ctx.Run(&Globals{
		Log:    logging.New(cli.LogLevel, "text", stderr),
		Stdout: stdout,
		Stderr: stderr,
	})
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "annomerge:", err)
		os.Exit(1)
	}
}
