package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/annomerge/internal/align"
	"github.com/dgallion1/annomerge/internal/chunker"
	"github.com/dgallion1/annomerge/internal/doctree"
	"github.com/dgallion1/annomerge/internal/format"
	"github.com/dgallion1/annomerge/internal/layer"
	"github.com/dgallion1/annomerge/internal/merge"
	"github.com/dgallion1/annomerge/internal/parser"
	"github.com/dgallion1/annomerge/internal/tagger"
	"github.com/dgallion1/annomerge/internal/xmltree"
)

// ErrNoTagger is returned by Tag when no tagger is configured.
var ErrNoTagger = errors.New("no tagger configured")

// Tagger tags one chunk of plaintext.
type Tagger interface {
	Tag(ctx context.Context, req tagger.Request) ([]layer.Entry, error)
}

// Processor holds the per-document steps shared by batch jobs and the
// synchronous API: parse, tag, align and merge.
type Processor struct {
	Tagger   Tagger
	Log      *slog.Logger
	ChunkCfg chunker.Config
	MaxClimb int

	MaxConcurrentTag  int
	DefaultFormat     string
	FallbackPdftotext bool

	// backoff is Backoff unless a test shortens it.
	backoff func(int) time.Duration
}

func (p *Processor) log() *slog.Logger {
	if p.Log == nil {
		return slog.Default()
	}
	return p.Log
}

// Parse reads an uploaded document. formatName forces the markup adapter for
// XML uploads; empty means detect.
func (p *Processor) Parse(data []byte, filename, formatName string) (*doctree.Document, error) {
	ps, err := parser.ForFileOptions(filename, parser.Options{
		Format:            formatName,
		DefaultFormat:     p.DefaultFormat,
		FallbackPdftotext: p.FallbackPdftotext,
	})
	if err != nil {
		return nil, err
	}
	return ps.Parse(bytes.NewReader(data), filename)
}

// Tag splits the plaintext into chunks, tags them with bounded concurrency
// and returns all entries in text order together with the chunk count. A
// chunk that still fails after retries fails the document.
func (p *Processor) Tag(ctx context.Context, doc *doctree.Document, language string) ([]layer.Entry, int, error) {
	if p.Tagger == nil {
		return nil, 0, ErrNoTagger
	}
	chunks := chunker.ChunkDocument(doc, p.ChunkCfg)
	if len(chunks) == 0 {
		return nil, 0, nil
	}

	wait := p.backoff
	if wait == nil {
		wait = Backoff
	}
	limit := max(p.MaxConcurrentTag, 1)

	type chunkResult struct {
		entries []layer.Entry
		err     error
		idx     int
	}
	results := make(chan chunkResult, len(chunks))
	sem := make(chan struct{}, limit)

	for i, chunk := range chunks {
		sem <- struct{}{}
		go func(i int, req tagger.Request) {
			defer func() { <-sem }()
			entries, err := withRetry(ctx, p.log().With("chunk", i), wait, func() ([]layer.Entry, error) {
				return p.Tagger.Tag(ctx, req)
			})
			results <- chunkResult{entries: entries, err: err, idx: i}
		}(i, tagger.ChunkRequest(doc.Title, language, chunk))
	}

	perChunk := make([][]layer.Entry, len(chunks))
	var firstErr error
	for range chunks {
		r := <-results
		if r.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("tag chunk %d: %w", r.idx, r.err)
			}
			continue
		}
		perChunk[r.idx] = r.entries
	}
	if firstErr != nil {
		return nil, len(chunks), firstErr
	}

	var all []layer.Entry
	for _, entries := range perChunk {
		all = append(all, entries...)
	}
	return all, len(chunks), nil
}

// Align positions annotations on the document plaintext. A positioned
// layer is used as is; bare entries are aligned by literal.
func Align(doc *doctree.Document, ann *parser.Annotations, name string) (*align.LiteralResult, error) {
	if ann.Layer != nil {
		return &align.LiteralResult{Layer: ann.Layer}, nil
	}
	return align.Literals(ann.Entries, doc.Plaintext, align.LiteralOptions{Name: name})
}

// Merge writes l into the document tree and serializes the result.
// Mismatches are logged and counted in the report.
func (p *Processor) Merge(doc *doctree.Document, l *layer.Layer) ([]byte, *merge.Report, error) {
	if !doc.Markup() {
		return nil, nil, &format.UnsupportedError{Format: doc.Format}
	}
	a, err := format.ForName(doc.Format)
	if err != nil {
		return nil, nil, err
	}
	m := merge.NewMerger(a, merge.LogReporter{Log: p.log()})
	if p.MaxClimb > 0 {
		m.MaxClimb = p.MaxClimb
	}
	tree, rep, err := m.Merge(doc.Tree, l)
	if err != nil {
		return nil, rep, err
	}
	return xmltree.Bytes(tree), rep, nil
}
