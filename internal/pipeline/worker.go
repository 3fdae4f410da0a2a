package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgallion1/annomerge/internal/parser"
)

// ErrNotMarkup is returned when a merge job receives a document that has no
// markup tree to merge into.
var ErrNotMarkup = errors.New("document is not TEI or FoLiA")

// Worker processes the documents of a batch job.
type Worker struct {
	proc *Processor
	log  *slog.Logger

	maxConcurrentDocs int
}

func NewWorker(proc *Processor, log *slog.Logger, maxDocs int) *Worker {
	return &Worker{
		proc:              proc,
		log:               log,
		maxConcurrentDocs: max(maxDocs, 1),
	}
}

// Process runs every document of the job. A failing document does not stop
// the others; cancelling the job stops documents that have not started.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "kind", job.Kind)

	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if !job.start(cancel) {
		log.Info("job cancelled before start")
		job.Finish()
		return
	}

	docs := job.Documents()
	log.Info("job started", "documents", len(docs))

	sem := make(chan struct{}, w.maxConcurrentDocs)
	var wg sync.WaitGroup
loop:
	for i, d := range docs {
		select {
		case sem <- struct{}{}:
		case <-jobCtx.Done():
			break loop
		}
		wg.Add(1)
		go func(i int, d Document) {
			defer wg.Done()
			defer func() { <-sem }()
			res, err := w.processDocument(jobCtx, job, i, d, log)
			if err != nil {
				log.Error("document failed", "doc_id", job.documentID(i), "filename", d.Filename, "error", err)
			}
			job.FinishDocument(i, res, err)
		}(i, d)
	}
	wg.Wait()
	job.Finish()

	snap := job.Snapshot()
	log.Info("job finished",
		"status", snap.Status,
		"processed", snap.Progress.DocumentsProcessed,
		"failed", snap.Progress.DocumentsFailed,
	)
}

// processDocument runs one document through parse, tag (tag jobs only),
// align and merge. The context is checked between phases.
func (w *Worker) processDocument(ctx context.Context, job *Job, i int, d Document, log *slog.Logger) (DocumentResult, error) {
	log = log.With("doc_id", job.documentID(i), "filename", d.Filename)
	var res DocumentResult

	job.SetDocumentStatus(i, DocParsing)
	doc, err := w.proc.Parse(d.Data, d.Filename, job.Format)
	if err != nil {
		return res, fmt.Errorf("parse: %w", err)
	}
	res.Title = doc.Title
	res.Format = doc.Format
	if err := ctx.Err(); err != nil {
		return res, err
	}

	var ann *parser.Annotations
	switch job.Kind {
	case KindTag:
		job.SetDocumentStatus(i, DocTagging)
		entries, chunks, err := w.proc.Tag(ctx, doc, job.Language)
		res.Chunks = chunks
		if err != nil {
			return res, fmt.Errorf("tag: %w", err)
		}
		ann = &parser.Annotations{Entries: entries}
	case KindMerge:
		if !doc.Markup() {
			return res, ErrNotMarkup
		}
		ann, err = parser.ReadAnnotations(bytes.NewReader(d.Annotations), d.AnnotName)
		if err != nil {
			return res, fmt.Errorf("read annotations: %w", err)
		}
	default:
		return res, fmt.Errorf("unknown job kind %q", job.Kind)
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	job.SetDocumentStatus(i, DocAligning)
	aligned, err := Align(doc, ann, string(job.Kind))
	if err != nil {
		return res, fmt.Errorf("align: %w", err)
	}
	res.Tokens = aligned.Layer.Len()
	res.Gaps = len(aligned.Gaps)
	if len(aligned.Gaps) > 0 {
		log.Warn("literals not found in plaintext", "gaps", len(aligned.Gaps))
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	if !doc.Markup() {
		out, err := json.Marshal(aligned.Layer)
		if err != nil {
			return res, fmt.Errorf("encode layer: %w", err)
		}
		res.output = out
		res.OutputType = "application/json"
		return res, nil
	}

	job.SetDocumentStatus(i, DocMerging)
	out, rep, err := w.proc.Merge(doc, aligned.Layer)
	res.Report = summarize(rep)
	if err != nil {
		return res, fmt.Errorf("merge: %w", err)
	}
	res.output = out
	res.OutputType = "application/xml"
	log.Info("document merged",
		"tokens", res.Tokens,
		"inserted", rep.Inserted,
		"rewritten", rep.Rewritten,
		"mismatches", len(rep.Mismatches),
	)
	return res, nil
}
