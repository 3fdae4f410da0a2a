package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dgallion1/annomerge/internal/align"
	"github.com/dgallion1/annomerge/internal/doctree"
	"github.com/dgallion1/annomerge/internal/format"
	"github.com/dgallion1/annomerge/internal/layer"
	"github.com/dgallion1/annomerge/internal/parser"
	"github.com/dgallion1/annomerge/internal/pipeline"
)

// parseDocument reads and parses the "document" upload. It writes the error
// response itself and returns nil on failure.
func (s *Server) parseDocument(w http.ResponseWriter, r *http.Request) (*doctree.Document, string) {
	data, filename, err := s.formFile(r, "document")
	if err != nil {
		uploadError(w, "document", err)
		return nil, ""
	}
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, "unsupported file type: "+filename, http.StatusUnsupportedMediaType)
		return nil, ""
	}
	doc, err := s.orchestrator.Processor().Parse(data, filename, r.FormValue("format"))
	if err != nil {
		processingError(w, fmt.Errorf("parse %s: %w", filename, err))
		return nil, ""
	}
	return doc, filename
}

func (s *Server) readAnnotations(w http.ResponseWriter, r *http.Request) *parser.Annotations {
	data, filename, err := s.formFile(r, "annotations")
	if err != nil {
		uploadError(w, "annotations", err)
		return nil
	}
	ann, err := parser.ReadAnnotations(bytes.NewReader(data), filename)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return nil
	}
	return ann
}

// handleAlign positions tabular annotations on a plaintext, given inline or
// derived from an uploaded document.
func (s *Server) handleAlign(w http.ResponseWriter, r *http.Request) {
	if !s.parseMultipart(w, r, 2) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	plaintext := r.FormValue("plaintext")
	if len(r.MultipartForm.File["document"]) > 0 {
		doc, _ := s.parseDocument(w, r)
		if doc == nil {
			return
		}
		plaintext = doc.Plaintext
	} else if plaintext == "" {
		jsonError(w, "plaintext or document is required", http.StatusBadRequest)
		return
	}

	ann := s.readAnnotations(w, r)
	if ann == nil {
		return
	}
	if ann.Layer != nil {
		jsonError(w, "annotations must be tsv or csv entries", http.StatusBadRequest)
		return
	}

	name := r.FormValue("layer")
	if name == "" {
		name = "annotations"
	}
	res, err := align.Literals(ann.Entries, plaintext, align.LiteralOptions{
		Name:     name,
		Tagset:   r.FormValue("tagset"),
		IDPrefix: r.FormValue("id_prefix"),
	})
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(res.Gaps) > 0 {
		s.log.Debug("alignment gaps", "gaps", len(res.Gaps), "entries", len(ann.Entries))
	}

	gaps := res.Gaps
	if gaps == nil {
		gaps = []align.Gap{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tokens": res.Layer.Len(),
		"gaps":   gaps,
		"layer":  res.Layer,
	})
}

// handleExtract returns the plaintext of a TEI or FoLiA document and the
// annotation layer read from its word elements.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if !s.parseMultipart(w, r, 1) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	doc, _ := s.parseDocument(w, r)
	if doc == nil {
		return
	}
	if !doc.Markup() {
		processingError(w, &format.UnsupportedError{Format: doc.Format})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"title":     doc.Title,
		"format":    doc.Format,
		"plaintext": doc.Plaintext,
		"tokens":    doc.Existing.Len(),
		"layer":     doc.Existing,
	})
}

// handleMerge merges annotations into an uploaded TEI or FoLiA document and
// returns the merged XML. Counts go into X-Merge-* headers.
func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	if !s.parseMultipart(w, r, 2) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	doc, filename := s.parseDocument(w, r)
	if doc == nil {
		return
	}
	if !doc.Markup() {
		processingError(w, &format.UnsupportedError{Format: doc.Format})
		return
	}
	ann := s.readAnnotations(w, r)
	if ann == nil {
		return
	}

	aligned, err := pipeline.Align(doc, ann, "annotations")
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	proc := s.orchestrator.Processor()
	out, rep, err := proc.Merge(doc, aligned.Layer)
	if err != nil {
		s.log.Warn("merge failed", "filename", filename, "error", err)
		processingError(w, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "application/xml; charset=utf-8")
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	h.Set("X-Merge-Inserted", strconv.Itoa(rep.Inserted))
	h.Set("X-Merge-Rewritten", strconv.Itoa(rep.Rewritten))
	h.Set("X-Merge-Deleted", strconv.Itoa(rep.Deleted))
	h.Set("X-Merge-Skipped", strconv.Itoa(rep.Skipped))
	h.Set("X-Merge-Mismatches", strconv.Itoa(len(rep.Mismatches)))
	h.Set("X-Alignment-Gaps", strconv.Itoa(len(aligned.Gaps)))
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

// termFilter selects terms by pos head and/or lemma. Empty lists accept
// everything.
type termFilter struct {
	PosHeads []string `json:"pos_heads"`
	Lemmas   []string `json:"lemmas"`
}

func (f *termFilter) build() align.TermFilter {
	if f == nil {
		return nil
	}
	return align.AllOf(align.PosHeadFilter(f.PosHeads...), align.LemmaFilter(f.Lemmas...))
}

type evaluateRequest struct {
	Hypothesis *layer.Layer `json:"hypothesis"`
	Reference  *layer.Layer `json:"reference"`
	HypoFilter *termFilter  `json:"hypo_filter,omitempty"`
	RefFilter  *termFilter  `json:"ref_filter,omitempty"`
	Mode       string       `json:"mode,omitempty"` // "all" (default) or "any"
}

type termView struct {
	Literal string `json:"literal"`
	Lemma   string `json:"lemma"`
	POS     string `json:"pos"`
	Offset  int    `json:"offset"`
}

func viewTerm(t layer.Term) termView {
	return termView{Literal: t.Literal(), Lemma: t.Lemma, POS: t.POS, Offset: t.FirstOffset()}
}

func viewTerms(terms []layer.Term) []termView {
	out := make([]termView, len(terms))
	for i, t := range terms {
		out[i] = viewTerm(t)
	}
	return out
}

// handleEvaluate compares a hypothesis layer against a reference layer over
// the same plaintext.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Hypothesis == nil || req.Reference == nil {
		jsonError(w, "hypothesis and reference are required", http.StatusBadRequest)
		return
	}

	opts := align.Options{
		HypoFilter: req.HypoFilter.build(),
		RefFilter:  req.RefFilter.build(),
	}
	switch strings.ToLower(req.Mode) {
	case "", "all":
		opts.Mode = align.ModeAll
	case "any":
		opts.Mode = align.ModeAny
	default:
		jsonError(w, fmt.Sprintf("unknown mode %q", req.Mode), http.StatusBadRequest)
		return
	}

	comp := align.Compare(req.Hypothesis, req.Reference, opts)
	disagreements := []map[string]termView{}
	for _, m := range comp.Matches {
		if !m.EqualPosLemma() {
			disagreements = append(disagreements, map[string]termView{
				"hypothesis": viewTerm(m.Hypo),
				"reference":  viewTerm(m.Ref),
			})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"summary":       comp.Summary(),
		"disagreements": disagreements,
		"hypo_only":     viewTerms(comp.HypoOnly),
		"ref_only":      viewTerms(comp.RefOnly),
	})
}
