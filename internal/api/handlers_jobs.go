package api

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/annomerge/internal/format"
	"github.com/dgallion1/annomerge/internal/parser"
	"github.com/dgallion1/annomerge/internal/pipeline"
)

func stem(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

// handleSubmitJob queues a batch of documents. Merge jobs pair every file in
// "files" with the "annotations" file of the same base name.
func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	kind := pipeline.JobKind(r.FormValue("kind"))
	switch kind {
	case "":
		kind = pipeline.KindTag
	case pipeline.KindTag, pipeline.KindMerge:
	default:
		jsonError(w, fmt.Sprintf("unknown job kind %q", kind), http.StatusBadRequest)
		return
	}
	formatName := r.FormValue("format")
	if formatName != "" {
		if _, err := format.ForName(formatName); err != nil {
			processingError(w, err)
			return
		}
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	annotations := map[string][]byte{}
	annotNames := map[string]string{}
	if kind == pipeline.KindMerge {
		for _, fh := range r.MultipartForm.File["annotations"] {
			f, err := fh.Open()
			if err != nil {
				jsonError(w, "failed to open annotations", http.StatusBadRequest)
				return
			}
			data, filename, err := s.readPart(f, fh)
			f.Close()
			if err != nil {
				uploadError(w, "annotations", err)
				return
			}
			annotations[stem(filename)] = data
			annotNames[stem(filename)] = filename
		}
	}

	var docs []pipeline.Document
	for _, fh := range files {
		filename := sanitizeFilename(fh.Filename)
		if !parser.IsSupportedExtension(filename) {
			jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusUnsupportedMediaType)
			return
		}
		f, err := fh.Open()
		if err != nil {
			jsonError(w, "failed to open file", http.StatusBadRequest)
			return
		}
		data, _, err := s.readPart(f, fh)
		f.Close()
		if err != nil {
			uploadError(w, "files", err)
			return
		}

		d := pipeline.Document{Filename: filename, Data: data}
		if kind == pipeline.KindMerge {
			ann, ok := annotations[stem(filename)]
			if !ok {
				jsonError(w, "no annotations for "+filename, http.StatusBadRequest)
				return
			}
			d.Annotations = ann
			d.AnnotName = annotNames[stem(filename)]
		}
		docs = append(docs, d)
	}

	job := pipeline.NewJob(kind, docs)
	job.Format = formatName
	job.Language = r.FormValue("language")

	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.log.Info("job submitted", "job_id", job.ID, "kind", kind, "documents", len(docs))

	snap := job.Snapshot()
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":    snap.ID,
		"kind":      snap.Kind,
		"status":    snap.Status,
		"documents": snap.Documents,
		"poll_url":  fmt.Sprintf("/api/jobs/%s", snap.ID),
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	if !s.orchestrator.CancelJob(jobID) {
		jsonError(w, "job already finished", http.StatusConflict)
		return
	}
	s.log.Info("job cancelled", "job_id", jobID)
	writeJSON(w, http.StatusOK, job.Snapshot())
}

// handleJobDocument returns the merged XML or layer JSON of one document.
func (s *Server) handleJobDocument(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	out, contentType, ok := job.Output(chi.URLParam(r, "docID"))
	if !ok {
		jsonError(w, "document output not available", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}
