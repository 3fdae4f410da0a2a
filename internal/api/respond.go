package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/annomerge/internal/format"
	"github.com/dgallion1/annomerge/internal/merge"
)

var errTooLarge = errors.New("file exceeds max size")

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// processingError maps document processing errors to a response:
// unsupported formats are 415, structural merge failures 422 and anything
// else is blamed on the input.
func processingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, format.ErrUnsupported):
		jsonError(w, err.Error(), http.StatusUnsupportedMediaType)
	case errors.Is(err, merge.ErrStructuralMerge):
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		jsonError(w, err.Error(), http.StatusBadRequest)
	}
}

// parseMultipart limits the body and parses the form. It writes the error
// response itself and reports whether the handler may continue.
func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request, files int64) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*files+1024*1024) // extra 1MB for form overhead
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// formFile reads an uploaded file field. A missing field returns
// http.ErrMissingFile.
func (s *Server) formFile(r *http.Request, field string) ([]byte, string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()
	return s.readPart(file, header)
}

func (s *Server) readPart(file multipart.File, header *multipart.FileHeader) ([]byte, string, error) {
	filename := sanitizeFilename(header.Filename)
	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, filename, fmt.Errorf("read %s: %w", filename, err)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, filename, fmt.Errorf("%w (%d bytes): %s", errTooLarge, s.cfg.MaxUploadBytes, filename)
	}
	return data, filename, nil
}

// uploadError writes the response for a failed formFile call.
func uploadError(w http.ResponseWriter, field string, err error) {
	switch {
	case errors.Is(err, http.ErrMissingFile):
		jsonError(w, field+" is required", http.StatusBadRequest)
	case errors.Is(err, errTooLarge):
		jsonError(w, err.Error(), http.StatusRequestEntityTooLarge)
	default:
		jsonError(w, err.Error(), http.StatusBadRequest)
	}
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
