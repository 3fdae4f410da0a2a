package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/annomerge/internal/config"
	"github.com/dgallion1/annomerge/internal/pipeline"
)

const (
	testKey = "test-key"
	teiDoc  = `<TEI xmlns="http://www.tei-c.org/ns/1.0"><text><body><p>scholen loop</p></body></text></TEI>`
	teiTSV  = "scholen\tschool\tNOU\nloop\tlopen\tVRB\n"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Config{
		APIKey:            testKey,
		WorkerCount:       1,
		MaxQueueSize:      4,
		MaxConcurrentDocs: 1,
		MaxConcurrentTag:  1,
		MaxUploadBytes:    1 << 20,
		ChunkSize:         1500,
		MergeMaxClimb:     8,
		JobTTL:            time.Hour,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	orch := pipeline.NewOrchestrator(cfg, nil, log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)
	return NewServer(orch, nil, log, cfg)
}

type part struct {
	field, filename, content string
}

func multipartBody(t *testing.T, parts ...part) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		if p.filename == "" {
			if err := mw.WriteField(p.field, p.content); err != nil {
				t.Fatal(err)
			}
			continue
		}
		fw, err := mw.CreateFormFile(p.field, p.filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(p.content))
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func do(t *testing.T, s *Server, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+testKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func postForm(t *testing.T, s *Server, path string, parts ...part) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, parts...)
	return do(t, s, http.MethodPost, path, body, ct)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("invalid json response %q: %v", rec.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestAuth(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/x", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/x", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong token, got %d", rec.Code)
	}
}

func TestAlign(t *testing.T) {
	s := newTestServer(t)
	rec := postForm(t, s, "/api/align",
		part{field: "plaintext", content: "scholen loop"},
		part{field: "annotations", filename: "a.tsv", content: "scholen\tschool\tNOU\nzzz\tz\tX\nloop\tlopen\tVRB\n"},
	)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		Tokens int `json:"tokens"`
		Gaps   []struct {
			Index   int    `json:"index"`
			Literal string `json:"literal"`
		} `json:"gaps"`
		Layer struct {
			WordForms []struct {
				Literal string `json:"literal"`
				Offset  int    `json:"offset"`
			} `json:"wordforms"`
		} `json:"layer"`
	}
	decode(t, rec, &resp)
	if resp.Tokens != 2 {
		t.Errorf("expected 2 tokens, got %d", resp.Tokens)
	}
	if len(resp.Gaps) != 1 || resp.Gaps[0].Index != 1 || resp.Gaps[0].Literal != "zzz" {
		t.Errorf("unexpected gaps %+v", resp.Gaps)
	}
	if len(resp.Layer.WordForms) != 2 || resp.Layer.WordForms[1].Offset != 8 {
		t.Errorf("unexpected word forms %+v", resp.Layer.WordForms)
	}
}

func TestAlign_RequiresText(t *testing.T) {
	s := newTestServer(t)
	rec := postForm(t, s, "/api/align", part{field: "annotations", filename: "a.tsv", content: teiTSV})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestExtract(t *testing.T) {
	s := newTestServer(t)
	doc := `<TEI xmlns="http://www.tei-c.org/ns/1.0"><text><body><p><w xml:id="a" lemma="school" pos="NOU">scholen</w> loop</p></body></text></TEI>`
	rec := postForm(t, s, "/api/extract", part{field: "document", filename: "letter.xml", content: doc})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		Format    string `json:"format"`
		Plaintext string `json:"plaintext"`
		Tokens    int    `json:"tokens"`
	}
	decode(t, rec, &resp)
	if resp.Format != "tei" {
		t.Errorf("expected format tei, got %q", resp.Format)
	}
	if !strings.HasPrefix(resp.Plaintext, "scholen loop") {
		t.Errorf("unexpected plaintext %q", resp.Plaintext)
	}
	if resp.Tokens != 1 {
		t.Errorf("expected 1 existing token, got %d", resp.Tokens)
	}
}

func TestExtract_PlainTextIsUnsupported(t *testing.T) {
	s := newTestServer(t)
	rec := postForm(t, s, "/api/extract", part{field: "document", filename: "notes.txt", content: "just text"})
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("expected 415, got %d", rec.Code)
	}
}

func TestMerge(t *testing.T) {
	s := newTestServer(t)
	rec := postForm(t, s, "/api/merge",
		part{field: "document", filename: "letter.xml", content: teiDoc},
		part{field: "annotations", filename: "letter.tsv", content: teiTSV},
	)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if got := rec.Header().Get("X-Merge-Inserted"); got != "2" {
		t.Errorf("expected 2 inserted, got %q", got)
	}
	if got := rec.Header().Get("X-Merge-Mismatches"); got != "0" {
		t.Errorf("expected 0 mismatches, got %q", got)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "application/xml") {
		t.Errorf("expected xml content type, got %q", rec.Header().Get("Content-Type"))
	}
	for _, want := range []string{`lemma="school"`, `lemma="lopen"`, `>loop</w>`} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("expected body to contain %s, got %s", want, rec.Body)
		}
	}
}

func TestMerge_UnknownFormat(t *testing.T) {
	s := newTestServer(t)
	rec := postForm(t, s, "/api/merge",
		part{field: "format", content: "docbook"},
		part{field: "document", filename: "letter.xml", content: teiDoc},
		part{field: "annotations", filename: "letter.tsv", content: teiTSV},
	)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("expected 415, got %d: %s", rec.Code, rec.Body)
	}
}

func TestMerge_MissingAnnotations(t *testing.T) {
	s := newTestServer(t)
	rec := postForm(t, s, "/api/merge", part{field: "document", filename: "letter.xml", content: teiDoc})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestEvaluate(t *testing.T) {
	s := newTestServer(t)
	body := `{
		"hypothesis": {"name": "hypo",
			"wordforms": [{"id": "h1", "literal": "dummy,", "offset": 0, "length": 6}, {"id": "h2", "literal": "dummy", "offset": 7, "length": 5}],
			"terms": [{"lemma": "dummy", "pos": "NOU", "targets": ["h1"]}, {"lemma": "dummy", "pos": "ADJ", "targets": ["h2"]}]},
		"reference": {"name": "ref",
			"wordforms": [{"id": "r1", "literal": "dummy", "offset": 0, "length": 5}, {"id": "r2", "literal": "dummy", "offset": 7, "length": 5}],
			"terms": [{"lemma": "dummy", "pos": "NOU", "targets": ["r1"]}, {"lemma": "dummy", "pos": "NOU", "targets": ["r2"]}]}
	}`
	rec := do(t, s, http.MethodPost, "/api/evaluate", strings.NewReader(body), "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		Summary struct {
			Matches  int `json:"matches"`
			EqualPOS int `json:"equal_pos"`
		} `json:"summary"`
		Disagreements []map[string]any `json:"disagreements"`
	}
	decode(t, rec, &resp)
	if resp.Summary.Matches != 2 || resp.Summary.EqualPOS != 1 {
		t.Errorf("unexpected summary %+v", resp.Summary)
	}
	if len(resp.Disagreements) != 1 {
		t.Errorf("expected 1 disagreement, got %d", len(resp.Disagreements))
	}
}

func TestEvaluate_BadMode(t *testing.T) {
	s := newTestServer(t)
	body := `{"hypothesis": {"name": "h", "wordforms": [], "terms": []}, "reference": {"name": "r", "wordforms": [], "terms": []}, "mode": "some"}`
	rec := do(t, s, http.MethodPost, "/api/evaluate", strings.NewReader(body), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestJobs_MergeBatch(t *testing.T) {
	s := newTestServer(t)
	rec := postForm(t, s, "/api/jobs",
		part{field: "kind", content: "merge"},
		part{field: "files", filename: "letter.xml", content: teiDoc},
		part{field: "annotations", filename: "letter.tsv", content: teiTSV},
	)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body)
	}
	var submitted struct {
		JobID     string `json:"job_id"`
		Documents []struct {
			ID string `json:"doc_id"`
		} `json:"documents"`
	}
	decode(t, rec, &submitted)
	if len(submitted.Documents) != 1 {
		t.Fatalf("expected 1 document, got %d", len(submitted.Documents))
	}

	var snap pipeline.JobSnapshot
	deadline := time.Now().Add(5 * time.Second)
	for {
		rec = do(t, s, http.MethodGet, "/api/jobs/"+submitted.JobID, nil, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		decode(t, rec, &snap)
		if snap.Phase == "done" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job did not finish: %+v", snap)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if snap.Status != pipeline.StatusCompleted {
		t.Fatalf("expected completed job, got %q (%+v)", snap.Status, snap.Documents)
	}

	rec = do(t, s, http.MethodGet, "/api/jobs/"+submitted.JobID+"/documents/"+submitted.Documents[0].ID, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `lemma="lopen"`) {
		t.Errorf("expected merged output, got %s", rec.Body)
	}

	rec = do(t, s, http.MethodDelete, "/api/jobs/"+submitted.JobID, nil, "")
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for a finished job, got %d", rec.Code)
	}
}

func TestJobs_MergeNeedsAnnotations(t *testing.T) {
	s := newTestServer(t)
	rec := postForm(t, s, "/api/jobs",
		part{field: "kind", content: "merge"},
		part{field: "files", filename: "letter.xml", content: teiDoc},
	)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestJobs_UnsupportedFile(t *testing.T) {
	s := newTestServer(t)
	rec := postForm(t, s, "/api/jobs", part{field: "files", filename: "archive.zip", content: "PK"})
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("expected 415, got %d", rec.Code)
	}
}

func TestJobs_NotFound(t *testing.T) {
	s := newTestServer(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/jobs/missing"},
		{http.MethodDelete, "/api/jobs/missing"},
		{http.MethodGet, "/api/jobs/missing/documents/x"},
	} {
		if rec := do(t, s, tc.method, tc.path, nil, ""); rec.Code != http.StatusNotFound {
			t.Errorf("%s %s: expected 404, got %d", tc.method, tc.path, rec.Code)
		}
	}
}

func TestTaggerStats_Unavailable(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/stats/tagger", nil, "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"letter.xml":       "letter.xml",
		"../../etc/passwd": "passwd",
		"dir/sub/file.tei": "file.tei",
		"":                 "unnamed",
		"a..b.xml":         "a_b.xml",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q): expected %q, got %q", in, want, got)
		}
	}
}
