package pipeline

import (
	"context"
	"encoding/hex"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/dgallion1/annomerge/internal/merge"
)

// JobKind selects what a batch job does with each document.
type JobKind string

const (
	// KindTag sends each document to the tagger and aligns the result.
	KindTag JobKind = "tag"
	// KindMerge merges uploaded annotations into each document.
	KindMerge JobKind = "merge"
)

// JobStatus represents the state of a batch job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusPartial   JobStatus = "partial"
	StatusCancelled JobStatus = "cancelled"
)

// DocumentStatus is the per-document state recorded in a job manifest.
type DocumentStatus string

const (
	DocQueued   DocumentStatus = "queued"
	DocParsing  DocumentStatus = "parsing"
	DocTagging  DocumentStatus = "tagging"
	DocAligning DocumentStatus = "aligning"
	DocMerging  DocumentStatus = "merging"
	DocDone     DocumentStatus = "done"
	DocFailed   DocumentStatus = "failed"
)

// Document is one input of a batch job.
type Document struct {
	Filename    string
	Data        []byte
	Annotations []byte // merge jobs only
	AnnotName   string // filename of Annotations, selects its codec
}

// ReportSummary is the count part of a merge report.
type ReportSummary struct {
	Inserted   int `json:"inserted"`
	Rewritten  int `json:"rewritten"`
	Deleted    int `json:"deleted"`
	Skipped    int `json:"skipped"`
	Mismatches int `json:"mismatches"`
}

func summarize(r *merge.Report) *ReportSummary {
	if r == nil {
		return nil
	}
	return &ReportSummary{
		Inserted:   r.Inserted,
		Rewritten:  r.Rewritten,
		Deleted:    r.Deleted,
		Skipped:    r.Skipped,
		Mismatches: len(r.Mismatches),
	}
}

// DocumentResult is the manifest entry of one document.
type DocumentResult struct {
	ID          string         `json:"doc_id"`
	Filename    string         `json:"filename"`
	Title       string         `json:"title,omitempty"`
	Format      string         `json:"format,omitempty"`
	Status      DocumentStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	ContentHash string         `json:"content_hash,omitempty"`
	Chunks      int            `json:"chunks,omitempty"`
	Tokens      int            `json:"tokens"`
	Gaps        int            `json:"gaps"`
	Report      *ReportSummary `json:"report,omitempty"`
	OutputType  string         `json:"output_type,omitempty"`

	output []byte
}

// Job tracks the state of a batch of documents.
type Job struct {
	mu sync.Mutex

	ID       string    `json:"job_id"`
	Kind     JobKind   `json:"kind"`
	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Format   string    `json:"format,omitempty"`   // forced adapter, empty to detect
	Language string    `json:"language,omitempty"` // passed to the tagger

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	docs    []Document
	results []DocumentResult
	errors  []string
	cancel  context.CancelFunc
}

// Progress tracks processing progress.
type Progress struct {
	TotalDocuments     int      `json:"total_documents"`
	DocumentsProcessed int      `json:"documents_processed"`
	DocumentsFailed    int      `json:"documents_failed"`
	Errors             []string `json:"errors"`
}

// NewJob creates a queued job for the given documents. Document IDs are
// derived from their content.
func NewJob(kind JobKind, docs []Document) *Job {
	now := time.Now()
	j := &Job{
		ID:        uuid.New().String(),
		Kind:      kind,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
		docs:      docs,
		results:   make([]DocumentResult, len(docs)),
	}
	seen := make(map[string]int)
	for i, d := range docs {
		hash := ContentHashHex(d.Data)
		id := hash[:16]
		// Identical uploads in one batch still get distinct ids.
		if n := seen[id]; n > 0 {
			id = id + "-" + strconv.Itoa(n)
		}
		seen[hash[:16]]++
		j.results[i] = DocumentResult{
			ID:          id,
			Filename:    d.Filename,
			Status:      DocQueued,
			ContentHash: hash,
		}
	}
	j.Progress.TotalDocuments = len(docs)
	return j
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records a job-level error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// Documents returns the job inputs.
func (j *Job) Documents() []Document {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.docs
}

func (j *Job) documentID(i int) string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.results[i].ID
}

// SetDocumentStatus moves document i to a new state.
func (j *Job) SetDocumentStatus(i int, status DocumentStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.results[i].Status = status
	j.UpdatedAt = time.Now()
}

// FinishDocument records the outcome of document i. A non-nil err marks
// it failed; res carries whatever was produced before the failure.
func (j *Job) FinishDocument(i int, res DocumentResult, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	prev := j.results[i]
	res.ID, res.Filename, res.ContentHash = prev.ID, prev.Filename, prev.ContentHash
	if err != nil {
		res.Status = DocFailed
		res.Error = err.Error()
		res.output = nil
		j.Progress.DocumentsFailed++
	} else {
		res.Status = DocDone
	}
	j.results[i] = res
	j.Progress.DocumentsProcessed++
	j.UpdatedAt = time.Now()
}

// Finish sets the final job status from the document outcomes: failed when
// every document failed, partial when some did.
func (j *Job) Finish() {
	j.mu.Lock()
	defer j.mu.Unlock()
	switch {
	case j.Status == StatusCancelled:
	case j.Progress.TotalDocuments > 0 && j.Progress.DocumentsFailed == j.Progress.TotalDocuments:
		j.Status = StatusFailed
	case j.Progress.DocumentsFailed > 0 || j.Progress.DocumentsProcessed < j.Progress.TotalDocuments:
		j.Status = StatusPartial
	default:
		j.Status = StatusCompleted
	}
	j.Phase = "done"
	j.UpdatedAt = time.Now()
	j.docs = nil // inputs are no longer needed
}

// Cancel stops a queued or running job. Documents already finished keep
// their results.
func (j *Job) Cancel() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status != StatusQueued && j.Status != StatusRunning {
		return false
	}
	j.Status = StatusCancelled
	j.Phase = "cancelled"
	j.UpdatedAt = time.Now()
	if j.cancel != nil {
		j.cancel()
	}
	return true
}

// start moves a queued job to running and registers its cancel func. It
// reports false when the job was cancelled while still queued.
func (j *Job) start(cancel context.CancelFunc) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status != StatusQueued {
		return false
	}
	j.Status = StatusRunning
	j.Phase = "processing"
	j.UpdatedAt = time.Now()
	j.cancel = cancel
	return true
}

// Cancelled reports whether the job was cancelled.
func (j *Job) Cancelled() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Status == StatusCancelled
}

// Output returns the result bytes and media type of a finished document.
func (j *Job) Output(docID string) ([]byte, string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, r := range j.results {
		if r.ID == docID && r.output != nil {
			return r.output, r.OutputType, true
		}
	}
	return nil, "", false
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string           `json:"job_id"`
	Kind      JobKind          `json:"kind"`
	Status    JobStatus        `json:"status"`
	Phase     string           `json:"phase"`
	Progress  Progress         `json:"progress"`
	Documents []DocumentResult `json:"documents"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	docs := make([]DocumentResult, len(j.results))
	copy(docs, j.results)
	for i := range docs {
		docs[i].output = nil
		if docs[i].Report != nil {
			rep := *docs[i].Report
			docs[i].Report = &rep
		}
	}
	p := j.Progress
	p.Errors = errs
	return JobSnapshot{
		ID:        j.ID,
		Kind:      j.Kind,
		Status:    j.Status,
		Phase:     j.Phase,
		Progress:  p,
		Documents: docs,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

// ContentHashHex computes the BLAKE3-256 digest of content as hex.
func ContentHashHex(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}
