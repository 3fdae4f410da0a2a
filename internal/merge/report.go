package merge

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrStructuralMerge is returned (wrapped) when a token cannot be wrapped
// without corrupting the tree. It is fatal for the document being merged.
var ErrStructuralMerge = errors.New("structural merge failed")

// MergeError identifies the word form that could not be merged.
type MergeError struct {
	WordFormID string
	Literal    string
	Offset     int
	Reason     string
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("structural merge failed for %s %q at offset %d: %s",
		e.WordFormID, e.Literal, e.Offset, e.Reason)
}

func (e *MergeError) Unwrap() error { return ErrStructuralMerge }

// MismatchKind classifies a recoverable tokenization mismatch.
type MismatchKind string

const (
	KindOverlap      MismatchKind = "overlap"
	KindWordConflict MismatchKind = "word-conflict"
	KindUncovered    MismatchKind = "uncovered"
	KindBoundary     MismatchKind = "boundary"
	KindLiteral      MismatchKind = "literal"
	KindPunctAnomaly MismatchKind = "punct-anomaly"
)

// Mismatch describes a word form that did not line up with the document.
// Text is what the document holds at the word form's span.
type Mismatch struct {
	Kind       MismatchKind `json:"kind"`
	WordFormID string       `json:"wordform_id"`
	Literal    string       `json:"literal"`
	Text       string       `json:"text,omitempty"`
	Offset     int          `json:"offset"`
}

// Reporter receives mismatches as they are found.
type Reporter interface {
	Report(Mismatch)
}

// LogReporter forwards mismatches to a structured logger.
type LogReporter struct {
	Log *slog.Logger
}

func (r LogReporter) Report(m Mismatch) {
	log := r.Log
	if log == nil {
		log = slog.Default()
	}
	log.Warn("tokenization mismatch",
		"kind", m.Kind,
		"wordform_id", m.WordFormID,
		"literal", m.Literal,
		"text", m.Text,
		"offset", m.Offset,
	)
}

// Collector accumulates mismatches. It is safe for concurrent use.
type Collector struct {
	mu         sync.Mutex
	mismatches []Mismatch
}

func (c *Collector) Report(m Mismatch) {
	c.mu.Lock()
	c.mismatches = append(c.mismatches, m)
	c.mu.Unlock()
}

// Mismatches returns a copy of what has been collected.
func (c *Collector) Mismatches() []Mismatch {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Mismatch, len(c.mismatches))
	copy(out, c.mismatches)
	return out
}

// Report summarizes one merge.
type Report struct {
	Inserted   int        `json:"inserted"`
	Rewritten  int        `json:"rewritten"`
	Deleted    int        `json:"deleted"`
	Skipped    int        `json:"skipped"`
	Mismatches []Mismatch `json:"mismatches,omitempty"`
}
