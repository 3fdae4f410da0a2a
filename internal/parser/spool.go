package parser

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// spool copies r into a temp file for libraries that need a path or a
// ReaderAt with a known size. The caller must call the returned cleanup.
func spool(r io.Reader, pattern string) (*os.File, int64, func(), error) {
	tmp, err := os.CreateTemp("", pattern)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}
	size, err := io.Copy(tmp, r)
	if err != nil {
		cleanup()
		return nil, 0, nil, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return nil, 0, nil, fmt.Errorf("seek temp file: %w", err)
	}
	return tmp, size, cleanup, nil
}

// collapseSpace joins the whitespace-separated fields of s with single
// spaces, so tokens a tagger returns map back onto the plaintext without
// stray layout whitespace.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
