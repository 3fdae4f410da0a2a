package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/annomerge/internal/layer"
)

// Annotations is an uploaded annotation file. A layer JSON file is already
// positioned on a plaintext; tabular files carry bare entries that still
// have to be aligned.
type Annotations struct {
	Layer   *layer.Layer
	Entries []layer.Entry
}

// AnnotationExtensions lists the annotation file types ReadAnnotations accepts.
var AnnotationExtensions = map[string]bool{
	".tsv":  true,
	".tab":  true,
	".txt":  true,
	".csv":  true,
	".json": true,
}

// ReadAnnotations reads an annotation upload, choosing the codec from the
// file extension. Unknown extensions are read as TSV.
func ReadAnnotations(r io.Reader, filename string) (*Annotations, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		l, err := layer.Decode(r)
		if err != nil {
			return nil, err
		}
		return &Annotations{Layer: l}, nil
	case ".csv":
		entries, err := layer.ReadEntries(r, ',')
		if err != nil {
			return nil, fmt.Errorf("read csv annotations: %w", err)
		}
		return &Annotations{Entries: entries}, nil
	default:
		entries, err := layer.ReadEntries(r, '\t')
		if err != nil {
			return nil, fmt.Errorf("read tsv annotations: %w", err)
		}
		return &Annotations{Entries: entries}, nil
	}
}
