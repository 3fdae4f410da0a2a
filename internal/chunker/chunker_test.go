package chunker

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dgallion1/annomerge/internal/doctree"
)

func joined(chunks []doctree.Chunk) string {
	var sb strings.Builder
	for _, c := range chunks {
		sb.WriteString(c.Text)
	}
	return sb.String()
}

func TestChunkDocument_SmallDocFitsOneChunk(t *testing.T) {
	doc := &doctree.Document{Title: "Small"}
	doc.AddBlock(doctree.KindHeading, 1, "Section", 0)
	doc.AddBlock(doctree.KindParagraph, 0, strings.Repeat("word ", 200), 0)

	chunks := ChunkDocument(doc, Config{ChunkSize: 1500})

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Index != 0 || chunks[0].Offset != 0 {
		t.Errorf("expected index 0 at offset 0, got %d at %d", chunks[0].Index, chunks[0].Offset)
	}
	if chunks[0].Text != doc.Plaintext {
		t.Errorf("expected the chunk to hold the whole plaintext")
	}
}

func TestChunkDocument_LargeDocRequiresSplitting(t *testing.T) {
	// ~2700 words -> ~3590 tokens at 1.33 tokens/word.
	doc := &doctree.Document{Title: "Large"}
	doc.AddBlock(doctree.KindParagraph, 0, strings.Repeat("The quick brown fox jumps over the lazy dog. ", 300), 0)

	cfg := Config{ChunkSize: 500}
	chunks := ChunkDocument(doc, cfg)

	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks for large text, got %d", len(chunks))
	}
	if joined(chunks) != doc.Plaintext {
		t.Fatal("expected chunks to concatenate to the plaintext")
	}

	offset := 0
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d: expected index %d, got %d", i, i, c.Index)
		}
		if c.Offset != offset {
			t.Errorf("chunk %d: expected offset %d, got %d", i, offset, c.Offset)
		}
		offset += len(c.Text)
		if tokens := EstimateTokens(c.Text); tokens > cfg.ChunkSize {
			t.Errorf("chunk %d: %d tokens exceeds target %d", i, tokens, cfg.ChunkSize)
		}
		// Sentence splitting: every chunk after the first starts a sentence.
		if i > 0 && !strings.HasPrefix(c.Text, "The quick") {
			t.Errorf("chunk %d: expected a sentence start, got %q", i, c.Text[:20])
		}
	}
}

func TestChunkDocument_CutsAtBlockStarts(t *testing.T) {
	doc := &doctree.Document{}
	for range 3 {
		doc.AddBlock(doctree.KindParagraph, 0, strings.TrimSpace(strings.Repeat("lorem ", 40)), 0)
	}

	chunks := ChunkDocument(doc, Config{ChunkSize: 60})

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Offset != doc.Blocks[i].Offset {
			t.Errorf("chunk %d: expected offset %d, got %d", i, doc.Blocks[i].Offset, c.Offset)
		}
	}
	if !strings.HasSuffix(chunks[0].Text, "\n\n") {
		t.Errorf("expected block separator to stay with the preceding chunk, got %q", chunks[0].Text)
	}
	if joined(chunks) != doc.Plaintext {
		t.Error("expected chunks to concatenate to the plaintext")
	}
}

func TestChunkDocument_WordFallback(t *testing.T) {
	// No sentence marks at all: pieces are cut between words.
	doc := &doctree.Document{Plaintext: strings.Repeat("abc ", 100)}

	chunks := ChunkDocument(doc, Config{ChunkSize: 20})

	if len(chunks) < 5 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if !strings.HasPrefix(c.Text, "abc") {
			t.Errorf("chunk %d: expected a word start, got %q", i, c.Text)
		}
	}
	if joined(chunks) != doc.Plaintext {
		t.Error("expected chunks to concatenate to the plaintext")
	}
}

func TestChunkDocument_Breadcrumbs(t *testing.T) {
	doc := &doctree.Document{}
	doc.AddBlock(doctree.KindHeading, 1, "Chapter 1", 0)
	doc.AddBlock(doctree.KindHeading, 2, "Section 1.1", 0)
	doc.AddBlock(doctree.KindParagraph, 0, strings.TrimSpace(strings.Repeat("alpha ", 100)), 0)
	doc.AddBlock(doctree.KindHeading, 2, "Section 1.2", 0)
	doc.AddBlock(doctree.KindParagraph, 0, strings.TrimSpace(strings.Repeat("beta ", 100)), 0)

	chunks := ChunkDocument(doc, Config{ChunkSize: 150})

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if diff := cmp.Diff([]string{"Chapter 1"}, chunks[0].Breadcrumb); diff != "" {
		t.Errorf("chunk 0 breadcrumb (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Chapter 1", "Section 1.2"}, chunks[1].Breadcrumb); diff != "" {
		t.Errorf("chunk 1 breadcrumb (-want +got):\n%s", diff)
	}
}

func TestChunkDocument_Pages(t *testing.T) {
	doc := &doctree.Document{}
	doc.AddBlock(doctree.KindParagraph, 0, "page one", 1)
	doc.AddBlock(doctree.KindParagraph, 0, "page two", 2)

	chunks := ChunkDocument(doc, DefaultConfig())

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].PageStart != 1 || chunks[0].PageEnd != 2 {
		t.Errorf("expected pages 1-2, got %d-%d", chunks[0].PageStart, chunks[0].PageEnd)
	}
}

func TestChunkDocument_EmptyDocument(t *testing.T) {
	chunks := ChunkDocument(&doctree.Document{Title: "Empty"}, DefaultConfig())
	if len(chunks) != 0 {
		t.Errorf("expected 0 chunks, got %d", len(chunks))
	}
}

func TestChunkDocument_DefaultConfigFallback(t *testing.T) {
	doc := &doctree.Document{Plaintext: strings.Repeat("word ", 200)}
	chunks := ChunkDocument(doc, Config{})
	if len(chunks) != 1 {
		t.Errorf("expected 1 chunk with zero config (defaults applied), got %d", len(chunks))
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"x", 1},
		{"   ", 1},
		{"one two three", 3},
		{strings.Repeat("word ", 100), 133},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%q): expected %d, got %d", tt.text, tt.want, got)
		}
	}
}
