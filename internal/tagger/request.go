package tagger

import "github.com/dgallion1/annomerge/internal/doctree"

// Request is the body posted to the tagger for one chunk of plaintext.
// Document and Section only give the tagger context; the text is tagged
// verbatim.
type Request struct {
	Document string   `json:"document,omitempty"`
	Section  []string `json:"section,omitempty"`
	Language string   `json:"language,omitempty"`
	Text     string   `json:"text"`
}

// ChunkRequest builds the request for one chunk of a document.
func ChunkRequest(docTitle, language string, chunk doctree.Chunk) Request {
	return Request{
		Document: docTitle,
		Section:  chunk.Breadcrumb,
		Language: language,
		Text:     chunk.Text,
	}
}
