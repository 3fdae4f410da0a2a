package layer

import (
	"encoding/json"
	"fmt"
	"io"
)

type wireTerm struct {
	Lemma   string   `json:"lemma,omitempty"`
	POS     string   `json:"pos,omitempty"`
	Targets []string `json:"targets"`
}

type wireLayer struct {
	Name      string     `json:"name"`
	Tagset    string     `json:"tagset,omitempty"`
	WordForms []WordForm `json:"wordforms"`
	Terms     []wireTerm `json:"terms"`
}

// MarshalJSON encodes the layer with terms referencing word forms by id.
func (l *Layer) MarshalJSON() ([]byte, error) {
	w := wireLayer{
		Name:      l.name,
		Tagset:    l.tagset,
		WordForms: l.wordForms,
		Terms:     make([]wireTerm, len(l.terms)),
	}
	if w.WordForms == nil {
		w.WordForms = []WordForm{}
	}
	for i, t := range l.terms {
		ids := make([]string, len(t.Targets))
		for j, wf := range t.Targets {
			ids[j] = wf.ID
		}
		w.Terms[i] = wireTerm{Lemma: t.Lemma, POS: t.POS, Targets: ids}
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a layer and validates it through a Builder.
func (l *Layer) UnmarshalJSON(data []byte) error {
	var w wireLayer
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	b := NewBuilder(w.Name, w.Tagset)
	for _, wf := range w.WordForms {
		b.AddWordForm(wf)
	}
	for _, t := range w.Terms {
		b.AddTermByID(t.Lemma, t.POS, t.Targets...)
	}
	built, err := b.Build()
	if err != nil {
		return err
	}
	*l = *built
	return nil
}

// Decode reads one JSON encoded layer from r.
func Decode(r io.Reader) (*Layer, error) {
	var l Layer
	if err := json.NewDecoder(r).Decode(&l); err != nil {
		return nil, fmt.Errorf("decode layer: %w", err)
	}
	return &l, nil
}
