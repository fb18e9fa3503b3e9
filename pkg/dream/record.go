// Package dream defines the journal's persistent entity.
package dream

import "encoding/json"

// Image is the descriptor handed back by the image generator, stored
// unmodified on the record.
type Image struct {
	URL string `json:"url"`
}

// Record is a single journal entry plus its derived artifacts. The entry text
// is canonical: the analysis, image and embedding all trace back to it.
//
// Analysis, Image and Embedding are independent optional facets; a record with
// none of them set is valid and merely "not yet enriched". Format changes to
// this struct must stay additive (new optional fields only) so previously
// persisted snapshots keep parsing.
type Record struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Date  string `json:"date"`
	Entry string `json:"entry"`

	Analysis  string    `json:"analysis,omitempty"`
	Image     *Image    `json:"image,omitempty"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// Clone returns a deep copy so store snapshots can be handed to callers
// without exposing internal state.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}

	out := *r

	if r.Image != nil {
		img := *r.Image
		out.Image = &img
	}

	if r.Embedding != nil {
		out.Embedding = make([]float32, len(r.Embedding))
		copy(out.Embedding, r.Embedding)
	}

	return &out
}

// Payload serializes the record for the vector index entry. The embedding is
// stripped: the index already holds the vector itself, and keeping it out of
// the payload makes store/index payload comparison cheap during reconciliation.
func (r *Record) Payload() ([]byte, error) {
	stripped := r.Clone()
	stripped.Embedding = nil
	return json.Marshal(stripped)
}
