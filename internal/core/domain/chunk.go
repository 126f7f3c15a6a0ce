package domain

import (
	"fmt"
	"time"
)

// DefaultCollection is the collection name used when none is specified.
const DefaultCollection = "default"

// Chunk is the unit of retrieval: a bounded, provenance-tagged fragment
// of source text. Chunks are immutable once indexed.
type Chunk struct {
	// ID is unique within a collection and assigned monotonically at
	// insertion time, so ascending ID equals insertion order.
	ID int64 `json:"id"`

	// Source is the path of the document the chunk was produced from.
	Source string `json:"source"`

	// Page is the 1-based page number for paginated sources.
	// Zero means the source has no page structure.
	Page int `json:"page,omitempty"`

	// Sequence is the position of this chunk among the chunks produced
	// from the same source document.
	Sequence int `json:"sequence"`

	// Text is the chunk content. Never empty for an indexed chunk.
	Text string `json:"text"`

	// Embedding is the vector representation. Nil until the chunk has
	// been embedded; its length matches the collection dimensionality
	// once set.
	Embedding []float32 `json:"-"`
}

// Citation renders the chunk provenance the way answers cite it,
// e.g. "notes.md" or "paper.pdf, p.3".
func (c Chunk) Citation() string {
	if c.Page > 0 {
		return fmt.Sprintf("%s, p.%d", c.Source, c.Page)
	}
	return c.Source
}

// CollectionInfo summarises one persisted collection.
type CollectionInfo struct {
	// Name is the collection's unique key.
	Name string `json:"name"`

	// Chunks is the number of indexed chunks.
	Chunks int `json:"chunks"`

	// Model is the embedding model tag the collection was built with.
	Model string `json:"model,omitempty"`

	// Dimensions is the fixed embedding dimensionality, 0 before the
	// first vector is added.
	Dimensions int `json:"dimensions,omitempty"`

	// CreatedAt is when the collection was first written to disk.
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// RawDocument is plain text extracted by a document loader, before
// chunking. One file may yield several raw documents (one per page).
type RawDocument struct {
	// Text is the extracted plain text.
	Text string `json:"text"`

	// Source is the originating file path.
	Source string `json:"source"`

	// Page is the 1-based page number, 0 for unpaginated formats.
	Page int `json:"page,omitempty"`
}
