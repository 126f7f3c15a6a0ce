package domain

import "errors"

// Domain errors represent retrieval-engine failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDimensionMismatch indicates an embedding vector length disagrees
	// with the collection's fixed dimensionality. The add is rejected and
	// the collection is unaffected.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrCollectionModelMismatch indicates a persisted collection was
	// built with a different embedding model than the one configured.
	// The load is refused; no partial state is exposed.
	ErrCollectionModelMismatch = errors.New("collection embedding model mismatch")

	// ErrCollectionCorrupt indicates persisted collection state could not
	// be decoded. The store does not attempt repair.
	ErrCollectionCorrupt = errors.New("collection data corrupt")

	// ErrEmbeddingUnavailable indicates the embedding service cannot be
	// reached. Indexing stops at the first such failure; chunks already
	// committed stay committed.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrGenerationUnavailable indicates the generation service cannot be
	// reached. Retrieved sources remain valid regardless.
	ErrGenerationUnavailable = errors.New("generation service unavailable")
)
