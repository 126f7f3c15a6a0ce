package driven

import (
	"context"

	"github.com/stackpine/ragcell/internal/core/domain"
)

// ChunkStore persists chunks and their embeddings in named collections.
// Collections come into existence on first write; reads against a
// collection that was never written behave as reads of an empty one.
type ChunkStore interface {
	VectorSearcher

	// AddChunks stores chunks in the named collection, creating it on
	// first write. Returns how many chunks were stored.
	AddChunks(ctx context.Context, collection string, chunks []domain.Chunk) (int, error)

	// Chunks materializes stored chunks by ID, in the order the IDs
	// were given. Unknown IDs are skipped.
	Chunks(ctx context.Context, collection string, ids []int64) ([]domain.Chunk, error)

	// Count returns the number of chunks in the named collection, 0
	// when it does not exist.
	Count(ctx context.Context, collection string) (int, error)

	// List enumerates persisted collections sorted by name.
	List(ctx context.Context) ([]domain.CollectionInfo, error)

	// Delete removes one collection and all its data. Deleting a
	// collection that does not exist is not an error.
	Delete(name string) error

	// DeleteAll removes every collection.
	DeleteAll() error
}
