package driven

import "context"

// VectorSearcher provides semantic similarity candidates for a query
// vector. Backed by an exact cosine-similarity scan over one collection's
// vectors.
type VectorSearcher interface {
	// Search finds the n most similar chunks to the query vector.
	// Results are strictly descending by similarity, ties broken by
	// ascending chunk ID; at most min(n, indexed count) hits.
	Search(ctx context.Context, collection string, query []float32, n int) ([]VectorHit, error)
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID int64

	// Similarity is the cosine similarity score. Comparisons involving a
	// zero vector score 0.
	Similarity float64

	// Embedding is the stored vector for the chunk, exposed so rerankers
	// can compute pairwise similarity without another index lookup.
	Embedding []float32
}
