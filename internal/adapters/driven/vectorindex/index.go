// Package vectorindex provides an exact in-memory nearest-neighbour index
// over one collection's embeddings, with a self-describing on-disk format.
package vectorindex

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/stackpine/ragcell/internal/core/domain"
	"github.com/stackpine/ragcell/internal/core/ports/driven"
)

// Index is a brute-force cosine-similarity index. It is a derived
// structure: the chunk set plus embeddings is authoritative, the index is
// rebuildable from it. An Index is owned by exactly one collection.
type Index struct {
	mu    sync.RWMutex
	model string
	dim   int
	ids   []int64
	vecs  [][]float32
	norms []float64
}

// New creates an empty index tagged with the embedding model identity.
// Dimensionality is fixed by the first vector added.
func New(model string) *Index {
	return &Index{model: model}
}

// Model returns the embedding model tag.
func (ix *Index) Model() string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.model
}

// Dimensions returns the fixed vector size, 0 while the index is empty
// and no dimensionality has been established.
func (ix *Index) Dimensions() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dim
}

// Len returns the number of indexed vectors.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.ids)
}

// Add inserts a vector for the given chunk ID. The first add fixes the
// index dimensionality; later vectors of a different length are rejected
// with domain.ErrDimensionMismatch and leave the index unchanged.
func (ix *Index) Add(chunkID int64, embedding []float32) error {
	if len(embedding) == 0 {
		return fmt.Errorf("adding chunk %d: empty embedding: %w", chunkID, domain.ErrInvalidInput)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.dim == 0 {
		ix.dim = len(embedding)
	} else if len(embedding) != ix.dim {
		return fmt.Errorf("adding chunk %d: got %d dimensions, index has %d: %w",
			chunkID, len(embedding), ix.dim, domain.ErrDimensionMismatch)
	}

	vec := make([]float32, len(embedding))
	copy(vec, embedding)

	ix.ids = append(ix.ids, chunkID)
	ix.vecs = append(ix.vecs, vec)
	ix.norms = append(ix.norms, norm(vec))
	return nil
}

// Search returns the n most similar chunks to the query vector, strictly
// descending by cosine similarity with ties broken by ascending chunk ID.
// An empty index or n <= 0 yields an empty result, never an error.
func (ix *Index) Search(query []float32, n int) []driven.VectorHit {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if n <= 0 || len(ix.ids) == 0 {
		return nil
	}

	qnorm := norm(query)

	hits := make([]driven.VectorHit, len(ix.ids))
	for i := range ix.ids {
		hits[i] = driven.VectorHit{
			ChunkID:    ix.ids[i],
			Similarity: cosine(query, qnorm, ix.vecs[i], ix.norms[i]),
			Embedding:  ix.vecs[i],
		}
	}

	sort.Slice(hits, func(a, b int) bool {
		if hits[a].Similarity != hits[b].Similarity {
			return hits[a].Similarity > hits[b].Similarity
		}
		return hits[a].ChunkID < hits[b].ChunkID
	})

	if n < len(hits) {
		hits = hits[:n]
	}
	return hits
}

// Remove drops the vectors for the given chunk IDs. Unknown IDs are
// ignored. Used when re-indexing replaces a source's prior chunks.
func (ix *Index) Remove(chunkIDs []int64) {
	if len(chunkIDs) == 0 {
		return
	}

	drop := make(map[int64]struct{}, len(chunkIDs))
	for _, id := range chunkIDs {
		drop[id] = struct{}{}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	keep := 0
	for i := range ix.ids {
		if _, gone := drop[ix.ids[i]]; gone {
			continue
		}
		ix.ids[keep] = ix.ids[i]
		ix.vecs[keep] = ix.vecs[i]
		ix.norms[keep] = ix.norms[i]
		keep++
	}
	ix.ids = ix.ids[:keep]
	ix.vecs = ix.vecs[:keep]
	ix.norms = ix.norms[:keep]
}

// RemoveAll clears the index but keeps its model tag and dimensionality
// contract open for reuse.
func (ix *Index) RemoveAll() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.ids = nil
	ix.vecs = nil
	ix.norms = nil
	ix.dim = 0
}

// cosine computes cosine similarity given precomputed norms.
// Comparisons involving a zero vector are defined as 0.
func cosine(a []float32, anorm float64, b []float32, bnorm float64) float64 {
	if anorm == 0 || bnorm == 0 || len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (anorm * bnorm)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Cosine reports the cosine similarity of two raw vectors, with the same
// zero-vector convention as Search. Rerankers use it for pairwise
// candidate similarity.
func Cosine(a, b []float32) float64 {
	return cosine(a, norm(a), b, norm(b))
}
