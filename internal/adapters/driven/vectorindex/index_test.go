package vectorindex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackpine/ragcell/internal/core/domain"
)

func TestAdd_FirstVectorFixesDimensionality(t *testing.T) {
	ix := New("test-model")

	require.NoError(t, ix.Add(1, []float32{1, 0, 0}))
	assert.Equal(t, 3, ix.Dimensions())
	assert.Equal(t, 1, ix.Len())
}

func TestAdd_RejectsDimensionMismatch(t *testing.T) {
	ix := New("test-model")
	require.NoError(t, ix.Add(1, []float32{1, 0, 0}))

	err := ix.Add(2, []float32{1, 0})

	require.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.Equal(t, 1, ix.Len(), "failed add must not change the index")
}

func TestAdd_RejectsEmptyEmbedding(t *testing.T) {
	ix := New("test-model")

	assert.ErrorIs(t, ix.Add(1, nil), domain.ErrInvalidInput)
}

func TestSearch_OrdersByDescendingSimilarity(t *testing.T) {
	ix := New("test-model")
	require.NoError(t, ix.Add(1, []float32{1, 0}))
	require.NoError(t, ix.Add(2, []float32{0, 1}))
	require.NoError(t, ix.Add(3, []float32{1, 1}))

	hits := ix.Search([]float32{1, 0}, 3)

	require.Len(t, hits, 3)
	assert.Equal(t, int64(1), hits[0].ChunkID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-9)
	assert.Equal(t, int64(3), hits[1].ChunkID)
	assert.Equal(t, int64(2), hits[2].ChunkID)
	for i := 1; i < len(hits); i++ {
		assert.Less(t, hits[i].Similarity, hits[i-1].Similarity)
	}
}

func TestSearch_TiesBreakByAscendingChunkID(t *testing.T) {
	ix := New("test-model")
	// Insert out of ID order; identical vectors score identically.
	require.NoError(t, ix.Add(9, []float32{1, 0}))
	require.NoError(t, ix.Add(2, []float32{1, 0}))
	require.NoError(t, ix.Add(5, []float32{1, 0}))

	hits := ix.Search([]float32{1, 0}, 3)

	require.Len(t, hits, 3)
	assert.Equal(t, []int64{2, 5, 9}, []int64{hits[0].ChunkID, hits[1].ChunkID, hits[2].ChunkID})
}

func TestSearch_ReturnsAtMostMinOfNAndCount(t *testing.T) {
	ix := New("test-model")
	require.NoError(t, ix.Add(1, []float32{1, 0}))
	require.NoError(t, ix.Add(2, []float32{0, 1}))

	assert.Len(t, ix.Search([]float32{1, 1}, 10), 2)
	assert.Len(t, ix.Search([]float32{1, 1}, 1), 1)
	assert.Empty(t, ix.Search([]float32{1, 1}, 0))
}

func TestSearch_EmptyIndexReturnsEmpty(t *testing.T) {
	ix := New("test-model")

	assert.Empty(t, ix.Search([]float32{1, 0}, 5))
}

func TestSearch_ZeroVectorsScoreZero(t *testing.T) {
	ix := New("test-model")
	require.NoError(t, ix.Add(1, []float32{0, 0}))
	require.NoError(t, ix.Add(2, []float32{1, 0}))

	hits := ix.Search([]float32{1, 0}, 2)

	require.Len(t, hits, 2)
	assert.Equal(t, int64(2), hits[0].ChunkID)
	assert.Equal(t, 0.0, hits[1].Similarity)

	// Zero query compares as 0 against everything, ordered by ID.
	zeroHits := ix.Search([]float32{0, 0}, 2)
	require.Len(t, zeroHits, 2)
	assert.Equal(t, int64(1), zeroHits[0].ChunkID)
	assert.Equal(t, 0.0, zeroHits[0].Similarity)
}

func TestRemove_DropsOnlyGivenIDs(t *testing.T) {
	ix := New("test-model")
	require.NoError(t, ix.Add(1, []float32{1, 0}))
	require.NoError(t, ix.Add(2, []float32{0, 1}))
	require.NoError(t, ix.Add(3, []float32{1, 1}))

	ix.Remove([]int64{2, 42})

	assert.Equal(t, 2, ix.Len())
	hits := ix.Search([]float32{0, 1}, 3)
	for _, h := range hits {
		assert.NotEqual(t, int64(2), h.ChunkID)
	}
}

func TestRemoveAll_ClearsIndex(t *testing.T) {
	ix := New("test-model")
	require.NoError(t, ix.Add(1, []float32{1, 0}))

	ix.RemoveAll()

	assert.Equal(t, 0, ix.Len())
	assert.Equal(t, 0, ix.Dimensions())
	assert.Empty(t, ix.Search([]float32{1, 0}, 5))
}

func TestSaveLoad_RoundTripReproducesSearchResults(t *testing.T) {
	ix := New("test-model")
	require.NoError(t, ix.Add(1, []float32{0.1, 0.9, 0.3}))
	require.NoError(t, ix.Add(2, []float32{0.8, 0.2, 0.5}))
	require.NoError(t, ix.Add(3, []float32{0.4, 0.4, 0.4}))

	path := filepath.Join(t.TempDir(), "index.bin")
	require.NoError(t, ix.Save(path))

	loaded, err := Load(path, "test-model")
	require.NoError(t, err)

	assert.Equal(t, ix.Len(), loaded.Len())
	assert.Equal(t, ix.Dimensions(), loaded.Dimensions())
	assert.Equal(t, "test-model", loaded.Model())

	query := []float32{0.5, 0.1, 0.9}
	assert.Equal(t, ix.Search(query, 3), loaded.Search(query, 3))
}

func TestLoad_RefusesModelMismatch(t *testing.T) {
	ix := New("nomic-embed-text")
	require.NoError(t, ix.Add(1, []float32{1, 0}))

	path := filepath.Join(t.TempDir(), "index.bin")
	require.NoError(t, ix.Save(path))

	_, err := Load(path, "all-minilm")

	assert.ErrorIs(t, err, domain.ErrCollectionModelMismatch)
}

func TestLoad_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.bin")
	require.NoError(t, os.WriteFile(path, []byte("not an index"), 0o600))

	_, err := Load(path, "test-model")

	assert.ErrorIs(t, err, domain.ErrCollectionCorrupt)
}

func TestLoad_TruncatedFile(t *testing.T) {
	ix := New("test-model")
	require.NoError(t, ix.Add(1, []float32{1, 0, 0, 0}))

	path := filepath.Join(t.TempDir(), "index.bin")
	require.NoError(t, ix.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)-6], 0o600))

	_, err = Load(path, "test-model")

	assert.ErrorIs(t, err, domain.ErrCollectionCorrupt)
}

func TestCosine_ZeroVectorConvention(t *testing.T) {
	assert.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 1}))
	assert.InDelta(t, 1.0, Cosine([]float32{2, 0}, []float32{4, 0}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
}
