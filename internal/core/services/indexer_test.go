package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackpine/ragcell/internal/chunker"
	"github.com/stackpine/ragcell/internal/core/domain"
	"github.com/stackpine/ragcell/internal/core/ports/driven"
)

// --- Fake implementations ---

// fakeLoader implements driven.DocumentLoader for testing.
type fakeLoader struct {
	docs    []domain.RawDocument
	skipped []string
	err     error
}

func (f *fakeLoader) Load(_ context.Context, _ string) ([]domain.RawDocument, []string, error) {
	if f.err != nil {
		return nil, f.skipped, f.err
	}
	return f.docs, f.skipped, nil
}

func (f *fakeLoader) SupportedExtensions() []string {
	return []string{".txt", ".md", ".pdf"}
}

// fakeEmbedder implements driven.EmbeddingService for testing. It
// embeds every text as the same fixed vector and can be told to fail
// from the nth EmbedBatch call on.
type fakeEmbedder struct {
	vec       []float32
	batchErr  error
	failAfter int // fail EmbedBatch calls numbered > failAfter (1-based); 0 means never
	calls     int
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if f.batchErr != nil && f.failAfter == 0 {
		return nil, f.batchErr
	}
	return f.vec, nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.batchErr != nil && (f.failAfter == 0 || f.calls > f.failAfter) {
		return nil, f.batchErr
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return len(f.vec) }

func (f *fakeEmbedder) ModelName() string { return "fake-embed" }

func (f *fakeEmbedder) Ping(_ context.Context) error { return nil }

// fakeStore implements driven.ChunkStore in memory for testing.
type fakeStore struct {
	mu       sync.Mutex
	byColl   map[string][]domain.Chunk
	nextID   int64
	addErr   error
	addCalls int

	hits      []driven.VectorHit
	searchErr error
	lastN     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{byColl: make(map[string][]domain.Chunk), nextID: 1}
}

func (f *fakeStore) AddChunks(_ context.Context, collection string, chunks []domain.Chunk) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalls++
	if f.addErr != nil {
		return 0, f.addErr
	}
	for _, c := range chunks {
		c.ID = f.nextID
		f.nextID++
		f.byColl[collection] = append(f.byColl[collection], c)
	}
	return len(chunks), nil
}

func (f *fakeStore) Chunks(_ context.Context, collection string, ids []int64) ([]domain.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	byID := make(map[int64]domain.Chunk)
	for _, c := range f.byColl[collection] {
		byID[c.ID] = c
	}
	var out []domain.Chunk
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) Count(_ context.Context, collection string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byColl[collection]), nil
}

func (f *fakeStore) Search(_ context.Context, _ string, _ []float32, n int) ([]driven.VectorHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastN = n
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if n > len(f.hits) {
		n = len(f.hits)
	}
	return f.hits[:n], nil
}

func (f *fakeStore) List(_ context.Context) ([]domain.CollectionInfo, error) { return nil, nil }

func (f *fakeStore) Delete(_ string) error { return nil }

func (f *fakeStore) DeleteAll() error { return nil }

// --- Tests ---

func TestIndex_SingleFile(t *testing.T) {
	loader := &fakeLoader{docs: []domain.RawDocument{
		{Source: "notes.txt", Text: "alpha beta gamma"},
	}}
	store := newFakeStore()
	idx := NewIndexer(loader, &fakeEmbedder{vec: []float32{1, 0}}, store, nil)

	report, err := idx.Index(context.Background(), "docs", "notes.txt")

	require.NoError(t, err)
	assert.Equal(t, "docs", report.Collection)
	assert.Equal(t, 1, report.Files)
	assert.Equal(t, 1, report.Chunks)
	assert.Empty(t, report.Skipped)

	stored := store.byColl["docs"]
	require.Len(t, stored, 1)
	assert.Equal(t, "notes.txt", stored[0].Source)
	assert.Equal(t, "alpha beta gamma", stored[0].Text)
	assert.Equal(t, []float32{1, 0}, stored[0].Embedding)
}

func TestIndex_ReportsSkippedFiles(t *testing.T) {
	loader := &fakeLoader{
		docs:    []domain.RawDocument{{Source: "a.txt", Text: "content"}},
		skipped: []string{"image.png", "archive.zip"},
	}
	idx := NewIndexer(loader, &fakeEmbedder{vec: []float32{1, 0}}, newFakeStore(), nil)

	report, err := idx.Index(context.Background(), "docs", ".")

	require.NoError(t, err)
	assert.Equal(t, []string{"image.png", "archive.zip"}, report.Skipped)
}

func TestIndex_NothingToIndex(t *testing.T) {
	store := newFakeStore()
	idx := NewIndexer(&fakeLoader{}, &fakeEmbedder{vec: []float32{1, 0}}, store, nil)

	report, err := idx.Index(context.Background(), "docs", "empty-dir")

	require.NoError(t, err)
	assert.Zero(t, report.Files)
	assert.Zero(t, report.Chunks)
	assert.Zero(t, store.addCalls)
}

func TestIndex_LoaderErrorPropagates(t *testing.T) {
	loader := &fakeLoader{err: fmt.Errorf("no such path: %w", domain.ErrNotFound)}
	idx := NewIndexer(loader, &fakeEmbedder{vec: []float32{1, 0}}, newFakeStore(), nil)

	_, err := idx.Index(context.Background(), "docs", "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIndex_EmbeddingFailureKeepsCommittedFiles(t *testing.T) {
	loader := &fakeLoader{docs: []domain.RawDocument{
		{Source: "a.txt", Text: "first file"},
		{Source: "b.txt", Text: "second file"},
	}}
	embedder := &fakeEmbedder{
		vec:       []float32{1, 0},
		batchErr:  domain.ErrEmbeddingUnavailable,
		failAfter: 1, // first file embeds, second fails
	}
	store := newFakeStore()
	idx := NewIndexer(loader, embedder, store, nil)

	report, err := idx.Index(context.Background(), "docs", ".")

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Equal(t, 1, report.Files)
	assert.Equal(t, 1, report.Chunks)
	require.Len(t, store.byColl["docs"], 1)
	assert.Equal(t, "a.txt", store.byColl["docs"][0].Source)
}

func TestIndex_StoreErrorPropagates(t *testing.T) {
	loader := &fakeLoader{docs: []domain.RawDocument{{Source: "a.txt", Text: "content"}}}
	store := newFakeStore()
	store.addErr = domain.ErrDimensionMismatch
	idx := NewIndexer(loader, &fakeEmbedder{vec: []float32{1, 0}}, store, nil)

	_, err := idx.Index(context.Background(), "docs", ".")

	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestIndex_PagedSourceIsOneUnitWithRunningSequence(t *testing.T) {
	loader := &fakeLoader{docs: []domain.RawDocument{
		{Source: "paper.pdf", Page: 1, Text: "page one text"},
		{Source: "paper.pdf", Page: 2, Text: "page two text"},
	}}
	store := newFakeStore()
	idx := NewIndexer(loader, &fakeEmbedder{vec: []float32{1, 0}}, store, nil)

	report, err := idx.Index(context.Background(), "docs", "paper.pdf")

	require.NoError(t, err)
	assert.Equal(t, 1, report.Files, "pages of one file count as one file")
	assert.Equal(t, 1, store.addCalls, "one file commits as one unit")

	stored := store.byColl["docs"]
	require.Len(t, stored, 2)
	assert.Equal(t, 1, stored[0].Page)
	assert.Equal(t, 0, stored[0].Sequence)
	assert.Equal(t, 2, stored[1].Page)
	assert.Equal(t, 1, stored[1].Sequence)
}

func TestIndex_LongTextSplitsIntoMultipleChunks(t *testing.T) {
	text := ""
	for range 40 {
		text += "This sentence pads the document out. "
	}
	loader := &fakeLoader{docs: []domain.RawDocument{{Source: "long.txt", Text: text}}}
	store := newFakeStore()
	splitter := chunker.New(chunker.WithChunkSize(200), chunker.WithOverlap(20))
	idx := NewIndexer(loader, &fakeEmbedder{vec: []float32{1, 0}}, store, splitter)

	report, err := idx.Index(context.Background(), "docs", "long.txt")

	require.NoError(t, err)
	assert.Greater(t, report.Chunks, 1)
	assert.Len(t, store.byColl["docs"], report.Chunks)
	for i, c := range store.byColl["docs"] {
		assert.Equal(t, i, c.Sequence)
		assert.NotEmpty(t, c.Embedding)
	}
}
