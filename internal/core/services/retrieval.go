package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/stackpine/ragcell/internal/core/domain"
	"github.com/stackpine/ragcell/internal/core/ports/driven"
	"github.com/stackpine/ragcell/internal/core/ports/driving"
	"github.com/stackpine/ragcell/internal/logger"
)

// Ensure Retrieval implements the interface.
var _ driving.RetrievalService = (*Retrieval)(nil)

// DefaultTopK is the number of chunks returned when the caller does not
// say how many it wants.
const DefaultTopK = 5

const answerPrompt = `You are a helpful assistant. Answer the question using ONLY the context provided below.
If the context does not contain enough information, say so clearly, do not make things up.

Context:
%s

Question: %s

Answer:`

// Retrieval answers questions over a collection by embedding the query,
// fetching a candidate pool from the vector index, selecting a diverse
// subset by maximal marginal relevance and grounding the language model
// on it.
type Retrieval struct {
	embedder  driven.EmbeddingService
	generator driven.GenerationService
	store     driven.ChunkStore
}

// NewRetrieval creates a retrieval service. The generator may be nil
// when only Retrieve is used.
func NewRetrieval(
	embedder driven.EmbeddingService,
	generator driven.GenerationService,
	store driven.ChunkStore,
) *Retrieval {
	return &Retrieval{
		embedder:  embedder,
		generator: generator,
		store:     store,
	}
}

// Retrieve returns the diversity-ranked chunks most relevant to the
// query. The result carries each chunk's similarity to the query; its
// order is the final ranking.
func (s *Retrieval) Retrieve(ctx context.Context, collection, query string, opts domain.RetrievalOptions) ([]domain.ScoredChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is empty: %w", domain.ErrInvalidInput)
	}
	topK, fetchK := normalize(opts)
	logger.Phase("retrieval")

	qvec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.store.Search(ctx, collection, qvec, fetchK)
	if err != nil {
		return nil, fmt.Errorf("search collection %s: %w", collection, err)
	}
	logger.Debug("fetched %d candidate(s) from %s", len(hits), collection)
	if len(hits) == 0 {
		return nil, nil
	}

	selected := selectMMR(hits, topK, opts.Lambda)

	ids := make([]int64, len(selected))
	score := make(map[int64]float64, len(selected))
	for i, h := range selected {
		ids[i] = h.ChunkID
		score[h.ChunkID] = h.Similarity
	}
	chunks, err := s.store.Chunks(ctx, collection, ids)
	if err != nil {
		return nil, fmt.Errorf("load chunks from %s: %w", collection, err)
	}

	results := make([]domain.ScoredChunk, len(chunks))
	for i, c := range chunks {
		results[i] = domain.ScoredChunk{Chunk: c, Score: score[c.ID]}
	}
	return results, nil
}

// Ask retrieves context for the question and streams a grounded answer.
// Sources are in the result immediately; tokens arrive on the channel
// until Done, an Err token, or ctx cancellation.
func (s *Retrieval) Ask(ctx context.Context, collection, question string, opts domain.RetrievalOptions) (*domain.AskResult, error) {
	sources, err := s.Retrieve(ctx, collection, question, opts)
	if err != nil {
		return nil, err
	}

	prompt := buildPrompt(question, sources)
	logger.Debug("prompting with %d source chunk(s)", len(sources))

	tokens, err := s.generator.Stream(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	return &domain.AskResult{Sources: sources, Tokens: tokens}, nil
}

// normalize resolves the requested result and pool sizes. Lambda passes
// through untouched; 0 is legal and means pure diversity.
func normalize(opts domain.RetrievalOptions) (topK, fetchK int) {
	topK = opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	fetchK = opts.FetchK
	if fetchK <= 0 {
		fetchK = 3 * topK
	}
	if fetchK < topK {
		fetchK = topK
	}
	return topK, fetchK
}

// buildPrompt formats the retrieved chunks as cited context blocks and
// wraps them with the question in the answer template.
func buildPrompt(question string, sources []domain.ScoredChunk) string {
	blocks := make([]string, len(sources))
	for i, s := range sources {
		blocks[i] = fmt.Sprintf("[%s]\n%s", s.Chunk.Citation(), s.Chunk.Text)
	}
	return fmt.Sprintf(answerPrompt, strings.Join(blocks, "\n\n---\n\n"), question)
}
