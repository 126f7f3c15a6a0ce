package services

import (
	"context"
	"fmt"

	"github.com/stackpine/ragcell/internal/chunker"
	"github.com/stackpine/ragcell/internal/core/domain"
	"github.com/stackpine/ragcell/internal/core/ports/driven"
	"github.com/stackpine/ragcell/internal/core/ports/driving"
	"github.com/stackpine/ragcell/internal/logger"
)

// Ensure Indexer implements the interface.
var _ driving.IndexerService = (*Indexer)(nil)

// Indexer turns files into embedded chunks inside a collection.
type Indexer struct {
	loader   driven.DocumentLoader
	embedder driven.EmbeddingService
	store    driven.ChunkStore
	splitter *chunker.Splitter
}

// NewIndexer creates an indexer. A nil splitter gets the default
// chunk size and overlap.
func NewIndexer(
	loader driven.DocumentLoader,
	embedder driven.EmbeddingService,
	store driven.ChunkStore,
	splitter *chunker.Splitter,
) *Indexer {
	if splitter == nil {
		splitter = chunker.New()
	}
	return &Indexer{
		loader:   loader,
		embedder: embedder,
		store:    store,
		splitter: splitter,
	}
}

// Index loads path, splits it, embeds the chunks and stores them in the
// named collection. Each source file is committed as one unit, so an
// embedding failure midway leaves the files committed before it fully
// indexed and the failing file absent; the report counts the committed
// state.
func (s *Indexer) Index(ctx context.Context, collection, path string) (domain.IndexReport, error) {
	report := domain.IndexReport{Collection: collection}

	docs, skipped, err := s.loader.Load(ctx, path)
	report.Skipped = skipped
	if err != nil {
		return report, fmt.Errorf("load %s: %w", path, err)
	}
	logger.Phase("indexing")
	logger.Debug("loaded %d document(s) from %s, %d skipped", len(docs), path, len(skipped))

	for _, group := range groupBySource(docs) {
		chunks := s.splitSource(group)
		if len(chunks) == 0 {
			logger.Debug("no chunks from %s, skipping", group[0].Source)
			continue
		}

		if err := s.embedChunks(ctx, chunks); err != nil {
			return report, fmt.Errorf("embed %s: %w", group[0].Source, err)
		}

		n, err := s.store.AddChunks(ctx, collection, chunks)
		if err != nil {
			return report, fmt.Errorf("store %s: %w", group[0].Source, err)
		}
		report.Files++
		report.Chunks += n
		logger.Debug("indexed %s: %d chunk(s)", group[0].Source, n)
	}
	return report, nil
}

// splitSource splits every page of one source file, numbering chunks
// with a single ascending sequence across pages.
func (s *Indexer) splitSource(docs []domain.RawDocument) []domain.Chunk {
	var chunks []domain.Chunk
	seq := 0
	for _, doc := range docs {
		for _, frag := range s.splitter.Split(doc.Text) {
			chunks = append(chunks, domain.Chunk{
				Source:   doc.Source,
				Page:     doc.Page,
				Sequence: seq,
				Text:     frag.Text,
			})
			seq++
		}
	}
	return chunks
}

func (s *Indexer) embedChunks(ctx context.Context, chunks []domain.Chunk) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedding count %d does not match chunk count %d: %w",
			len(embeddings), len(chunks), domain.ErrEmbeddingUnavailable)
	}
	for i := range chunks {
		chunks[i].Embedding = embeddings[i]
	}
	return nil
}

// groupBySource collects consecutive documents sharing a source path.
// The loader emits documents sorted by path with pages ascending, so
// one run per file.
func groupBySource(docs []domain.RawDocument) [][]domain.RawDocument {
	var groups [][]domain.RawDocument
	for _, doc := range docs {
		if n := len(groups); n > 0 && groups[n-1][0].Source == doc.Source {
			groups[n-1] = append(groups[n-1], doc)
			continue
		}
		groups = append(groups, []domain.RawDocument{doc})
	}
	return groups
}
