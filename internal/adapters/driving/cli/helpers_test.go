package cli

import (
	"bytes"
	"context"
	"errors"

	"github.com/stackpine/ragcell/internal/core/domain"
	"github.com/stackpine/ragcell/internal/core/ports/driven"
)

// stubIndexer implements driving.IndexerService for testing.
type stubIndexer struct {
	report    domain.IndexReport
	err       error
	lastPath  string
	lastColl  string
	callCount int
}

func (s *stubIndexer) Index(_ context.Context, collection, path string) (domain.IndexReport, error) {
	s.callCount++
	s.lastColl = collection
	s.lastPath = path
	report := s.report
	report.Collection = collection
	return report, s.err
}

// stubRetrieval implements driving.RetrievalService for testing.
type stubRetrieval struct {
	sources  []domain.ScoredChunk
	tokens   []string
	err      error
	lastColl string
	lastOpts domain.RetrievalOptions
}

func (s *stubRetrieval) Retrieve(_ context.Context, collection, _ string, opts domain.RetrievalOptions) ([]domain.ScoredChunk, error) {
	s.lastColl = collection
	s.lastOpts = opts
	return s.sources, s.err
}

func (s *stubRetrieval) Ask(ctx context.Context, collection, question string, opts domain.RetrievalOptions) (*domain.AskResult, error) {
	if _, err := s.Retrieve(ctx, collection, question, opts); err != nil {
		return nil, err
	}
	ch := make(chan domain.StreamToken, len(s.tokens)+1)
	for _, tok := range s.tokens {
		ch <- domain.StreamToken{Content: tok}
	}
	ch <- domain.StreamToken{Done: true}
	close(ch)
	return &domain.AskResult{Sources: s.sources, Tokens: ch}, nil
}

// stubStore implements driven.ChunkStore for testing.
type stubStore struct {
	infos      []domain.CollectionInfo
	deleted    []string
	deletedAll bool
	err        error
}

func (s *stubStore) Search(_ context.Context, _ string, _ []float32, _ int) ([]driven.VectorHit, error) {
	return nil, nil
}

func (s *stubStore) AddChunks(_ context.Context, _ string, chunks []domain.Chunk) (int, error) {
	return len(chunks), nil
}

func (s *stubStore) Chunks(_ context.Context, _ string, _ []int64) ([]domain.Chunk, error) {
	return nil, nil
}

func (s *stubStore) Count(_ context.Context, _ string) (int, error) { return 0, nil }

func (s *stubStore) List(_ context.Context) ([]domain.CollectionInfo, error) {
	return s.infos, s.err
}

func (s *stubStore) Delete(name string) error {
	s.deleted = append(s.deleted, name)
	return s.err
}

func (s *stubStore) DeleteAll() error {
	s.deletedAll = true
	return s.err
}

// setupTestServices injects stubs and returns them plus a cleanup that
// restores every package-level knob the tests touch.
func setupTestServices() (*stubIndexer, *stubRetrieval, *stubStore, func()) {
	indexer := &stubIndexer{}
	retrieval := &stubRetrieval{}
	st := &stubStore{}

	indexerService = indexer
	retrievalService = retrieval
	chunkStore = st
	servicesReady = true
	cfg.Collection = "default"
	cfg.TopK = 5
	cfg.Lambda = 0.5

	return indexer, retrieval, st, func() {
		indexerService = nil
		retrievalService = nil
		chunkStore = nil
		servicesReady = false

		indexCollection = ""
		indexJSON = false
		queryCollection = ""
		queryTopK = 0
		queryLambda = -1
		queryShowSources = false
		querySourcesOnly = false
		queryJSON = false
		queryModel = ""
		queryOutput = ""
		listJSON = false
		clearAll = false
		clearYes = false
		watchCollection = ""

		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}
}

func executeCmd(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

var errStub = errors.New("stub failure")
