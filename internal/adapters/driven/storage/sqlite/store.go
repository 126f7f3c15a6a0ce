// Package sqlite persists named collections: chunk metadata in one SQLite
// database per collection, vectors in a serialized index file alongside it.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/stackpine/ragcell/internal/core/domain"
	"github.com/stackpine/ragcell/internal/core/ports/driven"
	"github.com/stackpine/ragcell/internal/logger"
)

// ReindexPolicy decides what happens when a source path is indexed again
// into a collection it already has chunks in.
type ReindexPolicy string

const (
	// PolicyReplace drops the source's prior chunks before inserting.
	// Repeated indexing never duplicates.
	PolicyReplace ReindexPolicy = "replace"

	// PolicyAppend keeps prior chunks and appends the new ones.
	PolicyAppend ReindexPolicy = "append"
)

// Valid reports whether the policy is a known value.
func (p ReindexPolicy) Valid() bool {
	return p == PolicyReplace || p == PolicyAppend
}

// Store manages named, independently persisted collections under one
// root directory. Each collection owns a subdirectory with its chunk
// database (chunks.db) and serialized vector index (index.bin).
//
// The store itself only guards its collection map; every collection has
// its own write lock, so operations on one collection never block
// another's.
type Store struct {
	root   string
	model  string
	policy ReindexPolicy

	mu   sync.Mutex
	open map[string]*Collection
}

// Ensure Store implements the vector search port.
var _ driven.VectorSearcher = (*Store)(nil)

const (
	chunkDBFile   = "chunks.db"
	indexFile     = "index.bin"
	schemaVersion = 1
)

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	id      INTEGER PRIMARY KEY,
	source  TEXT NOT NULL,
	page    INTEGER,
	seq     INTEGER NOT NULL,
	content TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source);
CREATE TABLE IF NOT EXISTS collection_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// NewStore creates a store rooted at root for collections built with the
// given embedding model tag. No directories are created until a
// collection receives its first chunk.
func NewStore(root, model string, policy ReindexPolicy) (*Store, error) {
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		root = filepath.Join(home, ".ragcell", "index")
	}
	if !policy.Valid() {
		policy = PolicyReplace
	}

	return &Store{
		root:   root,
		model:  model,
		policy: policy,
		open:   make(map[string]*Collection),
	}, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string { return s.root }

// GetOrCreate returns the handle for a named collection. Idempotent, and
// touches nothing on disk: persistence starts with the first AddChunks.
func (s *Store) GetOrCreate(name string) (*Collection, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.open[name]; ok {
		return c, nil
	}
	c := &Collection{
		name:   name,
		dir:    filepath.Join(s.root, name),
		model:  s.model,
		policy: s.policy,
	}
	s.open[name] = c
	return c, nil
}

// List returns every persisted collection with its chunk count, ordered
// by name. Collections that exist only in memory (created but never
// written) are not listed.
func (s *Store) List(ctx context.Context) ([]domain.CollectionInfo, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading index directory: %w", err)
	}

	var infos []domain.CollectionInfo
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dbPath := filepath.Join(s.root, e.Name(), chunkDBFile)
		if _, err := os.Stat(dbPath); err != nil {
			continue
		}
		info, err := readInfo(ctx, e.Name(), dbPath)
		if err != nil {
			return nil, fmt.Errorf("collection %q: %w", e.Name(), err)
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// Delete removes a collection's persisted state and in-memory structures.
// Deleting a collection that does not exist is a no-op.
func (s *Store) Delete(name string) error {
	if err := validateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	c := s.open[name]
	delete(s.open, name)
	s.mu.Unlock()

	if c != nil {
		c.mu.Lock()
		c.closeLocked()
		c.mu.Unlock()
	}

	dir := filepath.Join(s.root, name)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("deleting collection %q: %w", name, err)
	}
	logger.Debug("deleted collection %q", name)
	return nil
}

// DeleteAll removes every collection.
func (s *Store) DeleteAll() error {
	infos, err := s.List(context.Background())
	if err != nil {
		return err
	}
	for _, info := range infos {
		if err := s.Delete(info.Name); err != nil {
			return err
		}
	}

	// Drop never-persisted handles too.
	s.mu.Lock()
	s.open = make(map[string]*Collection)
	s.mu.Unlock()
	return nil
}

// Search implements driven.VectorSearcher over one collection. A
// nonexistent or empty collection yields an empty result, never an error.
func (s *Store) Search(ctx context.Context, collection string, query []float32, n int) ([]driven.VectorHit, error) {
	c, err := s.GetOrCreate(collection)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureOpenLocked(false); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return c.index.Search(query, n), nil
}

// AddChunks stores chunks in the named collection, creating it on first
// write.
func (s *Store) AddChunks(ctx context.Context, collection string, chunks []domain.Chunk) (int, error) {
	c, err := s.GetOrCreate(collection)
	if err != nil {
		return 0, err
	}
	return c.AddChunks(ctx, chunks)
}

// Chunks materializes stored chunks by ID from the named collection.
func (s *Store) Chunks(ctx context.Context, collection string, ids []int64) ([]domain.Chunk, error) {
	c, err := s.GetOrCreate(collection)
	if err != nil {
		return nil, err
	}
	return c.Chunks(ctx, ids)
}

// Count returns the number of chunks in the named collection, 0 when it
// does not exist.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	c, err := s.GetOrCreate(collection)
	if err != nil {
		return 0, err
	}
	return c.Count(ctx)
}

// Close flushes every dirty index back to disk and releases databases.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for _, c := range s.open {
		c.mu.Lock()
		if err := c.flushLocked(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.closeLocked()
		c.mu.Unlock()
	}
	s.open = make(map[string]*Collection)
	return firstErr
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("collection name is empty: %w", domain.ErrInvalidInput)
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("collection name %q: %w", name, domain.ErrInvalidInput)
	}
	return nil
}

// readInfo reads listing metadata straight from a collection database
// without loading its index, so List never blocks on or disturbs
// in-flight collection work.
func readInfo(ctx context.Context, name, dbPath string) (domain.CollectionInfo, error) {
	info := domain.CollectionInfo{Name: name}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return info, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	row := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks")
	if err := row.Scan(&info.Chunks); err != nil {
		return info, fmt.Errorf("counting chunks: %v: %w", err, domain.ErrCollectionCorrupt)
	}

	meta, err := readMeta(ctx, db)
	if err != nil {
		return info, err
	}
	info.Model = meta.model
	info.Dimensions = meta.dims
	info.CreatedAt = meta.createdAt
	return info, nil
}

func dsn(path string) string {
	return path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}
