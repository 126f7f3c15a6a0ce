package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stackpine/ragcell/internal/adapters/driven/vectorindex"
	"github.com/stackpine/ragcell/internal/core/domain"
	"github.com/stackpine/ragcell/internal/logger"
)

// Collection is the handle for one named corpus. All writes serialize
// behind its lock; chunk IDs are assigned monotonically under it.
type Collection struct {
	name   string
	dir    string
	model  string
	policy ReindexPolicy

	mu     sync.Mutex
	db     *sql.DB
	index  *vectorindex.Index
	nextID int64
	dirty  bool
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// Count returns the number of persisted chunks. A collection that was
// never written to disk counts zero.
func (c *Collection) Count(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureOpenLocked(false); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}

	var n int
	row := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks")
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// AddChunks persists embedded chunks and updates the vector index. IDs
// are assigned here, monotonically. Every chunk must carry text and an
// embedding whose length matches the collection dimensionality (fixed by
// the first vector ever added); violations reject the whole batch before
// anything is written. Under the replace policy, prior chunks from the
// same source paths are dropped first.
//
// The first successful call creates the collection on disk.
func (c *Collection) AddChunks(ctx context.Context, chunks []domain.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureOpenLocked(true); err != nil {
		return 0, err
	}

	dims := c.index.Dimensions()
	if dims == 0 {
		dims = len(chunks[0].Embedding)
	}
	for i := range chunks {
		if strings.TrimSpace(chunks[i].Text) == "" {
			return 0, fmt.Errorf("chunk %d of %s has no text: %w", chunks[i].Sequence, chunks[i].Source, domain.ErrInvalidInput)
		}
		if len(chunks[i].Embedding) != dims || dims == 0 {
			return 0, fmt.Errorf("chunk %d of %s: got %d dimensions, collection has %d: %w",
				chunks[i].Sequence, chunks[i].Source, len(chunks[i].Embedding), dims, domain.ErrDimensionMismatch)
		}
	}

	var replaced []int64
	if c.policy == PolicyReplace {
		var err error
		replaced, err = c.priorChunkIDs(ctx, chunks)
		if err != nil {
			return 0, err
		}
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if len(replaced) > 0 {
		for _, source := range distinctSources(chunks) {
			if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE source = ?", source); err != nil {
				return 0, fmt.Errorf("replacing chunks for %s: %w", source, err)
			}
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, source, page, seq, content)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	ids := make([]int64, len(chunks))
	for i := range chunks {
		ids[i] = c.nextID + int64(i)
		if _, err := stmt.ExecContext(ctx, ids[i], chunks[i].Source,
			nullPage(chunks[i].Page), chunks[i].Sequence, chunks[i].Text); err != nil {
			return 0, fmt.Errorf("saving chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing chunks: %w", err)
	}

	c.nextID += int64(len(chunks))
	c.index.Remove(replaced)
	for i := range chunks {
		if err := c.index.Add(ids[i], chunks[i].Embedding); err != nil {
			return 0, fmt.Errorf("indexing chunk %d: %w", ids[i], err)
		}
	}
	c.dirty = true

	if err := c.flushLocked(); err != nil {
		return 0, err
	}

	logger.Debug("collection %q: committed %d chunks (%d replaced)", c.name, len(chunks), len(replaced))
	return len(chunks), nil
}

// Chunks materialises chunk rows by ID, preserving the order of ids.
// Unknown IDs are skipped.
func (c *Collection) Chunks(ctx context.Context, ids []int64) ([]domain.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureOpenLocked(false); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := c.db.QueryContext(ctx,
		"SELECT id, source, page, seq, content FROM chunks WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]domain.Chunk, len(ids))
	for rows.Next() {
		var chunk domain.Chunk
		var page sql.NullInt64
		if err := rows.Scan(&chunk.ID, &chunk.Source, &page, &chunk.Sequence, &chunk.Text); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		if page.Valid {
			chunk.Page = int(page.Int64)
		}
		byID[chunk.ID] = chunk
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	ordered := make([]domain.Chunk, 0, len(ids))
	for _, id := range ids {
		if chunk, ok := byID[id]; ok {
			ordered = append(ordered, chunk)
		}
	}
	return ordered, nil
}

// priorChunkIDs returns the IDs of persisted chunks whose source path
// appears in the incoming batch.
func (c *Collection) priorChunkIDs(ctx context.Context, chunks []domain.Chunk) ([]int64, error) {
	var ids []int64
	for _, source := range distinctSources(chunks) {
		rows, err := c.db.QueryContext(ctx, "SELECT id FROM chunks WHERE source = ?", source)
		if err != nil {
			return nil, fmt.Errorf("querying prior chunks for %s: %w", source, err)
		}
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning prior chunk id: %w", err)
			}
			ids = append(ids, id)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("iterating prior chunks: %w", err)
		}
		rows.Close()
	}
	return ids, nil
}

// ensureOpenLocked opens the collection's on-disk state, creating it when
// create is set. Without create, a collection that was never persisted
// fails with domain.ErrNotFound. Callers hold c.mu.
func (c *Collection) ensureOpenLocked(create bool) error {
	if c.db != nil {
		return nil
	}

	dbPath := filepath.Join(c.dir, chunkDBFile)
	_, statErr := os.Stat(dbPath)
	exists := statErr == nil

	if !exists && !create {
		return fmt.Errorf("collection %q: %w", c.name, domain.ErrNotFound)
	}

	if !exists {
		if err := os.MkdirAll(c.dir, 0o700); err != nil {
			return fmt.Errorf("creating collection directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return fmt.Errorf("opening collection database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return fmt.Errorf("ensuring schema: %v: %w", err, domain.ErrCollectionCorrupt)
	}

	if exists {
		if err := c.loadExisting(db, dbPath); err != nil {
			db.Close()
			return err
		}
	} else {
		if err := writeMeta(context.Background(), db, collectionMeta{
			id:        uuid.New().String(),
			model:     c.model,
			createdAt: time.Now().UTC(),
		}); err != nil {
			db.Close()
			os.RemoveAll(c.dir)
			return err
		}
		c.index = vectorindex.New(c.model)
		c.nextID = 1
		logger.Debug("created collection %q at %s", c.name, c.dir)
	}

	c.db = db
	return nil
}

// loadExisting verifies the persisted model tag and loads the serialized
// index, refusing mismatched or undecodable state without touching it.
func (c *Collection) loadExisting(db *sql.DB, dbPath string) error {
	ctx := context.Background()

	meta, err := readMeta(ctx, db)
	if err != nil {
		return err
	}
	if c.model != "" && meta.model != c.model {
		return fmt.Errorf("collection %q built with model %q, configured model is %q: %w",
			c.name, meta.model, c.model, domain.ErrCollectionModelMismatch)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&count); err != nil {
		return fmt.Errorf("counting chunks: %v: %w", err, domain.ErrCollectionCorrupt)
	}

	indexPath := filepath.Join(c.dir, indexFile)
	if _, err := os.Stat(indexPath); err != nil {
		if count > 0 {
			return fmt.Errorf("collection %q has %d chunks but no index file: %w",
				c.name, count, domain.ErrCollectionCorrupt)
		}
		c.index = vectorindex.New(meta.model)
	} else {
		ix, err := vectorindex.Load(indexPath, meta.model)
		if err != nil {
			return err
		}
		if ix.Len() != count {
			return fmt.Errorf("collection %q: index has %d vectors, table has %d chunks: %w",
				c.name, ix.Len(), count, domain.ErrCollectionCorrupt)
		}
		c.index = ix
	}

	var maxID sql.NullInt64
	if err := db.QueryRowContext(ctx, "SELECT MAX(id) FROM chunks").Scan(&maxID); err != nil {
		return fmt.Errorf("reading max chunk id: %v: %w", err, domain.ErrCollectionCorrupt)
	}
	c.nextID = maxID.Int64 + 1
	return nil
}

// flushLocked writes the dirty index back to disk and records the fixed
// dimensionality in the meta table. Callers hold c.mu.
func (c *Collection) flushLocked() error {
	if !c.dirty || c.index == nil || c.db == nil {
		return nil
	}
	if err := c.index.Save(filepath.Join(c.dir, indexFile)); err != nil {
		return fmt.Errorf("saving index for %q: %w", c.name, err)
	}
	if _, err := c.db.Exec(
		"INSERT OR REPLACE INTO collection_meta (key, value) VALUES ('dimensions', ?)",
		strconv.Itoa(c.index.Dimensions())); err != nil {
		return fmt.Errorf("recording dimensionality: %w", err)
	}
	c.dirty = false
	return nil
}

// closeLocked releases the database handle. Callers hold c.mu.
func (c *Collection) closeLocked() {
	if c.db != nil {
		c.db.Close()
		c.db = nil
	}
	c.index = nil
	c.nextID = 0
	c.dirty = false
}

func distinctSources(chunks []domain.Chunk) []string {
	seen := make(map[string]struct{}, 4)
	var sources []string
	for i := range chunks {
		if _, ok := seen[chunks[i].Source]; ok {
			continue
		}
		seen[chunks[i].Source] = struct{}{}
		sources = append(sources, chunks[i].Source)
	}
	return sources
}

func nullPage(page int) sql.NullInt64 {
	if page <= 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(page), Valid: true}
}
