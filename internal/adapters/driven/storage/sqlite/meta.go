package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/stackpine/ragcell/internal/core/domain"
)

// collectionMeta is the dimensionality/model-identity tag stored in each
// collection's meta table. It rejects mixing incompatible embedding
// models within one collection.
type collectionMeta struct {
	id        string
	model     string
	dims      int
	createdAt time.Time
}

func writeMeta(ctx context.Context, db *sql.DB, m collectionMeta) error {
	pairs := map[string]string{
		"id":             m.id,
		"model":          m.model,
		"dimensions":     strconv.Itoa(m.dims),
		"created_at":     m.createdAt.Format(time.RFC3339),
		"schema_version": strconv.Itoa(schemaVersion),
	}
	for key, value := range pairs {
		if _, err := db.ExecContext(ctx,
			"INSERT OR REPLACE INTO collection_meta (key, value) VALUES (?, ?)", key, value); err != nil {
			return fmt.Errorf("writing meta %s: %w", key, err)
		}
	}
	return nil
}

func readMeta(ctx context.Context, db *sql.DB) (collectionMeta, error) {
	var m collectionMeta

	rows, err := db.QueryContext(ctx, "SELECT key, value FROM collection_meta")
	if err != nil {
		return m, fmt.Errorf("reading meta: %v: %w", err, domain.ErrCollectionCorrupt)
	}
	defer rows.Close()

	found := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return m, fmt.Errorf("scanning meta: %v: %w", err, domain.ErrCollectionCorrupt)
		}
		found[key] = value
	}
	if err := rows.Err(); err != nil {
		return m, fmt.Errorf("iterating meta: %v: %w", err, domain.ErrCollectionCorrupt)
	}

	m.id = found["id"]
	m.model = found["model"]
	if m.model == "" {
		return m, fmt.Errorf("collection meta missing model tag: %w", domain.ErrCollectionCorrupt)
	}
	if v, ok := found["dimensions"]; ok {
		if m.dims, err = strconv.Atoi(v); err != nil {
			return m, fmt.Errorf("bad dimensions tag %q: %w", v, domain.ErrCollectionCorrupt)
		}
	}
	if v, ok := found["created_at"]; ok {
		if m.createdAt, err = time.Parse(time.RFC3339, v); err != nil {
			return m, fmt.Errorf("bad created_at tag %q: %w", v, domain.ErrCollectionCorrupt)
		}
	}
	return m, nil
}
