package driven

import (
	"context"

	"github.com/stackpine/ragcell/internal/core/domain"
)

// DocumentLoader extracts plain text from files on disk.
// Given a file it returns one RawDocument per logical unit (a whole text
// file, or one per PDF page); given a directory it walks it recursively.
// Files with unsupported extensions are skipped, not errors.
type DocumentLoader interface {
	// Load reads path and returns the extracted raw documents in a
	// deterministic (sorted path, ascending page) order, plus the paths
	// of files that were skipped as unsupported.
	Load(ctx context.Context, path string) (docs []domain.RawDocument, skipped []string, err error)

	// SupportedExtensions returns the lower-case file extensions this
	// loader handles, including the leading dot.
	SupportedExtensions() []string
}
