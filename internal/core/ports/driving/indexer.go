package driving

import (
	"context"

	"github.com/stackpine/ragcell/internal/core/domain"
)

// IndexerService ingests documents into a collection.
type IndexerService interface {
	// Index loads the file or directory at path, splits it into chunks,
	// embeds them and stores the result in the named collection. On an
	// embedding failure the chunks committed before the failure stay
	// indexed; the returned report counts what was committed.
	Index(ctx context.Context, collection, path string) (domain.IndexReport, error)
}
