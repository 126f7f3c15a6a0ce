package driving

import (
	"context"

	"github.com/stackpine/ragcell/internal/core/domain"
)

// RetrievalService answers questions over indexed collections.
type RetrievalService interface {
	// Retrieve returns the diversity-ranked chunks most relevant to the
	// query, without invoking the language model.
	Retrieve(ctx context.Context, collection, query string, opts domain.RetrievalOptions) ([]domain.ScoredChunk, error)

	// Ask retrieves context for the question and streams a grounded
	// answer. The returned sources are available immediately; tokens
	// arrive on the channel until a Done or Err token, or until ctx is
	// cancelled.
	Ask(ctx context.Context, collection, question string, opts domain.RetrievalOptions) (*domain.AskResult, error)
}
