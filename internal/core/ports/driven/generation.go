package driven

import (
	"context"

	"github.com/stackpine/ragcell/internal/core/domain"
)

// GenerationService produces an answer from a prompt as a stream of text
// increments.
//
// Implementations may include:
//   - Ollama (llama3.2, mistral, phi3)
//   - Any OpenAI-compatible completion endpoint
type GenerationService interface {
	// Stream starts a generation and returns a channel of answer tokens.
	// Tokens arrive as the model produces them; the channel is closed
	// after a token with Done set (or Err on failure). Cancelling the
	// context stops the stream and releases the underlying request.
	Stream(ctx context.Context, prompt string) (<-chan domain.StreamToken, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable with a lightweight request.
	Ping(ctx context.Context) error
}
