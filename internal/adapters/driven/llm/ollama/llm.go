// Package ollama provides a streaming generation adapter using Ollama.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stackpine/ragcell/internal/core/domain"
	"github.com/stackpine/ragcell/internal/core/ports/driven"
)

// Ensure GenerationService implements the interface.
var _ driven.GenerationService = (*GenerationService)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2"
	DefaultTimeout = 120 * time.Second
)

// Config holds configuration for the Ollama generation service.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the model to generate with (default: llama3.2).
	Model string

	// Timeout bounds a whole generation, streaming included
	// (default: 120s).
	Timeout time.Duration

	// Temperature is passed through to the model. 0 keeps generation
	// deterministic, which suits grounded answering.
	Temperature float64
}

// GenerationService streams completions from Ollama's /api/generate
// endpoint.
type GenerationService struct {
	client      *http.Client
	baseURL     string
	model       string
	temperature float64
}

// generateRequest is the Ollama /api/generate request format.
type generateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Stream  bool     `json:"stream"`
	Options *options `json:"options,omitempty"`
}

// options holds generation parameters.
type options struct {
	Temperature float64 `json:"temperature"`
}

// generateResponse is one NDJSON line of the streaming response.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// NewGenerationService creates a new Ollama generation service.
func NewGenerationService(cfg Config) *GenerationService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &GenerationService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:     cfg.BaseURL,
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}
}

// Stream starts a generation and relays Ollama's NDJSON stream as
// tokens. The channel closes after the Done token, after an Err token,
// or when ctx is cancelled; cancelling also aborts the HTTP request.
func (s *GenerationService) Stream(ctx context.Context, prompt string) (<-chan domain.StreamToken, error) {
	reqBody := generateRequest{
		Model:   s.model,
		Prompt:  prompt,
		Stream:  true,
		Options: &options{Temperature: s.temperature},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/api/generate",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama unreachable: %v: %w", err, domain.ErrGenerationUnavailable)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("ollama status %d: %s: %w", resp.StatusCode, string(body), domain.ErrGenerationUnavailable)
	}

	ch := make(chan domain.StreamToken, 64)
	go s.relay(ctx, resp.Body, ch)
	return ch, nil
}

// relay reads NDJSON lines off the response body and forwards them as
// tokens until the model reports done or the context is cancelled.
func (s *GenerationService) relay(ctx context.Context, body io.ReadCloser, ch chan<- domain.StreamToken) {
	defer close(ch)
	defer body.Close()

	emit := func(tok domain.StreamToken) bool {
		select {
		case ch <- tok:
			return true
		case <-ctx.Done():
			return false
		}
	}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var chunk generateResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			emit(domain.StreamToken{
				Done: true,
				Err:  fmt.Errorf("decode stream line: %v: %w", err, domain.ErrGenerationUnavailable),
			})
			return
		}
		if chunk.Error != "" {
			emit(domain.StreamToken{
				Done: true,
				Err:  fmt.Errorf("ollama: %s: %w", chunk.Error, domain.ErrGenerationUnavailable),
			})
			return
		}

		if chunk.Response != "" {
			if !emit(domain.StreamToken{Content: chunk.Response}) {
				return
			}
		}
		if chunk.Done {
			emit(domain.StreamToken{Done: true})
			return
		}
	}

	// The body ended without a done marker: cancellation or a dropped
	// connection.
	if err := ctx.Err(); err != nil {
		emit(domain.StreamToken{Done: true, Err: err})
		return
	}
	err := scanner.Err()
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	emit(domain.StreamToken{
		Done: true,
		Err:  fmt.Errorf("stream interrupted: %v: %w", err, domain.ErrGenerationUnavailable),
	})
}

// ModelName returns the name of the model being used.
func (s *GenerationService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the /api/tags endpoint.
func (s *GenerationService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: failed to create ping request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: ping failed: %v: %w", err, domain.ErrGenerationUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama: API returned status %d: %w", resp.StatusCode, domain.ErrGenerationUnavailable)
	}
	return nil
}
