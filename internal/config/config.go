// Package config loads ragcell settings from defaults, an optional TOML
// file and RAGCELL_-prefixed environment variables, in that order of
// precedence (environment wins).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/stackpine/ragcell/internal/core/domain"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "RAGCELL_"

// Config holds every tunable of the application.
type Config struct {
	// Chunking.
	ChunkSize    int `toml:"chunk_size" env:"CHUNK_SIZE"`
	ChunkOverlap int `toml:"chunk_overlap" env:"CHUNK_OVERLAP"`

	// Retrieval.
	TopK   int     `toml:"top_k" env:"TOP_K"`
	FetchK int     `toml:"fetch_k" env:"FETCH_K"` // 0 means 3*TopK
	Lambda float64 `toml:"lambda" env:"LAMBDA"`

	// Storage.
	Collection  string `toml:"collection" env:"COLLECTION"`
	IndexDir    string `toml:"index_dir" env:"INDEX_DIR"`
	IndexPolicy string `toml:"index_policy" env:"INDEX_POLICY"`

	// Models.
	OllamaURL    string `toml:"ollama_url" env:"OLLAMA_URL"`
	EmbedModel   string `toml:"embed_model" env:"EMBED_MODEL"`
	LLMModel     string `toml:"llm_model" env:"LLM_MODEL"`
	EmbedWorkers int    `toml:"embed_workers" env:"EMBED_WORKERS"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ChunkSize:    1000,
		ChunkOverlap: 200,
		TopK:         5,
		FetchK:       0,
		Lambda:       0.5,
		Collection:   domain.DefaultCollection,
		IndexDir:     "",
		IndexPolicy:  "replace",
		OllamaURL:    "http://localhost:11434",
		EmbedModel:   "nomic-embed-text",
		LLMModel:     "llama3.2",
		EmbedWorkers: 4,
	}
}

// DefaultPath returns the standard config file location,
// ~/.ragcell/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".ragcell", "config.toml"), nil
}

// Load builds the configuration. path names a TOML file; when empty the
// default location is tried and silently skipped if absent. A .env file
// in the working directory is honored before reading the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return cfg, err
		}
		path = p
	}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// No config file is fine; defaults apply.
	default:
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	// A local .env is a convenience for development; missing is normal.
	_ = godotenv.Load()

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.IndexDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, err
		}
		cfg.IndexDir = filepath.Join(home, ".ragcell", "index")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d: %w", c.ChunkSize, domain.ErrInvalidInput)
	}
	if c.ChunkOverlap <= 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk_overlap must be between 1 and chunk_size-1, got %d with chunk_size %d: %w",
			c.ChunkOverlap, c.ChunkSize, domain.ErrInvalidInput)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d: %w", c.TopK, domain.ErrInvalidInput)
	}
	if c.FetchK < 0 {
		return fmt.Errorf("fetch_k must not be negative, got %d: %w", c.FetchK, domain.ErrInvalidInput)
	}
	if c.Lambda < 0 || c.Lambda > 1 {
		return fmt.Errorf("lambda must be in [0, 1], got %g: %w", c.Lambda, domain.ErrInvalidInput)
	}
	if c.IndexPolicy != "replace" && c.IndexPolicy != "append" {
		return fmt.Errorf("index_policy must be replace or append, got %q: %w", c.IndexPolicy, domain.ErrInvalidInput)
	}
	if c.EmbedWorkers <= 0 {
		return fmt.Errorf("embed_workers must be positive, got %d: %w", c.EmbedWorkers, domain.ErrInvalidInput)
	}
	return nil
}

// FetchKFor resolves the candidate pool size for a given top k.
func (c Config) FetchKFor(topK int) int {
	if c.FetchK > 0 {
		return c.FetchK
	}
	return 3 * topK
}
