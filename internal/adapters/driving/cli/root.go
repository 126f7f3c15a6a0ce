// Package cli implements the ragcell command line interface.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	embollama "github.com/stackpine/ragcell/internal/adapters/driven/embedding/ollama"
	llmollama "github.com/stackpine/ragcell/internal/adapters/driven/llm/ollama"
	"github.com/stackpine/ragcell/internal/adapters/driven/loader"
	"github.com/stackpine/ragcell/internal/adapters/driven/storage/sqlite"
	"github.com/stackpine/ragcell/internal/chunker"
	"github.com/stackpine/ragcell/internal/config"
	"github.com/stackpine/ragcell/internal/core/ports/driven"
	"github.com/stackpine/ragcell/internal/core/ports/driving"
	"github.com/stackpine/ragcell/internal/core/services"
	"github.com/stackpine/ragcell/internal/logger"
)

var (
	cfgFile      string
	verboseFlag  bool
	indexDirFlag string

	cfg config.Config

	// Wired in setupServices; tests inject fakes and set servicesReady.
	indexerService   driving.IndexerService
	retrievalService driving.RetrievalService
	chunkStore       driven.ChunkStore
	embedService     driven.EmbeddingService

	servicesReady bool
	store         *sqlite.Store
)

var rootCmd = &cobra.Command{
	Use:   "ragcell",
	Short: "Ask questions about your own documents, fully offline",
	Long: `ragcell indexes local documents (text, markdown, PDF) into named
collections and answers questions about them with a local Ollama model,
grounding every answer in retrieved, cited passages.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verboseFlag)
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		return setupServices()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.ragcell/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "verbose output to stderr")
	rootCmd.PersistentFlags().StringVar(&indexDirFlag, "index-dir", "", "directory holding the collection index (default from config)")
}

// Execute runs the CLI and releases the collection store afterwards.
func Execute() error {
	defer closeStore()
	return rootCmd.Execute()
}

// setupServices builds the full service graph from configuration. Tests
// preempt this by injecting fakes and setting servicesReady.
func setupServices() error {
	if servicesReady {
		return nil
	}

	loaded, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	cfg = loaded
	if indexDirFlag != "" {
		cfg.IndexDir = indexDirFlag
	}

	embedModel := cfg.EmbedModel
	llmModel := cfg.LLMModel
	if queryModel != "" {
		llmModel = queryModel
	}

	s, err := sqlite.NewStore(cfg.IndexDir, embedModel, sqlite.ReindexPolicy(cfg.IndexPolicy))
	if err != nil {
		return fmt.Errorf("open index at %s: %w", cfg.IndexDir, err)
	}
	store = s
	chunkStore = s

	embedService = embollama.NewEmbeddingService(embollama.Config{
		BaseURL: cfg.OllamaURL,
		Model:   embedModel,
		Workers: cfg.EmbedWorkers,
	})
	generator := llmollama.NewGenerationService(llmollama.Config{
		BaseURL: cfg.OllamaURL,
		Model:   llmModel,
	})

	splitter := chunker.New(
		chunker.WithChunkSize(cfg.ChunkSize),
		chunker.WithOverlap(cfg.ChunkOverlap),
	)

	indexerService = services.NewIndexer(loader.New(), embedService, chunkStore, splitter)
	retrievalService = services.NewRetrieval(embedService, generator, chunkStore)

	servicesReady = true
	logger.Debug("services ready: index %s, embed %s, llm %s", cfg.IndexDir, embedModel, llmModel)
	return nil
}

func closeStore() {
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Warn("close store: %v", err)
		}
		store = nil
	}
}
