package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stackpine/ragcell/internal/core/domain"
)

var (
	queryCollection  string
	queryTopK        int
	queryLambda      float64
	queryShowSources bool
	querySourcesOnly bool
	queryJSON        bool
	queryModel       string
	queryOutput      string
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a question about indexed documents",
	Long: `Embeds the question, retrieves the most relevant chunks from the
collection with diversity-aware ranking, and streams a grounded answer
from the configured Ollama model. Without a question argument an
interactive prompt is started.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVarP(&queryCollection, "collection", "c", "", "collection to query (default from config)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of chunks to retrieve (default from config)")
	queryCmd.Flags().Float64Var(&queryLambda, "lambda", -1, "relevance/diversity balance in [0,1] (default from config)")
	queryCmd.Flags().BoolVar(&queryShowSources, "sources", false, "list source passages after the answer")
	queryCmd.Flags().BoolVar(&querySourcesOnly, "retrieve-only", false, "retrieve sources without generating an answer")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output retrieved chunks as JSON (implies --retrieve-only)")
	queryCmd.Flags().StringVarP(&queryModel, "model", "m", "", "override the answering model for this run")
	queryCmd.Flags().StringVarP(&queryOutput, "output", "o", "", "save the answer to a file (.txt, .json, .md)")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	if len(args) == 1 {
		return answerOne(cmd, args[0], queryOutput)
	}
	return repl(cmd)
}

// repl reads questions from stdin until EOF or an exit word.
func repl(cmd *cobra.Command) error {
	cmd.Println(dimStyle.Render("Interactive mode. Empty line or \"exit\" quits."))
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		cmd.Print(questionStyle.Render("Q: "))
		if !scanner.Scan() {
			cmd.Println()
			return scanner.Err()
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" || question == "exit" || question == "quit" {
			return nil
		}
		if err := answerOne(cmd, question, ""); err != nil {
			cmd.PrintErrln(errorStyle.Render(err.Error()))
		}
		cmd.Println()
	}
}

func answerOne(cmd *cobra.Command, question, savePath string) error {
	collection := queryCollection
	if collection == "" {
		collection = cfg.Collection
	}
	if collection == "" {
		collection = domain.DefaultCollection
	}
	opts := retrievalOptions()

	if queryJSON || querySourcesOnly {
		return retrieveOnly(cmd, collection, question, opts)
	}

	result, err := retrievalService.Ask(cmd.Context(), collection, question, opts)
	if err != nil {
		return describeFailure(err)
	}
	if len(result.Sources) == 0 {
		cmd.Println(dimStyle.Render(fmt.Sprintf("Collection %q has no indexed chunks. Run 'ragcell index' first.", collection)))
	}

	out := cmd.OutOrStdout()
	var captured strings.Builder
	if savePath != "" {
		out = io.MultiWriter(out, &captured)
	}

	cmd.Print(answerStyle.Render("A: "))
	if err := streamAnswer(cmd.Context(), out, result.Tokens); err != nil {
		return describeFailure(err)
	}
	cmd.Println()

	if queryShowSources {
		printSources(cmd, result.Sources)
	}

	if savePath != "" {
		if err := saveAnswer(savePath, collection, question, captured.String()); err != nil {
			return err
		}
		cmd.Println(dimStyle.Render("Saved → " + savePath))
	}
	return nil
}

// saveAnswer writes one question/answer pair to disk, choosing the
// format from the file extension: structured JSON, a markdown section
// pair, or plain text for anything else.
func saveAnswer(path, collection, question, answer string) error {
	model := cfg.LLMModel
	if queryModel != "" {
		model = queryModel
	}

	var content []byte
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err := json.MarshalIndent(map[string]string{
			"question":   question,
			"answer":     answer,
			"collection": collection,
			"model":      model,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		content = data
	case ".md":
		content = []byte(fmt.Sprintf("## Q\n\n%s\n\n## A\n\n%s\n", question, answer))
	default:
		content = []byte(fmt.Sprintf("Q: %s\n\nA: %s\n", question, answer))
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("failed to save answer: %w", err)
	}
	return nil
}

func retrieveOnly(cmd *cobra.Command, collection, question string, opts domain.RetrievalOptions) error {
	sources, err := retrievalService.Retrieve(cmd.Context(), collection, question, opts)
	if err != nil {
		return describeFailure(err)
	}
	if queryJSON {
		data, err := json.MarshalIndent(sources, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal sources: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}
	printSources(cmd, sources)
	return nil
}

// streamAnswer writes tokens as they arrive. A cancelled context stops
// the stream without treating it as a failure.
func streamAnswer(ctx context.Context, w io.Writer, tokens <-chan domain.StreamToken) error {
	for tok := range tokens {
		if tok.Err != nil {
			if errors.Is(tok.Err, context.Canceled) {
				return nil
			}
			return tok.Err
		}
		fmt.Fprint(w, tok.Content)
	}
	// The relay may close the channel without delivering a trailing
	// cancellation token; that is still a user-initiated stop.
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func printSources(cmd *cobra.Command, sources []domain.ScoredChunk) {
	if len(sources) == 0 {
		cmd.Println(dimStyle.Render("No sources."))
		return
	}
	cmd.Println(dimStyle.Render("── Sources ─────────────────────────────"))
	for i, s := range sources {
		preview := strings.ReplaceAll(s.Chunk.Text, "\n", " ")
		if runes := []rune(preview); len(runes) > 120 {
			preview = string(runes[:120]) + "…"
		}
		cmd.Printf("  %d. %s (%.2f)\n", i+1, s.Chunk.Citation(), s.Score)
		cmd.Println(dimStyle.Render("     \"" + preview + "\""))
	}
}

func retrievalOptions() domain.RetrievalOptions {
	opts := domain.RetrievalOptions{
		TopK:   cfg.TopK,
		Lambda: cfg.Lambda,
		FetchK: cfg.FetchK,
	}
	if queryTopK > 0 {
		opts.TopK = queryTopK
	}
	if queryLambda >= 0 {
		opts.Lambda = queryLambda
	}
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if opts.FetchK <= 0 {
		opts.FetchK = 3 * opts.TopK
	}
	return opts
}

// describeFailure turns service errors into actionable messages.
func describeFailure(err error) error {
	switch {
	case errors.Is(err, domain.ErrEmbeddingUnavailable):
		return fmt.Errorf("cannot reach the embedding model (is Ollama running?): %w", err)
	case errors.Is(err, domain.ErrGenerationUnavailable):
		return fmt.Errorf("cannot reach the answering model (is Ollama running?): %w", err)
	case errors.Is(err, domain.ErrCollectionModelMismatch):
		return fmt.Errorf("collection was indexed with a different embedding model; re-index or change embed_model: %w", err)
	default:
		return err
	}
}
