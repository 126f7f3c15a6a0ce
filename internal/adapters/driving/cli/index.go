package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stackpine/ragcell/internal/core/domain"
)

var (
	indexCollection string
	indexJSON       bool
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a file or directory into a collection",
	Long: `Loads the given file or directory, splits the text into overlapping
chunks, embeds them with the configured Ollama model and stores the
result in a named collection. Re-indexing a file replaces its previous
chunks unless index_policy is set to append.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVarP(&indexCollection, "collection", "c", "", "target collection (default from config)")
	indexCmd.Flags().BoolVar(&indexJSON, "json", false, "output the report as JSON")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	if indexerService == nil {
		return errors.New("indexer service not configured")
	}
	collection := indexCollection
	if collection == "" {
		collection = cfg.Collection
	}
	if collection == "" {
		collection = domain.DefaultCollection
	}

	report, err := indexerService.Index(cmd.Context(), collection, args[0])
	if err != nil {
		// A partial run still indexed something worth reporting.
		if report.Files > 0 {
			printReport(cmd, report)
		}
		return fmt.Errorf("indexing failed: %w", err)
	}

	if indexJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	printReport(cmd, report)
	return nil
}

func printReport(cmd *cobra.Command, report domain.IndexReport) {
	cmd.Printf("%s %d file(s), %d chunk(s) into %q\n",
		headerStyle.Render("Indexed"), report.Files, report.Chunks, report.Collection)
	for _, path := range report.Skipped {
		cmd.Println(dimStyle.Render("  skipped " + path))
	}
}
