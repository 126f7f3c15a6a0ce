package cli

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stackpine/ragcell/internal/adapters/driven/watcher"
	"github.com/stackpine/ragcell/internal/core/domain"
	"github.com/stackpine/ragcell/internal/logger"
)

var watchCollection string

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Watch a directory and keep a collection up to date",
	Long: `Watches the given directory tree and re-indexes files as they are
created or modified, after their writes settle. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchCollection, "collection", "c", "", "target collection (default from config)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if indexerService == nil {
		return errors.New("indexer service not configured")
	}
	collection := watchCollection
	if collection == "" {
		collection = cfg.Collection
	}
	if collection == "" {
		collection = domain.DefaultCollection
	}
	dir := args[0]

	w, err := watcher.New([]string{".txt", ".md", ".pdf"}, 0)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer w.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	events, err := w.Watch(ctx, dir)
	if err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	// Bring the collection current before waiting for changes.
	report, err := indexerService.Index(ctx, collection, dir)
	if err != nil {
		return fmt.Errorf("initial indexing failed: %w", err)
	}
	cmd.Printf("%s %d file(s), %d chunk(s) into %q. Watching %s…\n",
		headerStyle.Render("Indexed"), report.Files, report.Chunks, collection, dir)

	for ev := range events {
		switch ev.Op {
		case watcher.OpWrite:
			report, err := indexerService.Index(ctx, collection, ev.Path)
			if err != nil {
				cmd.PrintErrln(errorStyle.Render(fmt.Sprintf("re-index %s: %v", ev.Path, err)))
				continue
			}
			cmd.Printf("%s %s (%d chunk(s))\n", dimStyle.Render("updated"), ev.Path, report.Chunks)
		case watcher.OpRemove:
			// Chunks of removed files stay until the next full index.
			logger.Info("%s removed; run 'ragcell index %s' to prune its chunks", ev.Path, dir)
		}
	}

	cmd.Println("\nStopped.")
	return nil
}
