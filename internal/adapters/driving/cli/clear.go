package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	clearAll bool
	clearYes bool
)

var clearCmd = &cobra.Command{
	Use:   "clear [collection]",
	Short: "Delete a collection, or all of them",
	Long: `Removes a collection's chunks and vectors from disk. With --all every
collection is removed. Deletion asks for confirmation unless --yes is
given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClear,
}

func init() {
	clearCmd.Flags().BoolVar(&clearAll, "all", false, "delete every collection")
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
	if chunkStore == nil {
		return errors.New("collection store not configured")
	}

	if clearAll {
		if len(args) > 0 {
			return errors.New("cannot combine --all with a collection name")
		}
		if !confirm(cmd, "Delete ALL collections?") {
			cmd.Println("Aborted.")
			return nil
		}
		if err := chunkStore.DeleteAll(); err != nil {
			return fmt.Errorf("clear all collections: %w", err)
		}
		cmd.Println("All collections deleted.")
		return nil
	}

	if len(args) == 0 {
		return errors.New("name a collection or pass --all")
	}
	name := args[0]
	if !confirm(cmd, fmt.Sprintf("Delete collection %q?", name)) {
		cmd.Println("Aborted.")
		return nil
	}
	if err := chunkStore.Delete(name); err != nil {
		return fmt.Errorf("clear collection %s: %w", name, err)
	}
	cmd.Printf("Collection %q deleted.\n", name)
	return nil
}

func confirm(cmd *cobra.Command, prompt string) bool {
	if clearYes {
		return true
	}
	cmd.Printf("%s [y/N]: ", prompt)
	scanner := bufio.NewScanner(cmd.InOrStdin())
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}
