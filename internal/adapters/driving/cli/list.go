package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed collections",
	Long:  `Shows every persisted collection with its chunk count and the embedding model it was built with.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output collections as JSON")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	if chunkStore == nil {
		return errors.New("collection store not configured")
	}

	infos, err := chunkStore.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}

	if listJSON {
		data, err := json.MarshalIndent(infos, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal collections: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(infos) == 0 {
		cmd.Println("No collections. Run 'ragcell index' to create one.")
		return nil
	}

	cmd.Println(headerStyle.Render("Collections:"))
	for _, info := range infos {
		cmd.Printf("  %-20s %6d chunk(s)  %s\n", info.Name, info.Chunks,
			dimStyle.Render(fmt.Sprintf("%s (%dd), created %s",
				info.Model, info.Dimensions, info.CreatedAt.Format("2006-01-02"))))
	}
	return nil
}
