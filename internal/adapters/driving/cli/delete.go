package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete [document-id]",
	Short: "Delete a document from the knowledge base",
	Long: `Removes a document together with its chunk records and their indexed
vectors. Document IDs appear in search results and in ingest output.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	documentID := args[0]

	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	if err := knowledgeService.DeleteDocument(cmd.Context(), documentID); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	cmd.Printf("Deleted document %s\n", documentID)
	return nil
}
