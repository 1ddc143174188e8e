package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export all records as JSONL",
	Long: `Writes every stored record as one JSON object per line. With no
file argument the records go to standard output. The stream round-
trips through the import command.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	var out io.Writer = cmd.OutOrStdout()
	if len(args) == 1 {
		f, err := os.Create(args[0])
		if err != nil {
			return fmt.Errorf("create %s: %w", args[0], err)
		}
		defer f.Close()
		out = f
	}

	n, err := knowledgeService.Export(cmd.Context(), out)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if len(args) == 1 {
		cmd.Printf("Exported %d records to %s\n", n, args[0])
	}
	return nil
}
