package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import records from a JSONL export",
	Long: `Re-ingests records from a stream produced by the export command.
Records carrying a vector are stored as-is; records without one are
re-embedded. With no file argument, or with "-", the stream is read
from standard input.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open %s: %w", args[0], err)
		}
		defer f.Close()
		in = f
	}

	report, err := knowledgeService.Import(cmd.Context(), in)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	cmd.Printf("Imported %d records\n", report.Ingested)
	for _, item := range report.Failed() {
		cmd.Printf("  failed: %s: %v\n", item.ChunkID, item.Err)
	}
	return nil
}
