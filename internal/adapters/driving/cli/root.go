// Package cli implements the ragbase command-line interface. Commands
// talk to the core exclusively through the driving ports; adapter
// wiring happens in the composition root and is injected here.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragbase-cli/internal/core/ports/driving"
	"github.com/custodia-labs/ragbase-cli/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// knowledgeService is injected by the composition root before Execute.
var knowledgeService driving.KnowledgeService

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "ragbase",
	Short: "Local retrieval knowledge base",
	Long: `ragbase maintains a local knowledge base for retrieval-augmented
generation: it chunks documents, embeds the chunks and answers
similarity queries over them.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// SetKnowledgeService injects the knowledge service.
func SetKnowledgeService(svc driving.KnowledgeService) {
	knowledgeService = svc
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command. The context is cancelled on
// interrupt so long-running commands like ingest --watch stop cleanly.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
