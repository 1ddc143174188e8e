package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragbase-cli/internal/core/domain"
)

var (
	searchLimit   int
	searchJSON    bool
	searchFilters []string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the knowledge base",
	Long: `Embeds the query and returns the nearest stored chunks by vector
distance. Results are ordered ascending by distance; ties are broken
by record ID so output is reproducible.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 5, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().StringArrayVar(&searchFilters, "filter", nil,
		"metadata equality filter as key=value (repeatable)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	filter, err := parseFilters(searchFilters)
	if err != nil {
		return err
	}

	opts := domain.SearchOptions{
		Limit:  searchLimit,
		Filter: filter,
	}

	hits, err := knowledgeService.Search(cmd.Context(), query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, hits)
	}
	return outputSearchTable(cmd, hits)
}

// parseFilters converts key=value pairs into a filter map.
func parseFilters(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	filter := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q, want key=value: %w", pair, domain.ErrInvalidInput)
		}
		filter[key] = value
	}
	return filter, nil
}

func outputSearchJSON(cmd *cobra.Command, hits []domain.Hit) error {
	data, err := json.MarshalIndent(hits, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, hits []domain.Hit) error {
	if len(hits) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, hit := range hits {
		snippet := strings.TrimSpace(hit.Record.Text)
		if runes := []rune(snippet); len(runes) > 200 {
			snippet = string(runes[:200]) + "..."
		}

		cmd.Printf("  [%d] %s (distance %.4f)\n", i+1, hit.Record.ID, hit.Distance)
		if hit.Record.DocumentID != "" {
			cmd.Printf("      Document: %s\n", hit.Record.DocumentID)
		}
		if snippet != "" {
			cmd.Printf("      %s\n", snippet)
		}
		cmd.Println()
	}

	return nil
}
