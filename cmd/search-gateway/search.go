package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/search-gateway/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run one search through the provider pool",
	Long: `Search sends a query through the dispatch stack: the result cache is
consulted first, then the structured providers in strategy order, and
finally the DuckDuckGo HTML results page when the structured APIs find
nothing. Repeated queries that differ only in case or spacing share one
cache entry.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	addGatewayFlags(searchCmd)
	searchCmd.Flags().Bool("json", false, "output the result as JSON")
	searchCmd.Flags().Bool("cache-stats", false, "print cache hit/miss counters to stderr")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	g, err := buildGateway(cmd)
	if err != nil {
		return err
	}
	defer g.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := g.client.Search(ctx, strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if showCache, _ := cmd.Flags().GetBool("cache-stats"); showCache {
		cs := g.client.CacheStats()
		fmt.Fprintf(os.Stderr, "cache: %d hit(s), %d miss(es), %d resident\n", cs.Hits, cs.Misses, cs.Size)
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printResult(result)
	return nil
}

func printResult(result *types.SearchResult) {
	if !result.Found {
		fmt.Printf("No results for %q (via %s)\n", result.Query, result.Source)
		return
	}

	fmt.Printf("%d result(s) via %s (confidence %.2f)\n\n", len(result.Results), result.Source, result.Confidence)
	for i, item := range result.Results {
		fmt.Printf("%2d. %s\n    %s\n", i+1, item.Title, item.URL)
		if item.Snippet != "" {
			fmt.Printf("    %s\n", item.Snippet)
		}
	}
}
