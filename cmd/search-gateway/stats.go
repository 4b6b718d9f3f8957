package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/search-gateway/internal/reliability"
	"github.com/pdiddy/search-gateway/pkg/types"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show persisted provider reliability statistics",
	Long: `Stats reads the provider statistics database written by searches run with
--stats-db and prints per-provider request counts, failure rates, and
response times. These numbers drive the weighted routing strategy.`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().Bool("json", false, "output statistics as JSON")

	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	statsDB := viper.GetString("stats_db")
	if statsDB == "" {
		return fmt.Errorf("no statistics database configured (set --stats-db)")
	}

	store, err := reliability.NewStore(statsDB)
	if err != nil {
		return fmt.Errorf("opening stats database: %w", err)
	}
	defer store.Close()

	stats, err := store.LoadAll()
	if err != nil {
		return fmt.Errorf("loading provider statistics: %w", err)
	}
	if len(stats) == 0 {
		fmt.Println("No provider statistics recorded yet.")
		return nil
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].ProviderName < stats[j].ProviderName })

	fmt.Printf("%-18s %8s %8s %8s %10s %10s\n", "PROVIDER", "TOTAL", "OK", "FAILED", "FAIL RATE", "AVG MS")
	for _, s := range stats {
		fmt.Println(formatStatsRow(s))
		if s.LastError != "" {
			fmt.Printf("%-18s last error: %s\n", "", s.LastError)
		}
	}
	return nil
}

// formatStatsRow renders one provider's counters as a table row.
func formatStatsRow(s types.ProviderStats) string {
	return fmt.Sprintf("%-18s %8d %8d %8d %9.1f%% %10d",
		s.ProviderName, s.RequestsTotal, s.RequestsSuccess, s.RequestsFailed,
		s.FailureRate*100, s.AvgResponseTimeMs)
}
