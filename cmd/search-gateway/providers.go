package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/search-gateway/internal/provider"
	"github.com/pdiddy/search-gateway/pkg/types"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List configured search providers",
	Long: `Providers prints the provider registry (the configured YAML file, or the
built-in set) and optionally validates each provider's credentials
without running a search.`,
	RunE: runProviders,
}

func init() {
	providersCmd.Flags().Bool("check", false, "validate each provider's credentials")
	providersCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 10s)")

	rootCmd.AddCommand(providersCmd)
}

func runProviders(cmd *cobra.Command, args []string) error {
	records, err := loadRecords()
	if err != nil {
		return err
	}

	fmt.Printf("%-18s %-9s %-9s %-11s %s\n", "NAME", "ENABLED", "PRIORITY", "RATE LIMIT", "BASE URL")
	for _, rec := range records {
		base := rec.BaseURL
		if base == "" {
			base = "(default)"
		}
		fmt.Printf("%-18s %-9t %-9d %-11s %s\n",
			rec.Name, rec.Enabled, rec.Priority,
			(time.Duration(rec.RateLimitSeconds) * time.Second).String(), base)
	}

	check, _ := cmd.Flags().GetBool("check")
	if !check {
		return nil
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}
	httpCfg := types.HTTPConfig{Timeout: timeout, UserAgent: defaultUserAgent}

	providers := provider.Build(records, httpCfg, loadedSecrets, os.Stderr)
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	fmt.Println()
	failures := 0
	for _, name := range names {
		if err := providers[name].ValidateCredentials(ctx); err != nil {
			fmt.Printf("%-18s credentials: %v\n", name, err)
			failures++
			continue
		}
		fmt.Printf("%-18s credentials: ok\n", name)
	}
	if failures > 0 {
		return fmt.Errorf("%d provider(s) failed credential validation", failures)
	}
	return nil
}
