// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the search-gateway CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/search-gateway/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the search-gateway CLI.
var rootCmd = &cobra.Command{
	Use:   "search-gateway",
	Short: "Resilient dispatch layer for external web search",
	Long: `search-gateway fronts a pool of web search providers (DuckDuckGo instant
answers, Google Custom Search, DuckDuckGo HTML results) behind one entry
point. Searches are cached, rate limited per provider, routed by a
configurable strategy, and fall back across providers and finally to an
HTML scrape when the structured APIs come back empty.

Provider reliability is tracked per request and can be persisted to a
SQLite database so routing decisions survive restarts.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./search-gateway.yaml or ~/.config/search-gateway/config.yaml)")
	rootCmd.PersistentFlags().String("registry", "", "provider registry YAML (default: built-in DuckDuckGo providers)")
	rootCmd.PersistentFlags().String("stats-db", "", "SQLite file for persistent provider statistics")

	viper.BindPFlag("registry", rootCmd.PersistentFlags().Lookup("registry"))
	viper.BindPFlag("stats_db", rootCmd.PersistentFlags().Lookup("stats-db"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("search-gateway")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "search-gateway"))
		}
	}

	viper.SetEnvPrefix("SEARCH_GATEWAY")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
