package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/search-gateway/internal/cache"
	"github.com/pdiddy/search-gateway/internal/dispatch"
	"github.com/pdiddy/search-gateway/internal/provider"
	"github.com/pdiddy/search-gateway/internal/reliability"
	"github.com/pdiddy/search-gateway/internal/router"
	"github.com/pdiddy/search-gateway/pkg/types"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "search-gateway/0.1"

	// htmlProviderName is pulled out of the routed set and wired as the
	// dispatcher's scrape fallback instead.
	htmlProviderName = "duckduckgo-html"
)

// gateway bundles the assembled dispatch stack so commands can tear it
// down in one place.
type gateway struct {
	client  *dispatch.Client
	tracker router.Recorder
	store   *cache.Cache
	durable *reliability.DurableTracker
}

// Close flushes pending stat writes and stops the cache sweeper.
func (g *gateway) Close() {
	if g.durable != nil {
		g.durable.Close()
	}
	if g.store != nil {
		g.store.Close()
	}
}

// loadRecords resolves the provider registry: the configured YAML file,
// or the built-in DuckDuckGo set when none is given.
func loadRecords() ([]types.ProviderRecord, error) {
	registry := viper.GetString("registry")
	if registry == "" {
		return provider.DefaultRecords(), nil
	}
	return provider.LoadRegistry(registry)
}

// buildGateway assembles the full stack from flags, config, and secrets:
// providers, reliability tracking, routing, caching, and the dispatcher.
func buildGateway(cmd *cobra.Command) (*gateway, error) {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}
	httpCfg := types.HTTPConfig{
		Timeout:   timeout,
		UserAgent: defaultUserAgent,
	}

	records, err := loadRecords()
	if err != nil {
		return nil, err
	}
	providers := provider.Build(records, httpCfg, loadedSecrets, os.Stderr)

	htmlFallback := providers[htmlProviderName]
	delete(providers, htmlProviderName)

	g := &gateway{}

	if statsDB := viper.GetString("stats_db"); statsDB != "" {
		store, err := reliability.NewStore(statsDB)
		if err != nil {
			return nil, fmt.Errorf("opening stats database: %w", err)
		}
		durable, err := reliability.NewDurableTracker(store, os.Stderr)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("loading provider statistics: %w", err)
		}
		g.durable = durable
		g.tracker = durable
	} else {
		g.tracker = reliability.NewTracker()
	}

	strategy, _ := cmd.Flags().GetString("strategy")
	r := router.New(providers, g.tracker, router.Config{Strategy: router.Strategy(strategy)})

	if noCache, _ := cmd.Flags().GetBool("no-cache"); !noCache {
		g.store = cache.New(types.CacheConfig{
			Enabled: true,
			TTL:     viper.GetDuration("cache_ttl"),
			MaxSize: viper.GetInt("cache_max_size"),
		})
	}

	maxAttempts, _ := cmd.Flags().GetInt("max-attempts")
	g.client = dispatch.NewClient(dispatch.Config{
		Router:       r,
		HTMLFallback: htmlFallback,
		Cache:        g.store,
		MaxAttempts:  maxAttempts,
	})
	return g, nil
}

// addGatewayFlags registers the flags buildGateway reads. Shared by the
// commands that run searches.
func addGatewayFlags(cmd *cobra.Command) {
	cmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 10s)")
	cmd.Flags().String("strategy", "round_robin", "provider selection strategy: round_robin, weighted, random")
	cmd.Flags().Int("max-attempts", 3, "maximum providers tried per search")
	cmd.Flags().Bool("no-cache", false, "disable the result cache")
}
