// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"fmt"
	"io"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/search-gateway/pkg/types"
)

// registryFile is the on-disk shape of the provider registry.
type registryFile struct {
	Providers []types.ProviderRecord `yaml:"providers"`
}

// LoadRegistry reads provider records from a YAML file.
func LoadRegistry(path string) ([]types.ProviderRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading provider registry: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing provider registry: %w", err)
	}
	return file.Providers, nil
}

// DefaultRecords returns the built-in provider set used when no
// registry file is configured: both DuckDuckGo modes, no Google (it
// needs credentials).
func DefaultRecords() []types.ProviderRecord {
	return []types.ProviderRecord{
		{Name: "duckduckgo", Enabled: true, RateLimitSeconds: 1, Priority: 10},
		{Name: "duckduckgo-html", Enabled: true, RateLimitSeconds: 1, Priority: 5},
	}
}

// Build constructs providers from records. Disabled records are
// skipped; records naming an unknown provider are skipped with a
// warning on w. Credentials absent from a record fall back to creds
// (keyed like the secrets directory: "google-api-key",
// "google-search-id").
func Build(records []types.ProviderRecord, httpCfg types.HTTPConfig, creds map[string]string, w io.Writer) map[string]Provider {
	providers := make(map[string]Provider)
	for _, rec := range records {
		if !rec.Enabled {
			continue
		}
		rateLimit := time.Duration(rec.RateLimitSeconds) * time.Second

		switch rec.Name {
		case "duckduckgo":
			providers[rec.Name] = NewDuckDuckGo(rec.BaseURL, httpCfg, rateLimit)
		case "duckduckgo-html":
			providers[rec.Name] = NewDuckDuckGoHTML(rec.BaseURL, httpCfg, rateLimit)
		case "google":
			apiKey := rec.APIKey
			if apiKey == "" {
				apiKey = creds["google-api-key"]
			}
			searchID := rec.SearchID
			if searchID == "" {
				searchID = creds["google-search-id"]
			}
			providers[rec.Name] = NewGoogle(apiKey, searchID, rec.BaseURL, httpCfg, rateLimit)
		default:
			fmt.Fprintf(w, "warning: unknown provider %q in registry, skipping\n", rec.Name)
		}
	}
	return providers
}
