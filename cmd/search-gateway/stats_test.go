package main

import (
	"strings"
	"testing"

	"github.com/pdiddy/search-gateway/pkg/types"
)

func TestFormatStatsRow(t *testing.T) {
	row := formatStatsRow(types.ProviderStats{
		ProviderName:      "duckduckgo",
		RequestsTotal:     4,
		RequestsSuccess:   3,
		RequestsFailed:    1,
		FailureRate:       0.25,
		AvgResponseTimeMs: 123,
	})

	if strings.Contains(row, "%!") {
		t.Fatalf("row %q contains a formatting error", row)
	}
	for _, want := range []string{"duckduckgo", "25.0%", "123"} {
		if !strings.Contains(row, want) {
			t.Errorf("row %q missing %q", row, want)
		}
	}
}
