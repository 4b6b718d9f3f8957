// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package validate checks product records against live web search
// results: does the product exist at all, and do its recorded name and
// code match what the web says about it.
package validate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/search-gateway/pkg/types"
)

// Searcher is the slice of the dispatcher the validators need.
type Searcher interface {
	Search(ctx context.Context, query string) (*types.SearchResult, error)
}

// existenceThreshold is the accuracy score above which a product is
// considered to exist.
const existenceThreshold = 0.3

// ExistenceValidator checks whether a product name can be found on the
// web at all.
type ExistenceValidator struct {
	client Searcher
}

// NewExistenceValidator builds an existence validator over client.
func NewExistenceValidator(client Searcher) *ExistenceValidator {
	return &ExistenceValidator{client: client}
}

// Validate searches for name and scores how many results actually
// mention it. Search failures are reported in the result, not returned
// as errors, so batch callers can keep going.
func (v *ExistenceValidator) Validate(ctx context.Context, name string) (*types.ValidationResult, error) {
	if strings.TrimSpace(name) == "" {
		return errorResult("product name must not be empty"), nil
	}

	result, err := v.client.Search(ctx, name)
	if err != nil {
		return searchErrorResult(err), nil
	}
	return analyzeExistence(result, name), nil
}

func analyzeExistence(result *types.SearchResult, name string) *types.ValidationResult {
	validation := &types.ValidationResult{
		Status:    "success",
		Found:     result.Found,
		Results:   result.Results,
		Provider:  result.Source,
		Timestamp: result.Timestamp,
		Details:   make(map[string]any),
	}

	if !result.Found {
		validation.Status = "not_found"
		validation.Message = "product not found on the web"
		validation.Details["total_results"] = 0
		return validation
	}

	nameLower := strings.ToLower(name)
	matches := 0
	for _, item := range result.Results {
		if strings.Contains(strings.ToLower(item.Title+" "+item.Snippet), nameLower) {
			matches++
		}
	}

	validation.Details["match_count"] = matches
	validation.Details["total_results"] = len(result.Results)
	validation.Details["confidence"] = result.Confidence

	if matches == 0 {
		validation.Status = "not_found"
		validation.Found = false
		validation.Message = "results found but none are relevant"
		return validation
	}

	score := float64(matches) / float64(len(result.Results))
	if score > 1.0 {
		score = 1.0
	}
	validation.Score = score
	validation.Message = fmt.Sprintf("%d of %d results are relevant", matches, len(result.Results))
	return validation
}

// AccuracyValidator checks that a product's recorded name and code both
// show up in search results.
type AccuracyValidator struct {
	client Searcher
}

// NewAccuracyValidator builds an accuracy validator over client.
func NewAccuracyValidator(client Searcher) *AccuracyValidator {
	return &AccuracyValidator{client: client}
}

// Validate searches for "name code" and scores how often each recorded
// field appears in the result text.
func (v *AccuracyValidator) Validate(ctx context.Context, name, code string) (*types.ValidationResult, error) {
	if strings.TrimSpace(name) == "" {
		return errorResult("product name must not be empty"), nil
	}

	result, err := v.client.Search(ctx, buildQuery(name, code))
	if err != nil {
		return searchErrorResult(err), nil
	}
	return analyzeAccuracy(result, name, code), nil
}

func buildQuery(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

func analyzeAccuracy(result *types.SearchResult, name, code string) *types.ValidationResult {
	validation := &types.ValidationResult{
		Status:    "success",
		Found:     result.Found,
		Results:   result.Results,
		Provider:  result.Source,
		Timestamp: result.Timestamp,
		Details:   make(map[string]any),
	}

	if !result.Found {
		validation.Status = "not_found"
		validation.Message = "not enough data to verify accuracy"
		validation.Details["total_results"] = 0
		return validation
	}

	nameLower := strings.ToLower(name)
	codeLower := strings.ToLower(code)

	var hits, checks float64
	matchedItems := 0
	for _, item := range result.Results {
		text := strings.ToLower(item.Title + " " + item.Snippet)
		var itemHits, itemChecks float64

		if nameLower != "" {
			checks++
			itemChecks++
			if strings.Contains(text, nameLower) {
				hits++
				itemHits++
			}
		}
		if codeLower != "" {
			checks++
			itemChecks++
			if strings.Contains(text, codeLower) {
				hits++
				itemHits++
			}
		}
		if itemChecks > 0 && itemHits/itemChecks > existenceThreshold {
			matchedItems++
		}
	}

	if checks == 0 {
		validation.Status = "not_found"
		validation.Found = false
		validation.Message = "no data to verify"
		validation.Details["total_checks"] = 0
		return validation
	}

	score := hits / checks
	validation.Score = score
	validation.Found = score > existenceThreshold
	validation.Message = fmt.Sprintf("accuracy %.2f over %d checks", score, int(checks))
	validation.Details["accuracy_score"] = score
	validation.Details["total_checks"] = checks
	validation.Details["matched_items"] = matchedItems
	validation.Details["confidence"] = result.Confidence
	if !validation.Found {
		validation.Status = "low_accuracy"
	}
	return validation
}

// ProductValidator bundles both checks behind one entry point.
type ProductValidator struct {
	existence *ExistenceValidator
	accuracy  *AccuracyValidator
}

// NewProductValidator builds the combined validator over client.
func NewProductValidator(client Searcher) *ProductValidator {
	return &ProductValidator{
		existence: NewExistenceValidator(client),
		accuracy:  NewAccuracyValidator(client),
	}
}

// ValidateProductExists uses the accuracy check when a code is present,
// otherwise the plain existence check.
func (pv *ProductValidator) ValidateProductExists(ctx context.Context, name, code string) (*types.ValidationResult, error) {
	if code != "" {
		return pv.accuracy.Validate(ctx, name, code)
	}
	return pv.existence.Validate(ctx, name)
}

// ValidateDataAccuracy verifies name and code, then grants a small
// bonus when the recorded category also appears in the results.
func (pv *ProductValidator) ValidateDataAccuracy(ctx context.Context, name, code, category string) (*types.ValidationResult, error) {
	result, err := pv.accuracy.Validate(ctx, name, code)
	if err != nil || result == nil || category == "" {
		return result, err
	}

	categoryLower := strings.ToLower(category)
	for _, item := range result.Results {
		if strings.Contains(strings.ToLower(item.Title+" "+item.Snippet), categoryLower) {
			if result.Details == nil {
				result.Details = make(map[string]any)
			}
			result.Details["category_found"] = true
			result.Score *= 1.1
			if result.Score > 1.0 {
				result.Score = 1.0
			}
			break
		}
	}
	return result, nil
}

func errorResult(msg string) *types.ValidationResult {
	return &types.ValidationResult{
		Status:    "error",
		Message:   msg,
		Timestamp: time.Now(),
	}
}

func searchErrorResult(err error) *types.ValidationResult {
	return &types.ValidationResult{
		Status:    "error",
		Message:   fmt.Sprintf("search failed: %v", err),
		Timestamp: time.Now(),
		Details:   map[string]any{"error": err.Error()},
	}
}
