package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/search-gateway/internal/validate"
)

var validateCmd = &cobra.Command{
	Use:   "validate <product name>",
	Short: "Validate a product record against live search results",
	Long: `Validate searches the web for a product and reports whether it exists and
how well its recorded fields match what the web says. With --code the
model code is verified too; with --category a matching category grants a
small score bonus.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	addGatewayFlags(validateCmd)
	validateCmd.Flags().String("code", "", "product model code to verify")
	validateCmd.Flags().String("category", "", "product category to check for")
	validateCmd.Flags().Bool("json", false, "output the validation result as JSON")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	g, err := buildGateway(cmd)
	if err != nil {
		return err
	}
	defer g.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	name := args[0]
	code, _ := cmd.Flags().GetString("code")
	category, _ := cmd.Flags().GetString("category")

	pv := validate.NewProductValidator(g.client)

	result, err := pv.ValidateProductExists(ctx, name, code)
	if err != nil {
		return err
	}
	if category != "" {
		result, err = pv.ValidateDataAccuracy(ctx, name, code, category)
		if err != nil {
			return err
		}
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Printf("Status:  %s\n", result.Status)
	fmt.Printf("Found:   %t\n", result.Found)
	fmt.Printf("Score:   %.2f\n", result.Score)
	fmt.Printf("Message: %s\n", result.Message)
	if result.Provider != "" {
		fmt.Printf("Via:     %s\n", result.Provider)
	}
	if result.Status != "success" {
		return fmt.Errorf("validation did not succeed: %s", result.Status)
	}
	return nil
}
