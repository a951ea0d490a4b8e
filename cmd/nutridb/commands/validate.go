package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/twfooddata/nutridb/cmd/nutridb/ui"
	"github.com/twfooddata/nutridb/internal/storage"
	"github.com/twfooddata/nutridb/internal/validation"
)

var validateDBPath string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a built nutrition database",
	Long: `Check a built database against the dataset's expected shape:
record counts, referential integrity, fatty acid ratio nutrients, data
quality, search tables, and indexes.`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateDBPath, "db", "", "SQLite database path to validate")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if validateDBPath != "" {
		cfg.Database.Driver = "sqlite"
		cfg.Database.SQLite.Path = validateDBPath
	}

	ui.InitUI(noColor, verbose)
	defer ui.Close()

	ui.Section("Database Validation")
	ui.Info("Database: %s", databaseTarget(cfg))
	ui.Newline()

	db, err := storage.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	result, err := validation.NewEngine(db, cfg.Database.Driver, logger).Run(ctx)
	if err != nil {
		return fmt.Errorf("validation run: %w", err)
	}

	renderValidationResult(result)

	if !result.Passed() {
		return fmt.Errorf("validation failed with %d violation(s)", len(result.Violations))
	}
	ui.Success("Validation passed")
	return nil
}

func renderValidationResult(result *validation.Result) {
	ui.Table(
		[]string{"Table", "Rows"},
		[][]string{
			{"categories", strconv.Itoa(result.Counts.Categories)},
			{"nutrient_categories", strconv.Itoa(result.Counts.NutrientCategories)},
			{"foods", strconv.Itoa(result.Counts.Foods)},
			{"nutrients", strconv.Itoa(result.Counts.Nutrients)},
			{"food_nutrients", strconv.Itoa(result.Counts.FoodNutrients)},
		},
	)

	ui.Newline()
	ui.KeyValue("Calorie null ratio", fmt.Sprintf("%.1f%%", result.CalorieNullRatio))
	ui.KeyValue("Search indexed", strconv.FormatBool(result.SearchIndexed))
	if result.SearchIndexed {
		ui.KeyValue("Search matches", strconv.Itoa(result.SearchMatches))
	}
	ui.Newline()

	for _, v := range result.Violations {
		ui.Error("[%s] %s", v.Check, v.Message)
	}
}
