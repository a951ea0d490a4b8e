package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/twfooddata/nutridb/cmd/nutridb/ui"
	"github.com/twfooddata/nutridb/internal/config"
	"github.com/twfooddata/nutridb/internal/pipeline"
)

var (
	buildInput      string
	buildReport     string
	buildDataDir    string
	buildDBPath     string
	buildSkipSearch bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the nutrition database from the FDA dataset",
	Long: `Download (or read) the Taiwan FDA nutrition dataset, normalize it
into relational tables, and build the optional full-text search indexes.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildInput, "input", "", "Input JSON file path (skip download if provided)")
	buildCmd.Flags().StringVar(&buildReport, "report", "", "Output report JSON path")
	buildCmd.Flags().StringVar(&buildDataDir, "data-dir", "", "Directory for downloaded data")
	buildCmd.Flags().StringVar(&buildDBPath, "db", "", "Output SQLite database path")
	buildCmd.Flags().BoolVar(&buildSkipSearch, "skip-search", false, "Skip building full-text search indexes")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	applyBuildFlags(cfg)

	ui.InitUI(noColor, verbose)
	defer ui.Close()

	ui.Section("Nutrition Database Build")

	inputPath := buildInput
	if inputPath == "" {
		inputPath, err = downloadDataset(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("download dataset: %w", err)
		}
	} else if _, err := os.Stat(inputPath); err != nil {
		return fmt.Errorf("input file not found: %s", inputPath)
	}

	// The input length is unknown until fully read, so the read stage
	// gets an indeterminate record counter and later stages a spinner.
	bar := ui.NewProgressBar(-1, "Reading dataset")
	var spin *ui.Spinner

	opts := pipeline.RunOptions{
		InputPath:  inputPath,
		ReportPath: cfg.Report.Path,
		SkipSearch: buildSkipSearch,
		OnRecord: func(count int) {
			bar.Set(int64(count))
		},
		OnStage: func(stage string) {
			if stage == "read" {
				return
			}
			if spin == nil {
				bar.Finish()
				spin = ui.NewSpinner(stageMessage(stage))
				spin.Start()
				return
			}
			spin.UpdateMessage(stageMessage(stage))
		},
	}

	result, err := pipeline.New(cfg, logger).Run(ctx, opts)
	if spin != nil {
		spin.Stop()
	} else {
		bar.Finish()
	}
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	renderBuildResult(cfg, result)
	return nil
}

// applyBuildFlags folds the command flags into the loaded config.
func applyBuildFlags(cfg *config.Config) {
	if buildDataDir != "" {
		cfg.Source.DataDir = buildDataDir
	}
	if buildDBPath != "" {
		cfg.Database.Driver = "sqlite"
		cfg.Database.SQLite.Path = buildDBPath
	}
	if buildReport != "" {
		cfg.Report.Path = buildReport
	}
}

func stageMessage(stage string) string {
	switch stage {
	case "read":
		return "Reading dataset"
	case "clean":
		return "Cleaning observations"
	case "expand":
		return "Expanding composite ratios"
	case "dimensions":
		return "Extracting dimensions"
	case "facts":
		return "Linking facts"
	case "persist":
		return "Writing tables"
	case "indexes":
		return "Creating indexes"
	case "search":
		return "Building search indexes"
	case "report":
		return "Summarizing"
	default:
		return stage
	}
}

func renderBuildResult(cfg *config.Config, result *pipeline.Result) {
	ui.Success("Database built: %s", databaseTarget(cfg))
	ui.Newline()

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
	ui.KeyValue("Input records", strconv.Itoa(result.TotalRecords))
	ui.KeyValue("Expanded ratio facts", strconv.Itoa(result.ExpandedFactRows))
	ui.KeyValue("Search enabled", strconv.FormatBool(result.SearchEnabled))
	ui.KeyValue("Duration", ui.FormatDuration(result.Duration))

	for _, warning := range result.Warnings {
		ui.Warning("%s", warning)
	}
}
