package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
)

// ReportCounts holds the input and per-table record counts of one run.
type ReportCounts struct {
	TotalRecords       int `json:"total_records"`
	Foods              int `json:"foods"`
	Categories         int `json:"categories"`
	NutrientCategories int `json:"nutrient_categories"`
	Nutrients          int `json:"nutrients"`
	FoodNutrients      int `json:"food_nutrients"`
}

// Report is the run summary written after a build.
type Report struct {
	RunID            string       `json:"run_id"`
	InputFile        string       `json:"input_file"`
	Counts           ReportCounts `json:"counts"`
	ExpandedFactRows int          `json:"expanded_fact_rows"`
	SearchEnabled    bool         `json:"search_enabled"`
	Warnings         []string     `json:"warnings"`
	DurationSeconds  float64      `json:"duration_seconds"`
}

// NewReport converts a run result into its serializable report.
func NewReport(result *Result) *Report {
	return &Report{
		RunID:     result.RunID.String(),
		InputFile: result.InputFile,
		Counts: ReportCounts{
			TotalRecords:       result.TotalRecords,
			Foods:              result.Counts.Foods,
			Categories:         result.Counts.Categories,
			NutrientCategories: result.Counts.NutrientCategories,
			Nutrients:          result.Counts.Nutrients,
			FoodNutrients:      result.Counts.FoodNutrients,
		},
		ExpandedFactRows: result.ExpandedFactRows,
		SearchEnabled:    result.SearchEnabled,
		Warnings:         result.Warnings,
		DurationSeconds:  result.Duration.Seconds(),
	}
}

// Write serializes the report as indented JSON. Chinese text is
// emitted unescaped.
func (r *Report) Write(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		f.Close()
		return fmt.Errorf("encode report: %w", err)
	}
	return f.Close()
}
