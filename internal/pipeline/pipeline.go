// Package pipeline wires the build stages into one sequential run:
// read, clean, expand, extract dimensions, link facts, persist, index.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/twfooddata/nutridb/internal/build"
	"github.com/twfooddata/nutridb/internal/config"
	"github.com/twfooddata/nutridb/internal/dataset"
	"github.com/twfooddata/nutridb/internal/normalize"
	"github.com/twfooddata/nutridb/internal/observability"
	"github.com/twfooddata/nutridb/internal/storage"
)

// Pipeline orchestrates a full database build. Each stage fully
// materializes its output before the next stage reads it; a run is a
// single writer over a single connection.
type Pipeline struct {
	logger *observability.Logger
	cfg    *config.Config
}

// RunOptions control a single build run.
type RunOptions struct {
	InputPath  string
	ReportPath string
	SkipSearch bool

	// OnRecord is called with the cumulative record count while the
	// input is read. OnStage is called as each build stage starts.
	// Both may be nil.
	OnRecord func(count int)
	OnStage  func(stage string)
}

// Result summarizes a completed build run.
type Result struct {
	RunID            uuid.UUID
	InputFile        string
	TotalRecords     int
	Counts           storage.TableCounts
	ExpandedFactRows int
	SearchEnabled    bool
	Warnings         []string
	StartedAt        time.Time
	CompletedAt      time.Time
	Duration         time.Duration
}

// New creates a build pipeline.
func New(cfg *config.Config, logger *observability.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.WithComponent("pipeline"),
		cfg:    cfg,
	}
}

// Run executes the full build and returns its summary. Malformed
// values inside records degrade to null; a stage that cannot produce
// its output at all fails the run.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	runID := uuid.New()
	result := &Result{
		RunID:     runID,
		InputFile: opts.InputPath,
		Warnings:  []string{},
		StartedAt: time.Now(),
	}
	logger := p.logger.WithRun(runID.String())

	logger.Info().
		Str("input", opts.InputPath).
		Str("driver", p.cfg.Database.Driver).
		Msg("Starting build run")

	// Step 1: Read raw observations
	p.stage(opts, "read")
	observations, err := dataset.ReadFile(opts.InputPath, opts.OnRecord)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	result.TotalRecords = len(observations)
	logger.Info().Int("records", len(observations)).Msg("Input loaded")

	// Step 2: Clean every field
	p.stage(opts, "clean")
	cleaned := normalize.NewNormalizer().CleanAll(observations)

	// Step 3: Expand composite ratio observations
	p.stage(opts, "expand")
	expanded := normalize.NewExpander().ExpandAll(cleaned)
	logger.Debug().Int("candidates", len(expanded)).Msg("Composite ratios expanded")

	// Step 4: Extract dimensions
	p.stage(opts, "dimensions")
	dims := build.NewDimensionSet(cleaned)
	logger.Info().
		Int("categories", len(dims.Categories)).
		Int("nutrient_categories", len(dims.NutrientCategories)).
		Int("foods", len(dims.Foods)).
		Int("nutrients", len(dims.Nutrients)).
		Msg("Dimensions extracted")

	// Step 5: Link facts
	p.stage(opts, "facts")
	linked := build.NewFactLinker(dims).Link(cleaned, expanded)
	result.ExpandedFactRows = linked.ExpandedFacts
	logger.Info().
		Int("facts", len(linked.Facts)).
		Int("expanded_facts", linked.ExpandedFacts).
		Msg("Facts linked")

	// Step 6: Persist everything in one transaction
	p.stage(opts, "persist")
	db, err := storage.Open(ctx, p.cfg)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	driver := p.cfg.Database.Driver
	schema := storage.NewSchemaManager(db, driver, p.logger)
	if err := schema.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	if err := p.persist(ctx, storage.NewRepositories(tx, driver), dims, linked); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	// Step 7: Create query indexes
	p.stage(opts, "indexes")
	if err := schema.CreateIndexes(ctx); err != nil {
		return nil, err
	}

	// Step 8: Build optional search indexes
	p.stage(opts, "search")
	p.buildSearchIndexes(ctx, db, driver, opts, result, logger)

	// Step 9: Report
	p.stage(opts, "report")
	result.Counts, err = storage.NewRepositories(db, driver).Counts(ctx)
	if err != nil {
		return nil, err
	}

	result.CompletedAt = time.Now()
	result.Duration = result.CompletedAt.Sub(result.StartedAt)

	if opts.ReportPath != "" {
		if err := NewReport(result).Write(opts.ReportPath); err != nil {
			return nil, fmt.Errorf("write report: %w", err)
		}
		logger.Info().Str("path", opts.ReportPath).Msg("Report written")
	}

	logger.Info().
		Int("total_records", result.TotalRecords).
		Int("foods", result.Counts.Foods).
		Int("nutrients", result.Counts.Nutrients).
		Int("facts", result.Counts.FoodNutrients).
		Int("expanded_facts", result.ExpandedFactRows).
		Bool("search_enabled", result.SearchEnabled).
		Dur("duration", result.Duration).
		Msg("Build run completed")

	return result, nil
}

// persist bulk-inserts the finished tables in dependency order.
func (p *Pipeline) persist(ctx context.Context, repos *storage.Repositories, dims *build.DimensionSet, linked build.LinkResult) error {
	if err := repos.Categories.InsertBatch(ctx, dims.Categories); err != nil {
		return err
	}
	if err := repos.NutrientCategories.InsertBatch(ctx, dims.NutrientCategories); err != nil {
		return err
	}
	if err := repos.Foods.InsertBatch(ctx, dims.Foods); err != nil {
		return err
	}
	if err := repos.Nutrients.InsertBatch(ctx, dims.Nutrients); err != nil {
		return err
	}
	return repos.Facts.InsertBatch(ctx, linked.Facts)
}

// buildSearchIndexes attempts the optional full-text indexes. Failure
// is a recorded warning, never a run failure.
func (p *Pipeline) buildSearchIndexes(ctx context.Context, db storage.DB, driver string, opts RunOptions, result *Result, logger *observability.Logger) {
	if !p.cfg.Search.Enabled || opts.SkipSearch {
		logger.Debug().Msg("Search indexing disabled, skipping")
		return
	}

	search := storage.NewSearchIndexManager(db, driver, p.logger)
	switch {
	case driver == "postgres":
		result.Warnings = append(result.Warnings, storage.WarnSearchUnavailable)
		logger.Warn().Str("driver", driver).Msg("Full-text search not supported on this driver")
	case !search.Available(ctx):
		result.Warnings = append(result.Warnings, storage.WarnSearchUnavailable)
		logger.Warn().Msg("FTS5 trigram support missing, skipping search indexes")
	default:
		if err := search.Build(ctx); err != nil {
			result.Warnings = append(result.Warnings, storage.WarnSearchUnavailable)
			logger.Warn().Err(err).Msg("Search index build failed")
			return
		}
		result.SearchEnabled = true
	}
}

func (p *Pipeline) stage(opts RunOptions, name string) {
	if opts.OnStage != nil {
		opts.OnStage(name)
	}
}
