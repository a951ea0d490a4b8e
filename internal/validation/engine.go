// Package validation checks a built nutrition database against the
// published dataset's expected shape.
package validation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/twfooddata/nutridb/internal/normalize"
	"github.com/twfooddata/nutridb/internal/observability"
	"github.com/twfooddata/nutridb/internal/storage"
)

// Expected shape of a full FDA dataset build.
const (
	minFoodCount             = 2000
	expectedCategoryCount    = 18
	expectedNutrientCatCount = 11
	minNutrientCount         = 100
	maxCalorieNullRatio      = 10.0
	calorieNutrientName      = "熱量"
	ratioNutrientPrefix      = "脂肪酸比例"
	searchProbeTerm          = "維生素"
)

// expectedIndexes are the query indexes every build creates.
var expectedIndexes = []string{
	"idx_foods_category",
	"idx_foods_name",
	"idx_foods_code",
	"idx_nutrients_category",
	"idx_nutrients_name",
	"idx_food_nutrients_food",
	"idx_food_nutrients_nutrient",
}

// Violation describes one failed validation check.
type Violation struct {
	Check   string `json:"check"`
	Message string `json:"message"`
}

// Result aggregates the outcome of a validation run. A database passes
// when Violations is empty; the remaining fields carry the measured
// values for reporting.
type Result struct {
	CheckedAt        time.Time           `json:"checked_at"`
	Counts           storage.TableCounts `json:"counts"`
	CalorieNullRatio float64             `json:"calorie_null_ratio"`
	SearchIndexed    bool                `json:"search_indexed"`
	SearchMatches    int                 `json:"search_matches"`
	Violations       []Violation         `json:"violations"`
}

// Passed reports whether every check succeeded.
func (r *Result) Passed() bool {
	return len(r.Violations) == 0
}

func (r *Result) fail(check, format string, args ...interface{}) {
	r.Violations = append(r.Violations, Violation{
		Check:   check,
		Message: fmt.Sprintf(format, args...),
	})
}

// Engine runs the validation checks over a built database. Checks are
// independent: a failed check records a violation and the remaining
// checks still run.
type Engine struct {
	db     storage.DB
	driver string
	logger *observability.Logger
}

// NewEngine creates a validation engine for the given connection and
// driver ("sqlite" or "postgres").
func NewEngine(db storage.DB, driver string, logger *observability.Logger) *Engine {
	return &Engine{
		db:     db,
		driver: driver,
		logger: logger.WithComponent("validation"),
	}
}

// Run executes every check and returns the aggregated result. An error
// is returned only when a check cannot be executed at all; findings are
// reported as violations.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	e.logger.Info().Str("driver", e.driver).Msg("Starting validation")

	result := &Result{CheckedAt: time.Now()}

	if err := e.checkCounts(ctx, result); err != nil {
		return nil, err
	}
	if err := e.checkReferentialIntegrity(ctx, result); err != nil {
		return nil, err
	}
	if err := e.checkRatioNutrients(ctx, result); err != nil {
		return nil, err
	}
	if err := e.checkDataQuality(ctx, result); err != nil {
		return nil, err
	}
	if err := e.checkSearchTables(ctx, result); err != nil {
		return nil, err
	}
	if err := e.checkIndexes(ctx, result); err != nil {
		return nil, err
	}

	e.logger.Info().
		Int("violations", len(result.Violations)).
		Bool("passed", result.Passed()).
		Msg("Validation completed")

	return result, nil
}

// checkCounts verifies the dimension tables have the published
// dataset's cardinality.
func (e *Engine) checkCounts(ctx context.Context, result *Result) error {
	counts, err := storage.NewRepositories(e.db, e.driver).Counts(ctx)
	if err != nil {
		return fmt.Errorf("validate counts: %w", err)
	}
	result.Counts = counts

	if counts.Foods <= minFoodCount {
		result.fail("counts", "food count %d should be > %d", counts.Foods, minFoodCount)
	}
	if counts.Categories != expectedCategoryCount {
		result.fail("counts", "category count %d should be %d", counts.Categories, expectedCategoryCount)
	}
	if counts.NutrientCategories != expectedNutrientCatCount {
		result.fail("counts", "nutrient category count %d should be %d", counts.NutrientCategories, expectedNutrientCatCount)
	}
	if counts.Nutrients <= minNutrientCount {
		result.fail("counts", "nutrient count %d should be > %d", counts.Nutrients, minNutrientCount)
	}
	return nil
}

// checkReferentialIntegrity looks for fact or dimension rows pointing
// at ids that do not exist. Null foreign keys are legal and never count
// as orphans.
func (e *Engine) checkReferentialIntegrity(ctx context.Context, result *Result) error {
	checks := []struct {
		query   string
		message string
	}{
		{
			"SELECT COUNT(*) FROM foods WHERE category_id NOT IN (SELECT id FROM categories)",
			"found %d foods with invalid category_id",
		},
		{
			"SELECT COUNT(*) FROM nutrients WHERE category_id NOT IN (SELECT id FROM nutrient_categories)",
			"found %d nutrients with invalid category_id",
		},
		{
			"SELECT COUNT(*) FROM food_nutrients WHERE food_id NOT IN (SELECT id FROM foods)",
			"found %d food_nutrients with invalid food_id",
		},
		{
			"SELECT COUNT(*) FROM food_nutrients WHERE nutrient_id NOT IN (SELECT id FROM nutrients)",
			"found %d food_nutrients with invalid nutrient_id",
		},
	}
	for _, check := range checks {
		var orphans int
		if err := e.db.QueryRowContext(ctx, check.query).Scan(&orphans); err != nil {
			return fmt.Errorf("validate referential integrity: %w", err)
		}
		if orphans > 0 {
			result.fail("referential_integrity", check.message, orphans)
		}
	}
	return nil
}

// checkRatioNutrients verifies the three fatty acid ratio nutrients
// decomposed from composite observations exist.
func (e *Engine) checkRatioNutrients(ctx context.Context, result *Result) error {
	rows, err := e.db.QueryContext(ctx,
		"SELECT name FROM nutrients WHERE name LIKE '"+ratioNutrientPrefix+"%' ORDER BY name")
	if err != nil {
		return fmt.Errorf("validate ratio nutrients: %w", err)
	}
	defer rows.Close()

	found := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		found[name] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, expected := range normalize.SyntheticRatioNames {
		if !found[expected] {
			result.fail("ratio_nutrients", "missing fatty acid ratio nutrient: %s", expected)
		}
	}
	return nil
}

// checkDataQuality verifies calorie coverage, value signs, and food
// code uniqueness.
func (e *Engine) checkDataQuality(ctx context.Context, result *Result) error {
	var totalFoods int
	if err := e.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM foods").Scan(&totalFoods); err != nil {
		return fmt.Errorf("validate data quality: %w", err)
	}

	calorieQuery := `
		SELECT COUNT(DISTINCT f.id)
		FROM foods f
		JOIN food_nutrients fn ON f.id = fn.food_id
		JOIN nutrients n ON fn.nutrient_id = n.id
		WHERE n.name = ? AND fn.value_per_100g IS NOT NULL
	`
	if e.driver == "postgres" {
		calorieQuery = strings.Replace(calorieQuery, "?", "$1", 1)
	}
	var foodsWithCalories int
	if err := e.db.QueryRowContext(ctx, calorieQuery, calorieNutrientName).Scan(&foodsWithCalories); err != nil {
		return fmt.Errorf("validate calorie coverage: %w", err)
	}
	if totalFoods > 0 {
		result.CalorieNullRatio = float64(totalFoods-foodsWithCalories) / float64(totalFoods) * 100
	}
	if result.CalorieNullRatio >= maxCalorieNullRatio {
		result.fail("data_quality", "calorie null ratio %.1f%% should be < %.0f%%", result.CalorieNullRatio, maxCalorieNullRatio)
	}

	var negatives int
	if err := e.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM food_nutrients WHERE value_per_100g < 0").Scan(&negatives); err != nil {
		return fmt.Errorf("validate value signs: %w", err)
	}
	if negatives > 0 {
		result.fail("data_quality", "found %d negative nutrient values", negatives)
	}

	var duplicates int
	if err := e.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM (
			SELECT code FROM foods GROUP BY code HAVING COUNT(*) > 1
		) dup`).Scan(&duplicates); err != nil {
		return fmt.Errorf("validate code uniqueness: %w", err)
	}
	if duplicates > 0 {
		result.fail("data_quality", "found %d duplicate food codes", duplicates)
	}
	return nil
}

// checkSearchTables validates the optional full-text tables. Absence is
// fine; a partial or broken pair is a violation. The capability never
// exists on postgres.
func (e *Engine) checkSearchTables(ctx context.Context, result *Result) error {
	if e.driver == "postgres" {
		return nil
	}

	rows, err := e.db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name LIKE '%_fts'")
	if err != nil {
		return fmt.Errorf("validate search tables: %w", err)
	}
	defer rows.Close()

	found := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		found[name] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(found) == 0 {
		return nil
	}

	missing := false
	for _, expected := range []string{"foods_fts", "nutrients_fts"} {
		if !found[expected] {
			result.fail("search", "missing search table: %s", expected)
			missing = true
		}
	}
	if missing {
		return nil
	}

	result.SearchIndexed = true

	// Trigram tokenization needs three or more characters to match.
	var matches int
	err = e.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM nutrients_fts WHERE nutrients_fts MATCH '"+searchProbeTerm+"'").Scan(&matches)
	if err != nil {
		result.fail("search", "search query failed: %v", err)
		return nil
	}
	result.SearchMatches = matches
	return nil
}

// checkIndexes verifies the named query indexes exist.
func (e *Engine) checkIndexes(ctx context.Context, result *Result) error {
	query := "SELECT name FROM sqlite_master WHERE type = 'index'"
	if e.driver == "postgres" {
		query = "SELECT indexname FROM pg_indexes WHERE schemaname = current_schema()"
	}

	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("validate indexes: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		existing[name] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}

	var missing []string
	for _, idx := range expectedIndexes {
		if !existing[idx] {
			missing = append(missing, idx)
		}
	}
	if len(missing) > 0 {
		result.fail("indexes", "missing indexes: %s", strings.Join(missing, ", "))
	}
	return nil
}
