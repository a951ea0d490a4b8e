package pipeline

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twfooddata/nutridb/internal/config"
	"github.com/twfooddata/nutridb/internal/observability"
	"github.com/twfooddata/nutridb/internal/storage"
)

const fixtureJSON = `[
  {"食品分類":"穀物類","整合編號":"A0001","樣品名稱":"白飯","樣品英文名稱":"cooked rice","分析項分類":"一般成分","分析項":"熱量","含量單位":"kcal","每100克含量":"385","樣本數":"3","標準差":"2.1"},
  {"食品分類":"穀物類","整合編號":"A0001","樣品名稱":"白飯","樣品英文名稱":"cooked rice","分析項分類":"一般成分","分析項":"粗蛋白","含量單位":"g","每100克含量":"7.5"},
  {"食品分類":"肉類","整合編號":"B0001","樣品名稱":"雞胸肉","廢棄率":"5%","分析項分類":"一般成分","分析項":"熱量","含量單位":"kcal","每100克含量":"104"},
  {"食品分類":"油脂類","整合編號":"C0001","樣品名稱":"植物油","分析項分類":"脂肪酸組成","分析項":"P/M/S","每100克含量":"1.52/1.89/1.00"},
  {"食品分類":"油脂類","整合編號":"C0001","樣品名稱":"植物油","分析項分類":"一般成分","分析項":"熱量","含量單位":"kcal","每100克含量":"884"}
]`

// writeFixture writes the five-record sample export, BOM included like
// the real FDA file.
func writeFixture(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "export.json")
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte(fixtureJSON)...)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func testConfig(t *testing.T, dir string) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Database.SQLite.Path = filepath.Join(dir, "nutrition.db")
	return cfg
}

func TestPipeline_Run_FullBuild(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	inputPath := writeFixture(t, dir)
	reportPath := filepath.Join(dir, "report.json")

	result, err := New(cfg, observability.DefaultLogger()).Run(context.Background(), RunOptions{
		InputPath:  inputPath,
		ReportPath: reportPath,
	})
	require.NoError(t, err)

	assert.Equal(t, 5, result.TotalRecords)
	assert.Equal(t, 3, result.Counts.Categories)
	assert.Equal(t, 2, result.Counts.NutrientCategories)
	assert.Equal(t, 3, result.Counts.Foods)
	assert.Equal(t, 5, result.Counts.Nutrients)
	assert.Equal(t, 7, result.Counts.FoodNutrients)
	assert.Equal(t, 3, result.ExpandedFactRows)
	if result.SearchEnabled {
		assert.Empty(t, result.Warnings)
	} else {
		assert.Contains(t, result.Warnings, storage.WarnSearchUnavailable)
	}

	db, err := sql.Open("sqlite3", cfg.Database.SQLite.Path)
	require.NoError(t, err)
	defer db.Close()
	repos := storage.NewRepositories(db, "sqlite")
	ctx := context.Background()

	categories, err := repos.Categories.List(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 3)
	assert.Equal(t, "油脂類", categories[0].Name)
	assert.Equal(t, "穀物類", categories[1].Name)
	assert.Equal(t, "肉類", categories[2].Name)

	foods, err := repos.Foods.List(ctx)
	require.NoError(t, err)
	require.Len(t, foods, 3)
	assert.Equal(t, "A0001", *foods[0].Code)
	assert.Equal(t, "B0001", *foods[1].Code)
	assert.Equal(t, "C0001", *foods[2].Code)
	require.NotNil(t, foods[1].WasteRate)
	assert.Equal(t, 5.0, *foods[1].WasteRate)
	require.NotNil(t, foods[0].CategoryID)
	assert.Equal(t, categories[1].ID, *foods[0].CategoryID)

	nutrients, err := repos.Nutrients.List(ctx)
	require.NoError(t, err)
	require.Len(t, nutrients, 5)
	assert.Equal(t, "熱量", nutrients[0].Name)
	assert.Equal(t, "粗蛋白", nutrients[1].Name)
	assert.Equal(t, "脂肪酸比例-單元不飽和", nutrients[2].Name)
	assert.Equal(t, "脂肪酸比例-多元不飽和", nutrients[3].Name)
	assert.Equal(t, "脂肪酸比例-飽和", nutrients[4].Name)
	assert.Nil(t, nutrients[2].Unit)

	// The oil gets its regular calorie fact plus the three decomposed
	// ratio facts.
	oilFacts, err := repos.Facts.ListByFood(ctx, foods[2].ID)
	require.NoError(t, err)
	require.Len(t, oilFacts, 4)
	assert.Equal(t, 884.0, *oilFacts[0].ValuePer100g)
	assert.Equal(t, 1.89, *oilFacts[1].ValuePer100g)
	assert.Equal(t, 1.52, *oilFacts[2].ValuePer100g)
	assert.Equal(t, 1.00, *oilFacts[3].ValuePer100g)

	raw, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), `"run_id"`))
	assert.True(t, strings.Contains(string(raw), `"expanded_fact_rows"`))

	var report Report
	require.NoError(t, json.Unmarshal(raw, &report))
	assert.Equal(t, result.RunID.String(), report.RunID)
	assert.Equal(t, inputPath, report.InputFile)
	assert.Equal(t, 5, report.Counts.TotalRecords)
	assert.Equal(t, 3, report.Counts.Foods)
	assert.Equal(t, 7, report.Counts.FoodNutrients)
	assert.Equal(t, 3, report.ExpandedFactRows)
	assert.Equal(t, result.SearchEnabled, report.SearchEnabled)
	assert.Equal(t, result.Warnings, report.Warnings)
}

func TestPipeline_Run_Deterministic(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	inputPath := writeFixture(t, dir)
	logger := observability.DefaultLogger()

	snapshot := func() ([]storage.Food, []storage.Nutrient, []storage.FoodNutrientFact) {
		db, err := sql.Open("sqlite3", cfg.Database.SQLite.Path)
		require.NoError(t, err)
		defer db.Close()
		ctx := context.Background()
		repos := storage.NewRepositories(db, "sqlite")

		foods, err := repos.Foods.List(ctx)
		require.NoError(t, err)
		nutrients, err := repos.Nutrients.List(ctx)
		require.NoError(t, err)

		rows, err := db.QueryContext(ctx,
			"SELECT food_id, nutrient_id, value_per_100g, sample_count, std_deviation FROM food_nutrients ORDER BY rowid")
		require.NoError(t, err)
		defer rows.Close()
		var facts []storage.FoodNutrientFact
		for rows.Next() {
			var f storage.FoodNutrientFact
			require.NoError(t, rows.Scan(&f.FoodID, &f.NutrientID, &f.ValuePer100g, &f.SampleCount, &f.StdDeviation))
			facts = append(facts, f)
		}
		require.NoError(t, rows.Err())
		return foods, nutrients, facts
	}

	_, err := New(cfg, logger).Run(context.Background(), RunOptions{InputPath: inputPath})
	require.NoError(t, err)
	foods1, nutrients1, facts1 := snapshot()

	_, err = New(cfg, logger).Run(context.Background(), RunOptions{InputPath: inputPath})
	require.NoError(t, err)
	foods2, nutrients2, facts2 := snapshot()

	assert.Equal(t, foods1, foods2)
	assert.Equal(t, nutrients1, nutrients2)
	assert.Equal(t, facts1, facts2)
}

func TestPipeline_Run_SkipSearch(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	inputPath := writeFixture(t, dir)

	result, err := New(cfg, observability.DefaultLogger()).Run(context.Background(), RunOptions{
		InputPath:  inputPath,
		SkipSearch: true,
	})
	require.NoError(t, err)

	// Asking to skip is not a degradation, so no warning is recorded.
	assert.False(t, result.SearchEnabled)
	assert.Empty(t, result.Warnings)
}

func TestPipeline_Run_SearchDisabledByConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	cfg.Search.Enabled = false
	inputPath := writeFixture(t, dir)

	result, err := New(cfg, observability.DefaultLogger()).Run(context.Background(), RunOptions{InputPath: inputPath})
	require.NoError(t, err)
	assert.False(t, result.SearchEnabled)
	assert.Empty(t, result.Warnings)
}

func TestPipeline_Run_MissingInput(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)

	_, err := New(cfg, observability.DefaultLogger()).Run(context.Background(), RunOptions{
		InputPath: filepath.Join(dir, "absent.json"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read input")
}

func TestPipeline_Run_OnStageSequence(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	inputPath := writeFixture(t, dir)

	var stages []string
	var recordCounts []int
	_, err := New(cfg, observability.DefaultLogger()).Run(context.Background(), RunOptions{
		InputPath: inputPath,
		OnRecord:  func(count int) { recordCounts = append(recordCounts, count) },
		OnStage:   func(stage string) { stages = append(stages, stage) },
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"read", "clean", "expand", "dimensions", "facts", "persist", "indexes", "search", "report"}, stages)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, recordCounts)
}

func TestReport_Write_UnescapedUnicode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.json")

	report := &Report{
		RunID:     "4b2f5a50-7b25-4b48-9c43-0a1eaf1f8f01",
		InputFile: "資料/export.json",
		Warnings:  []string{},
	}
	require.NoError(t, report.Write(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	// Chinese characters are written literally, not as \u escapes.
	assert.Contains(t, string(raw), "資料/export.json")
	assert.NotContains(t, string(raw), `\u`)
	assert.Contains(t, string(raw), `"warnings": []`)

	var parsed Report
	require.NoError(t, json.Unmarshal(raw, &parsed))
	assert.Equal(t, report.InputFile, parsed.InputFile)
}
