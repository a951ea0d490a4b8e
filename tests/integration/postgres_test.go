// Package integration provides integration tests for nutridb against a
// real PostgreSQL instance.
package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/twfooddata/nutridb/internal/config"
	"github.com/twfooddata/nutridb/internal/observability"
	"github.com/twfooddata/nutridb/internal/pipeline"
	"github.com/twfooddata/nutridb/internal/storage"
	"github.com/twfooddata/nutridb/internal/validation"
)

const fixtureJSON = `[
  {"食品分類":"穀物類","整合編號":"A0001","樣品名稱":"白飯","樣品英文名稱":"cooked rice","分析項分類":"一般成分","分析項":"熱量","含量單位":"kcal","每100克含量":"385","樣本數":"3","標準差":"2.1"},
  {"食品分類":"穀物類","整合編號":"A0001","樣品名稱":"白飯","樣品英文名稱":"cooked rice","分析項分類":"一般成分","分析項":"粗蛋白","含量單位":"g","每100克含量":"7.5"},
  {"食品分類":"肉類","整合編號":"B0001","樣品名稱":"雞胸肉","廢棄率":"5%","分析項分類":"一般成分","分析項":"熱量","含量單位":"kcal","每100克含量":"104"},
  {"食品分類":"油脂類","整合編號":"C0001","樣品名稱":"植物油","分析項分類":"脂肪酸組成","分析項":"P/M/S","每100克含量":"1.52/1.89/1.00"},
  {"食品分類":"油脂類","整合編號":"C0001","樣品名稱":"植物油","分析項分類":"一般成分","分析項":"熱量","含量單位":"kcal","每100克含量":"884"}
]`

// setupPostgres starts a disposable PostgreSQL container and returns
// its connection string.
func setupPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("nutridb_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate postgres container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://test:test@%s:%s/nutridb_test?sslmode=disable", host, port.Port())
}

func TestPostgresBuild(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dsn := setupPostgres(t)
	ctx := context.Background()

	dir := t.TempDir()
	inputPath := filepath.Join(dir, "export.json")
	require.NoError(t, os.WriteFile(inputPath, []byte(fixtureJSON), 0o644))

	cfg := config.DefaultConfig()
	cfg.Database.Driver = "postgres"
	cfg.Database.Postgres.DSN = dsn
	logger := observability.DefaultLogger()

	result, err := pipeline.New(cfg, logger).Run(ctx, pipeline.RunOptions{InputPath: inputPath})
	require.NoError(t, err)

	assert.Equal(t, 5, result.TotalRecords)
	assert.Equal(t, 3, result.Counts.Foods)
	assert.Equal(t, 5, result.Counts.Nutrients)
	assert.Equal(t, 7, result.Counts.FoodNutrients)
	assert.Equal(t, 3, result.ExpandedFactRows)

	// Full-text search never exists on postgres.
	assert.False(t, result.SearchEnabled)
	assert.Contains(t, result.Warnings, storage.WarnSearchUnavailable)

	db, err := storage.Open(ctx, cfg)
	require.NoError(t, err)
	defer db.Close()
	repos := storage.NewRepositories(db, "postgres")

	t.Run("repositories round trip", func(t *testing.T) {
		categories, err := repos.Categories.List(ctx)
		require.NoError(t, err)
		require.Len(t, categories, 3)
		assert.Equal(t, "油脂類", categories[0].Name)

		category, err := repos.Categories.GetByName(ctx, "穀物類")
		require.NoError(t, err)
		assert.Equal(t, categories[1].ID, category.ID)

		foods, err := repos.Foods.ListByCode(ctx, "B0001")
		require.NoError(t, err)
		require.Len(t, foods, 1)
		require.NotNil(t, foods[0].WasteRate)
		assert.Equal(t, 5.0, *foods[0].WasteRate)

		_, err = repos.Foods.ListByCode(ctx, "Z9999")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		oil, err := repos.Foods.ListByCode(ctx, "C0001")
		require.NoError(t, err)
		facts, err := repos.Facts.ListByFood(ctx, oil[0].ID)
		require.NoError(t, err)
		assert.Len(t, facts, 4)
	})

	t.Run("validation", func(t *testing.T) {
		vres, err := validation.NewEngine(db, "postgres", logger).Run(ctx)
		require.NoError(t, err)

		// The five-record fixture trips every cardinality threshold and
		// nothing else: integrity, ratio nutrients, data quality, and
		// the pg_indexes introspection all pass.
		require.Len(t, vres.Violations, 4)
		for _, v := range vres.Violations {
			assert.Equal(t, "counts", v.Check)
		}
		assert.False(t, vres.SearchIndexed)
		assert.InDelta(t, 0.0, vres.CalorieNullRatio, 0.001)
	})

	t.Run("rebuild is deterministic", func(t *testing.T) {
		foods1, err := repos.Foods.List(ctx)
		require.NoError(t, err)
		nutrients1, err := repos.Nutrients.List(ctx)
		require.NoError(t, err)

		_, err = pipeline.New(cfg, logger).Run(ctx, pipeline.RunOptions{InputPath: inputPath})
		require.NoError(t, err)

		foods2, err := repos.Foods.List(ctx)
		require.NoError(t, err)
		nutrients2, err := repos.Nutrients.List(ctx)
		require.NoError(t, err)

		assert.Equal(t, foods1, foods2)
		assert.Equal(t, nutrients1, nutrients2)
	})
}
