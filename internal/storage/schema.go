package storage

import (
	"context"
	"fmt"

	"github.com/twfooddata/nutridb/internal/observability"
)

// SchemaManager owns the relational schema. Every run rebuilds the five
// tables from scratch, so EnsureSchema drops before it creates.
type SchemaManager struct {
	db     DB
	driver string
	logger *observability.Logger
}

// NewSchemaManager creates a schema manager for the given connection.
func NewSchemaManager(db DB, driver string, logger *observability.Logger) *SchemaManager {
	return &SchemaManager{
		db:     db,
		driver: driver,
		logger: logger.WithComponent("storage.schema"),
	}
}

// EnsureSchema drops any previous tables and creates the current schema.
func (m *SchemaManager) EnsureSchema(ctx context.Context) error {
	drops := []string{
		"DROP TABLE IF EXISTS foods_fts",
		"DROP TABLE IF EXISTS nutrients_fts",
		"DROP TABLE IF EXISTS food_nutrients",
		"DROP TABLE IF EXISTS nutrients",
		"DROP TABLE IF EXISTS foods",
		"DROP TABLE IF EXISTS nutrient_categories",
		"DROP TABLE IF EXISTS categories",
	}
	if m.driver == "postgres" {
		// The FTS virtual tables only ever exist on sqlite.
		drops = drops[2:]
	}
	for _, stmt := range drops {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("drop table: %w", err)
		}
	}

	for _, stmt := range m.createStatements() {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	m.logger.Debug().Str("driver", m.driver).Msg("Schema created")
	return nil
}

func (m *SchemaManager) createStatements() []string {
	switch m.driver {
	case "sqlite", "":
		return []string{
			`CREATE TABLE categories (
				id INTEGER PRIMARY KEY,
				name TEXT NOT NULL
			)`,
			`CREATE TABLE nutrient_categories (
				id INTEGER PRIMARY KEY,
				name TEXT NOT NULL
			)`,
			`CREATE TABLE foods (
				id INTEGER PRIMARY KEY,
				code TEXT,
				name_zh TEXT,
				name_en TEXT,
				category_id INTEGER,
				alias TEXT,
				description TEXT,
				waste_rate REAL,
				serving_size REAL
			)`,
			`CREATE TABLE nutrients (
				id INTEGER PRIMARY KEY,
				category_id INTEGER,
				name TEXT NOT NULL,
				unit TEXT
			)`,
			`CREATE TABLE food_nutrients (
				food_id INTEGER NOT NULL,
				nutrient_id INTEGER NOT NULL,
				value_per_100g REAL,
				sample_count INTEGER,
				std_deviation REAL
			)`,
		}
	default:
		return []string{
			`CREATE TABLE categories (
				id BIGINT PRIMARY KEY,
				name TEXT NOT NULL
			)`,
			`CREATE TABLE nutrient_categories (
				id BIGINT PRIMARY KEY,
				name TEXT NOT NULL
			)`,
			`CREATE TABLE foods (
				id BIGINT PRIMARY KEY,
				code TEXT,
				name_zh TEXT,
				name_en TEXT,
				category_id BIGINT,
				alias TEXT,
				description TEXT,
				waste_rate DOUBLE PRECISION,
				serving_size DOUBLE PRECISION
			)`,
			`CREATE TABLE nutrients (
				id BIGINT PRIMARY KEY,
				category_id BIGINT,
				name TEXT NOT NULL,
				unit TEXT
			)`,
			`CREATE TABLE food_nutrients (
				food_id BIGINT NOT NULL,
				nutrient_id BIGINT NOT NULL,
				value_per_100g DOUBLE PRECISION,
				sample_count BIGINT,
				std_deviation DOUBLE PRECISION
			)`,
		}
	}
}

// CreateIndexes adds the query indexes after the bulk load.
func (m *SchemaManager) CreateIndexes(ctx context.Context) error {
	statements := []string{
		"CREATE INDEX idx_foods_category ON foods(category_id)",
		"CREATE INDEX idx_foods_name ON foods(name_zh)",
		"CREATE INDEX idx_foods_code ON foods(code)",
		"CREATE INDEX idx_nutrients_category ON nutrients(category_id)",
		"CREATE INDEX idx_nutrients_name ON nutrients(name)",
		"CREATE INDEX idx_food_nutrients_food ON food_nutrients(food_id)",
		"CREATE INDEX idx_food_nutrients_nutrient ON food_nutrients(nutrient_id)",
	}
	for _, stmt := range statements {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	m.logger.Debug().Int("indexes", len(statements)).Msg("Indexes created")
	return nil
}
