package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Common errors
var (
	ErrNotFound = errors.New("record not found")
)

// insertBatchSize bounds the rows per multi-row INSERT so the argument
// count stays under both drivers' placeholder limits.
const insertBatchSize = 500

// DB represents a database connection interface. Both *sql.DB and
// *sql.Tx satisfy it, so the pipeline can run the bulk load inside a
// single transaction.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Repositories bundles the per-table repositories over one connection.
type Repositories struct {
	Categories         *CategoryRepository
	NutrientCategories *NutrientCategoryRepository
	Foods              *FoodRepository
	Nutrients          *NutrientRepository
	Facts              *FactRepository
}

// NewRepositories creates repositories for the given connection and
// driver ("sqlite" or "postgres").
func NewRepositories(db DB, driver string) *Repositories {
	return &Repositories{
		Categories:         &CategoryRepository{db: db, driver: driver},
		NutrientCategories: &NutrientCategoryRepository{db: db, driver: driver},
		Foods:              &FoodRepository{db: db, driver: driver},
		Nutrients:          &NutrientRepository{db: db, driver: driver},
		Facts:              &FactRepository{db: db, driver: driver},
	}
}

// Counts returns the row count of every table.
func (r *Repositories) Counts(ctx context.Context) (TableCounts, error) {
	var counts TableCounts
	var err error
	if counts.Categories, err = r.Categories.Count(ctx); err != nil {
		return counts, err
	}
	if counts.NutrientCategories, err = r.NutrientCategories.Count(ctx); err != nil {
		return counts, err
	}
	if counts.Foods, err = r.Foods.Count(ctx); err != nil {
		return counts, err
	}
	if counts.Nutrients, err = r.Nutrients.Count(ctx); err != nil {
		return counts, err
	}
	if counts.FoodNutrients, err = r.Facts.Count(ctx); err != nil {
		return counts, err
	}
	return counts, nil
}

// placeholders renders the VALUES parameter list for rowCount rows of
// colCount columns in the driver's placeholder dialect.
func placeholders(driver string, rowCount, colCount int) string {
	var b strings.Builder
	arg := 1
	for row := 0; row < rowCount; row++ {
		if row > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for col := 0; col < colCount; col++ {
			if col > 0 {
				b.WriteString(", ")
			}
			if driver == "postgres" {
				b.WriteByte('$')
				b.WriteString(strconv.Itoa(arg))
			} else {
				b.WriteByte('?')
			}
			arg++
		}
		b.WriteByte(')')
	}
	return b.String()
}

func tableCount(ctx context.Context, db DB, table string) (int, error) {
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return count, nil
}

// CategoryRepository handles the categories dimension table.
type CategoryRepository struct {
	db     DB
	driver string
}

// InsertBatch bulk-inserts categories in stable order.
func (r *CategoryRepository) InsertBatch(ctx context.Context, categories []Category) error {
	const cols = 2
	for start := 0; start < len(categories); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(categories) {
			end = len(categories)
		}
		chunk := categories[start:end]

		args := make([]interface{}, 0, len(chunk)*cols)
		for _, c := range chunk {
			args = append(args, c.ID, c.Name)
		}
		query := "INSERT INTO categories (id, name) VALUES " + placeholders(r.driver, len(chunk), cols)
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert categories: %w", err)
		}
	}
	return nil
}

// List returns all categories ordered by id.
func (r *CategoryRepository) List(ctx context.Context) ([]Category, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name FROM categories ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// GetByName retrieves a category by its exact name.
func (r *CategoryRepository) GetByName(ctx context.Context, name string) (*Category, error) {
	query := "SELECT id, name FROM categories WHERE name = ?"
	if r.driver == "postgres" {
		query = "SELECT id, name FROM categories WHERE name = $1"
	}
	c := &Category{}
	err := r.db.QueryRowContext(ctx, query, name).Scan(&c.ID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

// Count returns the number of categories.
func (r *CategoryRepository) Count(ctx context.Context) (int, error) {
	return tableCount(ctx, r.db, "categories")
}

// NutrientCategoryRepository handles the nutrient_categories dimension
// table.
type NutrientCategoryRepository struct {
	db     DB
	driver string
}

// InsertBatch bulk-inserts nutrient categories in stable order.
func (r *NutrientCategoryRepository) InsertBatch(ctx context.Context, categories []NutrientCategory) error {
	const cols = 2
	for start := 0; start < len(categories); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(categories) {
			end = len(categories)
		}
		chunk := categories[start:end]

		args := make([]interface{}, 0, len(chunk)*cols)
		for _, c := range chunk {
			args = append(args, c.ID, c.Name)
		}
		query := "INSERT INTO nutrient_categories (id, name) VALUES " + placeholders(r.driver, len(chunk), cols)
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert nutrient categories: %w", err)
		}
	}
	return nil
}

// List returns all nutrient categories ordered by id.
func (r *NutrientCategoryRepository) List(ctx context.Context) ([]NutrientCategory, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name FROM nutrient_categories ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list nutrient categories: %w", err)
	}
	defer rows.Close()

	var categories []NutrientCategory
	for rows.Next() {
		var c NutrientCategory
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// Count returns the number of nutrient categories.
func (r *NutrientCategoryRepository) Count(ctx context.Context) (int, error) {
	return tableCount(ctx, r.db, "nutrient_categories")
}

// FoodRepository handles the foods dimension table.
type FoodRepository struct {
	db     DB
	driver string
}

// InsertBatch bulk-inserts foods in stable order.
func (r *FoodRepository) InsertBatch(ctx context.Context, foods []Food) error {
	const cols = 9
	for start := 0; start < len(foods); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(foods) {
			end = len(foods)
		}
		chunk := foods[start:end]

		args := make([]interface{}, 0, len(chunk)*cols)
		for _, f := range chunk {
			args = append(args,
				f.ID, f.Code, f.NameZH, f.NameEN, f.CategoryID,
				f.Alias, f.Description, f.WasteRate, f.ServingSize,
			)
		}
		query := `INSERT INTO foods (id, code, name_zh, name_en, category_id, alias, description, waste_rate, serving_size) VALUES ` +
			placeholders(r.driver, len(chunk), cols)
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert foods: %w", err)
		}
	}
	return nil
}

// List returns all foods ordered by id.
func (r *FoodRepository) List(ctx context.Context) ([]Food, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, code, name_zh, name_en, category_id, alias, description, waste_rate, serving_size FROM foods ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list foods: %w", err)
	}
	defer rows.Close()

	var foods []Food
	for rows.Next() {
		var f Food
		if err := rows.Scan(&f.ID, &f.Code, &f.NameZH, &f.NameEN, &f.CategoryID,
			&f.Alias, &f.Description, &f.WasteRate, &f.ServingSize); err != nil {
			return nil, err
		}
		foods = append(foods, f)
	}
	return foods, rows.Err()
}

// ListByCode returns the foods carrying the given integration code,
// ordered by id. Duplicate codes in the source yield multiple rows.
func (r *FoodRepository) ListByCode(ctx context.Context, code string) ([]Food, error) {
	query := "SELECT id, code, name_zh, name_en, category_id, alias, description, waste_rate, serving_size FROM foods WHERE code = ? ORDER BY id"
	if r.driver == "postgres" {
		query = strings.Replace(query, "?", "$1", 1)
	}
	rows, err := r.db.QueryContext(ctx, query, code)
	if err != nil {
		return nil, fmt.Errorf("list foods by code: %w", err)
	}
	defer rows.Close()

	var foods []Food
	for rows.Next() {
		var f Food
		if err := rows.Scan(&f.ID, &f.Code, &f.NameZH, &f.NameEN, &f.CategoryID,
			&f.Alias, &f.Description, &f.WasteRate, &f.ServingSize); err != nil {
			return nil, err
		}
		foods = append(foods, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(foods) == 0 {
		return nil, ErrNotFound
	}
	return foods, nil
}

// Count returns the number of foods.
func (r *FoodRepository) Count(ctx context.Context) (int, error) {
	return tableCount(ctx, r.db, "foods")
}

// NutrientRepository handles the nutrients dimension table.
type NutrientRepository struct {
	db     DB
	driver string
}

// InsertBatch bulk-inserts nutrients in stable order.
func (r *NutrientRepository) InsertBatch(ctx context.Context, nutrients []Nutrient) error {
	const cols = 4
	for start := 0; start < len(nutrients); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(nutrients) {
			end = len(nutrients)
		}
		chunk := nutrients[start:end]

		args := make([]interface{}, 0, len(chunk)*cols)
		for _, n := range chunk {
			args = append(args, n.ID, n.CategoryID, n.Name, n.Unit)
		}
		query := "INSERT INTO nutrients (id, category_id, name, unit) VALUES " + placeholders(r.driver, len(chunk), cols)
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert nutrients: %w", err)
		}
	}
	return nil
}

// List returns all nutrients ordered by id.
func (r *NutrientRepository) List(ctx context.Context) ([]Nutrient, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, category_id, name, unit FROM nutrients ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list nutrients: %w", err)
	}
	defer rows.Close()

	var nutrients []Nutrient
	for rows.Next() {
		var n Nutrient
		if err := rows.Scan(&n.ID, &n.CategoryID, &n.Name, &n.Unit); err != nil {
			return nil, err
		}
		nutrients = append(nutrients, n)
	}
	return nutrients, rows.Err()
}

// Count returns the number of nutrients.
func (r *NutrientRepository) Count(ctx context.Context) (int, error) {
	return tableCount(ctx, r.db, "nutrients")
}

// FactRepository handles the food_nutrients fact table.
type FactRepository struct {
	db     DB
	driver string
}

// InsertBatch bulk-inserts fact rows in stable order.
func (r *FactRepository) InsertBatch(ctx context.Context, facts []FoodNutrientFact) error {
	const cols = 5
	for start := 0; start < len(facts); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(facts) {
			end = len(facts)
		}
		chunk := facts[start:end]

		args := make([]interface{}, 0, len(chunk)*cols)
		for _, f := range chunk {
			args = append(args, f.FoodID, f.NutrientID, f.ValuePer100g, f.SampleCount, f.StdDeviation)
		}
		query := `INSERT INTO food_nutrients (food_id, nutrient_id, value_per_100g, sample_count, std_deviation) VALUES ` +
			placeholders(r.driver, len(chunk), cols)
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert food nutrients: %w", err)
		}
	}
	return nil
}

// ListByFood returns the fact rows for one food ordered by nutrient id.
func (r *FactRepository) ListByFood(ctx context.Context, foodID int64) ([]FoodNutrientFact, error) {
	query := "SELECT food_id, nutrient_id, value_per_100g, sample_count, std_deviation FROM food_nutrients WHERE food_id = ? ORDER BY nutrient_id"
	if r.driver == "postgres" {
		query = strings.Replace(query, "?", "$1", 1)
	}
	rows, err := r.db.QueryContext(ctx, query, foodID)
	if err != nil {
		return nil, fmt.Errorf("list facts by food: %w", err)
	}
	defer rows.Close()

	var facts []FoodNutrientFact
	for rows.Next() {
		var f FoodNutrientFact
		if err := rows.Scan(&f.FoodID, &f.NutrientID, &f.ValuePer100g, &f.SampleCount, &f.StdDeviation); err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

// Count returns the number of fact rows.
func (r *FactRepository) Count(ctx context.Context) (int, error) {
	return tableCount(ctx, r.db, "food_nutrients")
}
