// Package storage provides database models, schema management, and
// repositories for the normalized nutrition database.
package storage

// Category is a food category dimension row. Ids are dense surrogates
// assigned during build, starting at 1 in codepoint order of the name.
type Category struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// NutrientCategory is an analysis-item category dimension row.
type NutrientCategory struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Food is one distinct food tuple from the cleaned dataset. The code is
// the FDA integrated code and is NOT unique here: rows sharing a code
// but differing in any descriptive field stay separate, and validation
// flags the duplicates.
type Food struct {
	ID          int64    `json:"id" db:"id"`
	Code        *string  `json:"code,omitempty" db:"code"`
	NameZH      *string  `json:"name_zh,omitempty" db:"name_zh"`
	NameEN      *string  `json:"name_en,omitempty" db:"name_en"`
	CategoryID  *int64   `json:"category_id,omitempty" db:"category_id"`
	Alias       *string  `json:"alias,omitempty" db:"alias"`
	Description *string  `json:"description,omitempty" db:"description"`
	WasteRate   *float64 `json:"waste_rate,omitempty" db:"waste_rate"`
	ServingSize *float64 `json:"serving_size,omitempty" db:"serving_size"`
}

// Nutrient is one distinct (category, name, unit) nutrient, including
// the three synthetic fatty-acid ratio nutrients per category that
// carried P/M/S data.
type Nutrient struct {
	ID         int64   `json:"id" db:"id"`
	CategoryID *int64  `json:"category_id,omitempty" db:"category_id"`
	Name       string  `json:"name" db:"name"`
	Unit       *string `json:"unit,omitempty" db:"unit"`
}

// FoodNutrientFact is one measurement linked to its dimensions.
type FoodNutrientFact struct {
	FoodID       int64    `json:"food_id" db:"food_id"`
	NutrientID   int64    `json:"nutrient_id" db:"nutrient_id"`
	ValuePer100g *float64 `json:"value_per_100g,omitempty" db:"value_per_100g"`
	SampleCount  *int64   `json:"sample_count,omitempty" db:"sample_count"`
	StdDeviation *float64 `json:"std_deviation,omitempty" db:"std_deviation"`
}

// TableCounts holds per-table row counts for reporting and validation.
type TableCounts struct {
	Categories         int `json:"categories"`
	NutrientCategories int `json:"nutrient_categories"`
	Foods              int `json:"foods"`
	Nutrients          int `json:"nutrients"`
	FoodNutrients      int `json:"food_nutrients"`
}
