package build

import (
	"sort"

	"github.com/twfooddata/nutridb/internal/normalize"
	"github.com/twfooddata/nutridb/internal/storage"
)

// Categories extracts the distinct non-null food category values and
// assigns dense ids in codepoint order. An empty-but-non-null string is
// a legal value; only null is excluded.
func Categories(observations []normalize.CleanedObservation) []storage.Category {
	names := distinctNonNull(observations, func(o normalize.CleanedObservation) *string {
		return o.Category
	})

	categories := make([]storage.Category, len(names))
	for i, name := range names {
		categories[i] = storage.Category{ID: int64(i + 1), Name: name}
	}
	return categories
}

// NutrientCategories extracts the distinct non-null analysis-item
// category values and assigns dense ids in codepoint order.
func NutrientCategories(observations []normalize.CleanedObservation) []storage.NutrientCategory {
	names := distinctNonNull(observations, func(o normalize.CleanedObservation) *string {
		return o.NutrientCategory
	})

	categories := make([]storage.NutrientCategory, len(names))
	for i, name := range names {
		categories[i] = storage.NutrientCategory{ID: int64(i + 1), Name: name}
	}
	return categories
}

func distinctNonNull(observations []normalize.CleanedObservation, field func(normalize.CleanedObservation) *string) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, obs := range observations {
		v := field(obs)
		if v == nil {
			continue
		}
		if _, ok := seen[*v]; ok {
			continue
		}
		seen[*v] = struct{}{}
		names = append(names, *v)
	}
	sort.Strings(names)
	return names
}
