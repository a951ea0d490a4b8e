package build

import (
	"sort"
	"strings"

	"github.com/twfooddata/nutridb/internal/normalize"
	"github.com/twfooddata/nutridb/internal/storage"
)

type nutrientTuple struct {
	category *string
	name     string
	unit     *string
}

func (t nutrientTuple) key() string {
	return strings.Join([]string{
		stringKeyPart(t.category),
		"v" + t.name,
		stringKeyPart(t.unit),
	}, keySep)
}

// Nutrients extracts the nutrient dimension: the distinct (category,
// name, unit) triples of the regular observations, excluding null names
// and the literal composite ratio name, unioned with the three
// synthetic fatty-acid nutrients for every category (the null category
// included, once) that carried a composite row. The union is not
// re-deduplicated: a source nutrient that happens to share a synthetic
// name stays a separate row. Dense ids are assigned in (category, name)
// order with unit as tiebreaker and null sorting last.
func Nutrients(observations []normalize.CleanedObservation, categories []storage.NutrientCategory) []storage.Nutrient {
	seen := make(map[string]struct{})
	var tuples []nutrientTuple
	for _, obs := range observations {
		if obs.NutrientName == nil || obs.IsCompositeRatio() {
			continue
		}
		t := nutrientTuple{category: obs.NutrientCategory, name: *obs.NutrientName, unit: obs.Unit}
		k := t.key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		tuples = append(tuples, t)
	}

	tuples = append(tuples, syntheticRatioTuples(observations)...)

	sort.SliceStable(tuples, func(i, j int) bool {
		return compareNutrientTuples(tuples[i], tuples[j]) < 0
	})

	categoryIDs := make(map[string]int64, len(categories))
	for _, c := range categories {
		categoryIDs[c.Name] = c.ID
	}

	nutrients := make([]storage.Nutrient, len(tuples))
	for i, t := range tuples {
		var categoryID *int64
		if t.category != nil {
			if id, ok := categoryIDs[*t.category]; ok {
				categoryID = &id
			}
		}
		nutrients[i] = storage.Nutrient{
			ID:         int64(i + 1),
			CategoryID: categoryID,
			Name:       t.name,
			Unit:       t.unit,
		}
	}
	return nutrients
}

// syntheticRatioTuples yields the three decomposed fatty-acid nutrients
// for each distinct category that contained a composite P/M/S row, in
// fixed P, M, S order per category. All synthetic nutrients have a null
// unit.
func syntheticRatioTuples(observations []normalize.CleanedObservation) []nutrientTuple {
	seen := make(map[string]struct{})
	var ratioCategories []*string
	for _, obs := range observations {
		if !obs.IsCompositeRatio() {
			continue
		}
		k := stringKeyPart(obs.NutrientCategory)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		ratioCategories = append(ratioCategories, obs.NutrientCategory)
	}

	var tuples []nutrientTuple
	for _, category := range ratioCategories {
		for _, name := range normalize.SyntheticRatioNames {
			tuples = append(tuples, nutrientTuple{category: category, name: name})
		}
	}
	return tuples
}

func compareNutrientTuples(a, b nutrientTuple) int {
	if c := compareStringPtr(a.category, b.category); c != 0 {
		return c
	}
	if c := strings.Compare(a.name, b.name); c != 0 {
		return c
	}
	return compareStringPtr(a.unit, b.unit)
}
