package build

import (
	"github.com/twfooddata/nutridb/internal/normalize"
	"github.com/twfooddata/nutridb/internal/storage"
)

// FactLinker joins observation streams to the built dimensions.
type FactLinker struct {
	dims *DimensionSet
}

// NewFactLinker creates a linker over a finished dimension set.
func NewFactLinker(dims *DimensionSet) *FactLinker {
	return &FactLinker{dims: dims}
}

// LinkResult is the fact table plus the share contributed by the
// expanded P/M/S stream.
type LinkResult struct {
	Facts         []storage.FoodNutrientFact
	ExpandedFacts int
}

// Link produces the fact table from the regular observations and the
// expanded P/M/S candidates. Each row joins to Food by code and to
// Nutrient by (category, name) with exact equality; a null key never
// resolves, and a row whose food or nutrient does not resolve is
// dropped. An observation matching several foods (duplicate codes) or
// several nutrients yields one fact per combination. The union keeps
// the regular stream first, then the expanded stream, both in input
// order, with dimension matches in ascending id order; nothing is
// deduplicated.
func (l *FactLinker) Link(observations []normalize.CleanedObservation, expanded []normalize.FactCandidate) LinkResult {
	var result LinkResult

	for _, obs := range observations {
		if obs.NutrientName == nil || obs.IsCompositeRatio() {
			continue
		}
		foodIDs := l.lookupFoods(obs.Code)
		if len(foodIDs) == 0 {
			continue
		}
		nutrientIDs := l.lookupNutrients(obs.NutrientCategory, *obs.NutrientName)
		if len(nutrientIDs) == 0 {
			continue
		}
		value := normalize.ParseValue(obs.Value)
		for _, foodID := range foodIDs {
			for _, nutrientID := range nutrientIDs {
				result.Facts = append(result.Facts, storage.FoodNutrientFact{
					FoodID:       foodID,
					NutrientID:   nutrientID,
					ValuePer100g: value,
					SampleCount:  obs.SampleCount,
					StdDeviation: obs.StdDeviation,
				})
			}
		}
	}

	for _, cand := range expanded {
		foodIDs := l.lookupFoods(cand.Code)
		if len(foodIDs) == 0 {
			continue
		}
		nutrientIDs := l.lookupNutrients(cand.NutrientCategory, cand.NutrientName)
		if len(nutrientIDs) == 0 {
			continue
		}
		for _, foodID := range foodIDs {
			for _, nutrientID := range nutrientIDs {
				result.Facts = append(result.Facts, storage.FoodNutrientFact{
					FoodID:       foodID,
					NutrientID:   nutrientID,
					ValuePer100g: cand.Value,
					SampleCount:  cand.SampleCount,
					StdDeviation: cand.StdDeviation,
				})
				result.ExpandedFacts++
			}
		}
	}

	return result
}

func (l *FactLinker) lookupFoods(code *string) []int64 {
	if code == nil {
		return nil
	}
	return l.dims.foodIDsByCode[*code]
}

func (l *FactLinker) lookupNutrients(category *string, name string) []int64 {
	if category == nil {
		return nil
	}
	return l.dims.nutrientIDsByKey[nutrientKey{category: *category, name: name}]
}
