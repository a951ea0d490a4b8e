package normalize

import (
	"strconv"
	"strings"
)

// CompositeRatioName is the source nutrient name whose value packs the
// three fatty-acid ratios into one slash-delimited string.
const CompositeRatioName = "P/M/S"

// Synthetic nutrient names the composite ratio decomposes into.
const (
	NutrientPolyunsaturated = "脂肪酸比例-多元不飽和(P)"
	NutrientMonounsaturated = "脂肪酸比例-單元不飽和(M)"
	NutrientSaturated       = "脂肪酸比例-飽和(S)"
)

// SyntheticRatioNames lists the decomposed nutrient names in positional
// order: slash-segment 1 is P, 2 is M, 3 is S.
var SyntheticRatioNames = [3]string{
	NutrientPolyunsaturated,
	NutrientMonounsaturated,
	NutrientSaturated,
}

// FactCandidate is one decomposed measurement awaiting dimension
// linking: the food code and nutrient category are still the cleaned
// join keys, not resolved ids.
type FactCandidate struct {
	Code             *string
	NutrientCategory *string
	NutrientName     string
	Value            *float64
	SampleCount      *int64
	StdDeviation     *float64
}

// Expander splits composite P/M/S observations into three fact
// candidates.
type Expander struct{}

// NewExpander creates an Expander.
func NewExpander() *Expander {
	return &Expander{}
}

// Expand decomposes one observation. Only rows whose nutrient name is
// exactly the composite ratio name and whose value carries at least two
// slash separators produce output; everything else yields nothing. A
// qualifying row yields exactly three candidates, one per synthetic
// nutrient, each segment parsed independently (unparseable segments
// become null values, they never drop the row). Segments beyond the
// third are ignored. Sample count and standard deviation are carried
// unchanged onto all three candidates.
func (e *Expander) Expand(obs CleanedObservation) []FactCandidate {
	if !obs.IsCompositeRatio() {
		return nil
	}
	if obs.Value == nil || strings.Count(*obs.Value, "/") < 2 {
		return nil
	}

	segments := strings.Split(*obs.Value, "/")
	candidates := make([]FactCandidate, 0, len(SyntheticRatioNames))
	for i, name := range SyntheticRatioNames {
		var value *float64
		if f, err := strconv.ParseFloat(strings.TrimSpace(segments[i]), 64); err == nil {
			value = &f
		}
		candidates = append(candidates, FactCandidate{
			Code:             obs.Code,
			NutrientCategory: obs.NutrientCategory,
			NutrientName:     name,
			Value:            value,
			SampleCount:      obs.SampleCount,
			StdDeviation:     obs.StdDeviation,
		})
	}
	return candidates
}

// ExpandAll decomposes every qualifying observation, preserving input
// order.
func (e *Expander) ExpandAll(observations []CleanedObservation) []FactCandidate {
	var out []FactCandidate
	for _, obs := range observations {
		out = append(out, e.Expand(obs)...)
	}
	return out
}
