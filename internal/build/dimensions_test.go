package build

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/twfooddata/nutridb/internal/normalize"
)

func TestNewDimensionSet_OrderIndependent(t *testing.T) {
	observations := []normalize.CleanedObservation{
		{Code: strPtr("B0001"), NameZH: strPtr("雞胸肉"), Category: strPtr("肉類"), NutrientCategory: strPtr("一般成分"), NutrientName: strPtr("粗蛋白"), Unit: strPtr("g"), Value: strPtr("23.3")},
		{Code: strPtr("A0001"), NameZH: strPtr("白飯"), Category: strPtr("穀物類"), NutrientCategory: strPtr("一般成分"), NutrientName: strPtr("熱量"), Unit: strPtr("kcal"), Value: strPtr("385")},
		{Code: strPtr("C0001"), NameZH: strPtr("植物油"), Category: strPtr("油脂類"), NutrientCategory: strPtr("脂肪酸組成"), NutrientName: strPtr("P/M/S"), Value: strPtr("1.52/1.89/1.00")},
		{Code: nil, NameZH: strPtr("未編號樣品"), NutrientCategory: nil, NutrientName: strPtr("灰分")},
	}
	reversed := make([]normalize.CleanedObservation, len(observations))
	for i, obs := range observations {
		reversed[len(observations)-1-i] = obs
	}

	a := NewDimensionSet(observations)
	b := NewDimensionSet(reversed)

	assert.Equal(t, a.Categories, b.Categories)
	assert.Equal(t, a.NutrientCategories, b.NutrientCategories)
	assert.Equal(t, a.Foods, b.Foods)
	assert.Equal(t, a.Nutrients, b.Nutrients)
}

func TestNewDimensionSet_RepeatedBuildIsIdentical(t *testing.T) {
	observations := []normalize.CleanedObservation{
		{Code: strPtr("A0001"), NameZH: strPtr("白飯"), Category: strPtr("穀物類"), NutrientCategory: strPtr("一般成分"), NutrientName: strPtr("熱量"), Unit: strPtr("kcal"), Value: strPtr("385")},
		{Code: strPtr("C0001"), NutrientCategory: strPtr("脂肪酸組成"), NutrientName: strPtr("P/M/S"), Value: strPtr("1/2/3")},
	}
	expanded := normalize.NewExpander().ExpandAll(observations)

	a := NewDimensionSet(observations)
	b := NewDimensionSet(observations)

	assert.Equal(t, a.Foods, b.Foods)
	assert.Equal(t, a.Nutrients, b.Nutrients)
	assert.Equal(t,
		NewFactLinker(a).Link(observations, expanded),
		NewFactLinker(b).Link(observations, expanded),
	)
}

func TestCompareStringPtr_NullsLast(t *testing.T) {
	a, b := "a", "b"
	assert.Equal(t, -1, compareStringPtr(&a, &b))
	assert.Equal(t, 1, compareStringPtr(&b, &a))
	assert.Equal(t, 0, compareStringPtr(&a, &a))
	assert.Equal(t, -1, compareStringPtr(&a, nil))
	assert.Equal(t, 1, compareStringPtr(nil, &a))
	assert.Equal(t, 0, compareStringPtr(nil, nil))
}

func TestCompareFloatPtr_NaNBeforeNullOnly(t *testing.T) {
	nan := math.NaN()
	one := 1.0
	assert.Equal(t, -1, compareFloatPtr(&one, &nan))
	assert.Equal(t, 1, compareFloatPtr(&nan, &one))
	assert.Equal(t, 0, compareFloatPtr(&nan, &nan))
	assert.Equal(t, -1, compareFloatPtr(&nan, nil))
	assert.Equal(t, 1, compareFloatPtr(nil, &nan))
	assert.Equal(t, 0, compareFloatPtr(nil, nil))
}
