// Package build derives the dimension and fact tables from cleaned
// observations. Each stage is an explicit in-memory relation: a sorted
// slice of records plus lookup maps for the joins. Surrogate ids are
// dense, start at 1, and depend only on the total order of the
// extracted values, so identical input always yields identical tables.
package build

import (
	"math"
	"strconv"
	"strings"

	"github.com/twfooddata/nutridb/internal/normalize"
	"github.com/twfooddata/nutridb/internal/storage"
)

// DimensionSet holds the four built dimensions together with the join
// indexes the fact linker needs. Construct it with NewDimensionSet;
// the contents are read-only afterwards.
type DimensionSet struct {
	Categories         []storage.Category
	NutrientCategories []storage.NutrientCategory
	Foods              []storage.Food
	Nutrients          []storage.Nutrient

	foodIDsByCode    map[string][]int64
	nutrientIDsByKey map[nutrientKey][]int64
}

// nutrientKey is the fact-join key: the cleaned category name plus the
// nutrient name. Rows with a null category are never indexed; a null
// key cannot match.
type nutrientKey struct {
	category string
	name     string
}

// NewDimensionSet builds all four dimensions and their join indexes.
func NewDimensionSet(observations []normalize.CleanedObservation) *DimensionSet {
	ds := &DimensionSet{
		Categories:         Categories(observations),
		NutrientCategories: NutrientCategories(observations),
	}
	ds.Foods = Foods(observations, ds.Categories)
	ds.Nutrients = Nutrients(observations, ds.NutrientCategories)
	ds.buildIndexes()
	return ds
}

func (ds *DimensionSet) buildIndexes() {
	ds.foodIDsByCode = make(map[string][]int64)
	for _, f := range ds.Foods {
		if f.Code == nil {
			continue
		}
		ds.foodIDsByCode[*f.Code] = append(ds.foodIDsByCode[*f.Code], f.ID)
	}

	categoryNames := make(map[int64]string, len(ds.NutrientCategories))
	for _, nc := range ds.NutrientCategories {
		categoryNames[nc.ID] = nc.Name
	}

	ds.nutrientIDsByKey = make(map[nutrientKey][]int64)
	for _, n := range ds.Nutrients {
		if n.CategoryID == nil {
			continue
		}
		key := nutrientKey{category: categoryNames[*n.CategoryID], name: n.Name}
		ds.nutrientIDsByKey[key] = append(ds.nutrientIDsByKey[key], n.ID)
	}
}

// keySep and keyNull build map keys over nullable tuples. keyNull can
// never collide with a real value because every real value is prefixed.
const (
	keySep  = "\x1f"
	keyNull = "\x00"
)

func stringKeyPart(s *string) string {
	if s == nil {
		return keyNull
	}
	return "v" + *s
}

func floatKeyPart(f *float64) string {
	if f == nil {
		return keyNull
	}
	return "v" + strconv.FormatFloat(*f, 'g', -1, 64)
}

// compareStringPtr orders nullable strings bytewise with null after any
// non-null value.
func compareStringPtr(a, b *string) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return 1
	}
	if b == nil {
		return -1
	}
	return strings.Compare(*a, *b)
}

// compareFloatPtr orders nullable floats with null last; NaN sorts
// after every number so the order stays total.
func compareFloatPtr(a, b *float64) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return 1
	}
	if b == nil {
		return -1
	}
	aNaN, bNaN := math.IsNaN(*a), math.IsNaN(*b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	default:
		return 0
	}
}
