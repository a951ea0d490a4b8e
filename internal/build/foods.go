package build

import (
	"sort"
	"strings"

	"github.com/twfooddata/nutridb/internal/normalize"
	"github.com/twfooddata/nutridb/internal/storage"
)

// foodTuple is the full distinctness key of the food dimension: every
// descriptive field, with the category still a name rather than an id.
type foodTuple struct {
	code        *string
	nameZH      *string
	nameEN      *string
	category    *string
	alias       *string
	description *string
	wasteRate   *float64
	servingSize *float64
}

func (t foodTuple) key() string {
	return strings.Join([]string{
		stringKeyPart(t.code),
		stringKeyPart(t.nameZH),
		stringKeyPart(t.nameEN),
		stringKeyPart(t.category),
		stringKeyPart(t.alias),
		stringKeyPart(t.description),
		floatKeyPart(t.wasteRate),
		floatKeyPart(t.servingSize),
	}, keySep)
}

// Foods extracts the distinct food tuples and assigns dense ids ordered
// by code, with the remaining tuple fields as tiebreakers and null
// sorting last. There is no row filter: a tuple with a null code is
// still a food. Deduplication is on the FULL tuple, so one code can
// yield several Food rows; validation flags those later. The category
// foreign key resolves by name against the category dimension, null
// when the category was null.
func Foods(observations []normalize.CleanedObservation, categories []storage.Category) []storage.Food {
	seen := make(map[string]struct{})
	var tuples []foodTuple
	for _, obs := range observations {
		t := foodTuple{
			code:        obs.Code,
			nameZH:      obs.NameZH,
			nameEN:      obs.NameEN,
			category:    obs.Category,
			alias:       obs.Alias,
			description: obs.Description,
			wasteRate:   obs.WasteRate,
			servingSize: obs.ServingSize,
		}
		k := t.key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		tuples = append(tuples, t)
	}

	sort.Slice(tuples, func(i, j int) bool {
		return compareFoodTuples(tuples[i], tuples[j]) < 0
	})

	categoryIDs := make(map[string]int64, len(categories))
	for _, c := range categories {
		categoryIDs[c.Name] = c.ID
	}

	foods := make([]storage.Food, len(tuples))
	for i, t := range tuples {
		var categoryID *int64
		if t.category != nil {
			if id, ok := categoryIDs[*t.category]; ok {
				categoryID = &id
			}
		}
		foods[i] = storage.Food{
			ID:          int64(i + 1),
			Code:        t.code,
			NameZH:      t.nameZH,
			NameEN:      t.nameEN,
			CategoryID:  categoryID,
			Alias:       t.alias,
			Description: t.description,
			WasteRate:   t.wasteRate,
			ServingSize: t.servingSize,
		}
	}
	return foods
}

func compareFoodTuples(a, b foodTuple) int {
	if c := compareStringPtr(a.code, b.code); c != 0 {
		return c
	}
	if c := compareStringPtr(a.nameZH, b.nameZH); c != 0 {
		return c
	}
	if c := compareStringPtr(a.nameEN, b.nameEN); c != 0 {
		return c
	}
	if c := compareStringPtr(a.category, b.category); c != 0 {
		return c
	}
	if c := compareStringPtr(a.alias, b.alias); c != 0 {
		return c
	}
	if c := compareStringPtr(a.description, b.description); c != 0 {
		return c
	}
	if c := compareFloatPtr(a.wasteRate, b.wasteRate); c != 0 {
		return c
	}
	return compareFloatPtr(a.servingSize, b.servingSize)
}
