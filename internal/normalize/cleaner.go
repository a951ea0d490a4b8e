// Package normalize applies the per-field cleaning rules and the P/M/S
// decomposition to raw observations. Every malformed value degrades to
// null; nothing in this package returns an error.
package normalize

import (
	"strconv"
	"strings"

	"github.com/twfooddata/nutridb/internal/dataset"
)

// fullWidthSpace is U+3000, the ideographic space the FDA export mixes
// into numeric fields.
const fullWidthSpace = "　"

// massUnitSuffix is the CJK gram character carried by serving sizes.
const massUnitSuffix = "克"

// CleanedObservation is a RawObservation after field cleaning: trimmed,
// unit suffixes stripped, empties nulled where the rules say so, and
// numeric fields best-effort parsed. Value stays text; it is parsed
// downstream per nutrient type.
type CleanedObservation struct {
	Code             *string
	NameZH           *string
	NameEN           *string
	Category         *string
	Alias            *string
	Description      *string
	WasteRate        *float64
	ServingSize      *float64
	NutrientCategory *string
	NutrientName     *string
	Unit             *string
	Value            *string
	SampleCount      *int64
	StdDeviation     *float64
}

// IsCompositeRatio reports whether this observation carries the packed
// P/M/S fatty-acid value.
func (o CleanedObservation) IsCompositeRatio() bool {
	return o.NutrientName != nil && *o.NutrientName == CompositeRatioName
}

// Normalizer applies the field cleaning rules. The mapping is pure and
// row-local: rows can be cleaned in isolation and in any order.
type Normalizer struct{}

// NewNormalizer creates a Normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Clean maps one raw observation to its cleaned form.
func (n *Normalizer) Clean(raw dataset.RawObservation) CleanedObservation {
	return CleanedObservation{
		Code:             trimmed(raw.Code),
		NameZH:           trimmed(raw.NameZH),
		NameEN:           trimmedOrNull(raw.NameEN),
		Category:         trimmed(raw.Category),
		Alias:            trimmedOrNull(raw.Alias),
		Description:      trimmedOrNull(raw.Description),
		WasteRate:        parseFloatStripped(raw.WasteRate, "%", fullWidthSpace),
		ServingSize:      parseFloatStripped(raw.ServingSize, massUnitSuffix, fullWidthSpace),
		NutrientCategory: collapseFirstDoubleSpace(trimmed(raw.NutrientCategory)),
		NutrientName:     trimmed(raw.NutrientName),
		Unit:             trimmedOrNull(raw.Unit),
		Value:            trimmed(raw.Value),
		SampleCount:      parseIntField(raw.SampleCount),
		StdDeviation:     parseFloatField(raw.StdDeviation),
	}
}

// CleanAll maps a whole dataset.
func (n *Normalizer) CleanAll(raws []dataset.RawObservation) []CleanedObservation {
	cleaned := make([]CleanedObservation, len(raws))
	for i, raw := range raws {
		cleaned[i] = n.Clean(raw)
	}
	return cleaned
}

// trimmed trims surrounding whitespace, keeping an empty result as the
// empty string. Null stays null.
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

// trimmedOrNull trims surrounding whitespace and converts an empty
// result to null.
func trimmedOrNull(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

// collapseFirstDoubleSpace replaces only the first occurrence of two
// consecutive spaces with one space. Later double-space runs and other
// whitespace are left untouched; do not generalize this to a repeated
// collapse.
func collapseFirstDoubleSpace(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.Replace(*s, "  ", " ", 1)
	return &t
}

// parseFloatStripped trims, removes every occurrence of the given cut
// strings, and parses the remainder as a float. Any failure is null.
func parseFloatStripped(s *string, cuts ...string) *float64 {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	for _, cut := range cuts {
		t = strings.ReplaceAll(t, cut, "")
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return nil
	}
	return &f
}

// parseFloatField trims and parses as a float; scientific notation is
// accepted. Failure is null.
func parseFloatField(s *string) *float64 {
	if s == nil {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(*s), 64)
	if err != nil {
		return nil
	}
	return &f
}

// parseIntField trims and parses as an integer. Failure is null.
func parseIntField(s *string) *int64 {
	if s == nil {
		return nil
	}
	v, err := strconv.ParseInt(strings.TrimSpace(*s), 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

// ParseValue parses a cleaned observation value as a float. Null and
// unparseable values are null; regular fact rows keep their text value
// until this point.
func ParseValue(s *string) *float64 {
	if s == nil {
		return nil
	}
	f, err := strconv.ParseFloat(*s, 64)
	if err != nil {
		return nil
	}
	return &f
}
