package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twfooddata/nutridb/internal/dataset"
)

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func intPtr(i int64) *int64 { return &i }

func TestNormalizer_Clean_WasteRate(t *testing.T) {
	tests := []struct {
		name     string
		input    *string
		expected *float64
	}{
		{"padded number", strPtr("  10.5  "), floatPtr(10.5)},
		{"percent sign stripped", strPtr("50%"), floatPtr(50.0)},
		{"not a number", strPtr("abc"), nil},
		{"negative percent", strPtr("-5%"), floatPtr(-5.0)},
		{"full-width space stripped", strPtr("　10　"), floatPtr(10.0)},
		{"empty", strPtr(""), nil},
		{"null", nil, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			obs := NewNormalizer().Clean(dataset.RawObservation{WasteRate: tc.input})
			if tc.expected == nil {
				assert.Nil(t, obs.WasteRate)
			} else {
				require.NotNil(t, obs.WasteRate)
				assert.Equal(t, *tc.expected, *obs.WasteRate)
			}
		})
	}
}

func TestNormalizer_Clean_ServingSize(t *testing.T) {
	tests := []struct {
		name     string
		input    *string
		expected *float64
	}{
		{"gram suffix stripped", strPtr("100克"), floatPtr(100.0)},
		{"full-width spaces", strPtr("　50　"), floatPtr(50.0)},
		{"decimal with suffix", strPtr("2.5克"), floatPtr(2.5)},
		{"empty", strPtr(""), nil},
		{"not a number", strPtr("一份"), nil},
		{"null", nil, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			obs := NewNormalizer().Clean(dataset.RawObservation{ServingSize: tc.input})
			if tc.expected == nil {
				assert.Nil(t, obs.ServingSize)
			} else {
				require.NotNil(t, obs.ServingSize)
				assert.Equal(t, *tc.expected, *obs.ServingSize)
			}
		})
	}
}

func TestNormalizer_Clean_NutrientCategory(t *testing.T) {
	tests := []struct {
		name     string
		input    *string
		expected *string
	}{
		{"double space collapsed", strPtr("維生素B群  & C"), strPtr("維生素B群 & C")},
		{"only first run of triple space", strPtr("維生素B群   C"), strPtr("維生素B群  C")},
		{"second double space untouched", strPtr("A  B  C"), strPtr("A B  C")},
		{"trimmed before collapse", strPtr("  維生素  "), strPtr("維生素")},
		{"empty stays empty", strPtr(""), strPtr("")},
		{"null stays null", nil, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			obs := NewNormalizer().Clean(dataset.RawObservation{NutrientCategory: tc.input})
			if tc.expected == nil {
				assert.Nil(t, obs.NutrientCategory)
			} else {
				require.NotNil(t, obs.NutrientCategory)
				assert.Equal(t, *tc.expected, *obs.NutrientCategory)
			}
		})
	}
}

func TestNormalizer_Clean_EmptyStringPolicy(t *testing.T) {
	// Descriptive optional fields null out when empty; identity fields
	// keep the empty string.
	empty := strPtr("  ")
	obs := NewNormalizer().Clean(dataset.RawObservation{
		Code:        empty,
		NameZH:      empty,
		Category:    empty,
		NameEN:      empty,
		Alias:       empty,
		Description: empty,
		Unit:        empty,
	})

	require.NotNil(t, obs.Code)
	assert.Equal(t, "", *obs.Code)
	require.NotNil(t, obs.NameZH)
	assert.Equal(t, "", *obs.NameZH)
	require.NotNil(t, obs.Category)
	assert.Equal(t, "", *obs.Category)

	assert.Nil(t, obs.NameEN)
	assert.Nil(t, obs.Alias)
	assert.Nil(t, obs.Description)
	assert.Nil(t, obs.Unit)
}

func TestNormalizer_Clean_NullsPropagate(t *testing.T) {
	obs := NewNormalizer().Clean(dataset.RawObservation{})

	assert.Nil(t, obs.Code)
	assert.Nil(t, obs.NameZH)
	assert.Nil(t, obs.NameEN)
	assert.Nil(t, obs.Category)
	assert.Nil(t, obs.Alias)
	assert.Nil(t, obs.Description)
	assert.Nil(t, obs.WasteRate)
	assert.Nil(t, obs.ServingSize)
	assert.Nil(t, obs.NutrientCategory)
	assert.Nil(t, obs.NutrientName)
	assert.Nil(t, obs.Unit)
	assert.Nil(t, obs.Value)
	assert.Nil(t, obs.SampleCount)
	assert.Nil(t, obs.StdDeviation)
}

func TestNormalizer_Clean_SampleCountAndStdDeviation(t *testing.T) {
	obs := NewNormalizer().Clean(dataset.RawObservation{
		SampleCount:  strPtr(" 12 "),
		StdDeviation: strPtr("1.25"),
	})
	require.NotNil(t, obs.SampleCount)
	assert.Equal(t, int64(12), *obs.SampleCount)
	require.NotNil(t, obs.StdDeviation)
	assert.Equal(t, 1.25, *obs.StdDeviation)

	obs = NewNormalizer().Clean(dataset.RawObservation{
		SampleCount:  strPtr("2.5"),
		StdDeviation: strPtr("n/a"),
	})
	assert.Nil(t, obs.SampleCount)
	assert.Nil(t, obs.StdDeviation)

	// Scientific notation is a valid float.
	obs = NewNormalizer().Clean(dataset.RawObservation{StdDeviation: strPtr("1e-3")})
	require.NotNil(t, obs.StdDeviation)
	assert.Equal(t, 0.001, *obs.StdDeviation)
}

func TestNormalizer_Clean_ValueStaysText(t *testing.T) {
	obs := NewNormalizer().Clean(dataset.RawObservation{Value: strPtr(" 1.52/1.89/1.00 ")})
	require.NotNil(t, obs.Value)
	assert.Equal(t, "1.52/1.89/1.00", *obs.Value)

	obs = NewNormalizer().Clean(dataset.RawObservation{Value: strPtr("")})
	require.NotNil(t, obs.Value)
	assert.Equal(t, "", *obs.Value)
}

func TestParseValue(t *testing.T) {
	require.NotNil(t, ParseValue(strPtr("12.3")))
	assert.Equal(t, 12.3, *ParseValue(strPtr("12.3")))
	assert.Nil(t, ParseValue(strPtr("abc")))
	assert.Nil(t, ParseValue(strPtr("")))
	assert.Nil(t, ParseValue(nil))
}

func TestNormalizer_CleanAll_PreservesOrder(t *testing.T) {
	raws := []dataset.RawObservation{
		{Code: strPtr("A0001")},
		{Code: strPtr("B0001")},
		{Code: strPtr("C0001")},
	}

	cleaned := NewNormalizer().CleanAll(raws)
	require.Len(t, cleaned, 3)
	assert.Equal(t, "A0001", *cleaned[0].Code)
	assert.Equal(t, "B0001", *cleaned[1].Code)
	assert.Equal(t, "C0001", *cleaned[2].Code)
}
