// Package dataset loads the raw Taiwan FDA nutrition export.
package dataset

// RawObservation is one measurement exactly as delivered by the FDA
// export: one row per food x nutrient, every field a nullable string.
// The JSON tags are the original Chinese column labels.
type RawObservation struct {
	Category         *string `json:"食品分類"`
	Code             *string `json:"整合編號"`
	NameZH           *string `json:"樣品名稱"`
	NameEN           *string `json:"樣品英文名稱"`
	Alias            *string `json:"俗名"`
	Description      *string `json:"內容物描述"`
	WasteRate        *string `json:"廢棄率"`
	ServingSize      *string `json:"每單位重"`
	NutrientCategory *string `json:"分析項分類"`
	NutrientName     *string `json:"分析項"`
	Unit             *string `json:"含量單位"`
	Value            *string `json:"每100克含量"`
	SampleCount      *string `json:"樣本數"`
	StdDeviation     *string `json:"標準差"`
}
