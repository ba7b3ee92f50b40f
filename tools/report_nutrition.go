package tools

import (
	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

const ReportNutritionName = "report_nutrition"

// ReportNutrition is the structured-output tool the model fills in with its
// estimate. Its input has the same shape as dieter.NutritionRecord.
type ReportNutrition struct{}

func NewReportNutrition() *ReportNutrition { return &ReportNutrition{} }

func (t *ReportNutrition) Name() string  { return ReportNutritionName }
func (t *ReportNutrition) Title() string { return "Report Nutrition" }
func (t *ReportNutrition) Description() string {
	return "Reports the identified food and its estimated calories and nutrients for one serving."
}

func (t *ReportNutrition) InputSchema() *jsonschema.Schema {
	grams := func(desc string) *jsonschema.Schema {
		return &jsonschema.Schema{Type: "number", Description: desc, Minimum: ptr(0.0)}
	}

	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"foodName": {
				Type:        "string",
				Description: "Name of the food as it would appear on a menu.",
			},
			"calories": grams("Energy in kcal."),
			"nutrients": {
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"protein":       grams("Protein in grams."),
					"fat":           grams("Fat in grams."),
					"carbohydrates": grams("Carbohydrates in grams."),
					"sugar":         grams("Sugar in grams."),
					"sodium":        grams("Sodium in milligrams."),
				},
				Required: []string{"protein", "fat", "carbohydrates", "sugar", "sodium"},
			},
		},
		Required: []string{"foodName", "calories", "nutrients"},
	}
}

func ptr[T any](v T) *T { return &v }
