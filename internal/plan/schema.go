package plan

import (
	"slices"

	"github.com/myrjola/velocoach/internal/ai"
)

func object(properties map[string]any) map[string]any {
	required := make([]string, 0, len(properties))
	for name := range properties {
		required = append(required, name)
	}
	slices.Sort(required)
	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}

func str() map[string]any { return map[string]any{"type": "string"} }

func integer() map[string]any { return map[string]any{"type": "integer"} }

// TrainingPlanSchema is the strict output schema sent with every generation request. All properties are
// required, intervals is nullable and exactly four weeks are expected.
func TrainingPlanSchema() ai.Schema {
	intensities := make([]string, 0, len(Intensities()))
	for _, i := range Intensities() {
		intensities = append(intensities, string(i))
	}

	session := object(map[string]any{
		"day":             str(),
		"type":            str(),
		"title":           str(),
		"durationMinutes": integer(),
		"intensity":       map[string]any{"type": "string", "enum": intensities},
		"description":     str(),
		"intervals":       map[string]any{"type": []string{"string", "null"}},
	})
	week := object(map[string]any{
		"weekNumber": integer(),
		"focus":      str(),
		"sessions":   map[string]any{"type": "array", "items": session},
	})
	return ai.Schema{
		Name:        "training_plan",
		Description: "A periodized four week cycling training plan.",
		Definition: object(map[string]any{
			"planTitle": str(),
			"summary":   str(),
			"targetMetrics": object(map[string]any{
				"estimatedTSS": integer(),
				"weeklyVolume": str(),
			}),
			"weeks": map[string]any{
				"type":     "array",
				"items":    week,
				"minItems": WeekCount,
				"maxItems": WeekCount,
			},
		}),
	}
}
