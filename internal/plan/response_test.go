package plan_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/velocoach/internal/plan"
	"github.com/myrjola/velocoach/internal/ptr"
)

// validResponse lists the weeks out of order to exercise sorting.
const validResponse = `{
  "planTitle": "Base Builder",
  "summary": "Four weeks of **endurance** work.",
  "targetMetrics": {"estimatedTSS": 280, "weeklyVolume": "4-5 h"},
  "weeks": [
    {"weekNumber": 2, "focus": "Build", "sessions": [
      {"day": "Di", "type": "Intervals", "title": "Sweet spot", "durationMinutes": 60, "intensity": "High",
       "description": "Warm-up, 3 x 10 min, cool-down", "intervals": "3 x 10 min @ 150-160 bpm"}
    ]},
    {"weekNumber": 1, "focus": "Base", "sessions": [
      {"day": "Di", "type": "Endurance", "title": "Easy spin", "durationMinutes": 60.0, "intensity": "Low",
       "description": "Easy spin", "intervals": null},
      {"day": "Mo", "type": "Rest", "title": "Rest day", "durationMinutes": 0, "intensity": "Rest",
       "description": "Recover", "intervals": null}
    ]},
    {"weekNumber": 3, "focus": "Peak", "sessions": [
      {"day": "Sa", "type": "Long ride", "title": "Long ride", "durationMinutes": 180, "intensity": "Moderate",
       "description": "Steady", "intervals": null}
    ]},
    {"weekNumber": 4, "focus": "Recovery", "sessions": [
      {"day": "Sa", "type": "Endurance", "title": "Recovery ride", "durationMinutes": 90, "intensity": "Low",
       "description": "Relaxed", "intervals": null}
    ]}
  ]
}`

func fixedCode(code plan.Code) func() (plan.Code, error) {
	return func() (plan.Code, error) { return code, nil }
}

func TestParseResponse(t *testing.T) {
	got, err := plan.ParseResponse(validResponse, fixedCode("AB23"))
	if err != nil {
		t.Fatalf("ParseResponse() error = %v", err)
	}
	if got.PlanCode != "AB23" {
		t.Errorf("PlanCode = %q, want AB23", got.PlanCode)
	}
	var numbers []int
	for _, w := range got.Weeks {
		numbers = append(numbers, w.WeekNumber)
	}
	if diff := cmp.Diff([]int{1, 2, 3, 4}, numbers); diff != "" {
		t.Errorf("week numbers mismatch (-want +got):\n%s", diff)
	}
	week1, ok := got.Week(1)
	if !ok {
		t.Fatal("week 1 missing")
	}
	want := []plan.TrainingSession{
		{
			Day:             "Di",
			Type:            "Endurance",
			Title:           "Easy spin",
			DurationMinutes: 60,
			Intensity:       plan.IntensityLow,
			Description:     "Easy spin",
			Intervals:       nil,
		},
		{
			Day:             "Mo",
			Type:            "Rest",
			Title:           "Rest day",
			DurationMinutes: 0,
			Intensity:       plan.IntensityRest,
			Description:     "Recover",
			Intervals:       nil,
		},
	}
	if diff := cmp.Diff(want, week1.Sessions); diff != "" {
		t.Errorf("week 1 sessions mismatch (-want +got):\n%s", diff)
	}
	week2, _ := got.Week(2)
	if diff := cmp.Diff(ptr.Ref("3 x 10 min @ 150-160 bpm"), week2.Sessions[0].Intervals); diff != "" {
		t.Errorf("intervals mismatch (-want +got):\n%s", diff)
	}
	if got.TargetMetrics.EstimatedTSS != 280 {
		t.Errorf("EstimatedTSS = %d, want 280", got.TargetMetrics.EstimatedTSS)
	}
}

func TestParseResponse_CodeFence(t *testing.T) {
	raw := "```json\n" + validResponse + "\n```\n"
	if _, err := plan.ParseResponse(raw, fixedCode("AB23")); err != nil {
		t.Errorf("ParseResponse() error = %v", err)
	}
}

func TestParseResponse_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{name: "empty", raw: "", want: plan.ErrEmptyResponse},
		{name: "whitespace", raw: " \n\t ", want: plan.ErrEmptyResponse},
		{name: "not json", raw: "Here is your plan!", want: plan.ErrMalformedResponse},
		{name: "truncated", raw: validResponse[:200], want: plan.ErrMalformedResponse},
		{name: "three weeks", raw: threeWeeks, want: plan.ErrMalformedResponse},
		{
			name: "duplicate week number",
			raw:  strings.Replace(validResponse, `"weekNumber": 4`, `"weekNumber": 3`, 1),
			want: plan.ErrMalformedResponse,
		},
		{
			name: "week number out of range",
			raw:  strings.Replace(validResponse, `"weekNumber": 4`, `"weekNumber": 5`, 1),
			want: plan.ErrMalformedResponse,
		},
		{
			name: "unknown intensity",
			raw:  strings.Replace(validResponse, `"intensity": "High"`, `"intensity": "Extreme"`, 1),
			want: plan.ErrMalformedResponse,
		},
		{
			name: "negative duration",
			raw:  strings.Replace(validResponse, `"durationMinutes": 180`, `"durationMinutes": -5`, 1),
			want: plan.ErrMalformedResponse,
		},
		{
			name: "fractional duration",
			raw:  strings.Replace(validResponse, `"durationMinutes": 180`, `"durationMinutes": 45.5`, 1),
			want: plan.ErrMalformedResponse,
		},
		{
			name: "huge duration",
			raw:  strings.Replace(validResponse, `"durationMinutes": 180`, `"durationMinutes": 1e300`, 1),
			want: plan.ErrMalformedResponse,
		},
		{
			name: "huge week number",
			raw:  strings.Replace(validResponse, `"weekNumber": 4`, `"weekNumber": 18446744073709551616`, 1),
			want: plan.ErrMalformedResponse,
		},
		{
			name: "string duration",
			raw:  strings.Replace(validResponse, `"durationMinutes": 180`, `"durationMinutes": "180"`, 1),
			want: plan.ErrMalformedResponse,
		},
		{
			name: "empty title",
			raw:  strings.Replace(validResponse, `"title": "Long ride"`, `"title": " "`, 1),
			want: plan.ErrMalformedResponse,
		},
		{
			name: "missing plan title",
			raw:  strings.Replace(validResponse, `"planTitle": "Base Builder",`, "", 1),
			want: plan.ErrMalformedResponse,
		},
		{
			name: "missing target metrics",
			raw: strings.Replace(validResponse,
				`"targetMetrics": {"estimatedTSS": 280, "weeklyVolume": "4-5 h"},`, "", 1),
			want: plan.ErrMalformedResponse,
		},
		{
			name: "numeric intervals",
			raw:  strings.Replace(validResponse, `"intervals": "3 x 10 min @ 150-160 bpm"`, `"intervals": 3`, 1),
			want: plan.ErrMalformedResponse,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := plan.ParseResponse(tt.raw, fixedCode("AB23"))
			if !errors.Is(err, tt.want) {
				t.Errorf("ParseResponse() error = %v, want %v", err, tt.want)
			}
		})
	}
}

const threeWeeks = `{"planTitle": "Short", "summary": "", "targetMetrics": {"estimatedTSS": 100, "weeklyVolume": "3 h"},
"weeks": [
  {"weekNumber": 1, "focus": "", "sessions": [{"day": "Mo", "type": "Rest", "title": "Rest", "durationMinutes": 0,
   "intensity": "Rest", "description": "", "intervals": null}]},
  {"weekNumber": 2, "focus": "", "sessions": [{"day": "Mo", "type": "Rest", "title": "Rest", "durationMinutes": 0,
   "intensity": "Rest", "description": "", "intervals": null}]},
  {"weekNumber": 3, "focus": "", "sessions": [{"day": "Mo", "type": "Rest", "title": "Rest", "durationMinutes": 0,
   "intensity": "Rest", "description": "", "intervals": null}]}
]}`

func TestParseResponse_CodeError(t *testing.T) {
	wantErr := errors.New("entropy exhausted")
	_, err := plan.ParseResponse(validResponse, func() (plan.Code, error) { return "", wantErr })
	if !errors.Is(err, wantErr) {
		t.Errorf("ParseResponse() error = %v, want %v", err, wantErr)
	}
}
