package plan

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"
)

// The wire types mirror the plan types with pointer fields so that missing properties can be told apart from
// zero values.
type (
	wireSession struct {
		Day             *string    `json:"day"`
		Type            *string    `json:"type"`
		Title           *string    `json:"title"`
		DurationMinutes *float64   `json:"durationMinutes"`
		Intensity       *Intensity `json:"intensity"`
		Description     *string    `json:"description"`
		Intervals       *string    `json:"intervals"`
	}
	wireWeek struct {
		WeekNumber *float64      `json:"weekNumber"`
		Focus      *string       `json:"focus"`
		Sessions   []wireSession `json:"sessions"`
	}
	wireMetrics struct {
		EstimatedTSS *float64 `json:"estimatedTSS"`
		WeeklyVolume *string  `json:"weeklyVolume"`
	}
	wirePlan struct {
		PlanTitle     *string      `json:"planTitle"`
		Summary       *string      `json:"summary"`
		TargetMetrics *wireMetrics `json:"targetMetrics"`
		Weeks         []wireWeek   `json:"weeks"`
	}
)

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))
}

// wholeNumber reports false unless f holds an integer within the int32 range.
func wholeNumber(f *float64) (int, bool) {
	if f == nil || math.IsNaN(*f) || math.IsInf(*f, 0) || *f != math.Trunc(*f) {
		return 0, false
	}
	if *f < math.MinInt32 || *f > math.MaxInt32 {
		return 0, false
	}
	return int(*f), true
}

// stripFences removes a surrounding markdown code fence which some models add despite the response format.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ParseResponse validates the generator answer and assigns a fresh code from newCode. Weeks are returned sorted
// by week number.
func ParseResponse(raw string, newCode func() (Code, error)) (FullTrainingPlan, error) {
	text := stripFences(raw)
	if text == "" {
		return FullTrainingPlan{}, ErrEmptyResponse
	}

	var wp wirePlan
	if err := json.Unmarshal([]byte(text), &wp); err != nil {
		return FullTrainingPlan{}, malformed("decode: %v", err)
	}

	if wp.PlanTitle == nil || strings.TrimSpace(*wp.PlanTitle) == "" {
		return FullTrainingPlan{}, malformed("planTitle missing")
	}
	if wp.Summary == nil {
		return FullTrainingPlan{}, malformed("summary missing")
	}
	if wp.TargetMetrics == nil || wp.TargetMetrics.WeeklyVolume == nil {
		return FullTrainingPlan{}, malformed("targetMetrics missing")
	}
	tss, ok := wholeNumber(wp.TargetMetrics.EstimatedTSS)
	if !ok {
		return FullTrainingPlan{}, malformed("estimatedTSS is not a whole number")
	}
	if len(wp.Weeks) != WeekCount {
		return FullTrainingPlan{}, malformed("got %d weeks, want %d", len(wp.Weeks), WeekCount)
	}

	p := FullTrainingPlan{
		PlanTitle: *wp.PlanTitle,
		Summary:   *wp.Summary,
		TargetMetrics: TargetMetrics{
			EstimatedTSS: tss,
			WeeklyVolume: *wp.TargetMetrics.WeeklyVolume,
		},
		Weeks:    make([]WeeklyPlan, 0, WeekCount),
		PlanCode: "",
	}
	seen := make(map[int]bool, WeekCount)
	for i, w := range wp.Weeks {
		week, err := parseWeek(w)
		if err != nil {
			return FullTrainingPlan{}, fmt.Errorf("week %d: %w", i+1, err)
		}
		if week.WeekNumber < 1 || week.WeekNumber > WeekCount || seen[week.WeekNumber] {
			return FullTrainingPlan{}, malformed("unexpected week number %d", week.WeekNumber)
		}
		seen[week.WeekNumber] = true
		p.Weeks = append(p.Weeks, week)
	}
	slices.SortFunc(p.Weeks, func(a, b WeeklyPlan) int { return a.WeekNumber - b.WeekNumber })

	code, err := newCode()
	if err != nil {
		return FullTrainingPlan{}, fmt.Errorf("new code: %w", err)
	}
	p.PlanCode = code
	return p, nil
}

func parseWeek(w wireWeek) (WeeklyPlan, error) {
	number, ok := wholeNumber(w.WeekNumber)
	if !ok {
		return WeeklyPlan{}, malformed("weekNumber is not a whole number")
	}
	if w.Focus == nil {
		return WeeklyPlan{}, malformed("focus missing")
	}
	if len(w.Sessions) == 0 {
		return WeeklyPlan{}, malformed("no sessions")
	}
	week := WeeklyPlan{
		WeekNumber: number,
		Focus:      *w.Focus,
		Sessions:   make([]TrainingSession, 0, len(w.Sessions)),
	}
	for i, s := range w.Sessions {
		session, err := parseSession(s)
		if err != nil {
			return WeeklyPlan{}, fmt.Errorf("session %d: %w", i+1, err)
		}
		week.Sessions = append(week.Sessions, session)
	}
	return week, nil
}

func parseSession(s wireSession) (TrainingSession, error) {
	switch {
	case s.Day == nil || strings.TrimSpace(*s.Day) == "":
		return TrainingSession{}, malformed("day missing")
	case s.Title == nil || strings.TrimSpace(*s.Title) == "":
		return TrainingSession{}, malformed("title missing")
	case s.Type == nil:
		return TrainingSession{}, malformed("type missing")
	case s.Description == nil:
		return TrainingSession{}, malformed("description missing")
	case s.Intensity == nil || !s.Intensity.Valid():
		return TrainingSession{}, malformed("invalid intensity")
	}
	duration, ok := wholeNumber(s.DurationMinutes)
	if !ok || duration < 0 {
		return TrainingSession{}, malformed("durationMinutes is not a non-negative whole number")
	}
	return TrainingSession{
		Day:             *s.Day,
		Type:            *s.Type,
		Title:           *s.Title,
		DurationMinutes: duration,
		Intensity:       *s.Intensity,
		Description:     *s.Description,
		Intervals:       s.Intervals,
	}, nil
}
