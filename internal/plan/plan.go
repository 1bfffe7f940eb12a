// Package plan generates, validates, stores and retrieves four week cycling training plans.
package plan

import (
	"github.com/myrjola/velocoach/internal/errors"
)

var (
	// ErrEmptyResponse is returned when the generator answers with no text.
	ErrEmptyResponse = errors.NewSentinel("empty plan response")
	// ErrMalformedResponse is returned when the generator answer is not a valid plan.
	ErrMalformedResponse = errors.NewSentinel("malformed plan response")
	// ErrInvalidCode is returned for plan codes that are not exactly four characters.
	ErrInvalidCode = errors.NewSentinel("invalid plan code")
	// ErrNotFound is returned when no plan is stored under a code.
	ErrNotFound = errors.NewSentinel("plan not found")
	// ErrCodeTaken is returned by Store.Save when the code is already in use.
	ErrCodeTaken = errors.NewSentinel("plan code taken")
)

// WeekCount is the number of weeks in every plan.
const WeekCount = 4

// Intensity is the overall intensity of a session.
type Intensity string

const (
	IntensityLow      Intensity = "Low"
	IntensityModerate Intensity = "Moderate"
	IntensityHigh     Intensity = "High"
	IntensityRest     Intensity = "Rest"
)

func Intensities() []Intensity {
	return []Intensity{IntensityLow, IntensityModerate, IntensityHigh, IntensityRest}
}

func (i Intensity) Valid() bool {
	switch i {
	case IntensityLow, IntensityModerate, IntensityHigh, IntensityRest:
		return true
	}
	return false
}

// TrainingSession is one day of a week.
type TrainingSession struct {
	Day             string    `json:"day"`
	Type            string    `json:"type"`
	Title           string    `json:"title"`
	DurationMinutes int       `json:"durationMinutes"`
	Intensity       Intensity `json:"intensity"`
	Description     string    `json:"description"`
	// Intervals carries concrete watt or heart rate targets. It is nil for sessions without structure.
	Intervals *string `json:"intervals"`
}

type WeeklyPlan struct {
	WeekNumber int               `json:"weekNumber"`
	Focus      string            `json:"focus"`
	Sessions   []TrainingSession `json:"sessions"`
}

// TotalMinutes sums the session durations of the week.
func (w WeeklyPlan) TotalMinutes() int {
	var total int
	for _, s := range w.Sessions {
		total += s.DurationMinutes
	}
	return total
}

type TargetMetrics struct {
	EstimatedTSS int    `json:"estimatedTSS"`
	WeeklyVolume string `json:"weeklyVolume"`
}

// FullTrainingPlan is a validated plan with its retrieval code.
type FullTrainingPlan struct {
	PlanTitle     string        `json:"planTitle"`
	Summary       string        `json:"summary"`
	TargetMetrics TargetMetrics `json:"targetMetrics"`
	Weeks         []WeeklyPlan  `json:"weeks"`
	PlanCode      Code          `json:"planCode"`
}

// Week returns the week with number n.
func (p FullTrainingPlan) Week(n int) (WeeklyPlan, bool) {
	for _, w := range p.Weeks {
		if w.WeekNumber == n {
			return w, true
		}
	}
	return WeeklyPlan{}, false
}
