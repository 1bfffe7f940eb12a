// Package profile defines the cyclist profile that plan generation is based on.
//
// All enumerations are closed sets. Values arriving from forms or stored JSON are parsed with the Parse functions
// which reject anything outside the set.
package profile

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrUnknownValue is returned when a token is not part of a closed enumeration.
	ErrUnknownValue = errors.New("unknown value")
	// ErrInvalidProfile is returned when a finalized profile breaks one of its invariants.
	ErrInvalidProfile = errors.New("invalid profile")
)

// Goal is the training objective.
type Goal string

const (
	GoalGranFondo Goal = "Gran Fondo"
	GoalCriterium Goal = "Kriterium"
	GoalFitness   Goal = "Fitness"
	GoalAllRound  Goal = "All-round"
)

// Goals lists the goals in display order.
func Goals() []Goal {
	return []Goal{GoalGranFondo, GoalCriterium, GoalFitness, GoalAllRound}
}

func (g Goal) Valid() bool { return slices.Contains(Goals(), g) }

// ParseGoal parses a goal token.
func ParseGoal(s string) (Goal, error) {
	return parse(s, Goals(), "goal")
}

// Level is the self-assessed fitness level.
type Level string

const (
	LevelBeginner     Level = "Beginner"
	LevelIntermediate Level = "Intermediate"
	LevelAdvanced     Level = "Advanced"
)

func Levels() []Level {
	return []Level{LevelBeginner, LevelIntermediate, LevelAdvanced}
}

func (l Level) Valid() bool { return slices.Contains(Levels(), l) }

func ParseLevel(s string) (Level, error) {
	return parse(s, Levels(), "level")
}

// Day is a weekday token. The tokens are the German two-letter abbreviations, Monday first.
type Day string

const (
	Monday    Day = "Mo"
	Tuesday   Day = "Di"
	Wednesday Day = "Mi"
	Thursday  Day = "Do"
	Friday    Day = "Fr"
	Saturday  Day = "Sa"
	Sunday    Day = "So"
)

// Days lists all days in week order.
func Days() []Day {
	return []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}
}

func (d Day) Valid() bool { return slices.Contains(Days(), d) }

// IsWeekend reports whether d is Saturday or Sunday.
func (d Day) IsWeekend() bool {
	return d == Saturday || d == Sunday
}

func ParseDay(s string) (Day, error) {
	return parse(s, Days(), "day")
}

// SortDays orders days in week order and removes duplicates.
func SortDays(days []Day) []Day {
	var sorted []Day
	for _, d := range Days() {
		if slices.Contains(days, d) {
			sorted = append(sorted, d)
		}
	}
	return sorted
}

// Equipment is a piece of owned training gear.
type Equipment string

const (
	SmartTrainer     Equipment = "Smart Trainer"
	PowerMeter       Equipment = "Power Meter"
	HeartRateMonitor Equipment = "Heart Rate Monitor"
)

func AllEquipment() []Equipment {
	return []Equipment{SmartTrainer, PowerMeter, HeartRateMonitor}
}

func (e Equipment) Valid() bool { return slices.Contains(AllEquipment(), e) }

func ParseEquipment(s string) (Equipment, error) {
	return parse(s, AllEquipment(), "equipment")
}

// SortEquipment orders equipment in display order and removes duplicates.
func SortEquipment(equipment []Equipment) []Equipment {
	var sorted []Equipment
	for _, e := range AllEquipment() {
		if slices.Contains(equipment, e) {
			sorted = append(sorted, e)
		}
	}
	return sorted
}

// Gender is used for physiological adjustments. GenderUnspecified is an explicit choice.
type Gender string

const (
	GenderMale        Gender = "male"
	GenderFemale      Gender = "female"
	GenderUnspecified Gender = "unspecified"
)

func Genders() []Gender {
	return []Gender{GenderMale, GenderFemale, GenderUnspecified}
}

func (g Gender) Valid() bool { return slices.Contains(Genders(), g) }

func ParseGender(s string) (Gender, error) {
	return parse(s, Genders(), "gender")
}

// Preference is the training environment preference. It is only collected when the rider owns a smart trainer
// and trains both on weekdays and on the weekend.
type Preference string

const (
	PreferenceSplit    Preference = "split"
	PreferenceIndoor   Preference = "indoor"
	PreferenceOutdoor  Preference = "outdoor"
	PreferenceFlexible Preference = "flexible"
)

func Preferences() []Preference {
	return []Preference{PreferenceSplit, PreferenceIndoor, PreferenceOutdoor, PreferenceFlexible}
}

func (p Preference) Valid() bool { return slices.Contains(Preferences(), p) }

func ParsePreference(s string) (Preference, error) {
	return parse(s, Preferences(), "preference")
}

func parse[T ~string](s string, valid []T, kind string) (T, error) {
	v := T(s)
	if !slices.Contains(valid, v) {
		return "", fmt.Errorf("%w: %s %q", ErrUnknownValue, kind, s)
	}
	return v, nil
}

const (
	MinFTP          = 40
	MaxFTP          = 600
	MinMaxHeartRate = 120
	MaxMaxHeartRate = 220
	// MinAge and MaxAge keep the derived max heart rate of 220 minus age inside its valid range.
	MinAge = 10
	MaxAge = 100
)

// HoursRange is the inclusive range of weekly training hours.
type HoursRange struct {
	Min int
	Max int
}

// Contains reports whether hours lies in the range.
func (r HoursRange) Contains(hours int) bool {
	return hours >= r.Min && hours <= r.Max
}

// Clamp returns hours limited to the range.
func (r HoursRange) Clamp(hours int) int {
	return min(max(hours, r.Min), r.Max)
}

//nolint:gochecknoglobals // static lookup table indexed by day count.
var weeklyHoursTable = [...]HoursRange{
	1: {Min: 2, Max: 5},
	2: {Min: 3, Max: 8},
	3: {Min: 4, Max: 10},
	4: {Min: 5, Max: 14},
	5: {Min: 6, Max: 17},
	6: {Min: 8, Max: 20},
	7: {Min: 10, Max: 25},
}

// WeeklyHoursRange returns the allowed weekly hours for the number of training days. It reports false for zero
// days or more than seven.
func WeeklyHoursRange(dayCount int) (HoursRange, bool) {
	if dayCount < 1 || dayCount >= len(weeklyHoursTable) {
		return HoursRange{}, false
	}
	return weeklyHoursTable[dayCount], true
}

// UserProfile is the finalized questionnaire answer handed to plan generation.
type UserProfile struct {
	Goal               Goal        `json:"goal"`
	Level              Level       `json:"level"`
	WeeklyHours        int         `json:"weeklyHours"`
	AvailableDays      []Day       `json:"availableDays"`
	Equipment          []Equipment `json:"equipment"`
	Gender             Gender      `json:"gender"`
	Age                int         `json:"age"`
	Weight             int         `json:"weight"`
	FTP                *int        `json:"ftp,omitempty"`
	MaxHeartRate       *int        `json:"maxHeartRate,omitempty"`
	TrainingPreference Preference  `json:"trainingPreference,omitempty"`
}

// HasEquipment reports whether the rider owns e.
func (p UserProfile) HasEquipment(e Equipment) bool {
	return slices.Contains(p.Equipment, e)
}

// Validate checks the invariants of a finalized profile.
func (p UserProfile) Validate() error {
	var errs []error
	if !p.Goal.Valid() {
		errs = append(errs, fmt.Errorf("%w: goal %q", ErrUnknownValue, p.Goal))
	}
	if !p.Level.Valid() {
		errs = append(errs, fmt.Errorf("%w: level %q", ErrUnknownValue, p.Level))
	}
	if !p.Gender.Valid() {
		errs = append(errs, fmt.Errorf("%w: gender %q", ErrUnknownValue, p.Gender))
	}
	if p.TrainingPreference != "" && !p.TrainingPreference.Valid() {
		errs = append(errs, fmt.Errorf("%w: preference %q", ErrUnknownValue, p.TrainingPreference))
	}
	if len(p.AvailableDays) == 0 {
		errs = append(errs, fmt.Errorf("%w: no available days", ErrInvalidProfile))
	}
	for _, d := range p.AvailableDays {
		if !d.Valid() {
			errs = append(errs, fmt.Errorf("%w: day %q", ErrUnknownValue, d))
		}
	}
	for _, e := range p.Equipment {
		if !e.Valid() {
			errs = append(errs, fmt.Errorf("%w: equipment %q", ErrUnknownValue, e))
		}
	}
	if r, ok := WeeklyHoursRange(len(p.AvailableDays)); ok && !r.Contains(p.WeeklyHours) {
		errs = append(errs, fmt.Errorf("%w: weekly hours %d outside [%d,%d]",
			ErrInvalidProfile, p.WeeklyHours, r.Min, r.Max))
	}
	if p.Age < MinAge || p.Age > MaxAge {
		errs = append(errs, fmt.Errorf("%w: age %d outside [%d,%d]", ErrInvalidProfile, p.Age, MinAge, MaxAge))
	}
	if p.Weight <= 0 {
		errs = append(errs, fmt.Errorf("%w: weight must be positive", ErrInvalidProfile))
	}
	if p.FTP != nil && (*p.FTP < MinFTP || *p.FTP > MaxFTP) {
		errs = append(errs, fmt.Errorf("%w: ftp %d outside [%d,%d]", ErrInvalidProfile, *p.FTP, MinFTP, MaxFTP))
	}
	if p.MaxHeartRate == nil {
		errs = append(errs, fmt.Errorf("%w: max heart rate missing", ErrInvalidProfile))
	} else if *p.MaxHeartRate < MinMaxHeartRate || *p.MaxHeartRate > MaxMaxHeartRate {
		errs = append(errs, fmt.Errorf("%w: max heart rate %d outside [%d,%d]",
			ErrInvalidProfile, *p.MaxHeartRate, MinMaxHeartRate, MaxMaxHeartRate))
	}
	return errors.Join(errs...)
}
