// Package questionnaire implements the multi-step profile form.
//
// A [Form] walks the rider through goal, level, schedule, metrics, personal details, equipment and an optional
// training preference step. Every step gates advancing on its own answers. The form performs no I/O; callers
// persist it with its JSON encoding between requests.
package questionnaire

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/myrjola/velocoach/internal/profile"
)

var (
	// ErrStepIncomplete is returned when advancing from a step whose gate is not satisfied.
	ErrStepIncomplete = errors.New("step incomplete")
	// ErrAlreadyFinalized is returned when Finalize is called twice without Reopen.
	ErrAlreadyFinalized = errors.New("questionnaire already finalized")
	// ErrNoNextStep is returned when advancing from the last step.
	ErrNoNextStep = errors.New("no next step")
)

// Step identifies a questionnaire step.
type Step string

const (
	StepGoal       Step = "goal"
	StepLevel      Step = "level"
	StepSchedule   Step = "schedule"
	StepMetrics    Step = "metrics"
	StepDetails    Step = "details"
	StepEquipment  Step = "equipment"
	StepPreference Step = "preference"
)

// hoursResetRatio positions the weekly hours inside a fresh range after the day count changes.
const hoursResetRatio = 0.45

// ShowsPreferenceStep reports whether the training preference step applies: the rider owns a smart trainer and
// trains on at least one weekday and at least one weekend day.
func ShowsPreferenceStep(days []profile.Day, equipment []profile.Equipment) bool {
	if !slices.Contains(equipment, profile.SmartTrainer) {
		return false
	}
	var weekday, weekend bool
	for _, d := range days {
		if d.IsWeekend() {
			weekend = true
		} else {
			weekday = true
		}
	}
	return weekday && weekend
}

// FieldInput is a raw numeric input and whether it has lost focus at least once.
type FieldInput struct {
	Raw     string `json:"raw"`
	Touched bool   `json:"touched"`
}

type state struct {
	Step        Step                `json:"step"`
	Goal        profile.Goal        `json:"goal,omitempty"`
	Level       profile.Level       `json:"level,omitempty"`
	Days        []profile.Day       `json:"days"`
	WeeklyHours int                 `json:"weeklyHours"`
	Knowledge   Knowledge           `json:"knowledge,omitempty"`
	FTP         FieldInput          `json:"ftp"`
	HeartRate   FieldInput          `json:"maxHeartRate"`
	Age         int                 `json:"age,omitempty"`
	Weight      int                 `json:"weight,omitempty"`
	Gender      profile.Gender      `json:"gender,omitempty"`
	Equipment   []profile.Equipment `json:"equipment"`
	Preference  profile.Preference  `json:"preference,omitempty"`
	Finalized   bool                `json:"finalized"`
}

// Form is the questionnaire state of one session.
type Form struct {
	s state
}

// New returns a form at the first step with the default schedule of Tuesday, Thursday, Saturday and Sunday.
func New() *Form {
	f := &Form{s: state{
		Step:        StepGoal,
		Goal:        "",
		Level:       "",
		Days:        nil,
		WeeklyHours: 0,
		Knowledge:   "",
		FTP:         FieldInput{Raw: "", Touched: false},
		HeartRate:   FieldInput{Raw: "", Touched: false},
		Age:         0,
		Weight:      0,
		Gender:      "",
		Equipment:   []profile.Equipment{},
		Preference:  "",
		Finalized:   false,
	}}
	f.SetDays([]profile.Day{profile.Tuesday, profile.Thursday, profile.Saturday, profile.Sunday})
	return f
}

func (f *Form) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.s) //nolint:wrapcheck // plain encoding.
}

func (f *Form) UnmarshalJSON(data []byte) error {
	var s state
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("unmarshal questionnaire: %w", err)
	}
	if !slices.Contains(allSteps(), s.Step) {
		return fmt.Errorf("%w: step %q", profile.ErrUnknownValue, s.Step)
	}
	f.s = s
	return nil
}

func allSteps() []Step {
	return []Step{StepGoal, StepLevel, StepSchedule, StepMetrics, StepDetails, StepEquipment, StepPreference}
}

// Steps returns the steps that currently apply, six or seven.
func (f *Form) Steps() []Step {
	steps := allSteps()
	if !ShowsPreferenceStep(f.s.Days, f.s.Equipment) {
		steps = steps[:len(steps)-1]
	}
	return steps
}

func (f *Form) Step() Step { return f.s.Step }

// StepNumber is the 1-based position of the current step.
func (f *Form) StepNumber() int {
	return slices.Index(f.Steps(), f.s.Step) + 1
}

func (f *Form) TotalSteps() int { return len(f.Steps()) }

// IsLastStep reports whether the current step is followed by submission.
func (f *Form) IsLastStep() bool {
	return f.StepNumber() == f.TotalSteps()
}

// CanAdvance reports whether the current step's gate is satisfied.
func (f *Form) CanAdvance() bool {
	return f.stepComplete(f.s.Step)
}

func (f *Form) stepComplete(step Step) bool {
	switch step {
	case StepGoal:
		return f.s.Goal.Valid()
	case StepLevel:
		return f.s.Level.Valid()
	case StepSchedule:
		r, ok := f.HoursRange()
		return ok && r.Contains(f.s.WeeklyHours)
	case StepMetrics:
		_, ok := f.Metrics()
		return ok
	case StepDetails:
		return f.s.Age >= profile.MinAge && f.s.Age <= profile.MaxAge && f.s.Weight > 0 && f.s.Gender.Valid()
	case StepEquipment:
		return true
	case StepPreference:
		return f.s.Preference.Valid()
	}
	return false
}

// Complete reports whether every applicable step is complete.
func (f *Form) Complete() bool {
	for _, step := range f.Steps() {
		if !f.stepComplete(step) {
			return false
		}
	}
	return true
}

// Next advances to the following step.
func (f *Form) Next() error {
	if !f.CanAdvance() {
		return fmt.Errorf("%w: %s", ErrStepIncomplete, f.s.Step)
	}
	steps := f.Steps()
	i := slices.Index(steps, f.s.Step)
	if i < 0 || i+1 >= len(steps) {
		return ErrNoNextStep
	}
	f.s.Step = steps[i+1]
	return nil
}

// Back returns to the previous step. It is a no-op on the first step.
func (f *Form) Back() {
	steps := f.Steps()
	i := slices.Index(steps, f.s.Step)
	switch {
	case i > 0:
		f.s.Step = steps[i-1]
	case i < 0:
		// The preference step disappeared underneath us.
		f.s.Step = steps[len(steps)-1]
	}
}

// GoTo jumps back to an earlier applicable step. Jumping forward is not possible.
func (f *Form) GoTo(step Step) {
	target := slices.Index(f.Steps(), step)
	if target >= 0 && target < f.StepNumber()-1 {
		f.s.Step = step
	}
}

func (f *Form) Goal() profile.Goal { return f.s.Goal }

func (f *Form) SelectGoal(g profile.Goal) {
	if g.Valid() {
		f.s.Goal = g
	}
}

func (f *Form) Level() profile.Level { return f.s.Level }

func (f *Form) SelectLevel(l profile.Level) {
	if l.Valid() {
		f.s.Level = l
	}
}

func (f *Form) Days() []profile.Day { return slices.Clone(f.s.Days) }

func (f *Form) HasDay(d profile.Day) bool { return slices.Contains(f.s.Days, d) }

// ToggleDay selects or deselects d. The weekly hours are reset into the new range.
func (f *Form) ToggleDay(d profile.Day) {
	if !d.Valid() {
		return
	}
	days := slices.Clone(f.s.Days)
	if i := slices.Index(days, d); i >= 0 {
		days = slices.Delete(days, i, i+1)
	} else {
		days = append(days, d)
	}
	f.SetDays(days)
}

// SetDays replaces the selected days. It reports whether the day count changed, in which case the weekly hours
// were reset to 45 % into the new range.
func (f *Form) SetDays(days []profile.Day) bool {
	var valid []profile.Day
	for _, d := range days {
		if d.Valid() {
			valid = append(valid, d)
		}
	}
	valid = profile.SortDays(valid)
	changed := len(valid) != len(f.s.Days)
	f.s.Days = valid
	if changed {
		f.s.WeeklyHours = 0
		if r, ok := f.HoursRange(); ok {
			f.s.WeeklyHours = r.Min + int(math.Round(hoursResetRatio*float64(r.Max-r.Min)))
		}
	}
	return changed
}

// HoursRange is the weekly hours range for the selected days. It reports false when no day is selected and the
// hours input is disabled.
func (f *Form) HoursRange() (profile.HoursRange, bool) {
	return profile.WeeklyHoursRange(len(f.s.Days))
}

func (f *Form) WeeklyHours() int { return f.s.WeeklyHours }

// SetWeeklyHours sets the weekly hours clamped to the current range.
func (f *Form) SetWeeklyHours(hours int) {
	if r, ok := f.HoursRange(); ok {
		f.s.WeeklyHours = r.Clamp(hours)
	}
}

func (f *Form) Knowledge() Knowledge { return f.s.Knowledge }

// ChooseKnowledge declares which metrics the rider knows. Switching clears the touched state of both inputs.
func (f *Form) ChooseKnowledge(k Knowledge) {
	if !k.Valid() || k == f.s.Knowledge {
		return
	}
	f.s.Knowledge = k
	f.s.FTP.Touched = false
	f.s.HeartRate.Touched = false
}

// InputFTP records the raw FTP input without evaluating it.
func (f *Form) InputFTP(raw string) { f.s.FTP.Raw = raw }

// InputMaxHeartRate records the raw max heart rate input without evaluating it.
func (f *Form) InputMaxHeartRate(raw string) { f.s.HeartRate.Raw = raw }

// BlurFTP marks the FTP input as touched so that its status is shown.
func (f *Form) BlurFTP() { f.s.FTP.Touched = true }

// BlurMaxHeartRate marks the max heart rate input as touched so that its status is shown.
func (f *Form) BlurMaxHeartRate() { f.s.HeartRate.Touched = true }

func (f *Form) FTPInput() FieldInput { return f.s.FTP }

func (f *Form) MaxHeartRateInput() FieldInput { return f.s.HeartRate }

// FTPStatus is the range check of the FTP input. It reports false until the input has been blurred.
func (f *Form) FTPStatus() (Status, bool) {
	_, status := FTPPolicy.CheckRaw(f.s.FTP.Raw)
	return status, f.s.FTP.Touched
}

// MaxHeartRateStatus is the range check of the max heart rate input. It reports false until the input has been
// blurred.
func (f *Form) MaxHeartRateStatus() (Status, bool) {
	_, status := HeartRatePolicy.CheckRaw(f.s.HeartRate.Raw)
	return status, f.s.HeartRate.Touched
}

// Metrics builds the variant for the declared knowledge. It reports false when knowledge is not chosen or a
// required value is outside its hard range.
func (f *Form) Metrics() (Metrics, bool) {
	ftp, ftpStatus := FTPPolicy.CheckRaw(f.s.FTP.Raw)
	hr, hrStatus := HeartRatePolicy.CheckRaw(f.s.HeartRate.Raw)
	switch f.s.Knowledge {
	case KnowledgeBoth:
		if ftpStatus == StatusInvalid || hrStatus == StatusInvalid {
			return nil, false
		}
		return BothKnown{FTP: ftp, MaxHeartRate: hr}, true
	case KnowledgeFTP:
		if ftpStatus == StatusInvalid {
			return nil, false
		}
		return FTPKnown{FTP: ftp}, true
	case KnowledgeHeartRate:
		if hrStatus == StatusInvalid {
			return nil, false
		}
		return HeartRateKnown{MaxHeartRate: hr}, true
	case KnowledgeNone:
		return NoneKnown{}, true
	}
	return nil, false
}

func (f *Form) Age() int { return f.s.Age }

func (f *Form) SetAge(age int) { f.s.Age = max(age, 0) }

func (f *Form) Weight() int { return f.s.Weight }

func (f *Form) SetWeight(weight int) { f.s.Weight = max(weight, 0) }

func (f *Form) Gender() profile.Gender { return f.s.Gender }

func (f *Form) SetGender(g profile.Gender) {
	if g.Valid() {
		f.s.Gender = g
	}
}

func (f *Form) Equipment() []profile.Equipment { return slices.Clone(f.s.Equipment) }

func (f *Form) HasEquipment(e profile.Equipment) bool { return slices.Contains(f.s.Equipment, e) }

func (f *Form) ToggleEquipment(e profile.Equipment) {
	if !e.Valid() {
		return
	}
	equipment := slices.Clone(f.s.Equipment)
	if i := slices.Index(equipment, e); i >= 0 {
		equipment = slices.Delete(equipment, i, i+1)
	} else {
		equipment = append(equipment, e)
	}
	f.SetEquipment(equipment)
}

// SetEquipment replaces the owned equipment. There is no minimum.
func (f *Form) SetEquipment(equipment []profile.Equipment) {
	var valid []profile.Equipment
	for _, e := range equipment {
		if e.Valid() {
			valid = append(valid, e)
		}
	}
	f.s.Equipment = profile.SortEquipment(valid)
	if f.s.Equipment == nil {
		f.s.Equipment = []profile.Equipment{}
	}
}

func (f *Form) Preference() profile.Preference { return f.s.Preference }

func (f *Form) ChoosePreference(p profile.Preference) {
	if p.Valid() {
		f.s.Preference = p
	}
}

// Finalized reports whether Finalize has run since the last Reopen.
func (f *Form) Finalized() bool { return f.s.Finalized }

// Finalize normalizes the answers into a profile. Unknown max heart rate becomes 220 minus age, unknown FTP is
// stripped and the preference is kept only when its step applies.
//
// Finalize runs once. Further calls return ErrAlreadyFinalized until Reopen is called.
func (f *Form) Finalize() (profile.UserProfile, error) {
	var p profile.UserProfile
	if f.s.Finalized {
		return p, ErrAlreadyFinalized
	}
	for _, step := range f.Steps() {
		if !f.stepComplete(step) {
			return p, fmt.Errorf("%w: %s", ErrStepIncomplete, step)
		}
	}
	metrics, _ := f.Metrics()

	p = profile.UserProfile{
		Goal:               f.s.Goal,
		Level:              f.s.Level,
		WeeklyHours:        f.s.WeeklyHours,
		AvailableDays:      slices.Clone(f.s.Days),
		Equipment:          f.Equipment(),
		Gender:             f.s.Gender,
		Age:                f.s.Age,
		Weight:             f.s.Weight,
		FTP:                nil,
		MaxHeartRate:       nil,
		TrainingPreference: "",
	}
	metrics.apply(&p)
	if ShowsPreferenceStep(p.AvailableDays, p.Equipment) {
		p.TrainingPreference = f.s.Preference
	}
	if err := p.Validate(); err != nil {
		return profile.UserProfile{}, fmt.Errorf("finalize questionnaire: %w", err)
	}
	f.s.Finalized = true
	return p, nil
}

// Reopen makes the form editable again after a failed generation so that it can be finalized anew.
func (f *Form) Reopen() {
	f.s.Finalized = false
}
