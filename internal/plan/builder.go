package plan

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/myrjola/velocoach/internal/ai"
	"github.com/myrjola/velocoach/internal/i18n"
	"github.com/myrjola/velocoach/internal/profile"
	"github.com/myrjola/velocoach/internal/ptr"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

//nolint:gochecknoglobals // parsed once from embedded files.
var prompts = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))

func goalFocus(g profile.Goal) string {
	switch g {
	case profile.GoalGranFondo:
		return "endurance, fat metabolism and muscular endurance (Z2 and Z3)."
	case profile.GoalCriterium:
		return "sprints, anaerobic capacity and changes of pace (Z5 and sprints)."
	case profile.GoalFitness:
		return "calorie burn through moderate volume (Z1 and Z2)."
	case profile.GoalAllRound:
		return "raising threshold power (Z4 and sweet spot)."
	}
	return ""
}

func preferenceInstruction(p profile.Preference) string {
	switch p {
	case profile.PreferenceSplit:
		return "Schedule weekday sessions indoors on the smart trainer and weekend sessions outdoors."
	case profile.PreferenceIndoor:
		return "Schedule every session indoors on the smart trainer."
	case profile.PreferenceOutdoor:
		return "Schedule every session outdoors."
	case profile.PreferenceFlexible:
		return "There is no constraint on indoor or outdoor training."
	}
	return ""
}

// thresholdExample is a Z4 target shown to the generator as an example of a concrete interval prescription.
func thresholdExample(p profile.UserProfile) string {
	if p.FTP != nil {
		//nolint:mnd // Z4 is 91-105 % of FTP.
		return fmt.Sprintf("%d-%d W", *p.FTP*91/100, *p.FTP*105/100)
	}
	//nolint:mnd // Z4 is 80-90 % of max heart rate.
	return fmt.Sprintf("%d-%d bpm", *p.MaxHeartRate*80/100, *p.MaxHeartRate*90/100)
}

type systemData struct {
	HasFTP       bool
	Example      string
	Goal         profile.Goal
	Focus        string
	Age          int
	Weight       int
	Gender       profile.Gender
	Preference   string
	Language     string
	LanguageCode i18n.Language
}

type promptData struct {
	Goal         profile.Goal
	Level        profile.Level
	WeeklyHours  int
	Days         string
	Equipment    string
	Gender       profile.Gender
	Age          int
	Weight       int
	FTP          int
	MaxHeartRate int
	Preference   profile.Preference
}

// BuildRequest turns a finalized profile into a generation request. The profile is validated first so that
// values outside the closed enumerations never reach the generator.
func BuildRequest(p profile.UserProfile, lang i18n.Language, model string) (ai.Request, error) {
	if err := p.Validate(); err != nil {
		return ai.Request{}, fmt.Errorf("validate profile: %w", err)
	}

	days := make([]string, 0, len(p.AvailableDays))
	for _, d := range p.AvailableDays {
		days = append(days, string(d))
	}
	equipment := "none"
	if len(p.Equipment) > 0 {
		names := make([]string, 0, len(p.Equipment))
		for _, e := range p.Equipment {
			names = append(names, string(e))
		}
		equipment = strings.Join(names, ", ")
	}
	ftp := ptr.Deref(p.FTP, 0)

	var system, prompt bytes.Buffer
	if err := prompts.ExecuteTemplate(&system, "system.tmpl", systemData{
		HasFTP:       p.FTP != nil,
		Example:      thresholdExample(p),
		Goal:         p.Goal,
		Focus:        goalFocus(p.Goal),
		Age:          p.Age,
		Weight:       p.Weight,
		Gender:       p.Gender,
		Preference:   preferenceInstruction(p.TrainingPreference),
		Language:     i18n.OutputLanguage(lang),
		LanguageCode: lang,
	}); err != nil {
		return ai.Request{}, fmt.Errorf("execute system instruction template: %w", err)
	}
	if err := prompts.ExecuteTemplate(&prompt, "prompt.tmpl", promptData{
		Goal:         p.Goal,
		Level:        p.Level,
		WeeklyHours:  p.WeeklyHours,
		Days:         strings.Join(days, ", "),
		Equipment:    equipment,
		Gender:       p.Gender,
		Age:          p.Age,
		Weight:       p.Weight,
		FTP:          ftp,
		MaxHeartRate: *p.MaxHeartRate,
		Preference:   p.TrainingPreference,
	}); err != nil {
		return ai.Request{}, fmt.Errorf("execute prompt template: %w", err)
	}

	return ai.Request{
		Model:             model,
		SystemInstruction: system.String(),
		Prompt:            prompt.String(),
		Schema:            TrainingPlanSchema(),
	}, nil
}
