package main

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/myrjola/velocoach/internal/appstate"
	"github.com/myrjola/velocoach/internal/contexthelpers"
	"github.com/myrjola/velocoach/internal/errors"
	"github.com/myrjola/velocoach/internal/plan"
	"github.com/myrjola/velocoach/internal/profile"
	"github.com/myrjola/velocoach/internal/questionnaire"
	"github.com/myrjola/velocoach/internal/quota"
)

const (
	actionNext   = "next"
	actionBack   = "back"
	actionUpdate = "update"
	actionBlur   = "blur"
	// actionGoToPrefix is followed by the name of an earlier step.
	actionGoToPrefix = "goto:"
)

type stepView struct {
	Step    questionnaire.Step
	Number  int
	Current bool
	// Done steps lie before the current one and can be jumped back to.
	Done bool
}

type questionnaireTemplateData struct {
	BaseTemplateData
	Form        *questionnaire.Form
	Steps       []stepView
	StepNumber  int
	TotalSteps  int
	Progress    int
	IsLastStep  bool
	CanAdvance  bool
	Goals       []profile.Goal
	Levels      []profile.Level
	Days        []profile.Day
	Knowledges  []questionnaire.Knowledge
	Genders     []profile.Gender
	Equipment   []profile.Equipment
	Preferences []profile.Preference
	// HoursEnabled is false while no training day is selected.
	HoursEnabled bool
	HoursMin     int
	HoursMax     int
	// FTPStatus and MaxHeartRateStatus are empty until the input has been blurred.
	FTPStatus          string
	MaxHeartRateStatus string
	MinFTP             int
	MaxFTP             int
	MinMaxHeartRate    int
	MaxMaxHeartRate    int
	MinAge             int
	MaxAge             int
	RemainingPlans     int
	DailyPlanLimit     int
}

func statusText(status questionnaire.Status, touched bool) string {
	if !touched {
		return ""
	}
	return status.String()
}

func (app *application) newQuestionnaireTemplateData(
	ctx context.Context,
	r *http.Request,
	state appstate.Session,
	form *questionnaire.Form,
) (questionnaireTemplateData, error) {
	remaining, err := app.quotaGuard.Remaining(ctx, contexthelpers.DeviceID(ctx))
	if err != nil {
		return questionnaireTemplateData{}, errors.Wrap(err, "remaining plans")
	}

	current := form.StepNumber()
	steps := form.Steps()
	views := make([]stepView, 0, len(steps))
	for i, step := range steps {
		views = append(views, stepView{
			Step:    step,
			Number:  i + 1,
			Current: i+1 == current,
			Done:    i+1 < current,
		})
	}

	hours, hoursEnabled := form.HoursRange()
	ftpStatus, ftpTouched := form.FTPStatus()
	hrStatus, hrTouched := form.MaxHeartRateStatus()

	return questionnaireTemplateData{
		BaseTemplateData:   withState(r, state),
		Form:               form,
		Steps:              views,
		StepNumber:         current,
		TotalSteps:         form.TotalSteps(),
		Progress:           current * 100 / form.TotalSteps(), //nolint:mnd // percent.
		IsLastStep:         form.IsLastStep(),
		CanAdvance:         form.CanAdvance(),
		Goals:              profile.Goals(),
		Levels:             profile.Levels(),
		Days:               profile.Days(),
		Knowledges:         questionnaire.Knowledges(),
		Genders:            profile.Genders(),
		Equipment:          profile.AllEquipment(),
		Preferences:        profile.Preferences(),
		HoursEnabled:       hoursEnabled,
		HoursMin:           hours.Min,
		HoursMax:           hours.Max,
		FTPStatus:          statusText(ftpStatus, ftpTouched),
		MaxHeartRateStatus: statusText(hrStatus, hrTouched),
		MinFTP:             profile.MinFTP,
		MaxFTP:             profile.MaxFTP,
		MinMaxHeartRate:    profile.MinMaxHeartRate,
		MaxMaxHeartRate:    profile.MaxMaxHeartRate,
		MinAge:             profile.MinAge,
		MaxAge:             profile.MaxAge,
		RemainingPlans:     remaining,
		DailyPlanLimit:     app.quotaGuard.Ceiling(),
	}, nil
}

func (app *application) questionnaireGET(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state := app.loadAppState(ctx)
	if state.State != appstate.Questionnaire {
		redirect(w, r, statePath(state.State))
		return
	}

	data, err := app.newQuestionnaireTemplateData(ctx, r, state, app.loadForm(ctx))
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	app.render(w, r, http.StatusOK, "questionnaire", data)
}

// formInt parses an optional integer field. Missing or malformed values are reported as absent.
func formInt(r *http.Request, key string) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue(key)))
	if err != nil {
		return 0, false
	}
	return v, true
}

// applyStep copies the posted fields of the current step into form. The posted step has to match the step the
// form is on so that a stale browser tab cannot overwrite answers of another step.
func applyStep(r *http.Request, form *questionnaire.Form) bool {
	if questionnaire.Step(r.PostFormValue("step")) != form.Step() {
		return false
	}

	switch form.Step() {
	case questionnaire.StepGoal:
		if g, err := profile.ParseGoal(r.PostFormValue("goal")); err == nil {
			form.SelectGoal(g)
		}
	case questionnaire.StepLevel:
		if l, err := profile.ParseLevel(r.PostFormValue("level")); err == nil {
			form.SelectLevel(l)
		}
	case questionnaire.StepSchedule:
		var days []profile.Day
		for _, raw := range r.PostForm["days"] {
			if d, err := profile.ParseDay(raw); err == nil {
				days = append(days, d)
			}
		}
		// A changed day count resets the hours into the new range, so the posted hours belong to the old range.
		if changed := form.SetDays(days); !changed {
			if hours, ok := formInt(r, "hours"); ok {
				form.SetWeeklyHours(hours)
			}
		}
	case questionnaire.StepMetrics:
		if k := questionnaire.Knowledge(r.PostFormValue("knowledge")); k.Valid() {
			form.ChooseKnowledge(k)
		}
		if _, ok := r.PostForm["ftp"]; ok {
			form.InputFTP(r.PostFormValue("ftp"))
		}
		if _, ok := r.PostForm["max_heart_rate"]; ok {
			form.InputMaxHeartRate(r.PostFormValue("max_heart_rate"))
		}
	case questionnaire.StepDetails:
		if age, ok := formInt(r, "age"); ok {
			form.SetAge(age)
		}
		if weight, ok := formInt(r, "weight"); ok {
			form.SetWeight(weight)
		}
		if g, err := profile.ParseGender(r.PostFormValue("gender")); err == nil {
			form.SetGender(g)
		}
	case questionnaire.StepEquipment:
		var equipment []profile.Equipment
		for _, raw := range r.PostForm["equipment"] {
			if e, err := profile.ParseEquipment(raw); err == nil {
				equipment = append(equipment, e)
			}
		}
		form.SetEquipment(equipment)
	case questionnaire.StepPreference:
		if p, err := profile.ParsePreference(r.PostFormValue("preference")); err == nil {
			form.ChoosePreference(p)
		}
	}
	return true
}

// blurMetrics reveals the range check of the metric inputs the rider was asked for.
func blurMetrics(form *questionnaire.Form) {
	if form.Step() != questionnaire.StepMetrics {
		return
	}
	if form.Knowledge().AsksFTP() {
		form.BlurFTP()
	}
	if form.Knowledge().AsksMaxHeartRate() {
		form.BlurMaxHeartRate()
	}
}

func (app *application) questionnairePOST(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state := app.loadAppState(ctx)
	if state.State != appstate.Questionnaire {
		redirect(w, r, statePath(state.State))
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	form := app.loadForm(ctx)
	action := r.PostFormValue("action")
	if applyStep(r, form) {
		switch action {
		case actionNext:
			blurMetrics(form)
			if err := form.Next(); err != nil {
				app.logger.LogAttrs(ctx, slog.LevelDebug, "questionnaire step not advanced",
					slog.String("step", string(form.Step())), errors.SlogError(err))
			}
		case actionBlur:
			blurMetrics(form)
		case actionBack:
			form.Back()
		case actionUpdate:
		default:
			if step, ok := strings.CutPrefix(action, actionGoToPrefix); ok {
				form.GoTo(questionnaire.Step(step))
			}
		}
	}

	if err := app.saveForm(ctx, form); err != nil {
		app.serverError(w, r, err)
		return
	}
	redirect(w, r, "/questionnaire")
}

func (app *application) questionnaireCancelPOST(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state := app.loadAppState(ctx)
	if err := state.Cancel(); err != nil {
		redirect(w, r, statePath(state.State))
		return
	}
	state.DismissError()
	app.discardForm(ctx)
	if err := app.saveAppState(ctx, state); err != nil {
		app.serverError(w, r, err)
		return
	}
	redirect(w, r, "/")
}

// questionnaireSubmitPOST finalizes the profile and starts generating the plan in the background.
func (app *application) questionnaireSubmitPOST(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state := app.loadAppState(ctx)
	// A repeated submit while the plan is generating lands on the loading screen.
	if state.State != appstate.Questionnaire {
		redirect(w, r, statePath(state.State))
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	form := app.loadForm(ctx)
	applyStep(r, form)
	blurMetrics(form)
	p, err := form.Finalize()
	if err != nil {
		if !errors.Is(err, questionnaire.ErrStepIncomplete) && !errors.Is(err, profile.ErrInvalidProfile) {
			app.serverError(w, r, err)
			return
		}
		app.logger.LogAttrs(ctx, slog.LevelInfo, "questionnaire submitted incomplete", errors.SlogError(err))
		if err = app.saveForm(ctx, form); err != nil {
			app.serverError(w, r, err)
			return
		}
		redirect(w, r, "/questionnaire")
		return
	}

	lang := contexthelpers.Language(ctx)
	deviceID := contexthelpers.DeviceID(ctx)
	if _, err = app.quotaGuard.CheckAndConsume(ctx, deviceID); err != nil {
		if !errors.Is(err, quota.ErrDailyLimitReached) {
			app.serverError(w, r, err)
			return
		}
		slot := appstate.SlotFor(err, lang)
		form.Reopen()
		if saveErr := app.saveForm(ctx, form); saveErr != nil {
			app.serverError(w, r, saveErr)
			return
		}
		app.showError(w, r, slot, "/questionnaire")
		return
	}

	userID := contexthelpers.AuthenticatedUserID(ctx)
	jobID, err := app.jobs.Start(ctx, deviceID, func(ctx context.Context) (plan.SavedPlan, error) {
		return app.planService.Generate(ctx, p, lang, userID)
	})
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	if err = state.Submit(jobID); err != nil {
		app.serverError(w, r, err)
		return
	}
	if err = app.saveForm(ctx, form); err != nil {
		app.serverError(w, r, err)
		return
	}
	if err = app.saveAppState(ctx, state); err != nil {
		app.serverError(w, r, err)
		return
	}
	app.logger.LogAttrs(ctx, slog.LevelInfo, "plan generation started", slog.String("job_id", jobID))
	redirect(w, r, "/plan/loading")
}
