package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/myrjola/velocoach/internal/appstate"
	"github.com/myrjola/velocoach/internal/contexthelpers"
	"github.com/myrjola/velocoach/internal/errors"
	"github.com/myrjola/velocoach/internal/plan"
	"github.com/myrjola/velocoach/internal/profile"
)

// loadingRefreshSeconds is how often the loading screen polls for the generation result.
const loadingRefreshSeconds = 2

type loadingTemplateData struct {
	BaseTemplateData
	RefreshSeconds int
}

type weekTab struct {
	Number int
	Focus  string
	Active bool
	URL    string
}

type sessionView struct {
	plan.TrainingSession
	Rest bool
	// BarPercent is the duration relative to the longest session of the week.
	BarPercent int
	// IntensityClass is the CSS modifier of the intensity colour.
	IntensityClass string
}

type planTemplateData struct {
	BaseTemplateData
	Plan        plan.FullTrainingPlan
	Profile     profile.UserProfile
	Weeks       []weekTab
	Week        plan.WeeklyPlan
	Sessions    []sessionView
	WeekMinutes int
	// Stored plans were opened by code and offer a way back instead of starting over.
	Stored    bool
	CreatedAt time.Time
}

type plansTemplateData struct {
	BaseTemplateData
	Plans []plan.Summary
}

func intensityClass(i plan.Intensity) string {
	return strings.ToLower(string(i))
}

func weekNumber(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("week"))
	if err != nil || n < 1 || n > plan.WeekCount {
		return 1
	}
	return n
}

// newPlanTemplateData prepares the display of week of p. basePath is the URL the week tabs link to.
func newPlanTemplateData(
	base BaseTemplateData,
	p plan.FullTrainingPlan,
	userProfile profile.UserProfile,
	week int,
	basePath string,
) planTemplateData {
	tabs := make([]weekTab, 0, len(p.Weeks))
	for _, w := range p.Weeks {
		tabs = append(tabs, weekTab{
			Number: w.WeekNumber,
			Focus:  w.Focus,
			Active: w.WeekNumber == week,
			URL:    fmt.Sprintf("%s?week=%d", basePath, w.WeekNumber),
		})
	}

	current, ok := p.Week(week)
	if !ok && len(p.Weeks) > 0 {
		current = p.Weeks[0]
	}

	longest := 0
	for _, s := range current.Sessions {
		longest = max(longest, s.DurationMinutes)
	}
	sessions := make([]sessionView, 0, len(current.Sessions))
	for _, s := range current.Sessions {
		percent := 0
		if longest > 0 {
			percent = s.DurationMinutes * 100 / longest //nolint:mnd // percent.
		}
		sessions = append(sessions, sessionView{
			TrainingSession: s,
			Rest:            s.Intensity == plan.IntensityRest,
			BarPercent:      percent,
			IntensityClass:  intensityClass(s.Intensity),
		})
	}

	return planTemplateData{
		BaseTemplateData: base,
		Plan:             p,
		Profile:          userProfile,
		Weeks:            tabs,
		Week:             current,
		Sessions:         sessions,
		WeekMinutes:      current.TotalMinutes(),
		Stored:           false,
		CreatedAt:        time.Time{},
	}
}

// planLoading polls the generation job started by the questionnaire submit.
func (app *application) planLoading(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state := app.loadAppState(ctx)
	if state.State != appstate.Loading {
		redirect(w, r, statePath(state.State))
		return
	}
	lang := contexthelpers.Language(ctx)

	job, ok := app.jobs.Result(state.JobID)
	if !ok {
		app.logger.LogAttrs(ctx, slog.LevelWarn, "generation job lost", slog.String("job_id", state.JobID))
		app.failGeneration(w, r, state, appstate.NewSlot(appstate.KindGeneric, lang))
		return
	}

	switch job.Status {
	case plan.JobRunning:
		data := loadingTemplateData{
			BaseTemplateData: withState(r, state),
			RefreshSeconds:   loadingRefreshSeconds,
		}
		app.render(w, r, http.StatusOK, "loading", data)
	case plan.JobSucceeded:
		if err := state.Succeed(job.Plan.PlanJSON, job.Plan.ProfileJSON); err != nil {
			app.serverError(w, r, err)
			return
		}
		app.discardForm(ctx)
		if err := app.saveAppState(ctx, state); err != nil {
			app.serverError(w, r, err)
			return
		}
		redirect(w, r, "/plan")
	case plan.JobFailed:
		app.failGeneration(w, r, state, appstate.SlotFor(job.Err, lang))
	}
}

// failGeneration returns to the questionnaire with its answers intact.
func (app *application) failGeneration(
	w http.ResponseWriter,
	r *http.Request,
	state appstate.Session,
	slot appstate.ErrorSlot,
) {
	ctx := r.Context()
	if err := state.Fail(slot); err != nil {
		app.serverError(w, r, err)
		return
	}
	form := app.loadForm(ctx)
	form.Reopen()
	if err := app.saveForm(ctx, form); err != nil {
		app.serverError(w, r, err)
		return
	}
	if err := app.saveAppState(ctx, state); err != nil {
		app.serverError(w, r, err)
		return
	}
	redirect(w, r, "/questionnaire")
}

// planDisplay shows the plan generated in this session.
func (app *application) planDisplay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state := app.loadAppState(ctx)
	if state.State != appstate.Display {
		redirect(w, r, statePath(state.State))
		return
	}

	var (
		p           plan.FullTrainingPlan
		userProfile profile.UserProfile
	)
	if err := json.Unmarshal(state.PlanJSON, &p); err != nil {
		app.serverError(w, r, errors.Wrap(err, "unmarshal session plan"))
		return
	}
	if err := json.Unmarshal(state.ProfileJSON, &userProfile); err != nil {
		app.serverError(w, r, errors.Wrap(err, "unmarshal session profile"))
		return
	}

	data := newPlanTemplateData(withState(r, state), p, userProfile, weekNumber(r), "/plan")
	app.render(w, r, http.StatusOK, "plan", data)
}

func (app *application) planResetPOST(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state := app.loadAppState(ctx)
	if err := state.Reset(); err != nil {
		redirect(w, r, statePath(state.State))
		return
	}
	app.discardForm(ctx)
	if err := app.saveAppState(ctx, state); err != nil {
		app.serverError(w, r, err)
		return
	}
	redirect(w, r, "/")
}

// retrievalAllowed reports whether the visitor may open stored plans. Otherwise the sign-in error is shown on
// the landing page.
func (app *application) retrievalAllowed(w http.ResponseWriter, r *http.Request) bool {
	ctx := r.Context()
	if !app.retrievalRequiresLogin || contexthelpers.IsAuthenticated(ctx) {
		return true
	}
	app.showError(w, r, appstate.NewSlot(appstate.KindSigninRequired, contexthelpers.Language(ctx)), "/")
	return false
}

// storedPlan renders a plan opened by its code.
func (app *application) storedPlan(w http.ResponseWriter, r *http.Request) {
	if !app.retrievalAllowed(w, r) {
		return
	}
	ctx := r.Context()
	raw := r.PathValue("code")

	saved, err := app.planService.Retrieve(ctx, raw)
	if err != nil {
		if errors.Is(err, plan.ErrInvalidCode) || errors.Is(err, plan.ErrNotFound) {
			app.notFound(w, r)
			return
		}
		app.serverError(w, r, err)
		return
	}
	if saved.Code().String() != raw {
		http.Redirect(w, r, "/plans/"+saved.Code().String(), http.StatusMovedPermanently)
		return
	}

	state := app.loadAppState(ctx)
	basePath := "/plans/" + saved.Code().String()
	data := newPlanTemplateData(withState(r, state), saved.Plan, saved.Profile, weekNumber(r), basePath)
	data.Stored = true
	data.CreatedAt = saved.CreatedAt
	app.render(w, r, http.StatusOK, "plan", data)
}

// planLookupPOST opens the plan with the code entered on the landing page.
func (app *application) planLookupPOST(w http.ResponseWriter, r *http.Request) {
	if !app.retrievalAllowed(w, r) {
		return
	}
	ctx := r.Context()

	saved, err := app.planService.Retrieve(ctx, r.PostFormValue("code"))
	if err != nil {
		if !errors.Is(err, plan.ErrInvalidCode) && !errors.Is(err, plan.ErrNotFound) {
			app.logger.LogAttrs(ctx, slog.LevelError, "plan lookup failed", errors.SlogError(err))
		}
		app.showError(w, r, appstate.LookupSlotFor(err, contexthelpers.Language(ctx)), "/")
		return
	}

	state := app.loadAppState(ctx)
	state.DismissError()
	if err = app.saveAppState(ctx, state); err != nil {
		app.serverError(w, r, err)
		return
	}
	redirect(w, r, "/plans/"+saved.Code().String())
}

// plansList shows the plans the signed-in user has generated.
func (app *application) plansList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	summaries, err := app.planService.ListForUser(ctx, contexthelpers.AuthenticatedUserID(ctx))
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	data := plansTemplateData{
		BaseTemplateData: withState(r, app.loadAppState(ctx)),
		Plans:            summaries,
	}
	app.render(w, r, http.StatusOK, "plans", data)
}
