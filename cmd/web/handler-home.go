package main

import (
	"net/http"

	"github.com/myrjola/velocoach/internal/appstate"
	"github.com/myrjola/velocoach/internal/plan"
)

// samplePlanCode is seeded by the database fixtures and linked from the landing page.
const samplePlanCode = plan.Code("GEAR")

type homeTemplateData struct {
	BaseTemplateData
	SamplePlanCode         plan.Code
	RetrievalRequiresLogin bool
}

// home renders the landing screen. Sessions that are elsewhere in the wizard are sent back to their screen, except
// that visiting home from a legal page closes it.
func (app *application) home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state := app.loadAppState(ctx)

	if state.State == appstate.Privacy || state.State == appstate.Imprint {
		if err := state.Close(); err != nil {
			app.serverError(w, r, err)
			return
		}
		if err := app.saveAppState(ctx, state); err != nil {
			app.serverError(w, r, err)
			return
		}
	}
	if state.State != appstate.Landing {
		redirect(w, r, statePath(state.State))
		return
	}

	data := homeTemplateData{
		BaseTemplateData:       withState(r, state),
		SamplePlanCode:         samplePlanCode,
		RetrievalRequiresLogin: app.retrievalRequiresLogin,
	}
	app.render(w, r, http.StatusOK, "home", data)
}

// startPOST opens the questionnaire. A questionnaire left behind by an earlier visit is resumed.
func (app *application) startPOST(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state := app.loadAppState(ctx)
	if err := state.Start(); err != nil {
		redirect(w, r, statePath(state.State))
		return
	}

	form := app.loadForm(ctx)
	if form.Finalized() {
		form.Reopen()
	}
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

// errorDismissPOST clears the error banner and returns to the page it was shown on.
func (app *application) errorDismissPOST(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state := app.loadAppState(ctx)
	state.DismissError()
	if err := app.saveAppState(ctx, state); err != nil {
		app.serverError(w, r, err)
		return
	}
	redirect(w, r, backPath(r))
}
