package main

import (
	"net/http"

	"github.com/myrjola/velocoach/internal/appstate"
)

type legalTemplateData struct {
	BaseTemplateData
	// PreviousState is the screen the legal page was opened from.
	PreviousState appstate.State
}

// legalPage moves the session to the legal screen reached by open and renders page.
func (app *application) legalPage(
	w http.ResponseWriter,
	r *http.Request,
	open func(*appstate.Session) error,
	page string,
) {
	ctx := r.Context()
	state := app.loadAppState(ctx)
	previous := state.State
	if err := open(&state); err != nil {
		app.serverError(w, r, err)
		return
	}
	if err := app.saveAppState(ctx, state); err != nil {
		app.serverError(w, r, err)
		return
	}
	data := legalTemplateData{
		BaseTemplateData: withState(r, state),
		PreviousState:    previous,
	}
	app.render(w, r, http.StatusOK, page, data)
}

func (app *application) privacy(w http.ResponseWriter, r *http.Request) {
	app.legalPage(w, r, (*appstate.Session).OpenPrivacy, "privacy")
}

func (app *application) imprint(w http.ResponseWriter, r *http.Request) {
	app.legalPage(w, r, (*appstate.Session).OpenImprint, "imprint")
}

// closePOST leaves a legal page for the landing page.
func (app *application) closePOST(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state := app.loadAppState(ctx)
	if err := state.Close(); err != nil {
		redirect(w, r, statePath(state.State))
		return
	}
	if err := app.saveAppState(ctx, state); err != nil {
		app.serverError(w, r, err)
		return
	}
	redirect(w, r, "/")
}
