package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/myrjola/velocoach/internal/appstate"
	"github.com/myrjola/velocoach/internal/errors"
	"github.com/myrjola/velocoach/internal/questionnaire"
)

const (
	appStateSessionKey      = "app_state"
	questionnaireSessionKey = "questionnaire"
)

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.LogAttrs(r.Context(), slog.LevelError, "server error", errors.SlogError(err))
	app.render(w, r, http.StatusInternalServerError, "error", newBaseTemplateData(r))
}

func (app *application) notFound(w http.ResponseWriter, r *http.Request) {
	app.render(w, r, http.StatusNotFound, "not-found", newBaseTemplateData(r))
}

// redirect detects if the request is originating from a fetch API call or a top-level navigation and points the user
// to the correct URL.
func redirect(w http.ResponseWriter, r *http.Request, path string) {
	if r.Header.Get("Sec-Fetch-Dest") == "empty" {
		w.Header().Set("Content-Location", path)
		w.WriteHeader(http.StatusOK)
		return
	}

	http.Redirect(w, r, path, http.StatusSeeOther)
}

// loadAppState returns the application state of the session. Sessions without state, or with state that no
// longer decodes, start on the landing screen.
func (app *application) loadAppState(ctx context.Context) appstate.Session {
	raw := app.sessionManager.GetBytes(ctx, appStateSessionKey)
	if raw == nil {
		return appstate.New()
	}
	var s appstate.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		app.logger.LogAttrs(ctx, slog.LevelWarn, "discarding undecodable app state", errors.SlogError(err))
		return appstate.New()
	}
	return s
}

func (app *application) saveAppState(ctx context.Context, s appstate.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal app state: %w", err)
	}
	app.sessionManager.Put(ctx, appStateSessionKey, raw)
	return nil
}

// loadForm returns the questionnaire of the session or a fresh one.
func (app *application) loadForm(ctx context.Context) *questionnaire.Form {
	raw := app.sessionManager.GetBytes(ctx, questionnaireSessionKey)
	form := questionnaire.New()
	if raw == nil {
		return form
	}
	if err := json.Unmarshal(raw, form); err != nil {
		app.logger.LogAttrs(ctx, slog.LevelWarn, "discarding undecodable questionnaire", errors.SlogError(err))
		return questionnaire.New()
	}
	return form
}

func (app *application) saveForm(ctx context.Context, form *questionnaire.Form) error {
	raw, err := json.Marshal(form)
	if err != nil {
		return fmt.Errorf("marshal questionnaire: %w", err)
	}
	app.sessionManager.Put(ctx, questionnaireSessionKey, raw)
	return nil
}

func (app *application) discardForm(ctx context.Context) {
	app.sessionManager.Remove(ctx, questionnaireSessionKey)
}

// showError surfaces slot in the error banner without changing the screen and sends the user to path.
func (app *application) showError(w http.ResponseWriter, r *http.Request, slot appstate.ErrorSlot, path string) {
	ctx := r.Context()
	state := app.loadAppState(ctx)
	state.ShowError(slot)
	if err := app.saveAppState(ctx, state); err != nil {
		app.serverError(w, r, err)
		return
	}
	app.logger.LogAttrs(ctx, slog.LevelInfo, "showing error", slog.String("error_kind", string(slot.Kind)))
	redirect(w, r, path)
}

// statePath is where the screen of state is rendered.
func statePath(state appstate.State) string {
	switch state {
	case appstate.Questionnaire:
		return "/questionnaire"
	case appstate.Loading:
		return "/plan/loading"
	case appstate.Display:
		return "/plan"
	case appstate.Privacy:
		return "/privacy"
	case appstate.Imprint:
		return "/imprint"
	case appstate.Landing:
		return "/"
	}
	return "/"
}
