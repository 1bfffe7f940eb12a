package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/myrjola/velocoach/internal/appstate"
	"github.com/myrjola/velocoach/internal/contexthelpers"
	"github.com/myrjola/velocoach/internal/errors"
	"github.com/myrjola/velocoach/internal/webauthnhandler"
)

func writeJSON(w http.ResponseWriter, out []byte) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(out)
}

// authFailed shows a dismissed passkey prompt as a banner. Other ceremony failures are server errors.
func (app *application) authFailed(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, webauthnhandler.ErrAuthCancelled) {
		app.logger.LogAttrs(r.Context(), slog.LevelInfo, "passkey ceremony cancelled", errors.SlogError(err))
		app.showError(w, r, appstate.SlotFor(err, contexthelpers.Language(r.Context())), "/")
		return
	}
	app.serverError(w, r, err)
}

func (app *application) beginRegistration(w http.ResponseWriter, r *http.Request) {
	out, err := app.webAuthnHandler.BeginRegistration(r.Context())
	if err != nil {
		app.serverError(w, r, fmt.Errorf("begin registration: %w", err))
		return
	}
	writeJSON(w, out)
}

func (app *application) finishRegistration(w http.ResponseWriter, r *http.Request) {
	if err := app.webAuthnHandler.FinishRegistration(r); err != nil {
		app.authFailed(w, r, fmt.Errorf("finish registration: %w", err))
		return
	}
	redirect(w, r, "/")
}

func (app *application) beginLogin(w http.ResponseWriter, r *http.Request) {
	out, err := app.webAuthnHandler.BeginLogin(w, r)
	if err != nil {
		app.serverError(w, r, fmt.Errorf("begin login: %w", err))
		return
	}
	writeJSON(w, out)
}

func (app *application) finishLogin(w http.ResponseWriter, r *http.Request) {
	if err := app.webAuthnHandler.FinishLogin(r); err != nil {
		app.authFailed(w, r, fmt.Errorf("finish login: %w", err))
		return
	}
	redirect(w, r, "/")
}

func (app *application) logout(w http.ResponseWriter, r *http.Request) {
	if err := app.webAuthnHandler.Logout(r.Context()); err != nil {
		app.serverError(w, r, fmt.Errorf("logout: %w", err))
		return
	}
	redirect(w, r, "/")
}

// deleteAccountPOST removes the passkeys of the signed-in user and signs them out.
func (app *application) deleteAccountPOST(w http.ResponseWriter, r *http.Request) {
	if err := app.webAuthnHandler.DeleteUser(r.Context()); err != nil {
		app.serverError(w, r, fmt.Errorf("delete user: %w", err))
		return
	}
	redirect(w, r, "/")
}
