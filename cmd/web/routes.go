package main

import (
	"fmt"
	"net/http"
)

// shared is the middleware every dynamic request passes through.
func (app *application) shared(next http.Handler) http.Handler {
	return app.logAndTraceRequest(secureHeaders(app.crossOriginProtection(commonContext(app.timeout(next)))))
}

// noAuth serves endpoints that neither read nor write the session.
func (app *application) noAuth(next http.Handler) http.Handler {
	return app.recoverPanic(app.shared(next))
}

// session loads the visitor's session with their device, language and sign-in status.
func (app *application) session(next http.Handler) http.Handler {
	return app.recoverPanic(noCache(app.sessionManager.LoadAndSave(app.webAuthnHandler.AuthenticateMiddleware(
		app.shared(app.identifyDevice(app.negotiateLanguage(next)))))))
}

func (app *application) routes() (http.Handler, error) {
	mux := http.NewServeMux()

	var (
		gated = func(next http.Handler) http.Handler {
			return app.session(app.accessGate(next))
		}
		mustSession = func(next http.Handler) http.Handler {
			return gated(app.mustAuthenticate(next))
		}
	)

	mux.Handle("POST /start", gated(http.HandlerFunc(app.startPOST)))

	mux.Handle("GET /questionnaire", gated(http.HandlerFunc(app.questionnaireGET)))
	mux.Handle("POST /questionnaire", gated(http.HandlerFunc(app.questionnairePOST)))
	mux.Handle("POST /questionnaire/cancel", gated(http.HandlerFunc(app.questionnaireCancelPOST)))
	mux.Handle("POST /questionnaire/submit", gated(http.HandlerFunc(app.questionnaireSubmitPOST)))

	mux.Handle("GET /plan/loading", gated(http.HandlerFunc(app.planLoading)))
	mux.Handle("GET /plan", gated(http.HandlerFunc(app.planDisplay)))
	mux.Handle("POST /plan/reset", gated(http.HandlerFunc(app.planResetPOST)))

	mux.Handle("GET /plans", mustSession(http.HandlerFunc(app.plansList)))
	mux.Handle("POST /plans/lookup", gated(http.HandlerFunc(app.planLookupPOST)))
	mux.Handle("GET /plans/{code}", gated(http.HandlerFunc(app.storedPlan)))

	mux.Handle("POST /error/dismiss", gated(http.HandlerFunc(app.errorDismissPOST)))

	mux.Handle("POST /api/registration/start", gated(http.HandlerFunc(app.beginRegistration)))
	mux.Handle("POST /api/registration/finish", gated(http.HandlerFunc(app.finishRegistration)))
	mux.Handle("POST /api/login/start", gated(http.HandlerFunc(app.beginLogin)))
	mux.Handle("POST /api/login/finish", gated(http.HandlerFunc(app.finishLogin)))
	mux.Handle("POST /api/logout", app.session(http.HandlerFunc(app.logout)))
	mux.Handle("POST /api/account/delete", mustSession(http.HandlerFunc(app.deleteAccountPOST)))
	mux.Handle("GET /api/healthy", app.session(http.HandlerFunc(app.healthy)))
	mux.Handle("GET /api/test/timeout", app.noAuth(http.HandlerFunc(app.testTimeout)))
	mux.Handle("POST /api/csp-violation", app.noAuth(http.HandlerFunc(app.cspViolation)))
	mux.Handle("POST /api/reports", app.noAuth(http.HandlerFunc(app.reportingAPI)))

	// Legal pages stay reachable behind the access gate.
	mux.Handle("GET /privacy", app.session(http.HandlerFunc(app.privacy)))
	mux.Handle("GET /imprint", app.session(http.HandlerFunc(app.imprint)))
	mux.Handle("POST /close", app.session(http.HandlerFunc(app.closePOST)))
	mux.Handle("POST /language", app.session(http.HandlerFunc(app.setLanguagePOST)))

	// Home route (most specific)
	mux.Handle("GET /{$}", gated(http.HandlerFunc(app.home)))

	// File server with custom 404 handling
	fileServerHandler, err := app.fileServerHandler()
	if err != nil {
		return nil, fmt.Errorf("fileServerHandler: %w", err)
	}
	mux.Handle("/", fileServerHandler)

	return mux, nil
}
