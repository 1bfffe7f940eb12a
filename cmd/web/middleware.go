package main

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/trace"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/velocoach/internal/contexthelpers"
	"github.com/myrjola/velocoach/internal/errors"
	"github.com/myrjola/velocoach/internal/i18n"
	"github.com/myrjola/velocoach/internal/logging"
)

const (
	deviceCookieName   = "velocoach_device"
	languageCookieName = "velocoach_language"
	// accessSessionKey marks a session that presented the access secret once.
	accessSessionKey = "access_granted"
	secondsPerYear   = 365 * 24 * 60 * 60
)

func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Generate a random nonce for use in CSP and set it in the context so that it can be added to the script tags.
		cspNonce := rand.Text()
		csp := fmt.Sprintf(`default-src 'none';
script-src 'nonce-%s' 'strict-dynamic' 'unsafe-inline' https: http:;
connect-src 'self';
img-src 'self';
style-src 'nonce-%s' 'self' 'unsafe-inline';
frame-ancestors 'self';
form-action 'self';
font-src 'none';
object-src 'none';
manifest-src 'self';
base-uri 'none';
report-uri /api/csp-violation;
report-to csp-endpoint;`, cspNonce, cspNonce)

		w.Header().Set("Content-Security-Policy", csp)
		w.Header().Set("Reporting-Endpoints", `csp-endpoint="/api/reports"`)
		w.Header().Set("Referrer-Policy", "origin-when-cross-origin")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "deny")
		w.Header().Set("X-XSS-Protection", "0")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains; preload")

		r = contexthelpers.SetCSPNonce(r, cspNonce)

		next.ServeHTTP(w, r)
	})
}

func cacheForever(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")

		next.ServeHTTP(w, r)
	})
}

func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		next.ServeHTTP(w, r)
	})
}

func (app *application) logAndTraceRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			proto  = r.Proto
			method = r.Method
			uri    = logging.RedactQuery(r.URL.RequestURI(), accessQueryParam)
		)

		ctx := r.Context()
		traceID := rand.Text()
		ctx = logging.WithAttrs(
			ctx,
			slog.String("trace_id", traceID),
			slog.String("proto", proto),
			slog.String("method", method),
			slog.String("uri", uri),
		)
		r = r.WithContext(ctx)

		start := time.Now()
		app.logger.LogAttrs(ctx, slog.LevelDebug, "received request")

		sw := newStatusResponseWriter(w)

		if !trace.IsEnabled() {
			next.ServeHTTP(sw, r)
		} else {
			path := r.URL.Path
			taskName := fmt.Sprintf("HTTP %s %s", r.Method, path)
			traceCtx, task := trace.NewTask(ctx, taskName)

			trace.Log(traceCtx, "request", fmt.Sprintf("method=%s path=%s proto=%s", method, path, proto))
			trace.Log(traceCtx, "trace_id", traceID)

			defer func() {
				trace.Log(traceCtx, "response", fmt.Sprintf("status=%d duration=%v", sw.statusCode, time.Since(start)))
				task.End()
			}()

			r = r.WithContext(traceCtx)
			next.ServeHTTP(sw, r)
		}

		app.logCompleted(r.Context(), sw, start)
	})
}

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if excp := recover(); excp != nil {
				app.serverError(w, r, errors.DecoratePanic(excp))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// mustAuthenticate redirects the user to the home page if they are not authenticated.
func (app *application) mustAuthenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !contexthelpers.IsAuthenticated(r.Context()) {
			redirect(w, r, "/")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func commonContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = contexthelpers.SetCurrentPath(r, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

// crossOriginProtection implements CSRF protection using Go 1.25's CrossOriginProtection.
func (app *application) crossOriginProtection(next http.Handler) http.Handler {
	protection := http.NewCrossOriginProtection()
	return protection.Handler(next)
}

// identifyDevice assigns every browser a long-lived random identifier. Daily plan quotas are counted against it.
func (app *application) identifyDevice(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var deviceID string
		if cookie, err := r.Cookie(deviceCookieName); err == nil {
			if parsed, parseErr := uuid.Parse(cookie.Value); parseErr == nil {
				deviceID = parsed.String()
			}
		}
		if deviceID == "" {
			deviceID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     deviceCookieName,
				Value:    deviceID,
				Path:     "/",
				MaxAge:   secondsPerYear,
				HttpOnly: true,
				Secure:   true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := logging.WithAttrs(r.Context(), slog.String("device_id", deviceID))
		r = contexthelpers.SetDeviceID(r.WithContext(ctx), deviceID)
		next.ServeHTTP(w, r)
	})
}

// negotiateLanguage picks the UI language from the language cookie, then the Accept-Language header.
func (app *application) negotiateLanguage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := i18n.DefaultLanguage
		if cookie, err := r.Cookie(languageCookieName); err == nil && i18n.IsSupported(i18n.Language(cookie.Value)) {
			lang = i18n.Language(cookie.Value)
		} else if accepted, ok := acceptedLanguage(r.Header.Get("Accept-Language")); ok {
			lang = accepted
		}
		next.ServeHTTP(w, contexthelpers.SetLanguage(r, lang))
	})
}

// acceptedLanguage returns the first supported language of an Accept-Language header. Quality values are
// ignored since browsers list languages in preference order.
func acceptedLanguage(header string) (i18n.Language, bool) {
	for part := range strings.SplitSeq(header, ",") {
		tag, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		primary, _, _ := strings.Cut(tag, "-")
		if lang := i18n.Language(strings.ToLower(primary)); i18n.IsSupported(lang) {
			return lang, true
		}
	}
	return "", false
}

// accessQueryParam carries the access secret. It is redacted from the request logs.
const accessQueryParam = "access"

// accessGate restricts the wizard to visitors who know the access secret. Presenting ?access=<secret> once
// unlocks the session.
func (app *application) accessGate(next http.Handler) http.Handler {
	if app.accessSecret == "" {
		return next
	}
	secret := []byte(app.accessSecret)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if app.sessionManager.GetBool(ctx, accessSessionKey) {
			next.ServeHTTP(w, r)
			return
		}
		if presented := r.URL.Query().Get(accessQueryParam); presented != "" &&
			subtle.ConstantTimeCompare([]byte(presented), secret) == 1 {
			app.sessionManager.Put(ctx, accessSessionKey, true)
			app.logger.LogAttrs(ctx, slog.LevelInfo, "access granted")
			query := r.URL.Query()
			query.Del(accessQueryParam)
			target := r.URL.Path
			if encoded := query.Encode(); encoded != "" {
				target += "?" + encoded
			}
			redirect(w, r, target)
			return
		}
		app.render(w, r, http.StatusForbidden, "access", newBaseTemplateData(r))
	})
}
