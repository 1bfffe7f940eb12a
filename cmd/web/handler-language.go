package main

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/myrjola/velocoach/internal/i18n"
)

// isRelativePath checks if a path is a relative path without scheme or host and doesn't allow ambiguous slashes.
func isRelativePath(path string) bool {
	// Reject paths that contain a scheme (e.g., http://, https://, //).
	if strings.Contains(path, "://") || strings.HasPrefix(path, "//") {
		return false
	}
	// Accept paths that start with /, but not if the second character is / or \.
	if strings.HasPrefix(path, "/") {
		if len(path) == 1 || (path[1] != '/' && path[1] != '\\') {
			return true
		}
	}
	return false
}

// backPath returns the same-origin page the request was sent from or the home page. Only the path and query of
// the Referer header are used to prevent open redirects.
func backPath(r *http.Request) string {
	referer, err := url.Parse(r.Header.Get("Referer"))
	if err != nil || (referer.Host != "" && referer.Host != r.Host) {
		return "/"
	}
	back := referer.EscapedPath()
	if referer.RawQuery != "" {
		back += "?" + referer.RawQuery
	}
	if !isRelativePath(back) {
		return "/"
	}
	return back
}

// setLanguagePOST handles the POST request to set the user's language preference.
func (app *application) setLanguagePOST(w http.ResponseWriter, r *http.Request) {
	lang := r.FormValue("language")

	if !i18n.IsSupported(i18n.Language(lang)) {
		http.Error(w, "Invalid language", http.StatusBadRequest)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     languageCookieName,
		Value:    lang,
		Path:     "/",
		MaxAge:   secondsPerYear,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})

	// Use 303 See Other to redirect after POST.
	http.Redirect(w, r, backPath(r), http.StatusSeeOther)
}
