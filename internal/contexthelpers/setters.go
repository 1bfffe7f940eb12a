package contexthelpers

import (
	"net/http"

	"github.com/myrjola/velocoach/internal/i18n"
)

// AuthenticateContext marks the request as signed in by userID. User IDs start from 1.
func AuthenticateContext(r *http.Request, userID int) *http.Request {
	return with(r, authenticatedUserIDKey, userID)
}

func SetCurrentPath(r *http.Request, currentPath string) *http.Request {
	return with(r, currentPathKey, currentPath)
}

func SetCSPNonce(r *http.Request, cspNonce string) *http.Request {
	return with(r, cspNonceKey, cspNonce)
}

func SetLanguage(r *http.Request, language i18n.Language) *http.Request {
	return with(r, languageKey, language)
}

func SetDeviceID(r *http.Request, deviceID string) *http.Request {
	return with(r, deviceIDKey, deviceID)
}
