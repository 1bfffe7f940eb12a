package contexthelpers

import (
	"cmp"
	"context"

	"github.com/myrjola/velocoach/internal/i18n"
)

func IsAuthenticated(ctx context.Context) bool {
	return AuthenticatedUserID(ctx) != 0
}

// AuthenticatedUserID returns the signed in user or 0 for anonymous visitors.
func AuthenticatedUserID(ctx context.Context) int {
	return value[int](ctx, authenticatedUserIDKey)
}

func CurrentPath(ctx context.Context) string {
	return value[string](ctx, currentPathKey)
}

func CSPNonce(ctx context.Context) string {
	return value[string](ctx, cspNonceKey)
}

// Language returns the language negotiated for the request or [i18n.DefaultLanguage].
func Language(ctx context.Context) i18n.Language {
	return cmp.Or(value[i18n.Language](ctx, languageKey), i18n.DefaultLanguage)
}

// DeviceID returns the identifier of the browser the request originates from. Usage quotas are scoped to it.
func DeviceID(ctx context.Context) string {
	return value[string](ctx, deviceIDKey)
}
