// Package contexthelpers stores the request scoped values set by the middleware chain.
package contexthelpers

import (
	"context"
	"net/http"
)

type contextKey int

const (
	authenticatedUserIDKey contextKey = iota
	currentPathKey
	cspNonceKey
	languageKey
	deviceIDKey
)

// value returns the value stored under key or the zero value of T.
func value[T any](ctx context.Context, key contextKey) T {
	v, _ := ctx.Value(key).(T)
	return v
}

func with(r *http.Request, key contextKey, v any) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), key, v))
}
