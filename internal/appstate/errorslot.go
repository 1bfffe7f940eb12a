package appstate

import (
	"github.com/myrjola/velocoach/internal/ai"
	"github.com/myrjola/velocoach/internal/errors"
	"github.com/myrjola/velocoach/internal/i18n"
	"github.com/myrjola/velocoach/internal/plan"
	"github.com/myrjola/velocoach/internal/quota"
	"github.com/myrjola/velocoach/internal/webauthnhandler"
)

// Kind classifies a user facing error.
type Kind string

const (
	KindDailyLimit     Kind = "daily_limit"
	KindRateLimit      Kind = "rate_limit"
	KindGeneric        Kind = "generic"
	KindUnavailable    Kind = "unavailable"
	KindNotFound       Kind = "not_found"
	KindInvalidCode    Kind = "invalid_code"
	KindAuthCancelled  Kind = "auth_cancelled"
	KindSigninRequired Kind = "signin_required"
	KindLookupFailed   Kind = "lookup_failed"
)

// ErrorSlot is the single error shown to the user.
type ErrorSlot struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	// Transient errors may succeed when retried right away.
	Transient bool `json:"transient"`
	// RateLimited errors are rendered with a distinct warning style.
	RateLimited bool `json:"rateLimited"`
}

// NewSlot builds the slot of kind with its message in lang.
func NewSlot(kind Kind, lang i18n.Language) ErrorSlot {
	return ErrorSlot{
		Kind:        kind,
		Message:     i18n.Translate(lang, "error."+string(kind)),
		Transient:   kind == KindRateLimit || kind == KindGeneric || kind == KindLookupFailed,
		RateLimited: kind == KindRateLimit,
	}
}

func kindOf(err error, fallback Kind) Kind {
	switch {
	case errors.Is(err, quota.ErrDailyLimitReached):
		return KindDailyLimit
	case errors.Is(err, ai.ErrProviderRateLimit):
		return KindRateLimit
	case errors.Is(err, ai.ErrMissingConfiguration):
		return KindUnavailable
	case errors.Is(err, plan.ErrEmptyResponse), errors.Is(err, plan.ErrMalformedResponse):
		return KindGeneric
	case errors.Is(err, plan.ErrNotFound):
		return KindNotFound
	case errors.Is(err, plan.ErrInvalidCode):
		return KindInvalidCode
	case errors.Is(err, webauthnhandler.ErrAuthCancelled):
		return KindAuthCancelled
	}
	return fallback
}

// SlotFor converts a generation pipeline error into the error slot. Unclassified errors are reported as a
// generic retryable failure.
func SlotFor(err error, lang i18n.Language) ErrorSlot {
	return NewSlot(kindOf(err, KindGeneric), lang)
}

// LookupSlotFor converts a plan lookup error into the error slot. Unclassified errors are reported as a failed
// lookup.
func LookupSlotFor(err error, lang i18n.Language) ErrorSlot {
	return NewSlot(kindOf(err, KindLookupFailed), lang)
}
