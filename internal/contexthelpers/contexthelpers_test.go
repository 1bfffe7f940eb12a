package contexthelpers_test

import (
	"net/http/httptest"
	"testing"

	"github.com/myrjola/velocoach/internal/contexthelpers"
	"github.com/myrjola/velocoach/internal/i18n"
)

func TestContextHelpers(t *testing.T) {
	r := httptest.NewRequest("GET", "/plans/GEAR", nil)
	ctx := r.Context()
	if contexthelpers.IsAuthenticated(ctx) {
		t.Error("Expected anonymous request")
	}
	if got := contexthelpers.Language(ctx); got != i18n.DefaultLanguage {
		t.Errorf("Language() = %s, want default %s", got, i18n.DefaultLanguage)
	}
	if got := contexthelpers.DeviceID(ctx); got != "" {
		t.Errorf("DeviceID() = %q, want empty", got)
	}

	r = contexthelpers.AuthenticateContext(r, 7) //nolint:mnd // user id.
	r = contexthelpers.SetLanguage(r, i18n.German)
	r = contexthelpers.SetDeviceID(r, "device")
	r = contexthelpers.SetCurrentPath(r, "/plans/GEAR")
	r = contexthelpers.SetCSPNonce(r, "nonce")
	ctx = r.Context()

	if !contexthelpers.IsAuthenticated(ctx) || contexthelpers.AuthenticatedUserID(ctx) != 7 {
		t.Errorf("Expected user 7, got %d", contexthelpers.AuthenticatedUserID(ctx))
	}
	if got := contexthelpers.Language(ctx); got != i18n.German {
		t.Errorf("Language() = %s, want %s", got, i18n.German)
	}
	if got := contexthelpers.DeviceID(ctx); got != "device" {
		t.Errorf("DeviceID() = %q, want device", got)
	}
	if got := contexthelpers.CurrentPath(ctx); got != "/plans/GEAR" {
		t.Errorf("CurrentPath() = %q, want /plans/GEAR", got)
	}
	if got := contexthelpers.CSPNonce(ctx); got != "nonce" {
		t.Errorf("CSPNonce() = %q, want nonce", got)
	}
}
