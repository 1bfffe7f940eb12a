package appstate_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/velocoach/internal/ai"
	"github.com/myrjola/velocoach/internal/appstate"
	"github.com/myrjola/velocoach/internal/i18n"
	"github.com/myrjola/velocoach/internal/plan"
	"github.com/myrjola/velocoach/internal/quota"
	"github.com/myrjola/velocoach/internal/webauthnhandler"
)

func allStates() []appstate.State {
	return []appstate.State{
		appstate.Landing, appstate.Questionnaire, appstate.Loading,
		appstate.Display, appstate.Privacy, appstate.Imprint,
	}
}

func allEvents() []appstate.Event {
	return []appstate.Event{
		appstate.EventStart, appstate.EventCancel, appstate.EventSubmit, appstate.EventSucceed,
		appstate.EventFail, appstate.EventReset, appstate.EventOpenPrivacy, appstate.EventOpenImprint,
		appstate.EventClose,
	}
}

func TestTransition(t *testing.T) {
	allowed := map[appstate.State]map[appstate.Event]appstate.State{
		appstate.Landing:       {appstate.EventStart: appstate.Questionnaire},
		appstate.Questionnaire: {appstate.EventCancel: appstate.Landing, appstate.EventSubmit: appstate.Loading},
		appstate.Loading:       {appstate.EventSucceed: appstate.Display, appstate.EventFail: appstate.Questionnaire},
		appstate.Display:       {appstate.EventReset: appstate.Landing},
		appstate.Privacy:       {appstate.EventClose: appstate.Landing},
		appstate.Imprint:       {appstate.EventClose: appstate.Landing},
	}
	for _, from := range allStates() {
		allowed[from][appstate.EventOpenPrivacy] = appstate.Privacy
		allowed[from][appstate.EventOpenImprint] = appstate.Imprint
		for _, ev := range allEvents() {
			t.Run(fmt.Sprintf("%s/%s", from, ev), func(t *testing.T) {
				got, err := appstate.Transition(from, ev)
				want, ok := allowed[from][ev]
				if !ok {
					if !errors.Is(err, appstate.ErrInvalidTransition) {
						t.Errorf("Transition() error = %v, want ErrInvalidTransition", err)
					}
					if got != from {
						t.Errorf("Transition() = %s, want unchanged %s", got, from)
					}
					return
				}
				if err != nil {
					t.Fatalf("Transition() error = %v", err)
				}
				if got != want {
					t.Errorf("Transition() = %s, want %s", got, want)
				}
			})
		}
	}
}

func TestSession_HappyPath(t *testing.T) {
	s := appstate.New()
	if s.State != appstate.Landing {
		t.Fatalf("initial state = %s", s.State)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	s.ShowError(appstate.NewSlot(appstate.KindGeneric, i18n.English))
	if err := s.Submit("job-1"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if s.Error != nil || s.JobID != "job-1" {
		t.Errorf("after Submit: error %v, job %q", s.Error, s.JobID)
	}
	if err := s.Submit("job-2"); !errors.Is(err, appstate.ErrInvalidTransition) {
		t.Errorf("second Submit() error = %v, want ErrInvalidTransition", err)
	}
	if err := s.Succeed([]byte(`{"planCode":"AB23"}`), []byte(`{"age":30}`)); err != nil {
		t.Fatalf("Succeed() error = %v", err)
	}
	if s.State != appstate.Display || s.JobID != "" || string(s.PlanJSON) != `{"planCode":"AB23"}` {
		t.Errorf("after Succeed: %+v", s)
	}
	if err := s.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if diff := cmp.Diff(appstate.New(), s); diff != "" {
		t.Errorf("after Reset mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_FailReturnsToQuestionnaire(t *testing.T) {
	s := appstate.New()
	_ = s.Start()
	_ = s.Submit("job-1")
	slot := appstate.SlotFor(ai.ErrProviderRateLimit, i18n.German)
	if err := s.Fail(slot); err != nil {
		t.Fatalf("Fail() error = %v", err)
	}
	if s.State != appstate.Questionnaire || s.JobID != "" {
		t.Errorf("after Fail: %+v", s)
	}
	if s.Error == nil || !s.Error.RateLimited {
		t.Fatalf("Error = %+v, want rate limited slot", s.Error)
	}
	s.DismissError()
	if s.Error != nil {
		t.Error("DismissError() kept the slot")
	}
}

func TestSession_JSONRoundTrip(t *testing.T) {
	s := appstate.New()
	_ = s.Start()
	_ = s.Submit("job-1")
	_ = s.Fail(appstate.SlotFor(plan.ErrMalformedResponse, i18n.English))

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var got appstate.Session
	if err = json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if diff := cmp.Diff(s, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSlotFor(t *testing.T) {
	tests := []struct {
		err  error
		want appstate.ErrorSlot
	}{
		{
			err: fmt.Errorf("consume: %w", quota.ErrDailyLimitReached),
			want: appstate.ErrorSlot{
				Kind:        appstate.KindDailyLimit,
				Message:     i18n.Translate(i18n.English, "error.daily_limit"),
				Transient:   false,
				RateLimited: false,
			},
		},
		{
			err: errors.Join(ai.ErrProviderRateLimit, errors.New("429")),
			want: appstate.ErrorSlot{
				Kind:        appstate.KindRateLimit,
				Message:     i18n.Translate(i18n.English, "error.rate_limit"),
				Transient:   true,
				RateLimited: true,
			},
		},
		{
			err: plan.ErrEmptyResponse,
			want: appstate.ErrorSlot{
				Kind:        appstate.KindGeneric,
				Message:     i18n.Translate(i18n.English, "error.generic"),
				Transient:   true,
				RateLimited: false,
			},
		},
		{
			err: ai.ErrMissingConfiguration,
			want: appstate.ErrorSlot{
				Kind:        appstate.KindUnavailable,
				Message:     i18n.Translate(i18n.English, "error.unavailable"),
				Transient:   false,
				RateLimited: false,
			},
		},
		{
			err: webauthnhandler.ErrAuthCancelled,
			want: appstate.ErrorSlot{
				Kind:        appstate.KindAuthCancelled,
				Message:     i18n.Translate(i18n.English, "error.auth_cancelled"),
				Transient:   false,
				RateLimited: false,
			},
		},
		{
			err: errors.New("connection reset"),
			want: appstate.ErrorSlot{
				Kind:        appstate.KindGeneric,
				Message:     i18n.Translate(i18n.English, "error.generic"),
				Transient:   true,
				RateLimited: false,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if diff := cmp.Diff(tt.want, appstate.SlotFor(tt.err, i18n.English)); diff != "" {
				t.Errorf("SlotFor() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLookupSlotFor(t *testing.T) {
	tests := map[error]appstate.Kind{
		plan.ErrNotFound:          appstate.KindNotFound,
		plan.ErrInvalidCode:       appstate.KindInvalidCode,
		errors.New("bucket gone"): appstate.KindLookupFailed,
	}
	for err, want := range tests {
		if got := appstate.LookupSlotFor(err, i18n.German).Kind; got != want {
			t.Errorf("LookupSlotFor(%v) = %s, want %s", err, got, want)
		}
	}
}
