// Package appstate holds the top level screen of a visitor's session and the single user facing error slot.
package appstate

import (
	"encoding/json"
	"fmt"

	"github.com/myrjola/velocoach/internal/errors"
)

// ErrInvalidTransition is returned for events the current state does not accept.
var ErrInvalidTransition = errors.NewSentinel("invalid state transition")

// State is the current screen.
type State string

const (
	Landing       State = "landing"
	Questionnaire State = "questionnaire"
	Loading       State = "loading"
	Display       State = "display"
	Privacy       State = "privacy"
	Imprint       State = "imprint"
)

type Event string

const (
	EventStart       Event = "start"
	EventCancel      Event = "cancel"
	EventSubmit      Event = "submit"
	EventSucceed     Event = "succeed"
	EventFail        Event = "fail"
	EventReset       Event = "reset"
	EventOpenPrivacy Event = "openPrivacy"
	EventOpenImprint Event = "openImprint"
	EventClose       Event = "close"
)

type edge struct {
	from State
	ev   Event
}

//nolint:gochecknoglobals // static transition table.
var transitions = map[edge]State{
	{Landing, EventStart}:        Questionnaire,
	{Questionnaire, EventCancel}: Landing,
	{Questionnaire, EventSubmit}: Loading,
	{Loading, EventSucceed}:      Display,
	{Loading, EventFail}:         Questionnaire,
	{Display, EventReset}:        Landing,
	{Privacy, EventClose}:        Landing,
	{Imprint, EventClose}:        Landing,
}

// Transition returns the state reached from from on ev. The legal pages are reachable from every state.
func Transition(from State, ev Event) (State, error) {
	switch ev {
	case EventOpenPrivacy:
		return Privacy, nil
	case EventOpenImprint:
		return Imprint, nil
	default:
	}
	to, ok := transitions[edge{from: from, ev: ev}]
	if !ok {
		return from, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, from, ev)
	}
	return to, nil
}

// Session is the per visitor application state kept in the session store.
type Session struct {
	State State      `json:"state"`
	Error *ErrorSlot `json:"error,omitempty"`
	// PlanJSON and ProfileJSON hold the displayed plan while in Display.
	PlanJSON    json.RawMessage `json:"plan,omitempty"`
	ProfileJSON json.RawMessage `json:"profile,omitempty"`
	// JobID identifies the running generation while in Loading.
	JobID string `json:"jobId,omitempty"`
}

// New returns a session on the Landing screen.
func New() Session {
	return Session{State: Landing, Error: nil, PlanJSON: nil, ProfileJSON: nil, JobID: ""}
}

func (s *Session) fire(ev Event) error {
	to, err := Transition(s.State, ev)
	if err != nil {
		return err
	}
	s.State = to
	return nil
}

func (s *Session) Start() error { return s.fire(EventStart) }

func (s *Session) Cancel() error { return s.fire(EventCancel) }

// Submit moves to Loading for the generation job jobID. A session that is already loading rejects a second
// submit.
func (s *Session) Submit(jobID string) error {
	if err := s.fire(EventSubmit); err != nil {
		return err
	}
	s.Error = nil
	s.JobID = jobID
	return nil
}

// Succeed shows the generated plan.
func (s *Session) Succeed(planJSON, profileJSON []byte) error {
	if err := s.fire(EventSucceed); err != nil {
		return err
	}
	s.JobID = ""
	s.PlanJSON = planJSON
	s.ProfileJSON = profileJSON
	return nil
}

// Fail returns to the questionnaire with slot surfaced.
func (s *Session) Fail(slot ErrorSlot) error {
	if err := s.fire(EventFail); err != nil {
		return err
	}
	s.JobID = ""
	s.Error = &slot
	return nil
}

// Reset leaves the plan display and forgets the plan and profile.
func (s *Session) Reset() error {
	if err := s.fire(EventReset); err != nil {
		return err
	}
	s.PlanJSON = nil
	s.ProfileJSON = nil
	return nil
}

func (s *Session) OpenPrivacy() error { return s.fire(EventOpenPrivacy) }

func (s *Session) OpenImprint() error { return s.fire(EventOpenImprint) }

// Close leaves a legal page. Leaving a running generation behind drops its job.
func (s *Session) Close() error {
	if err := s.fire(EventClose); err != nil {
		return err
	}
	s.JobID = ""
	return nil
}

// ShowError sets the error slot without changing the state, as used by flows outside the transition table
// such as plan lookup.
func (s *Session) ShowError(slot ErrorSlot) { s.Error = &slot }

// DismissError clears the error slot.
func (s *Session) DismissError() { s.Error = nil }
