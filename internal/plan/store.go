package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/myrjola/velocoach/internal/profile"
)

// SavedPlan is a plan together with the profile it was generated from.
//
// PlanJSON and ProfileJSON are the serialized forms that are written to storage. Retrieval returns them
// unchanged so that a stored plan renders byte for byte as it was saved.
type SavedPlan struct {
	Plan        FullTrainingPlan
	Profile     profile.UserProfile
	PlanJSON    []byte
	ProfileJSON []byte
	CreatedAt   time.Time
	// UserID is the signed-in owner or 0 for anonymous plans.
	UserID int
}

// Code returns the retrieval code of the plan.
func (s SavedPlan) Code() Code { return s.Plan.PlanCode }

// NewSavedPlan serializes plan and p for storage.
func NewSavedPlan(plan FullTrainingPlan, p profile.UserProfile, userID int, now time.Time) (SavedPlan, error) {
	planJSON, err := json.Marshal(plan)
	if err != nil {
		return SavedPlan{}, fmt.Errorf("marshal plan: %w", err)
	}
	profileJSON, err := json.Marshal(p)
	if err != nil {
		return SavedPlan{}, fmt.Errorf("marshal profile: %w", err)
	}
	return SavedPlan{
		Plan:        plan,
		Profile:     p,
		PlanJSON:    planJSON,
		ProfileJSON: profileJSON,
		CreatedAt:   now.UTC().Truncate(time.Second),
		UserID:      userID,
	}, nil
}

// decodeSavedPlan rebuilds a SavedPlan from its stored parts.
func decodeSavedPlan(planJSON, profileJSON []byte, createdAt time.Time, userID int) (SavedPlan, error) {
	var s SavedPlan
	if err := json.Unmarshal(planJSON, &s.Plan); err != nil {
		return SavedPlan{}, fmt.Errorf("unmarshal plan: %w", err)
	}
	if err := json.Unmarshal(profileJSON, &s.Profile); err != nil {
		return SavedPlan{}, fmt.Errorf("unmarshal profile: %w", err)
	}
	s.PlanJSON = planJSON
	s.ProfileJSON = profileJSON
	s.CreatedAt = createdAt
	s.UserID = userID
	return s, nil
}

// Summary is the list entry of a saved plan.
type Summary struct {
	Code      Code
	Title     string
	CreatedAt time.Time
}

// Store persists saved plans keyed by their code.
type Store interface {
	// Save stores s. It returns ErrCodeTaken when a plan with the same code exists.
	Save(ctx context.Context, s SavedPlan) error
	// Get returns the plan stored under code or ErrNotFound.
	Get(ctx context.Context, code Code) (SavedPlan, error)
	// ListByUser returns the plans of a signed-in user, newest first.
	ListByUser(ctx context.Context, userID int) ([]Summary, error)
}
