package plan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/myrjola/velocoach/internal/ai"
	"github.com/myrjola/velocoach/internal/errors"
	"github.com/myrjola/velocoach/internal/i18n"
	"github.com/myrjola/velocoach/internal/profile"
)

// maxSaveAttempts bounds how often a new code is drawn when the store reports a collision.
const maxSaveAttempts = 5

// Service generates plans with an AI client and keeps them in a Store.
type Service struct {
	logger  *slog.Logger
	client  ai.Client
	store   Store
	model   string
	now     func() time.Time
	newCode func() (Code, error)
}

func NewService(logger *slog.Logger, client ai.Client, store Store, model string) *Service {
	return &Service{
		logger:  logger,
		client:  client,
		store:   store,
		model:   model,
		now:     time.Now,
		newCode: NewCode,
	}
}

// Generate requests a plan for p written in lang and stores it for userID (0 for anonymous users).
//
// Storing is best-effort. A failed write is logged and the generated plan is still returned.
func (s *Service) Generate(ctx context.Context, p profile.UserProfile, lang i18n.Language, userID int) (SavedPlan, error) {
	req, err := BuildRequest(p, lang, s.model)
	if err != nil {
		return SavedPlan{}, err
	}
	start := s.now()
	raw, err := s.client.Complete(ctx, req)
	if err != nil {
		return SavedPlan{}, errors.Wrap(err, "complete plan request", slog.String("model", s.model))
	}
	generated, err := ParseResponse(raw, s.newCode)
	if err != nil {
		return SavedPlan{}, errors.Wrap(err, "parse plan response", slog.Int("response_length", len(raw)))
	}

	saved, err := s.save(ctx, generated, p, userID)
	if err != nil {
		return SavedPlan{}, err
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "plan generated",
		slog.String("plan_code", saved.Code().String()),
		slog.Duration("duration", s.now().Sub(start)),
		slog.String("language", string(lang)))
	return saved, nil
}

// save writes the plan, drawing a new code on collisions. Only serialization errors are returned.
func (s *Service) save(ctx context.Context, generated FullTrainingPlan, p profile.UserProfile, userID int) (SavedPlan, error) {
	var (
		saved SavedPlan
		err   error
	)
	for attempt := 1; ; attempt++ {
		if saved, err = NewSavedPlan(generated, p, userID, s.now()); err != nil {
			return SavedPlan{}, err
		}
		err = s.store.Save(ctx, saved)
		if err == nil {
			return saved, nil
		}
		if !errors.Is(err, ErrCodeTaken) || attempt == maxSaveAttempts {
			break
		}
		if generated.PlanCode, err = s.newCode(); err != nil {
			return SavedPlan{}, fmt.Errorf("new code: %w", err)
		}
	}
	s.logger.LogAttrs(ctx, slog.LevelError, "store plan",
		slog.String("plan_code", saved.Code().String()), errors.SlogError(err))
	return saved, nil
}

// Retrieve parses rawCode and looks up the stored plan. User input is accepted in any letter case.
func (s *Service) Retrieve(ctx context.Context, rawCode string) (SavedPlan, error) {
	code, err := ParseCode(rawCode)
	if err != nil {
		return SavedPlan{}, err
	}
	saved, err := s.store.Get(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return SavedPlan{}, err
		}
		return SavedPlan{}, errors.Wrap(err, "get plan", slog.String("plan_code", code.String()))
	}
	return saved, nil
}

// ListForUser returns the summaries of the plans userID has generated.
func (s *Service) ListForUser(ctx context.Context, userID int) ([]Summary, error) {
	summaries, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list plans", slog.Int("user_id", userID))
	}
	return summaries, nil
}
