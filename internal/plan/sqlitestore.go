package plan

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/myrjola/velocoach/internal/sqlite"
)

// SQLiteStore keeps plans in the training_plans table.
type SQLiteStore struct {
	db *sqlite.Database
}

func NewSQLiteStore(db *sqlite.Database) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func nullableUserID(userID int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(userID), Valid: userID != 0}
}

func (s *SQLiteStore) Save(ctx context.Context, saved SavedPlan) error {
	_, err := s.db.ReadWrite.ExecContext(ctx, `INSERT INTO training_plans (code, plan_json, profile_json, created_at, user_id)
VALUES (:code, :plan_json, :profile_json, :created_at, :user_id)`,
		sql.Named("code", string(saved.Code())),
		sql.Named("plan_json", string(saved.PlanJSON)),
		sql.Named("profile_json", string(saved.ProfileJSON)),
		sql.Named("created_at", saved.CreatedAt.UTC().Format(time.RFC3339)),
		sql.Named("user_id", nullableUserID(saved.UserID)))
	if sqlite.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrCodeTaken, saved.Code())
	}
	if err != nil {
		return fmt.Errorf("insert training plan: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, code Code) (SavedPlan, error) {
	var (
		planJSON, profileJSON, createdAt string
		userID                           sql.NullInt64
	)
	err := s.db.ReadOnly.QueryRowContext(ctx, `SELECT plan_json, profile_json, created_at, user_id
FROM training_plans
WHERE code = ?`, string(code)).Scan(&planJSON, &profileJSON, &createdAt, &userID)
	if errors.Is(err, sql.ErrNoRows) {
		return SavedPlan{}, fmt.Errorf("%w: %s", ErrNotFound, code)
	}
	if err != nil {
		return SavedPlan{}, fmt.Errorf("select training plan: %w", err)
	}
	created, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return SavedPlan{}, fmt.Errorf("parse created_at: %w", err)
	}
	return decodeSavedPlan([]byte(planJSON), []byte(profileJSON), created, int(userID.Int64))
}

func (s *SQLiteStore) ListByUser(ctx context.Context, userID int) ([]Summary, error) {
	rows, err := s.db.ReadOnly.QueryContext(ctx, `SELECT code, plan_json ->> '$.planTitle', created_at
FROM training_plans
WHERE user_id = ?
ORDER BY created_at DESC, code`, userID)
	if err != nil {
		return nil, fmt.Errorf("select training plans: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var (
			summary   Summary
			code      string
			title     sql.NullString
			createdAt string
		)
		if err = rows.Scan(&code, &title, &createdAt); err != nil {
			return nil, fmt.Errorf("scan training plan: %w", err)
		}
		if summary.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		summary.Code = Code(code)
		summary.Title = title.String
		summaries = append(summaries, summary)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate training plans: %w", err)
	}
	return summaries, nil
}
