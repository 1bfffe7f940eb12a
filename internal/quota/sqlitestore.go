package quota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/myrjola/velocoach/internal/sqlite"
)

// SQLiteStore keeps counters in the usage_counters table.
type SQLiteStore struct {
	db *sqlite.Database
}

func NewSQLiteStore(db *sqlite.Database) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (Counter, error) {
	var c Counter
	err := s.db.ReadOnly.QueryRowContext(ctx,
		`SELECT date, count FROM usage_counters WHERE device_id = ?`, key).Scan(&c.Date, &c.Count)
	if errors.Is(err, sql.ErrNoRows) {
		return Counter{}, nil
	}
	if err != nil {
		return Counter{}, fmt.Errorf("select usage counter: %w", err)
	}
	return c, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, c Counter) error {
	_, err := s.db.ReadWrite.ExecContext(ctx, `INSERT INTO usage_counters (device_id, date, count)
VALUES (:device_id, :date, :count)
ON CONFLICT (device_id) DO UPDATE SET date  = EXCLUDED.date,
                                      count = EXCLUDED.count`,
		sql.Named("device_id", key), sql.Named("date", c.Date), sql.Named("count", c.Count))
	if err != nil {
		return fmt.Errorf("upsert usage counter: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Reset(ctx context.Context, key string) error {
	if _, err := s.db.ReadWrite.ExecContext(ctx,
		`DELETE FROM usage_counters WHERE device_id = ?`, key); err != nil {
		return fmt.Errorf("delete usage counter: %w", err)
	}
	return nil
}
