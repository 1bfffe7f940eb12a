package sqlite

import (
	"context"
	"log/slog"
	"time"

	"github.com/myrjola/velocoach/internal/errors"
)

const maintenanceInterval = time.Hour

// startMaintenance optimizes the database and prunes expired plan quota counters once per hour until ctx is
// done. See https://www.sqlite.org/pragma.html#pragma_optimize.
func (db *Database) startMaintenance(ctx context.Context) {
	// Recommended for long-lived connections.
	if _, err := db.ReadWrite.ExecContext(ctx, "PRAGMA optimize = 0x10002;"); err != nil && ctx.Err() == nil {
		db.logger.LogAttrs(ctx, slog.LevelError, "failed to optimize database",
			errors.SlogError(errors.Wrap(err, "init optimize")))
	}
	for {
		db.maintain(ctx, time.Now())
		select {
		case <-ctx.Done():
			return
		case <-time.After(maintenanceInterval):
		}
	}
}

func (db *Database) maintain(ctx context.Context, now time.Time) {
	start := time.Now()
	if _, err := db.ReadWrite.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
		if ctx.Err() == nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to optimize database",
				errors.SlogError(errors.Wrap(err, "optimize")))
		}
		return
	}
	pruned, err := db.pruneUsageCounters(ctx, now)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		db.logger.LogAttrs(ctx, slog.LevelError, "failed to prune usage counters", errors.SlogError(err))
		return
	}
	db.logger.LogAttrs(ctx, slog.LevelInfo, "maintained database",
		slog.Int64("pruned_counters", pruned),
		slog.Duration("duration", time.Since(start)))
}

// pruneUsageCounters deletes counters of days before now. Those no longer limit anything because a counter of
// an earlier day is treated as zero.
func (db *Database) pruneUsageCounters(ctx context.Context, now time.Time) (int64, error) {
	result, err := db.ReadWrite.ExecContext(ctx, "DELETE FROM usage_counters WHERE date < ?",
		now.Format(time.DateOnly))
	if err != nil {
		return 0, errors.Wrap(err, "delete usage counters")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "rows affected")
	}
	return n, nil
}
