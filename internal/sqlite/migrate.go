package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/myrjola/velocoach/internal/errors"
)

// schemaKind is the type column of sqlite_schema.
type schemaKind string

const (
	kindTable   schemaKind = "table"
	kindIndex   schemaKind = "index"
	kindTrigger schemaKind = "trigger"
)

// schemaObject is one entry of the live or target schema. An empty liveSQL means the object is new and an empty
// targetSQL means it was removed from schema.sql.
type schemaObject struct {
	kind      schemaKind
	name      string
	liveSQL   string
	targetSQL string
}

func (o schemaObject) created() bool { return o.liveSQL == "" }

func (o schemaObject) dropped() bool { return o.targetSQL == "" }

// changed reports whether the definitions differ. Renaming a table quotes its name in sqlite_schema so quotes
// are ignored.
func (o schemaObject) changed() bool {
	if o.created() || o.dropped() {
		return false
	}
	if o.kind == kindTable {
		return strings.ReplaceAll(o.liveSQL, `"`, "") != strings.ReplaceAll(o.targetSQL, `"`, "")
	}
	return o.liveSQL != o.targetSQL
}

// migrationReport counts what a migration touched.
type migrationReport struct {
	created int
	dropped int
	rebuilt int
}

func (r *migrationReport) add(o schemaObject) {
	switch {
	case o.created():
		r.created++
	case o.dropped():
		r.dropped++
	case o.changed():
		r.rebuilt++
	}
}

// migrateTo makes the live schema match schemaDefinition.
//
// The target schema is created in an attached in-memory database and compared object by object with the live
// one. Tables are dropped, created or rebuilt with the generalized ALTER TABLE procedure described in
// https://www.sqlite.org/lang_altertable.html#otheralter, keeping the columns both versions share. Indexes and
// triggers are recreated when their definition changed.
func (db *Database) migrateTo(ctx context.Context, schemaDefinition string) error {
	start := time.Now()

	detach, err := db.attachSchemaTarget(ctx, schemaDefinition)
	if err != nil {
		return errors.Wrap(err, "attach schema target")
	}
	defer detach()

	if _, err = db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return errors.Wrap(err, "disable foreign keys")
	}
	defer db.enableForeignKeys(ctx)

	var tx *sql.Tx
	if tx, err = db.ReadWrite.BeginTx(ctx, nil); err != nil {
		return errors.Wrap(err, "begin migration")
	}
	defer db.rollback(ctx, tx)

	var report migrationReport
	// Tables go first so that indexes and triggers are created on the final tables.
	for _, kind := range []schemaKind{kindTable, kindIndex, kindTrigger} {
		var objects []schemaObject
		if objects, err = db.diffSchema(ctx, tx, kind); err != nil {
			return errors.Wrap(err, "diff schema", slog.String("kind", string(kind)))
		}
		for _, o := range objects {
			if err = db.applyObject(ctx, tx, o); err != nil {
				return errors.Wrap(err, "apply schema change",
					slog.String("kind", string(o.kind)), slog.String("name", o.name))
			}
			report.add(o)
		}
	}

	if _, err = tx.ExecContext(ctx, "PRAGMA foreign_key_check"); err != nil {
		return errors.Wrap(err, "check foreign keys")
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit migration")
	}

	db.logger.LogAttrs(ctx, slog.LevelInfo, "migrated database",
		slog.Int("created", report.created),
		slog.Int("dropped", report.dropped),
		slog.Int("rebuilt", report.rebuilt),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// enableForeignKeys turns foreign key enforcement back on. Running without it would silently corrupt the plan
// and session data, so the process shuts down when it fails.
func (db *Database) enableForeignKeys(ctx context.Context) {
	if _, err := db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.logger.LogAttrs(ctx, slog.LevelError, "exit to avoid data corruption",
			errors.SlogError(errors.Wrap(err, "enable foreign keys")))
		if err = syscall.Kill(syscall.Getpid(), syscall.SIGINT); err != nil {
			os.Exit(1)
		}
	}
}

// attachSchemaTarget creates schemaDefinition in a fresh in-memory database attached as schemaTarget. The
// returned function detaches it.
func (db *Database) attachSchemaTarget(ctx context.Context, schemaDefinition string) (func(), error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", rand.Text())
	target, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open schema target")
	}
	// The shared cache keeps the database alive while it is attached to the live connection.
	defer func() {
		if closeErr := target.Close(); closeErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to close schema target",
				errors.SlogError(closeErr))
		}
	}()
	if _, err = target.ExecContext(ctx, schemaDefinition); err != nil {
		return nil, errors.Wrap(err, "create target schema")
	}
	if _, err = db.ReadWrite.ExecContext(ctx, "ATTACH DATABASE ? AS schemaTarget", dsn); err != nil {
		return nil, errors.Wrap(err, "attach")
	}
	return func() {
		if _, detachErr := db.ReadWrite.ExecContext(ctx, "DETACH DATABASE schemaTarget"); detachErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to detach schema target",
				errors.SlogError(detachErr))
		}
	}, nil
}

func (db *Database) rollback(ctx context.Context, tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		db.logger.LogAttrs(ctx, slog.LevelError, "failed to rollback migration", errors.SlogError(err))
	}
}

// diffSchema lists the objects of kind that exist in either schema. Internal sqlite_ objects and the tables
// Litestream keeps for replication are left alone.
func (db *Database) diffSchema(ctx context.Context, tx *sql.Tx, kind schemaKind) ([]schemaObject, error) {
	rows, err := tx.QueryContext(ctx, `SELECT live.name, COALESCE(live.sql, ''), COALESCE(target.sql, '')
FROM main.sqlite_schema AS live
         LEFT JOIN schemaTarget.sqlite_schema AS target ON live.name = target.name AND live.type = target.type
WHERE live.type = :kind
  AND live.name NOT LIKE 'sqlite_%'
  AND live.name NOT LIKE '_litestream_%'
UNION ALL
SELECT target.name, '', COALESCE(target.sql, '')
FROM schemaTarget.sqlite_schema AS target
         LEFT JOIN main.sqlite_schema AS live ON live.name = target.name AND live.type = target.type
WHERE target.type = :kind
  AND live.name IS NULL
  AND target.name NOT LIKE 'sqlite_%'`, sql.Named("kind", string(kind)))
	if err != nil {
		return nil, errors.Wrap(err, "query schema")
	}
	defer db.closeRows(ctx, rows)

	var objects []schemaObject
	for rows.Next() {
		o := schemaObject{kind: kind, name: "", liveSQL: "", targetSQL: ""}
		if err = rows.Scan(&o.name, &o.liveSQL, &o.targetSQL); err != nil {
			return nil, errors.Wrap(err, "scan schema object")
		}
		objects = append(objects, o)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate schema")
	}
	return objects, nil
}

func (db *Database) applyObject(ctx context.Context, tx *sql.Tx, o schemaObject) error {
	logger := db.logger.With(slog.String("kind", string(o.kind)), slog.String("name", o.name))
	switch {
	case o.dropped():
		logger.LogAttrs(ctx, slog.LevelInfo, "dropping schema object")
		return db.exec(ctx, tx, fmt.Sprintf("DROP %s %s", strings.ToUpper(string(o.kind)), o.name))
	case o.created():
		logger.LogAttrs(ctx, slog.LevelInfo, "creating schema object", slog.String("sql", o.targetSQL))
		return db.exec(ctx, tx, o.targetSQL)
	case !o.changed():
		return nil
	case o.kind == kindTable:
		logger.LogAttrs(ctx, slog.LevelInfo, "rebuilding table",
			slog.String("live_sql", o.liveSQL), slog.String("new_sql", o.targetSQL))
		return db.rebuildTable(ctx, tx, o)
	default:
		logger.LogAttrs(ctx, slog.LevelInfo, "recreating schema object",
			slog.String("live_sql", o.liveSQL), slog.String("new_sql", o.targetSQL))
		if err := db.exec(ctx, tx, fmt.Sprintf("DROP %s %s", strings.ToUpper(string(o.kind)), o.name)); err != nil {
			return err
		}
		return db.exec(ctx, tx, o.targetSQL)
	}
}

// rebuildTable creates the new definition under a temporary name, copies the shared columns and swaps the
// tables.
func (db *Database) rebuildTable(ctx context.Context, tx *sql.Tx, o schemaObject) error {
	temp := o.name + "_migration_temp"
	if err := db.exec(ctx, tx, strings.Replace(o.targetSQL, o.name, temp, 1)); err != nil {
		return err
	}

	columns, err := db.sharedColumns(ctx, tx, o.name)
	if err != nil {
		return errors.Wrap(err, "shared columns")
	}
	list := strings.Join(columns, ", ")
	statements := []string{
		fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", temp, list, list, o.name),
		"DROP TABLE " + o.name,
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s", temp, o.name),
	}
	for _, statement := range statements {
		if err = db.exec(ctx, tx, statement); err != nil {
			return err
		}
	}
	return nil
}

// sharedColumns returns the quoted names of the columns present in both versions of table. Quoting keeps
// columns named after keywords such as date working.
func (db *Database) sharedColumns(ctx context.Context, tx *sql.Tx, table string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT '"' || target.name || '"'
FROM PRAGMA_TABLE_INFO(:table_name) AS live
         JOIN PRAGMA_TABLE_INFO(:table_name, 'schemaTarget') AS target ON target.name = live.name`,
		sql.Named("table_name", table))
	if err != nil {
		return nil, errors.Wrap(err, "query table info")
	}
	defer db.closeRows(ctx, rows)

	var columns []string
	for rows.Next() {
		var column string
		if err = rows.Scan(&column); err != nil {
			return nil, errors.Wrap(err, "scan column")
		}
		columns = append(columns, column)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate columns")
	}
	return columns, nil
}

func (db *Database) exec(ctx context.Context, tx *sql.Tx, statement string) error {
	if _, err := tx.ExecContext(ctx, statement); err != nil {
		return errors.Wrap(err, "exec", slog.String("sql", statement))
	}
	return nil
}

func (db *Database) closeRows(ctx context.Context, rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		db.logger.LogAttrs(ctx, slog.LevelError, "could not close rows", errors.SlogError(err))
	}
}
