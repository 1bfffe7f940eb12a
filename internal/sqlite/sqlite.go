// Package sqlite stores users, sessions, saved training plans and usage counters in SQLite.
package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/myrjola/velocoach/internal/errors"
)

//go:embed schema.sql
var schemaDefinition string

// fixtures holds the sample plans. They are inserted with ON CONFLICT DO NOTHING at every start.
//
//go:embed fixtures.sql
var fixtures string

type Database struct {
	ReadWrite *sql.DB
	ReadOnly  *sql.DB
	logger    *slog.Logger
	// stopMaintenance and maintenanceDone are nil when no maintenance runs.
	stopMaintenance context.CancelFunc
	maintenanceDone chan struct{}
}

// NewDatabase connects to url, migrates the schema, inserts the sample plans and starts the hourly maintenance.
// The maintenance runs until ctx is done or the database is closed.
//
// Writes go through a single connection and reads through a pool, as recommended in
// https://github.com/mattn/go-sqlite3/issues/1179#issuecomment-1638083995. url is a file path or ":memory:".
func NewDatabase(ctx context.Context, url string, logger *slog.Logger) (*Database, error) {
	db, err := connect(ctx, url, logger)
	if err != nil {
		return nil, errors.Wrap(err, "connect")
	}
	if err = db.migrateTo(ctx, schemaDefinition); err != nil {
		return nil, errors.Join(errors.Wrap(err, "migrate"), db.Close())
	}
	if _, err = db.ReadWrite.ExecContext(ctx, fixtures); err != nil {
		return nil, errors.Join(errors.Wrap(err, "apply fixtures"), db.Close())
	}

	maintenanceCtx, stop := context.WithCancel(ctx)
	db.stopMaintenance = stop
	db.maintenanceDone = make(chan struct{})
	go func() {
		defer close(db.maintenanceDone)
		db.startMaintenance(maintenanceCtx)
	}()
	return db, nil
}

const optimizedDriver = "sqlite3optimized"

//nolint:gochecknoglobals // sql.Register panics when called twice.
var registerDriver sync.Once

// connectionPragmas run on every new connection.
var connectionPragmas = strings.Join([]string{ //nolint:gochecknoglobals // constant list.
	// Temporary tables and indices live in memory.
	"PRAGMA temp_store = memory",
	"PRAGMA mmap_size = 30000000000",
	// Litestream checkpoints the WAL, see https://litestream.io/tips/#disable-autocheckpoints-for-high-write-load-servers.
	"PRAGMA wal_autocheckpoint = 0",
}, ";")

func registerOptimizedDriver() {
	sql.Register(optimizedDriver, &sqlite3.SQLiteDriver{
		Extensions: nil,
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			if _, err := conn.Exec(connectionPragmas, nil); err != nil {
				return errors.Wrap(err, "exec connection pragmas")
			}
			return nil
		},
	})
}

// dataSourceNames returns the read-write and the read-only DSN for url.
//
// Options with a leading underscore are documented at https://pkg.go.dev/github.com/mattn/go-sqlite3#SQLiteDriver.Open
// and the others at https://www.sqlite.org/uri.html. An in-memory database gets a random name in shared cache
// mode so that both pools see the same data while parallel tests stay isolated.
func dataSourceNames(url string) (string, string) {
	options := []string{
		"_loc=auto",
		// Foreign keys may be violated temporarily inside a transaction.
		"_defer_foreign_keys=1",
		"_journal_mode=wal",
		"_busy_timeout=5000",
		"_synchronous=normal",
		"_foreign_keys=on",
	}
	if strings.Contains(url, ":memory:") {
		url = rand.Text()
		options = append(options, "mode=memory", "cache=shared")
	}
	common := strings.Join(options, "&")
	readWrite := fmt.Sprintf("file:%s?mode=rwc&_txlock=immediate&%s", url, common)
	readOnly := fmt.Sprintf("file:%s?mode=ro&_txlock=deferred&_query_only=true&%s", url, common)
	return readWrite, readOnly
}

const maxReadConns = 10

func connect(ctx context.Context, url string, logger *slog.Logger) (*Database, error) {
	registerDriver.Do(registerOptimizedDriver)
	readWriteDSN, readOnlyDSN := dataSourceNames(url)

	readWrite, err := sql.Open(optimizedDriver, readWriteDSN)
	if err != nil {
		return nil, errors.Wrap(err, "open read-write database")
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "opened database", slog.String("sqlDsn", readWriteDSN))
	configurePool(readWrite, 1)
	// sql.DB is lazy. The ping creates the database file and applies the connection pragmas.
	if err = readWrite.PingContext(ctx); err != nil {
		return nil, errors.Wrap(err, "ping read-write database")
	}

	var readOnly *sql.DB
	if readOnly, err = sql.Open(optimizedDriver, readOnlyDSN); err != nil {
		return nil, errors.Wrap(err, "open read-only database")
	}
	configurePool(readOnly, maxReadConns)

	return &Database{
		ReadWrite:       readWrite,
		ReadOnly:        readOnly,
		logger:          logger,
		stopMaintenance: nil,
		maintenanceDone: nil,
	}, nil
}

func configurePool(db *sql.DB, conns int) {
	db.SetMaxOpenConns(conns)
	db.SetMaxIdleConns(conns)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(time.Hour)
}

// Close stops the maintenance, waits for it to return and closes both connection pools.
func (db *Database) Close() error {
	if db.stopMaintenance != nil {
		db.stopMaintenance()
		<-db.maintenanceDone
	}
	return errors.Join(db.ReadOnly.Close(), db.ReadWrite.Close())
}

// Ping checks that both connection pools reach the database.
func (db *Database) Ping(ctx context.Context) error {
	if err := db.ReadWrite.PingContext(ctx); err != nil {
		return errors.Wrap(err, "ping read-write")
	}
	if err := db.ReadOnly.PingContext(ctx); err != nil {
		return errors.Wrap(err, "ping read-only")
	}
	return nil
}

// IsUniqueViolation reports whether err is a primary key or unique constraint violation.
func IsUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
