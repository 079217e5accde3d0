// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite, so no C compiler is needed and the
// binary cross-compiles like any other Go program. Tests use ":memory:" for a
// fresh, isolated database per test.
//
// TIMESTAMPS:
// Every time column is an INTEGER holding Unix milliseconds (UTC). The driver's
// default text encoding of time.Time has a variable-length fractional part, so
// text comparison would give wrong answers for range filters
// (applicationDate >= now-30d) and for ORDER BY. Integers compare correctly.
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	// Also registers the "sqlite" driver with database/sql.
	sqlitedrv "modernc.org/sqlite"
)

// SQLite's built-in lower() and LIKE fold ASCII only. ulower folds any
// Unicode letter so search matches "École" for "école".
func init() {
	sqlitedrv.MustRegisterDeterministicScalarFunction("ulower", 1, unicodeLower)
}

func unicodeLower(_ *sqlitedrv.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// DB wraps a sql.DB connection pool and implements both
// repository.UserRepository and repository.ApplicationRepository.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath, applies pragmas and runs migrations.
//
// dbPath examples:
//   - "data/jobtrack.db" → file-based database (persistent)
//   - ":memory:"         → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	// Pragmas in the DSN are applied by the driver to every pooled
	// connection, not just the first one.
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// An in-memory database exists per connection, so the pool must never
	// open a second one or tests would see an empty schema.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in progress.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Ping reports whether the database is reachable. Used by the health check.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables and indexes. CREATE ... IF NOT EXISTS makes it safe
// to run on every start.
func (db *DB) migrate() error {
	// email is stored lower-cased by the service, so a plain UNIQUE gives
	// case-insensitive uniqueness.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at    INTEGER NOT NULL,
			updated_at    INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS applications (
			id               TEXT PRIMARY KEY,
			user_id          TEXT NOT NULL REFERENCES users(id),
			company_name     TEXT NOT NULL,
			job_title        TEXT NOT NULL,
			job_description  TEXT NOT NULL DEFAULT '',
			application_date INTEGER NOT NULL,
			status           TEXT NOT NULL DEFAULT 'Applied',
			salary           REAL,
			location         TEXT NOT NULL DEFAULT '',
			job_type         TEXT NOT NULL DEFAULT '',
			source           TEXT NOT NULL DEFAULT '',
			notes            TEXT NOT NULL DEFAULT '',
			deadline         INTEGER,
			contact_email    TEXT NOT NULL DEFAULT '',
			tags             TEXT NOT NULL DEFAULT '[]',
			created_at       INTEGER NOT NULL,
			updated_at       INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_applications_user_date
			ON applications(user_id, application_date DESC);
		CREATE INDEX IF NOT EXISTS idx_applications_user_status
			ON applications(user_id, status);
	`)
	if err != nil {
		return fmt.Errorf("creating applications table: %w", err)
	}

	return nil
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// now is truncated to millisecond precision so that a value returned to the
// caller is identical to the value read back later.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
