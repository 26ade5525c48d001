// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database: it lives inside the Go binary as a single
// file. The production deployment talks to managed Postgres (see
// repository/postgres); SQLite is what `go run ./cmd/server` uses when no
// DATABASE_URL is set, and what every store test runs against.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler installed and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code.
//
// DATABASE/SQL OVERVIEW:
//   - sql.DB      : a connection pool (NOT a single connection!)
//   - sql.Row     : a single result row
//   - sql.Rows    : multiple result rows (must be closed!)
//
// The pattern is always:
//  1. sql.Open(driverName, dataSourceName) → creates a pool
//  2. db.QueryContext / db.ExecContext     → runs queries
//  3. rows.Scan(&field1, &field2)          → reads results into Go variables
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements repository.Store.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/mood.db"  → file-based database (persistent)
//   - ":memory:"      → in-memory database (tests; lost on close)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// IN-MEMORY DATABASES ARE PER CONNECTION:
	// Every new pool connection to ":memory:" would get its own empty
	// database, so the pool is pinned to a single connection.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	// Ping verifies the connection actually works, so a bad path surfaces
	// at startup instead of on the first request.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode allows concurrent reads while a write is happening.
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

// PingContext checks the database is reachable.
func (db *DB) PingContext(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the tables. The Postgres schema is owned by the managed
// database's migrations; this mirrors it closely enough for local use.
//
// CREATE TABLE IF NOT EXISTS is idempotent, so migrate runs on every start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS checkins (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			mood       INTEGER NOT NULL CHECK (mood BETWEEN 1 AND 10),
			note       TEXT,
			checkin_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_checkins_user_checkin_at ON checkins(user_id, checkin_at);
	`)
	if err != nil {
		return fmt.Errorf("creating checkins table: %w", err)
	}

	// user_id is UNIQUE: one schedule per user, and the ON CONFLICT target
	// of UpsertSchedule.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schedules (
			id            TEXT PRIMARY KEY,
			user_id       TEXT NOT NULL UNIQUE,
			reminder_time TEXT NOT NULL,
			timezone      TEXT NOT NULL,
			email_enabled INTEGER NOT NULL DEFAULT 1,
			quote_enabled INTEGER NOT NULL DEFAULT 1,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating schedules table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS quotes (
			id        TEXT PRIMARY KEY,
			quote     TEXT NOT NULL,
			author    TEXT NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 1
		);
		CREATE INDEX IF NOT EXISTS idx_quotes_is_active ON quotes(is_active);
	`)
	if err != nil {
		return fmt.Errorf("creating quotes table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS quote_log (
			id            TEXT PRIMARY KEY,
			user_id       TEXT,
			quote_id      TEXT REFERENCES quotes(id),
			delivery_type TEXT NOT NULL,
			status        TEXT NOT NULL,
			metadata      TEXT,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_quote_log_user_id ON quote_log(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating quote_log table: %w", err)
	}

	return nil
}
