// Package sqlite is the single embedded-file persistence layer: one
// *sql.DB backed by mattn/go-sqlite3, migrated with golang-migrate, and
// split into small per-concern stores (EventStore, SelectorStore,
// SourceURLStore, SettingsStore, RunLogStore) that all share the same
// connection pool. There is no separate server process to talk to — the
// whole store lives in one file next to the binary.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the shared connection pool. mattn/go-sqlite3 serializes writes
// internally, so a single *sql.DB with SetMaxOpenConns(1) gives every store
// a consistent view without an explicit application-level mutex.
type DB struct {
	Conn *sql.DB
}

// Open opens (creating if necessary) the database file at path and runs
// pending migrations. Foreign keys are enforced and a busy timeout covers
// the brief write contention between the Orchestrator's worker pool and
// an operator's concurrent CLI invocation.
func Open(path string) (*DB, error) {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_busy_timeout=30000&_journal_mode=WAL", path)
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection avoids "database is locked" races entirely;
	// go-sqlite3 doesn't support true concurrent writers anyway.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err := MigrateUp(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &DB{Conn: conn}, nil
}

func (d *DB) Close() error { return d.Conn.Close() }
