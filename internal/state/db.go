// Package state is the local state store: connection profiles, query
// history, saved queries, and LLM settings persisted to a SQLite file
// under the user's config directory. It owns the on-disk schema and
// its forward-only migrations; every other component reaches the
// database only through the repositories in this package.
package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps a SQLite connection opened in WAL mode for concurrent
// readers alongside a single writer.
type DB struct {
	conn *sql.DB
	path string
}

// openDB opens or creates the SQLite database at path, running any
// pending migrations before returning.
func openDB(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_loc=auto")
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping state database: %w", err)
	}

	db := &DB{conn: conn, path: path}

	if err := RunMigrations(db); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

// DefaultPath returns ~/.config/glance/glance.db, creating no
// directories itself.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "glance", "glance.db"), nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Conn exposes the underlying *sql.DB.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}
