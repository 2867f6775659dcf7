package state

import (
	"database/sql"
	"fmt"
)

// CurrentSchemaVersion is the highest migration this build knows how
// to apply. Opening a database stamped with a newer version than this
// is refused rather than risking silent data loss.
const CurrentSchemaVersion = 2

// RunMigrations brings db up to CurrentSchemaVersion, applying any
// migrations the on-disk schema_versions table is missing. It is
// idempotent: running it against an already-current database is a
// no-op.
func RunMigrations(db *DB) error {
	if err := ensureSchemaVersionsTable(db); err != nil {
		return err
	}

	current, err := currentVersion(db)
	if err != nil {
		return err
	}

	if current > CurrentSchemaVersion {
		return fmt.Errorf("state database schema version (%d) is newer than this build supports (%d); upgrade glance", current, CurrentSchemaVersion)
	}

	for v := current + 1; v <= CurrentSchemaVersion; v++ {
		if err := applyMigration(db, v); err != nil {
			return fmt.Errorf("migration v%d failed: %w", v, err)
		}
		if err := recordVersion(db, v); err != nil {
			return fmt.Errorf("failed to record migration v%d: %w", v, err)
		}
	}

	return nil
}

func ensureSchemaVersionsTable(db *DB) error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`)
	return err
}

func currentVersion(db *DB) (int, error) {
	var version sql.NullInt64
	err := db.conn.QueryRow("SELECT MAX(version) FROM schema_versions").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}

func recordVersion(db *DB, version int) error {
	_, err := db.conn.Exec("INSERT INTO schema_versions (version) VALUES (?)", version)
	return err
}

func applyMigration(db *DB, version int) error {
	switch version {
	case 1:
		return migrationV1(db)
	case 2:
		return migrationV2(db)
	default:
		return fmt.Errorf("unknown migration version %d", version)
	}
}

// migrationV1 creates the base schema: connection profiles, query
// history, saved queries and their tags, and the singleton LLM
// settings row.
func migrationV1(db *DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS connections (
			name TEXT PRIMARY KEY,
			database TEXT NOT NULL,
			host TEXT,
			port INTEGER NOT NULL DEFAULT 5432,
			username TEXT,
			sslmode TEXT,
			extras TEXT,
			password_storage TEXT NOT NULL DEFAULT 'none',
			password_plaintext TEXT,
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at TEXT NOT NULL DEFAULT (datetime('now')),
			last_used_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS query_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			connection_name TEXT NOT NULL,
			submitted_by TEXT NOT NULL CHECK (submitted_by IN ('user', 'llm')),
			sql TEXT NOT NULL,
			status TEXT NOT NULL CHECK (status IN ('success', 'error', 'cancelled')),
			execution_time_ms INTEGER,
			row_count INTEGER,
			error_message TEXT,
			saved_query_id INTEGER,
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			FOREIGN KEY (connection_name) REFERENCES connections(name) ON DELETE CASCADE,
			FOREIGN KEY (saved_query_id) REFERENCES saved_queries(id) ON DELETE SET NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_query_history_connection ON query_history(connection_name)`,
		`CREATE INDEX IF NOT EXISTS idx_query_history_created ON query_history(created_at)`,
		`CREATE TABLE IF NOT EXISTS saved_queries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			sql TEXT NOT NULL,
			description TEXT,
			connection_name TEXT,
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at TEXT NOT NULL DEFAULT (datetime('now')),
			last_used_at TEXT,
			usage_count INTEGER NOT NULL DEFAULT 0,
			UNIQUE(name, connection_name),
			FOREIGN KEY (connection_name) REFERENCES connections(name) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_saved_queries_connection ON saved_queries(connection_name)`,
		`CREATE TABLE IF NOT EXISTS saved_query_tags (
			saved_query_id INTEGER NOT NULL,
			tag TEXT NOT NULL,
			PRIMARY KEY (saved_query_id, tag),
			FOREIGN KEY (saved_query_id) REFERENCES saved_queries(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_saved_query_tags_tag ON saved_query_tags(tag)`,
		`CREATE TABLE IF NOT EXISTS llm_settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			provider TEXT NOT NULL DEFAULT 'openai',
			model TEXT NOT NULL DEFAULT 'gpt-5',
			api_key_storage TEXT NOT NULL DEFAULT 'none',
			api_key_plaintext TEXT,
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`INSERT OR IGNORE INTO llm_settings (id, provider, model) VALUES (1, 'openai', 'gpt-5')`,
	}
	return execAll(db, stmts)
}

// migrationV2 adds multi-backend support to connection profiles and
// seeds a synthetic __default__ profile backed by the mock gateway,
// so history can be recorded before the user ever runs /connect.
func migrationV2(db *DB) error {
	return execAll(db, []string{
		`ALTER TABLE connections ADD COLUMN backend TEXT NOT NULL DEFAULT 'postgres'`,
		`INSERT OR IGNORE INTO connections (name, database, backend) VALUES ('__default__', 'mock', 'mock')`,
	})
}

func execAll(db *DB, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("executing %q: %w", stmt, err)
		}
	}
	return nil
}
