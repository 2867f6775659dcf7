package state

import (
	"strings"
	"time"

	"github.com/willibrandon/glance/internal/logger"
)

// Store aggregates every state-store repository behind a single
// handle, opened once per process and shared by the orchestrator and
// the LLM service's tool calls.
type Store struct {
	db           *DB
	secrets      *Secrets
	Connections  *Connections
	History      *History
	SavedQueries *SavedQueries
	LLMSettings  *LLMSettingsStore
}

// Open opens the SQLite database at path (or the default path when
// empty), runs migrations, and wires up every repository.
func Open(path string) (*Store, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	db, err := openStore(path)
	if err != nil {
		return nil, err
	}

	secrets := NewSecrets()

	return &Store{
		db:           db,
		secrets:      secrets,
		Connections:  NewConnections(db, secrets),
		History:      NewHistory(db),
		SavedQueries: NewSavedQueries(db),
		LLMSettings:  NewLLMSettingsStore(db, secrets),
	}, nil
}

func openStore(path string) (*DB, error) {
	return retryOpen(path, 5)
}

// retryOpen opens db with an exponential backoff retry loop, because
// a second glance process can hold a brief SQLITE_BUSY write lock
// during its own migration run.
func retryOpen(path string, maxAttempts int) (*DB, error) {
	delay := 10 * time.Millisecond
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		db, err := openDB(path)
		if err == nil {
			return db, nil
		}
		lastErr = err

		if !isBusyError(err) || attempt == maxAttempts {
			break
		}

		logger.Debug("state store busy, retrying", "attempt", attempt, "delay", delay)
		time.Sleep(delay)
		delay *= 2
	}

	return nil, lastErr
}

func isBusyError(err error) bool {
	return strings.Contains(err.Error(), "database is locked") || strings.Contains(err.Error(), "SQLITE_BUSY")
}

// Secrets exposes the secret storage backing Connections and
// LLMSettings, so the front end can render the current
// SecretStatus and prompt for plaintext consent.
func (s *Store) Secrets() *Secrets {
	return s.secrets
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
