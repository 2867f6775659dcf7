package state

import (
	"database/sql"
	"fmt"
	"strings"
)

// APIKeyStorage records where the active provider's API key lives.
type APIKeyStorage int

const (
	APIKeyNone APIKeyStorage = iota
	APIKeyKeyring
	APIKeyPlaintext
)

func (a APIKeyStorage) String() string {
	switch a {
	case APIKeyKeyring:
		return "keyring"
	case APIKeyPlaintext:
		return "plaintext"
	default:
		return "none"
	}
}

func parseAPIKeyStorage(s string) APIKeyStorage {
	switch s {
	case "keyring":
		return APIKeyKeyring
	case "plaintext":
		return APIKeyPlaintext
	default:
		return APIKeyNone
	}
}

// ValidLLMProviders lists the providers /llm provider will accept.
var ValidLLMProviders = []string{"openai", "anthropic", "ollama"}

// LLMSettings is the singleton row describing which provider/model
// glance talks to and how its API key is stored.
type LLMSettings struct {
	Provider      string
	Model         string
	APIKeyStorage APIKeyStorage
	UpdatedAt     string
}

// LLMSettingsStore is the repository for the llm_settings singleton
// row.
type LLMSettingsStore struct {
	db      *DB
	secrets *Secrets
}

// NewLLMSettingsStore builds an LLMSettingsStore.
func NewLLMSettingsStore(db *DB, secrets *Secrets) *LLMSettingsStore {
	return &LLMSettingsStore{db: db, secrets: secrets}
}

// Get returns the current LLM settings. Migration v1 inserts the row
// with id=1 unconditionally, so this only falls back to the default
// if that row was somehow deleted.
func (s *LLMSettingsStore) Get() (LLMSettings, error) {
	row := s.db.conn.QueryRow(`SELECT provider, model, api_key_storage, updated_at FROM llm_settings WHERE id = 1`)

	var settings LLMSettings
	var storage string
	err := row.Scan(&settings.Provider, &settings.Model, &storage, &settings.UpdatedAt)
	if err == sql.ErrNoRows {
		return LLMSettings{Provider: "openai", Model: "gpt-5", APIKeyStorage: APIKeyNone}, nil
	}
	if err != nil {
		return LLMSettings{}, fmt.Errorf("failed to get LLM settings: %w", err)
	}
	settings.APIKeyStorage = parseAPIKeyStorage(storage)
	return settings, nil
}

// SetProvider updates the active provider, validating against
// ValidLLMProviders.
func (s *LLMSettingsStore) SetProvider(provider string) error {
	valid := false
	for _, p := range ValidLLMProviders {
		if p == provider {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid provider %q; valid options: %s", provider, strings.Join(ValidLLMProviders, ", "))
	}

	_, err := s.db.conn.Exec(`UPDATE llm_settings SET provider = ?, updated_at = datetime('now') WHERE id = 1`, provider)
	if err != nil {
		return fmt.Errorf("failed to update provider: %w", err)
	}
	return nil
}

// SetModel updates the active model.
func (s *LLMSettingsStore) SetModel(model string) error {
	if model == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	_, err := s.db.conn.Exec(`UPDATE llm_settings SET model = ?, updated_at = datetime('now') WHERE id = 1`, model)
	if err != nil {
		return fmt.Errorf("failed to update model: %w", err)
	}
	return nil
}

// SetAPIKey stores apiKey for provider, in the OS keyring when
// available or as plaintext once the caller has consented.
func (s *LLMSettingsStore) SetAPIKey(provider, apiKey string) error {
	var storage APIKeyStorage
	var plaintext sql.NullString

	if s.secrets.IsSecure() {
		if err := s.secrets.Store(LLMAPIKeyName(provider), apiKey); err != nil {
			return fmt.Errorf("failed to store API key in keyring: %w", err)
		}
		storage = APIKeyKeyring
	} else {
		if s.secrets.Status() != SecretPlaintextConsented {
			return fmt.Errorf("no OS keyring is available and plaintext storage has not been consented to")
		}
		storage = APIKeyPlaintext
		plaintext = sql.NullString{String: apiKey, Valid: true}
	}

	_, err := s.db.conn.Exec(`
		UPDATE llm_settings
		SET api_key_storage = ?, api_key_plaintext = ?, updated_at = datetime('now')
		WHERE id = 1
	`, storage.String(), plaintext)
	if err != nil {
		return fmt.Errorf("failed to store API key: %w", err)
	}
	return nil
}

// GetAPIKey resolves the stored API key for provider, returning "" if
// none is set.
func (s *LLMSettingsStore) GetAPIKey(provider string) (string, error) {
	var storage string
	var plaintext sql.NullString
	err := s.db.conn.QueryRow(`SELECT api_key_storage, api_key_plaintext FROM llm_settings WHERE id = 1`).
		Scan(&storage, &plaintext)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get API key: %w", err)
	}

	switch parseAPIKeyStorage(storage) {
	case APIKeyKeyring:
		return s.secrets.Retrieve(LLMAPIKeyName(provider))
	case APIKeyPlaintext:
		return plaintext.String, nil
	default:
		return "", nil
	}
}

// ClearAPIKey removes the stored API key for provider.
func (s *LLMSettingsStore) ClearAPIKey(provider string) error {
	if err := s.secrets.Delete(LLMAPIKeyName(provider)); err != nil {
		return fmt.Errorf("failed to delete stored API key: %w", err)
	}

	_, err := s.db.conn.Exec(`
		UPDATE llm_settings
		SET api_key_storage = 'none', api_key_plaintext = NULL, updated_at = datetime('now')
		WHERE id = 1
	`)
	if err != nil {
		return fmt.Errorf("failed to clear API key: %w", err)
	}
	return nil
}
