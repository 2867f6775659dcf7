package state

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/zalando/go-keyring"
)

const secretServiceName = "glance"

// SecretStatus describes how connection passwords and LLM API keys
// are currently being protected.
type SecretStatus int

const (
	// SecretSecure means the OS keyring is available and in use.
	SecretSecure SecretStatus = iota
	// SecretPlaintextConsented means the keyring is unavailable and
	// the user has explicitly agreed to store secrets in the state
	// database unencrypted.
	SecretPlaintextConsented
	// SecretPlaintextPending means the keyring is unavailable and no
	// consent has been given yet; secret-writing operations should be
	// refused until the caller consents.
	SecretPlaintextPending
)

// Secrets stores connection passwords and LLM API keys in the OS
// keyring, falling back to plaintext storage in the state database
// only once the caller has explicitly consented.
type Secrets struct {
	keyringAvailable bool
	plaintextConsent atomic.Bool
}

// NewSecrets probes the OS keyring with a canary write/delete and
// returns a Secrets ready to use. Probing never fails construction:
// an unavailable keyring just means IsSecure reports false.
func NewSecrets() *Secrets {
	return &Secrets{keyringAvailable: probeKeyring()}
}

func probeKeyring() bool {
	const probeUser = "__probe__"
	if err := keyring.Set(secretServiceName, probeUser, "test"); err != nil {
		return false
	}
	_ = keyring.Delete(secretServiceName, probeUser)
	return true
}

// Status reports the current secret storage mode.
func (s *Secrets) Status() SecretStatus {
	if s.keyringAvailable {
		return SecretSecure
	}
	if s.plaintextConsent.Load() {
		return SecretPlaintextConsented
	}
	return SecretPlaintextPending
}

// IsSecure reports whether secrets are currently backed by the OS
// keyring.
func (s *Secrets) IsSecure() bool {
	return s.keyringAvailable
}

// ConsentToPlaintext records that the user has agreed to store
// secrets in the state database unencrypted, because no OS keyring is
// available on this machine.
func (s *Secrets) ConsentToPlaintext() {
	s.plaintextConsent.Store(true)
}

// Store writes a secret to the OS keyring. Callers must check
// IsSecure first; Store refuses when the keyring is unavailable so
// plaintext fallback decisions stay in the caller (the connections
// and llmsettings repositories).
func (s *Secrets) Store(key, secret string) error {
	if !s.keyringAvailable {
		return fmt.Errorf("OS keyring is not available")
	}
	return keyring.Set(secretServiceName, key, secret)
}

// Retrieve reads a secret from the OS keyring, returning ("", nil) if
// the keyring is unavailable or the key has never been stored.
func (s *Secrets) Retrieve(key string) (string, error) {
	if !s.keyringAvailable {
		return "", nil
	}
	v, err := keyring.Get(secretServiceName, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

// Delete removes a secret from the OS keyring, treating a missing key
// and an unavailable keyring both as success.
func (s *Secrets) Delete(key string) error {
	if !s.keyringAvailable {
		return nil
	}
	err := keyring.Delete(secretServiceName, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// ConnectionPasswordKey builds the keyring key for a connection
// profile's password.
func ConnectionPasswordKey(connectionName string) string {
	return "conn:" + connectionName
}

// LLMAPIKeyName builds the keyring key for a provider's API key.
func LLMAPIKeyName(provider string) string {
	return "llm:" + provider
}

// MaskSecret renders secret for display: asterisks for short values,
// or asterisks with the last four characters visible.
func MaskSecret(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return "****..." + secret[len(secret)-4:]
}
