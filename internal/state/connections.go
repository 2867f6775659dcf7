package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// PasswordStorage records where a connection profile's password
// actually lives.
type PasswordStorage int

const (
	PasswordNone PasswordStorage = iota
	PasswordKeyring
	PasswordPlaintext
)

func (p PasswordStorage) String() string {
	switch p {
	case PasswordKeyring:
		return "keyring"
	case PasswordPlaintext:
		return "plaintext"
	default:
		return "none"
	}
}

func parsePasswordStorage(s string) PasswordStorage {
	switch s {
	case "keyring":
		return PasswordKeyring
	case "plaintext":
		return PasswordPlaintext
	default:
		return PasswordNone
	}
}

// ConnectionProfile is a saved database connection. The password
// itself is never a field here: it lives in the OS keyring or, with
// consent, in the password_plaintext column, and is resolved
// on-demand through Connections.Password.
type ConnectionProfile struct {
	Name            string
	Backend         string
	Database        string
	Host            string
	Port            int
	Username        string
	SSLMode         string
	Extras          map[string]string
	PasswordStorage PasswordStorage
	CreatedAt       string
	UpdatedAt       string
	LastUsedAt      string
}

// NewConnectionProfile builds a profile with the defaults a bare
// "/conn add name db=..." invocation produces.
func NewConnectionProfile(name, database string) ConnectionProfile {
	return ConnectionProfile{
		Name:            name,
		Backend:         "postgres",
		Database:        database,
		Port:            5432,
		PasswordStorage: PasswordNone,
	}
}

// DisplayString renders the profile the way the chat panel shows it
// in non-redacted contexts (e.g. immediately after the owning user
// adds it).
func (p ConnectionProfile) DisplayString() string {
	host := p.Host
	if host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("%s @ %s:%d", p.Database, host, p.Port)
}

// RedactedDisplay renders the profile with no connection details at
// all, safe for LLM prompts and logs.
func (p ConnectionProfile) RedactedDisplay() string {
	return fmt.Sprintf("%s (%s)", p.Name, p.Database)
}

// RedactedHost returns "******" when a host is configured, or
// "localhost" when none is set (matching the unredacted default).
func (p ConnectionProfile) RedactedHost() string {
	if p.Host == "" {
		return "localhost"
	}
	return "******"
}

// RedactedUsername returns "******" when a username is configured,
// or "" when none is set.
func (p ConnectionProfile) RedactedUsername() string {
	if p.Username == "" {
		return ""
	}
	return "******"
}

// Connections is the repository for connection profiles.
type Connections struct {
	db      *DB
	secrets *Secrets
}

// NewConnections builds a Connections repository.
func NewConnections(db *DB, secrets *Secrets) *Connections {
	return &Connections{db: db, secrets: secrets}
}

type connectionRow struct {
	name               string
	database           string
	host               sql.NullString
	port               int
	username           sql.NullString
	sslmode            sql.NullString
	extras             sql.NullString
	passwordStorage    string
	passwordPlaintext  sql.NullString
	backend            string
	createdAt          string
	updatedAt          string
	lastUsedAt         sql.NullString
}

func (r connectionRow) toProfile() ConnectionProfile {
	p := ConnectionProfile{
		Name:            r.name,
		Backend:         r.backend,
		Database:        r.database,
		Host:            r.host.String,
		Port:            r.port,
		Username:        r.username.String,
		SSLMode:         r.sslmode.String,
		PasswordStorage: parsePasswordStorage(r.passwordStorage),
		CreatedAt:       r.createdAt,
		UpdatedAt:       r.updatedAt,
		LastUsedAt:      r.lastUsedAt.String,
	}
	if r.extras.Valid && r.extras.String != "" {
		var extras map[string]string
		if err := json.Unmarshal([]byte(r.extras.String), &extras); err == nil {
			p.Extras = extras
		}
	}
	return p
}

const connectionColumns = `name, database, host, port, username, sslmode, extras,
	password_storage, password_plaintext, backend, created_at, updated_at, last_used_at`

func scanConnectionRow(scan func(...any) error) (ConnectionProfile, error) {
	var r connectionRow
	err := scan(
		&r.name, &r.database, &r.host, &r.port, &r.username, &r.sslmode, &r.extras,
		&r.passwordStorage, &r.passwordPlaintext, &r.backend, &r.createdAt, &r.updatedAt, &r.lastUsedAt,
	)
	if err != nil {
		return ConnectionProfile{}, err
	}
	return r.toProfile(), nil
}

// List returns all saved connection profiles, ordered by name.
func (c *Connections) List() ([]ConnectionProfile, error) {
	rows, err := c.db.conn.Query(`SELECT ` + connectionColumns + ` FROM connections ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	defer rows.Close()

	var profiles []ConnectionProfile
	for rows.Next() {
		p, err := scanConnectionRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// Get returns a single connection profile by name, or nil if none
// exists.
func (c *Connections) Get(name string) (*ConnectionProfile, error) {
	row := c.db.conn.QueryRow(`SELECT `+connectionColumns+` FROM connections WHERE name = ?`, name)
	p, err := scanConnectionRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	return &p, nil
}

// Create inserts a new connection profile. If password is non-empty
// it is stored in the OS keyring when available, or in the
// password_plaintext column when the caller has already consented to
// plaintext storage (see Secrets.ConsentToPlaintext).
func (c *Connections) Create(profile ConnectionProfile, password string) error {
	extrasJSON, err := marshalExtras(profile.Extras)
	if err != nil {
		return err
	}

	storage, plaintext, err := c.resolvePasswordForWrite(profile.Name, password)
	if err != nil {
		return err
	}

	_, err = c.db.conn.Exec(`
		INSERT INTO connections (name, database, host, port, username, sslmode, extras,
			password_storage, password_plaintext, backend)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, profile.Name, profile.Database, nullable(profile.Host), profile.Port, nullable(profile.Username),
		nullable(profile.SSLMode), extrasJSON, storage.String(), plaintext, orDefault(profile.Backend, "postgres"))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return fmt.Errorf("connection %q already exists", profile.Name)
		}
		return fmt.Errorf("failed to create connection: %w", err)
	}
	return nil
}

// Update overwrites an existing connection profile's fields. When
// password is empty the stored password is left untouched; pass a
// non-empty password to rotate it.
func (c *Connections) Update(profile ConnectionProfile, password string) error {
	extrasJSON, err := marshalExtras(profile.Extras)
	if err != nil {
		return err
	}

	var result sql.Result
	if password != "" {
		storage, plaintext, err := c.resolvePasswordForWrite(profile.Name, password)
		if err != nil {
			return err
		}
		result, err = c.db.conn.Exec(`
			UPDATE connections
			SET database = ?, host = ?, port = ?, username = ?, sslmode = ?, extras = ?,
				password_storage = ?, password_plaintext = ?, backend = ?, updated_at = datetime('now')
			WHERE name = ?
		`, profile.Database, nullable(profile.Host), profile.Port, nullable(profile.Username),
			nullable(profile.SSLMode), extrasJSON, storage.String(), plaintext, orDefault(profile.Backend, "postgres"), profile.Name)
		if err != nil {
			return fmt.Errorf("failed to update connection: %w", err)
		}
	} else {
		result, err = c.db.conn.Exec(`
			UPDATE connections
			SET database = ?, host = ?, port = ?, username = ?, sslmode = ?, extras = ?,
				backend = ?, updated_at = datetime('now')
			WHERE name = ?
		`, profile.Database, nullable(profile.Host), profile.Port, nullable(profile.Username),
			nullable(profile.SSLMode), extrasJSON, orDefault(profile.Backend, "postgres"), profile.Name)
		if err != nil {
			return fmt.Errorf("failed to update connection: %w", err)
		}
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("connection %q not found", profile.Name)
	}
	return nil
}

// Delete removes a connection profile and its keyring-stored
// password, if any.
func (c *Connections) Delete(name string) error {
	if err := c.secrets.Delete(ConnectionPasswordKey(name)); err != nil {
		return fmt.Errorf("failed to delete stored password: %w", err)
	}

	result, err := c.db.conn.Exec(`DELETE FROM connections WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("connection %q not found", name)
	}
	return nil
}

// Touch updates a connection profile's last_used_at timestamp.
func (c *Connections) Touch(name string) error {
	_, err := c.db.conn.Exec(`UPDATE connections SET last_used_at = datetime('now') WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to touch connection: %w", err)
	}
	return nil
}

// Password resolves a connection's password from wherever it is
// stored, returning "" if none is set.
func (c *Connections) Password(name string) (string, error) {
	var storage string
	var plaintext sql.NullString
	err := c.db.conn.QueryRow(`SELECT password_storage, password_plaintext FROM connections WHERE name = ?`, name).
		Scan(&storage, &plaintext)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read connection password: %w", err)
	}

	switch parsePasswordStorage(storage) {
	case PasswordKeyring:
		return c.secrets.Retrieve(ConnectionPasswordKey(name))
	case PasswordPlaintext:
		return plaintext.String, nil
	default:
		return "", nil
	}
}

func (c *Connections) resolvePasswordForWrite(name, password string) (PasswordStorage, sql.NullString, error) {
	if password == "" {
		return PasswordNone, sql.NullString{}, nil
	}
	if c.secrets.IsSecure() {
		if err := c.secrets.Store(ConnectionPasswordKey(name), password); err != nil {
			return PasswordNone, sql.NullString{}, fmt.Errorf("failed to store password in keyring: %w", err)
		}
		return PasswordKeyring, sql.NullString{}, nil
	}
	if c.secrets.Status() != SecretPlaintextConsented {
		return PasswordNone, sql.NullString{}, fmt.Errorf("no OS keyring is available and plaintext storage has not been consented to; run /conn add again after confirming plaintext storage")
	}
	return PasswordPlaintext, sql.NullString{String: password, Valid: true}, nil
}

func marshalExtras(extras map[string]string) (sql.NullString, error) {
	if len(extras) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(extras)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal connection extras: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
