// Package errs defines the error taxonomy shared across glance's
// components. Every error that crosses a component boundary is wrapped
// in a *GlanceError carrying one of the fixed Kinds below, so the front
// end can render a stable, actionable message without string-matching
// on error text.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error into one of the six categories the front end
// renders distinctly.
type Kind int

const (
	// Connection covers failures to establish or maintain a database
	// connection: refused, authentication, unreachable host, TLS.
	Connection Kind = iota
	// Query covers failures executing a statement against a connected
	// database: syntax errors, constraint violations, timeouts.
	Query
	// LLM covers failures talking to the configured language model
	// provider: network errors, rate limits, malformed responses.
	LLM
	// Safety covers the safety classifier refusing or flagging a
	// statement, and confirmation-flow violations.
	Safety
	// State covers failures reading or writing the local state store.
	State
	// Config covers invalid configuration, unimplemented flags, and
	// flag/env/file precedence resolution failures.
	Config
)

// String renders the Kind the way it should appear in chat-panel
// messages and log fields.
func (k Kind) String() string {
	switch k {
	case Connection:
		return "connection"
	case Query:
		return "query"
	case LLM:
		return "llm"
	case Safety:
		return "safety"
	case State:
		return "state"
	case Config:
		return "config"
	default:
		return "unknown"
	}
}

// GlanceError wraps an underlying error with a Kind and a short stable
// code, so callers can errors.Is/As against it without relying on
// message text.
type GlanceError struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *GlanceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *GlanceError) Unwrap() error {
	return e.Err
}

// Is allows errors.Is(err, errs.New(Kind, "", "")) to match on Kind
// alone when Code is empty.
func (e *GlanceError) Is(target error) bool {
	var t *GlanceError
	if !errors.As(target, &t) {
		return false
	}
	if t.Code != "" {
		return t.Kind == e.Kind && t.Code == e.Code
	}
	return t.Kind == e.Kind
}

// New builds a GlanceError with no wrapped cause.
func New(kind Kind, code, message string) *GlanceError {
	return &GlanceError{Kind: kind, Code: code, Message: message}
}

// Wrap builds a GlanceError wrapping an existing error.
func Wrap(kind Kind, code, message string, err error) *GlanceError {
	return &GlanceError{Kind: kind, Code: code, Message: message, Err: err}
}

// ErrUnimplemented is a Config-kind error for unimplemented CLI flags.
// Nothing returns it: --password and --allow-plaintext are not
// registered, so cobra rejects them as unknown flags.
var ErrUnimplemented = New(Config, "unimplemented", "this flag is not implemented; use PGPASSWORD or password_command instead")

// Connection-kind error codes.
const (
	CodeConnectionRefused = "refused"
	CodeAuthFailed        = "auth_failed"
	CodeDatabaseNotFound  = "db_not_found"
	CodeHostUnreachable   = "host_unreachable"
	CodeTimeout           = "timeout"
	CodeTLS               = "tls"
	CodePermissionDenied  = "permission_denied"
)

// FormatConnectionError maps a raw connection error into a GlanceError
// carrying a specific code and an actionable chat-panel message,
// mirroring the original implementation's troubleshooting guidance.
func FormatConnectionError(err error) *GlanceError {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return Wrap(Connection, CodeConnectionRefused,
			"PostgreSQL is not accepting connections. Verify it is running and listening on the expected port.", err)
	case strings.Contains(msg, "authentication failed"), strings.Contains(msg, "password authentication failed"):
		return Wrap(Connection, CodeAuthFailed,
			"Invalid username or password. Check password_command, PGPASSWORD, or re-enter the password.", err)
	case strings.Contains(msg, "does not exist") && strings.Contains(msg, "database"):
		return Wrap(Connection, CodeDatabaseNotFound,
			"The target database does not exist. Verify the database name or create it.", err)
	case strings.Contains(msg, "no such host"), strings.Contains(msg, "unknown host"):
		return Wrap(Connection, CodeHostUnreachable,
			"Cannot resolve hostname. Verify the host or try an IP address.", err)
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return Wrap(Connection, CodeTimeout,
			"The database did not respond in time. Check network connectivity and server load.", err)
	case strings.Contains(msg, "SSL"), strings.Contains(msg, "TLS"):
		return Wrap(Connection, CodeTLS,
			"Secure connection failed. Check sslmode and certificate configuration.", err)
	case strings.Contains(msg, "permission denied"):
		return Wrap(Connection, CodePermissionDenied,
			"The user lacks CONNECT privilege on this database.", err)
	default:
		return Wrap(Connection, "unknown", "Database connection error.", err)
	}
}
