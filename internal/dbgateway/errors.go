package dbgateway

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// IsTransientError reports whether a connection error is worth
// retrying: a server that's briefly unreachable, as opposed to one
// that will reject every attempt the same way (bad credentials, bad
// database name, a protocol mismatch).
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())

	for _, s := range []string{"password authentication failed", "authentication failed", "does not exist", "ssl", "tls"} {
		if strings.Contains(msg, s) {
			return false
		}
	}

	for _, s := range []string{"connection refused", "timed out", "timeout", "temporarily unavailable", "connection reset", "broken pipe"} {
		if strings.Contains(msg, s) {
			return true
		}
	}

	return false
}

// MapConnectionError turns a raw connection error into an actionable
// message, naming the host/port/database the caller was trying to
// reach where that helps narrow down the cause.
func MapConnectionError(err error, cfg ConnectionConfig) string {
	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "connection refused"):
		return fmt.Sprintf(
			"Connection refused: no PostgreSQL server accepting connections at %s:%d.\n\n"+
				"Troubleshooting steps:\n"+
				"  1. Verify PostgreSQL is running on %s\n"+
				"  2. Check that it is listening on port %d\n"+
				"  3. Verify firewall settings allow the connection\n"+
				"\nOriginal error: %s", cfg.Host, cfg.Port, cfg.Host, cfg.Port, msg)
	case strings.Contains(lower, "password authentication failed"), strings.Contains(lower, "authentication failed"):
		return fmt.Sprintf(
			"Authentication failed for user %q.\n\n"+
				"Troubleshooting steps:\n"+
				"  1. Verify the username and password are correct\n"+
				"  2. Check /conn edit for a stale stored password\n"+
				"  3. Try the interactive masked password prompt\n"+
				"\nOriginal error: %s", cfg.User, msg)
	case strings.Contains(lower, "does not exist") && strings.Contains(lower, "database"):
		return fmt.Sprintf(
			"Database %q does not exist on %s:%d.\n\n"+
				"Troubleshooting steps:\n"+
				"  1. Verify the database name in /conn edit\n"+
				"  2. Create it: createdb %s\n"+
				"  3. List available databases: psql -l\n"+
				"\nOriginal error: %s", cfg.Database, cfg.Host, cfg.Port, cfg.Database, msg)
	case strings.Contains(lower, "ssl"), strings.Contains(lower, "tls"):
		return fmt.Sprintf(
			"SSL/TLS error connecting to %s:%d.\n\n"+
				"Troubleshooting steps:\n"+
				"  1. Try sslmode=disable for local testing\n"+
				"  2. Verify SSL certificate paths in /conn edit\n"+
				"  3. Check whether the server requires SSL (pg_hba.conf)\n"+
				"\nOriginal error: %s", cfg.Host, cfg.Port, msg)
	case strings.Contains(lower, "timeout"), strings.Contains(lower, "timed out"):
		return fmt.Sprintf(
			"Connection to %s:%d timed out.\n\n"+
				"Troubleshooting steps:\n"+
				"  1. Check network connectivity to the server\n"+
				"  2. Verify the server is not overloaded\n"+
				"  3. Check firewall rules blocking the connection\n"+
				"\nOriginal error: %s", cfg.Host, cfg.Port, msg)
	default:
		return fmt.Sprintf(
			"Database connection error:\n\n%s\n\n"+
				"Check the connection profile with /conn edit %s, or run with --debug for detailed logs.",
			msg, cfg.Host)
	}
}

// FormatQueryError extracts the structured fields PostgreSQL attaches
// to a query error (detail, hint, offending table/column/constraint)
// so they can be shown alongside the raw message.
func FormatQueryError(err error) string {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err.Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "ERROR: %s", pgErr.Message)
	if pgErr.Detail != "" {
		fmt.Fprintf(&b, "\nDETAIL: %s", pgErr.Detail)
	}
	if pgErr.Hint != "" {
		fmt.Fprintf(&b, "\nHINT: %s", pgErr.Hint)
	}
	if pgErr.TableName != "" {
		fmt.Fprintf(&b, "\nTABLE: %s", pgErr.TableName)
	}
	if pgErr.ColumnName != "" {
		fmt.Fprintf(&b, "\nCOLUMN: %s", pgErr.ColumnName)
	}
	if pgErr.ConstraintName != "" {
		fmt.Fprintf(&b, "\nCONSTRAINT: %s", pgErr.ConstraintName)
	}
	return b.String()
}
