// Package safety classifies SQL statements into safe/mutating/
// destructive tiers so the orchestrator knows whether a query can run
// immediately or needs user confirmation first.
package safety

import "fmt"

// Level is how dangerous a statement is judged to be.
type Level int

const (
	// Safe statements are read-only and execute without confirmation
	// (SELECT, plain EXPLAIN, SHOW).
	Safe Level = iota
	// Mutating statements change data but not schema (INSERT, UPDATE,
	// MERGE) and require confirmation.
	Mutating
	// Destructive statements can lose data or alter schema (DELETE,
	// DROP, TRUNCATE, ALTER, CREATE, GRANT, REVOKE) and require
	// confirmation with a warning.
	Destructive
)

func (l Level) String() string {
	switch l {
	case Mutating:
		return "Mutating"
	case Destructive:
		return "Destructive"
	default:
		return "Safe"
	}
}

// RequiresConfirmation reports whether a statement at this level must
// be confirmed by the user before the gateway executes it.
func (l Level) RequiresConfirmation() bool {
	return l == Mutating || l == Destructive
}

// RequiresWarning reports whether the confirmation prompt should
// carry an irreversibility warning.
func (l Level) RequiresWarning() bool {
	return l == Destructive
}

// StatementType is the kind of SQL statement a classification covers.
type StatementType int

const (
	StmtSelect StatementType = iota
	StmtInsert
	StmtUpdate
	StmtDelete
	StmtDrop
	StmtTruncate
	StmtAlter
	StmtCreate
	StmtGrant
	StmtRevoke
	StmtExplain
	StmtShow
	StmtWith
	StmtMerge
	// StmtMultiple wraps the most dangerous statement type found
	// across a multi-statement input.
	StmtMultiple
	StmtUnknown
)

func (s StatementType) String() string {
	switch s {
	case StmtSelect:
		return "SELECT"
	case StmtInsert:
		return "INSERT"
	case StmtUpdate:
		return "UPDATE"
	case StmtDelete:
		return "DELETE"
	case StmtDrop:
		return "DROP"
	case StmtTruncate:
		return "TRUNCATE"
	case StmtAlter:
		return "ALTER"
	case StmtCreate:
		return "CREATE"
	case StmtGrant:
		return "GRANT"
	case StmtRevoke:
		return "REVOKE"
	case StmtExplain:
		return "EXPLAIN"
	case StmtShow:
		return "SHOW"
	case StmtWith:
		return "WITH (CTE)"
	case StmtMerge:
		return "MERGE"
	case StmtMultiple:
		return "Multiple"
	default:
		return "Unknown"
	}
}

// Result is the outcome of classifying a SQL string.
type Result struct {
	Level         Level
	StatementType StatementType
	// MultipleInner holds the most-dangerous inner statement type when
	// StatementType is StmtMultiple; zero value otherwise.
	MultipleInner StatementType
	Warning       string
}

// New builds a Result with no warning.
func New(level Level, stmtType StatementType) Result {
	return Result{Level: level, StatementType: stmtType}
}

// WithWarning builds a Result carrying a warning message.
func WithWarning(level Level, stmtType StatementType, warning string) Result {
	return Result{Level: level, StatementType: stmtType, Warning: warning}
}

// RequiresConfirmation reports whether this result's level requires
// confirmation.
func (r Result) RequiresConfirmation() bool {
	return r.Level.RequiresConfirmation()
}

// RequiresWarning reports whether this result's level requires a
// warning.
func (r Result) RequiresWarning() bool {
	return r.Level.RequiresWarning()
}

// StatementLabel renders the statement type for display, unwrapping
// StmtMultiple as "Multiple (INNER)".
func (r Result) StatementLabel() string {
	if r.StatementType == StmtMultiple {
		return fmt.Sprintf("Multiple (%s)", r.MultipleInner)
	}
	return r.StatementType.String()
}
