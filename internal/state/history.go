package state

import (
	"database/sql"
	"fmt"
	"strings"
)

// MaxHistoryEntries caps how many query_history rows are retained
// per database, regardless of age.
const MaxHistoryEntries = 5000

// MaxHistoryDays caps how long a query_history row is retained,
// regardless of count.
const MaxHistoryDays = 90

// SubmittedBy records who issued a query: the user directly, or the
// LLM on the user's behalf after a confirmed translation.
type SubmittedBy int

const (
	SubmittedByUser SubmittedBy = iota
	SubmittedByLLM
)

func (s SubmittedBy) String() string {
	if s == SubmittedByLLM {
		return "llm"
	}
	return "user"
}

func parseSubmittedBy(s string) SubmittedBy {
	if s == "llm" {
		return SubmittedByLLM
	}
	return SubmittedByUser
}

// QueryStatus records the outcome of an executed query.
type QueryStatus int

const (
	QuerySuccess QueryStatus = iota
	QueryError
	QueryCancelled
)

func (s QueryStatus) String() string {
	switch s {
	case QueryError:
		return "error"
	case QueryCancelled:
		return "cancelled"
	default:
		return "success"
	}
}

func parseQueryStatus(s string) QueryStatus {
	switch s {
	case "error":
		return QueryError
	case "cancelled":
		return QueryCancelled
	default:
		return QuerySuccess
	}
}

// HistoryEntry is one executed query recorded for a connection.
type HistoryEntry struct {
	ID               int64
	ConnectionName   string
	SubmittedBy      SubmittedBy
	SQL              string
	Status           QueryStatus
	ExecutionTimeMs  *int64
	RowCount         *int64
	ErrorMessage     string
	SavedQueryID     *int64
	CreatedAt        string
}

// HistoryFilter narrows History.List's results. A zero-value filter
// returns every entry, most recent first.
type HistoryFilter struct {
	ConnectionName string
	TextSearch     string
	SinceDays      int64
	Limit          int64
}

// History is the repository for query_history.
type History struct {
	db *DB
}

// NewHistory builds a History repository.
func NewHistory(db *DB) *History {
	return &History{db: db}
}

// Record inserts a new history entry and prunes entries beyond the
// retention limits, returning the new entry's id.
func (h *History) Record(connectionName string, submittedBy SubmittedBy, sql string, status QueryStatus,
	executionTimeMs, rowCount *int64, errorMessage string, savedQueryID *int64) (int64, error) {

	result, err := h.db.conn.Exec(`
		INSERT INTO query_history
			(connection_name, submitted_by, sql, status, execution_time_ms, row_count, error_message, saved_query_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, connectionName, submittedBy.String(), sql, status.String(), executionTimeMs, rowCount, nullableErr(errorMessage), savedQueryID)
	if err != nil {
		return 0, fmt.Errorf("failed to record query: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	if err := h.pruneOldEntries(); err != nil {
		return id, err
	}

	return id, nil
}

func (h *History) pruneOldEntries() error {
	if _, err := h.db.conn.Exec(
		`DELETE FROM query_history WHERE created_at < datetime('now', ? || ' days')`,
		-MaxHistoryDays,
	); err != nil {
		return fmt.Errorf("failed to prune old entries: %w", err)
	}

	if _, err := h.db.conn.Exec(`
		DELETE FROM query_history
		WHERE id NOT IN (
			SELECT id FROM query_history
			ORDER BY created_at DESC
			LIMIT ?
		)
	`, MaxHistoryEntries); err != nil {
		return fmt.Errorf("failed to prune excess entries: %w", err)
	}

	return nil
}

const historyColumns = `id, connection_name, submitted_by, sql, status,
	execution_time_ms, row_count, error_message, saved_query_id, created_at`

func scanHistoryEntry(scan func(...any) error) (HistoryEntry, error) {
	var e HistoryEntry
	var submittedBy, status string
	var errMsg sql.NullString
	err := scan(&e.ID, &e.ConnectionName, &submittedBy, &e.SQL, &status,
		&e.ExecutionTimeMs, &e.RowCount, &errMsg, &e.SavedQueryID, &e.CreatedAt)
	if err != nil {
		return HistoryEntry{}, err
	}
	e.SubmittedBy = parseSubmittedBy(submittedBy)
	e.Status = parseQueryStatus(status)
	e.ErrorMessage = errMsg.String
	return e, nil
}

// List returns history entries matching filter, most recent first.
func (h *History) List(filter HistoryFilter) ([]HistoryEntry, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + historyColumns + ` FROM query_history WHERE 1=1`)

	var args []any
	if filter.ConnectionName != "" {
		b.WriteString(" AND connection_name = ?")
		args = append(args, filter.ConnectionName)
	}
	if filter.TextSearch != "" {
		b.WriteString(" AND sql LIKE ?")
		args = append(args, "%"+filter.TextSearch+"%")
	}
	if filter.SinceDays != 0 {
		b.WriteString(" AND created_at >= datetime('now', ? || ' days')")
		args = append(args, -filter.SinceDays)
	}

	b.WriteString(" ORDER BY created_at DESC")

	if filter.Limit != 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, filter.Limit)
	}

	rows, err := h.db.conn.Query(b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		e, err := scanHistoryEntry(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns a single history entry by id, or nil if none exists.
func (h *History) Get(id int64) (*HistoryEntry, error) {
	row := h.db.conn.QueryRow(`SELECT `+historyColumns+` FROM query_history WHERE id = ?`, id)
	e, err := scanHistoryEntry(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get history entry: %w", err)
	}
	return &e, nil
}

// Clear deletes every history entry and reports how many rows were
// removed.
func (h *History) Clear() (int64, error) {
	result, err := h.db.conn.Exec(`DELETE FROM query_history`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear history: %w", err)
	}
	return result.RowsAffected()
}

// ClearForConnection deletes history entries for a single connection.
func (h *History) ClearForConnection(connectionName string) (int64, error) {
	result, err := h.db.conn.Exec(`DELETE FROM query_history WHERE connection_name = ?`, connectionName)
	if err != nil {
		return 0, fmt.Errorf("failed to clear connection history: %w", err)
	}
	return result.RowsAffected()
}

// Count returns the total number of history entries.
func (h *History) Count() (int64, error) {
	var count int64
	err := h.db.conn.QueryRow(`SELECT COUNT(*) FROM query_history`).Scan(&count)
	return count, err
}

func nullableErr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
