package state

import (
	"database/sql"
	"fmt"
	"strings"
)

// SavedQuery is a user-curated SQL query, optionally scoped to a
// connection and tagged for /queries filtering.
type SavedQuery struct {
	ID             int64
	Name           string
	SQL            string
	Description    string
	ConnectionName string
	Tags           []string
	CreatedAt      string
	UpdatedAt      string
	LastUsedAt     string
	UsageCount     int64
}

// SavedQueryFilter narrows SavedQueries.List's results.
type SavedQueryFilter struct {
	ConnectionName string
	IncludeGlobal  bool
	Tags           []string
	TextSearch     string
	Limit          int64
}

// SavedQueries is the repository for saved_queries and
// saved_query_tags.
type SavedQueries struct {
	db *DB
}

// NewSavedQueries builds a SavedQueries repository.
func NewSavedQueries(db *DB) *SavedQueries {
	return &SavedQueries{db: db}
}

// Create inserts a new saved query with its tags, returning its id.
func (s *SavedQueries) Create(name, sqlText, description, connectionName string, tags []string) (int64, error) {
	result, err := s.db.conn.Exec(
		`INSERT INTO saved_queries (name, sql, description, connection_name) VALUES (?, ?, ?, ?)`,
		name, sqlText, nullableErr(description), nullable(connectionName),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return 0, fmt.Errorf("saved query %q already exists for this connection", name)
		}
		return 0, fmt.Errorf("failed to create saved query: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, tag := range tags {
		if err := s.addTag(id, tag); err != nil {
			return id, err
		}
	}

	return id, nil
}

func (s *SavedQueries) addTag(id int64, tag string) error {
	_, err := s.db.conn.Exec(`INSERT OR IGNORE INTO saved_query_tags (saved_query_id, tag) VALUES (?, ?)`, id, tag)
	if err != nil {
		return fmt.Errorf("failed to add tag: %w", err)
	}
	return nil
}

func (s *SavedQueries) getTags(id int64) ([]string, error) {
	rows, err := s.db.conn.Query(`SELECT tag FROM saved_query_tags WHERE saved_query_id = ? ORDER BY tag`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

const savedQueryColumns = `id, name, sql, description, connection_name,
	created_at, updated_at, last_used_at, usage_count`

func scanSavedQueryRow(scan func(...any) error) (SavedQuery, error) {
	var q SavedQuery
	var description, connectionName, lastUsedAt sql.NullString
	err := scan(&q.ID, &q.Name, &q.SQL, &description, &connectionName,
		&q.CreatedAt, &q.UpdatedAt, &lastUsedAt, &q.UsageCount)
	if err != nil {
		return SavedQuery{}, err
	}
	q.Description = description.String
	q.ConnectionName = connectionName.String
	q.LastUsedAt = lastUsedAt.String
	return q, nil
}

// Get returns a saved query by id, with its tags populated, or nil
// if none exists.
func (s *SavedQueries) Get(id int64) (*SavedQuery, error) {
	row := s.db.conn.QueryRow(`SELECT `+savedQueryColumns+` FROM saved_queries WHERE id = ?`, id)
	q, err := scanSavedQueryRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get saved query: %w", err)
	}
	tags, err := s.getTags(q.ID)
	if err != nil {
		return nil, err
	}
	q.Tags = tags
	return &q, nil
}

// GetByName resolves a saved query by name, preferring a match scoped
// to connectionName over a global (connection_name IS NULL) one when
// connectionName is non-empty.
func (s *SavedQueries) GetByName(name, connectionName string) (*SavedQuery, error) {
	var row *sql.Row
	if connectionName != "" {
		row = s.db.conn.QueryRow(`
			SELECT `+savedQueryColumns+`
			FROM saved_queries
			WHERE name = ? AND (connection_name = ? OR connection_name IS NULL)
			ORDER BY CASE WHEN connection_name = ? THEN 0 ELSE 1 END
			LIMIT 1
		`, name, connectionName, connectionName)
	} else {
		row = s.db.conn.QueryRow(`
			SELECT `+savedQueryColumns+`
			FROM saved_queries
			WHERE name = ? AND connection_name IS NULL
		`, name)
	}

	q, err := scanSavedQueryRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get saved query: %w", err)
	}
	tags, err := s.getTags(q.ID)
	if err != nil {
		return nil, err
	}
	q.Tags = tags
	return &q, nil
}

// List returns saved queries matching filter, ordered by name. Tag
// filters apply AND semantics: a query must carry every listed tag.
func (s *SavedQueries) List(filter SavedQueryFilter) ([]SavedQuery, error) {
	conditions := []string{"1=1"}
	var args []any

	if filter.ConnectionName != "" {
		if filter.IncludeGlobal {
			conditions = append(conditions, "(connection_name = ? OR connection_name IS NULL)")
		} else {
			conditions = append(conditions, "connection_name = ?")
		}
		args = append(args, filter.ConnectionName)
	}

	for _, tag := range filter.Tags {
		conditions = append(conditions, "id IN (SELECT saved_query_id FROM saved_query_tags WHERE tag = ?)")
		args = append(args, tag)
	}

	if filter.TextSearch != "" {
		conditions = append(conditions, "(name LIKE ? OR sql LIKE ? OR description LIKE ?)")
		pattern := "%" + filter.TextSearch + "%"
		args = append(args, pattern, pattern, pattern)
	}

	query := `SELECT ` + savedQueryColumns + ` FROM saved_queries WHERE ` + strings.Join(conditions, " AND ") + ` ORDER BY name`
	if filter.Limit != 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved queries: %w", err)
	}
	defer rows.Close()

	var queries []SavedQuery
	for rows.Next() {
		q, err := scanSavedQueryRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan saved query: %w", err)
		}
		tags, err := s.getTags(q.ID)
		if err != nil {
			return nil, err
		}
		q.Tags = tags
		queries = append(queries, q)
	}
	return queries, rows.Err()
}

// Update changes sql, description, and/or tags on a saved query. A
// zero-value string/nil tags slice leaves that field unchanged.
func (s *SavedQueries) Update(id int64, sqlText, description string, tags []string) error {
	if sqlText != "" {
		if _, err := s.db.conn.Exec(
			`UPDATE saved_queries SET sql = ?, updated_at = datetime('now') WHERE id = ?`, sqlText, id,
		); err != nil {
			return fmt.Errorf("failed to update saved query: %w", err)
		}
	}

	if description != "" {
		if _, err := s.db.conn.Exec(
			`UPDATE saved_queries SET description = ?, updated_at = datetime('now') WHERE id = ?`, description, id,
		); err != nil {
			return fmt.Errorf("failed to update saved query: %w", err)
		}
	}

	if tags != nil {
		if _, err := s.db.conn.Exec(`DELETE FROM saved_query_tags WHERE saved_query_id = ?`, id); err != nil {
			return fmt.Errorf("failed to update tags: %w", err)
		}
		for _, tag := range tags {
			if err := s.addTag(id, tag); err != nil {
				return err
			}
		}
	}

	return nil
}

// Delete removes a saved query by id.
func (s *SavedQueries) Delete(id int64) error {
	result, err := s.db.conn.Exec(`DELETE FROM saved_queries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete saved query: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("saved query not found")
	}
	return nil
}

// DeleteByName removes a saved query by name, scoped to
// connectionName when non-empty.
func (s *SavedQueries) DeleteByName(name, connectionName string) error {
	var result sql.Result
	var err error
	if connectionName != "" {
		result, err = s.db.conn.Exec(`DELETE FROM saved_queries WHERE name = ? AND connection_name = ?`, name, connectionName)
	} else {
		result, err = s.db.conn.Exec(`DELETE FROM saved_queries WHERE name = ? AND connection_name IS NULL`, name)
	}
	if err != nil {
		return fmt.Errorf("failed to delete saved query: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("saved query %q not found", name)
	}
	return nil
}

// RecordUsage bumps a saved query's usage_count and last_used_at,
// called whenever /usequery runs it.
func (s *SavedQueries) RecordUsage(id int64) error {
	_, err := s.db.conn.Exec(`
		UPDATE saved_queries
		SET usage_count = usage_count + 1, last_used_at = datetime('now'), updated_at = datetime('now')
		WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}

// IsGlobalTag reports whether tag carries the "global:" prefix that
// marks it visible across connections.
func IsGlobalTag(tag string) bool {
	return strings.HasPrefix(tag, "global:")
}

// NormalizeTag strips a "global:" prefix from tag, if present.
func NormalizeTag(tag string) string {
	return strings.TrimPrefix(tag, "global:")
}
