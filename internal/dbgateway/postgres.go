package dbgateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	maxRetryAttempts = 3
	retryBaseDelay   = 500 * time.Millisecond
	maxResultRows    = 1000
	queryTimeout     = 30 * time.Second
)

// PostgresClient is the production Gateway: a pooled connection to a
// real PostgreSQL server.
type PostgresClient struct {
	pool *pgxpool.Pool

	cancelFunc context.CancelFunc
	cancelMu   sync.Mutex
}

// NewPostgresClient returns an unconnected PostgresClient.
func NewPostgresClient() *PostgresClient {
	return &PostgresClient{}
}

// Connect opens a pooled connection, retrying transient failures
// with exponential backoff before giving up.
func (c *PostgresClient) Connect(ctx context.Context, cfg ConnectionConfig) error {
	connString := buildConnString(cfg)

	poolCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return fmt.Errorf("failed to parse connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute
	poolCfg.ConnConfig.RuntimeParams["application_name"] = "glance"

	var pool *pgxpool.Pool
	delay := retryBaseDelay

	for attempt := 1; attempt <= maxRetryAttempts; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if err = validateConnection(ctx, pool); err == nil {
				break
			}
			pool.Close()
			pool = nil
		}

		if attempt == maxRetryAttempts || !IsTransientError(err) {
			return fmt.Errorf("%s", MapConnectionError(err, cfg))
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}

	c.pool = pool
	return nil
}

func buildConnString(cfg ConnectionConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, sslMode)

	if cfg.SSLRootCert != "" {
		connString += "&sslrootcert=" + cfg.SSLRootCert
	}
	if cfg.SSLCert != "" {
		connString += "&sslcert=" + cfg.SSLCert
	}
	if cfg.SSLKey != "" {
		connString += "&sslkey=" + cfg.SSLKey
	}

	return connString
}

func validateConnection(ctx context.Context, pool *pgxpool.Pool) error {
	var version string
	return pool.QueryRow(ctx, "SELECT version()").Scan(&version)
}

// TestConnection opens and immediately closes a connection, for the
// "/conn add --test" and "/conn edit --test" dry-run flows.
func TestConnection(ctx context.Context, cfg ConnectionConfig) error {
	c := NewPostgresClient()
	if err := c.Connect(ctx, cfg); err != nil {
		return err
	}
	return c.Close()
}

// Cancel interrupts whatever ExecuteQuery call is currently running
// on this client.
func (c *PostgresClient) Cancel() {
	c.cancelMu.Lock()
	defer c.cancelMu.Unlock()
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
}

// Close releases the underlying pool.
func (c *PostgresClient) Close() error {
	if c.pool != nil {
		c.pool.Close()
	}
	return nil
}

// ExecuteQuery runs sql with a 30 second timeout, truncating results
// at 1000 rows and reporting the true row count when truncated.
func (c *PostgresClient) ExecuteQuery(ctx context.Context, sql string) (QueryResult, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	c.cancelMu.Lock()
	c.cancelFunc = cancel
	c.cancelMu.Unlock()
	defer func() {
		c.cancelMu.Lock()
		c.cancelFunc = nil
		c.cancelMu.Unlock()
		cancel()
	}()

	start := time.Now()

	rows, err := c.pool.Query(queryCtx, sql)
	if err != nil {
		return QueryResult{}, err
	}
	defer rows.Close()

	typeMap := pgtype.NewMap()
	fieldDescs := rows.FieldDescriptions()
	columns := make([]ColumnInfo, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = ColumnInfo{Name: string(fd.Name), DataType: oidName(typeMap, fd.DataTypeOID)}
	}

	var resultRows []Row
	var truncated bool
	var total int64

	for rows.Next() {
		total++
		if total > maxResultRows {
			truncated = true
			continue
		}

		values, valErr := rows.Values()
		if valErr != nil {
			return QueryResult{}, valErr
		}
		row := make(Row, len(values))
		for i, v := range values {
			row[i] = convertGoValue(v)
		}
		resultRows = append(resultRows, row)
	}

	if rows.Err() != nil {
		return QueryResult{}, rows.Err()
	}

	cmdTag := rows.CommandTag()

	result := QueryResult{
		Columns:       columns,
		Rows:          resultRows,
		ExecutionTime: time.Since(start),
		RowCount:      int64(len(resultRows)),
		RowsAffected:  cmdTag.RowsAffected(),
		WasTruncated:  truncated,
		TotalRows:     &total,
	}

	return result, nil
}

func oidName(m *pgtype.Map, oid uint32) string {
	if t, ok := m.TypeForOID(oid); ok {
		return t.Name
	}
	return "unknown"
}

// convertGoValue maps a value already decoded by pgx into this
// gateway's Value type.
func convertGoValue(v any) Value {
	switch t := v.(type) {
	case nil:
		return NewNullValue()
	case bool:
		return NewBoolValue(t)
	case int16:
		return NewIntValue(int64(t))
	case int32:
		return NewIntValue(int64(t))
	case int64:
		return NewIntValue(t)
	case float32:
		return NewFloatValue(float64(t))
	case float64:
		return NewFloatValue(t)
	case []byte:
		return NewBytesValue(t)
	case string:
		return NewStringValue(t)
	case fmt.Stringer:
		return NewStringValue(t.String())
	default:
		return NewStringValue(fmt.Sprintf("%v", t))
	}
}

// IntrospectSchema reads the full public-schema shape of the
// connected database: every base table's columns, primary key,
// indexes, and every foreign key between them. The five underlying
// queries run concurrently since they're independent of each other.
func (c *PostgresClient) IntrospectSchema(ctx context.Context) (Schema, error) {
	var (
		tableNames []string
		columns    map[string][]Column
		pks        map[string][]string
		indexes    map[string][]Index
		fks        []ForeignKey
		errs       [5]error
	)

	var wg sync.WaitGroup
	wg.Add(5)

	go func() { defer wg.Done(); tableNames, errs[0] = fetchTableNames(ctx, c.pool) }()
	go func() { defer wg.Done(); columns, errs[1] = fetchAllColumns(ctx, c.pool) }()
	go func() { defer wg.Done(); pks, errs[2] = fetchAllPrimaryKeys(ctx, c.pool) }()
	go func() { defer wg.Done(); indexes, errs[3] = fetchAllIndexes(ctx, c.pool) }()
	go func() { defer wg.Done(); fks, errs[4] = fetchForeignKeys(ctx, c.pool) }()

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return Schema{}, err
		}
	}

	tables := make([]Table, 0, len(tableNames))
	for _, name := range tableNames {
		tables = append(tables, Table{
			Name:       name,
			Columns:    columns[name],
			PrimaryKey: pks[name],
			Indexes:    indexes[name],
		})
	}

	return NewSchema(tables, fks), nil
}

func fetchTableNames(ctx context.Context, pool *pgxpool.Pool) ([]string, error) {
	rows, err := pool.Query(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func fetchAllColumns(ctx context.Context, pool *pgxpool.Pool) (map[string][]Column, error) {
	rows, err := pool.Query(ctx, `
		SELECT table_name, column_name, data_type, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_schema = 'public'
		ORDER BY table_name, ordinal_position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string][]Column)
	for rows.Next() {
		var tableName, columnName, dataType, isNullable string
		var columnDefault *string
		if err := rows.Scan(&tableName, &columnName, &dataType, &isNullable, &columnDefault); err != nil {
			return nil, err
		}
		col := Column{
			Name:       columnName,
			DataType:   dataType,
			IsNullable: isNullable == "YES",
			Default:    columnDefault,
		}
		result[tableName] = append(result[tableName], col)
	}
	return result, rows.Err()
}

func fetchAllPrimaryKeys(ctx context.Context, pool *pgxpool.Pool) (map[string][]string, error) {
	rows, err := pool.Query(ctx, `
		SELECT tc.table_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_schema = 'public'
		ORDER BY tc.table_name, kcu.ordinal_position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string][]string)
	for rows.Next() {
		var tableName, columnName string
		if err := rows.Scan(&tableName, &columnName); err != nil {
			return nil, err
		}
		result[tableName] = append(result[tableName], columnName)
	}
	return result, rows.Err()
}

func fetchAllIndexes(ctx context.Context, pool *pgxpool.Pool) (map[string][]Index, error) {
	rows, err := pool.Query(ctx, `
		SELECT t.relname AS table_name, i.relname AS index_name, a.attname AS column_name, ix.indisunique
		FROM pg_index ix
		JOIN pg_class t ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		WHERE n.nspname = 'public' AND NOT ix.indisprimary
		ORDER BY t.relname, i.relname, a.attnum`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string][]Index)
	type boundary struct {
		table, index string
	}
	var current *boundary
	var currentIdx Index

	flush := func() {
		if current != nil {
			result[current.table] = append(result[current.table], currentIdx)
		}
	}

	for rows.Next() {
		var tableName, indexName, columnName string
		var isUnique bool
		if err := rows.Scan(&tableName, &indexName, &columnName, &isUnique); err != nil {
			return nil, err
		}

		if current == nil || current.table != tableName || current.index != indexName {
			flush()
			current = &boundary{table: tableName, index: indexName}
			currentIdx = Index{Name: indexName, IsUnique: isUnique}
		}
		currentIdx.Columns = append(currentIdx.Columns, columnName)
	}
	flush()

	return result, rows.Err()
}

func fetchForeignKeys(ctx context.Context, pool *pgxpool.Pool) ([]ForeignKey, error) {
	rows, err := pool.Query(ctx, `
		SELECT tc.table_name, kcu.column_name, ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON tc.constraint_name = ccu.constraint_name AND tc.table_schema = ccu.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_schema = 'public'
		ORDER BY tc.table_name, ccu.table_name, kcu.ordinal_position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type pair struct{ from, to string }
	grouped := make(map[pair]*ForeignKey)
	var order []pair

	for rows.Next() {
		var fromTable, fromColumn, toTable, toColumn string
		if err := rows.Scan(&fromTable, &fromColumn, &toTable, &toColumn); err != nil {
			return nil, err
		}

		key := pair{from: fromTable, to: toTable}
		fk, ok := grouped[key]
		if !ok {
			fk = &ForeignKey{FromTable: fromTable, ToTable: toTable}
			grouped[key] = fk
			order = append(order, key)
		}
		fk.FromColumns = append(fk.FromColumns, fromColumn)
		fk.ToColumns = append(fk.ToColumns, toColumn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]ForeignKey, 0, len(order))
	for _, key := range order {
		result = append(result, *grouped[key])
	}
	return result, nil
}
