package dbgateway

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// MockClient is a deterministic backend for tests and for the
// synthetic "__default__" connection profile created before a user
// has configured any real connection. It never touches a network.
type MockClient struct {
	schema Schema
}

// NewMockClient returns a mock client with an empty schema.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// NewMockClientWithSchema returns a mock client that introspects to
// the given schema.
func NewMockClientWithSchema(schema Schema) *MockClient {
	return &MockClient{schema: schema}
}

// Connect is a no-op: the mock backend ignores connection config
// entirely.
func (m *MockClient) Connect(ctx context.Context, cfg ConnectionConfig) error {
	return nil
}

// IntrospectSchema returns the schema the client was constructed with.
func (m *MockClient) IntrospectSchema(ctx context.Context) (Schema, error) {
	return m.schema, nil
}

// ExecuteQuery returns one synthetic row describing the query for a
// SELECT statement, and an empty result for anything else.
func (m *MockClient) ExecuteQuery(ctx context.Context, sql string) (QueryResult, error) {
	trimmed := strings.TrimSpace(sql)
	if strings.HasPrefix(strings.ToUpper(trimmed), "SELECT") {
		one := int64(1)
		result := QueryResult{
			Columns:       []ColumnInfo{{Name: "result", DataType: "text"}},
			Rows:          []Row{{NewStringValue(fmt.Sprintf("Mock result for: %s", sql))}},
			ExecutionTime: time.Millisecond,
			RowCount:      1,
			TotalRows:     &one,
		}
		return result, nil
	}

	zero := int64(0)
	return QueryResult{ExecutionTime: time.Millisecond, TotalRows: &zero}, nil
}

// Cancel is a no-op: the mock backend has nothing in flight to cancel.
func (m *MockClient) Cancel() {}

// Close is a no-op.
func (m *MockClient) Close() error { return nil }
