package dbgateway

import (
	"context"
	"strings"
	"testing"
)

func TestMockSelect(t *testing.T) {
	m := NewMockClient()
	result, err := m.ExecuteQuery(context.Background(), "SELECT * FROM users")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RowCount != 1 || len(result.Rows) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if !strings.Contains(result.Rows[0][0].Str, "Mock result for: SELECT * FROM users") {
		t.Errorf("unexpected row value: %+v", result.Rows[0][0])
	}
}

func TestMockInsert(t *testing.T) {
	m := NewMockClient()
	result, err := m.ExecuteQuery(context.Background(), "INSERT INTO users (id) VALUES (1)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RowCount != 0 || len(result.Rows) != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}

func TestMockIntrospectSchemaReturnsStoredSchema(t *testing.T) {
	schema := NewSchema([]Table{NewTable("t", []Column{NewColumn("id", "integer")})}, nil)
	m := NewMockClientWithSchema(schema)
	got, err := m.IntrospectSchema(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ContentHash() != schema.ContentHash() {
		t.Error("expected IntrospectSchema to return the schema the client was built with")
	}
}

func TestMockConnectAndCloseAreNoops(t *testing.T) {
	m := NewMockClient()
	if err := m.Connect(context.Background(), ConnectionConfig{Backend: BackendMock}); err != nil {
		t.Errorf("unexpected error from Connect: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("unexpected error from Close: %v", err)
	}
	m.Cancel() // must not panic
}
