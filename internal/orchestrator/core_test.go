package orchestrator

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/willibrandon/glance/internal/dbgateway"
	"github.com/willibrandon/glance/internal/llm"
	"github.com/willibrandon/glance/internal/state"
)

func newTestStore(t *testing.T) *state.Store {
	t.Helper()
	store, err := state.Open(filepath.Join(t.TempDir(), "glance.db"))
	if err != nil {
		t.Fatalf("state.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func connectMock(t *testing.T, core *Core) {
	t.Helper()
	_, err := core.SwitchConnection(context.Background(), "test", dbgateway.ConnectionConfig{Backend: dbgateway.BackendMock})
	if err != nil {
		t.Fatalf("SwitchConnection: %v", err)
	}
}

func TestHandleInputRawSQLExecutesImmediately(t *testing.T) {
	store := newTestStore(t)
	core := NewCore(store, llm.NewService(llm.NewMockClient()))
	connectMock(t, core)

	result, err := core.HandleInput(context.Background(), "/sql SELECT 1;")
	if err != nil {
		t.Fatalf("HandleInput: %v", err)
	}
	if result.Kind != ResultExecuted {
		t.Fatalf("Kind = %v, want ResultExecuted", result.Kind)
	}
	if result.QueryResult == nil {
		t.Fatal("expected a query result")
	}
}

func TestHandleInputDestructiveSQLRequiresConfirmation(t *testing.T) {
	store := newTestStore(t)
	core := NewCore(store, llm.NewService(llm.NewMockClient()))
	connectMock(t, core)

	result, err := core.HandleInput(context.Background(), "/sql DROP TABLE users;")
	if err != nil {
		t.Fatalf("HandleInput: %v", err)
	}
	if result.Kind != ResultConfirmationRequired {
		t.Fatalf("Kind = %v, want ResultConfirmationRequired", result.Kind)
	}
	if result.SQL != "DROP TABLE users;" {
		t.Errorf("SQL = %q", result.SQL)
	}
}

func TestConfirmQueryExecutesTheGivenSQL(t *testing.T) {
	store := newTestStore(t)
	core := NewCore(store, llm.NewService(llm.NewMockClient()))
	connectMock(t, core)

	result, err := core.ConfirmQuery(context.Background(), "DROP TABLE users;")
	if err != nil {
		t.Fatalf("ConfirmQuery: %v", err)
	}
	if result.Kind != ResultExecuted {
		t.Fatalf("Kind = %v, want ResultExecuted", result.Kind)
	}

	entries, err := store.History.List(state.HistoryFilter{})
	if err != nil {
		t.Fatalf("History.List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
}

func TestHandleInputNaturalLanguageGeneratesAndExecutesSQL(t *testing.T) {
	store := newTestStore(t)
	core := NewCore(store, llm.NewService(llm.NewMockClient()))
	connectMock(t, core)

	result, err := core.HandleInput(context.Background(), "show me all users")
	if err != nil {
		t.Fatalf("HandleInput: %v", err)
	}
	if result.Kind != ResultExecuted {
		t.Fatalf("Kind = %v, want ResultExecuted (SELECT is auto-executed)", result.Kind)
	}
	if result.SQL != "SELECT * FROM users;" {
		t.Errorf("SQL = %q", result.SQL)
	}
}

func TestHandleInputWithNoConnectionReturnsQueryError(t *testing.T) {
	core := NewCore(nil, llm.NewService(llm.NewMockClient()))

	_, err := core.HandleInput(context.Background(), "/sql SELECT 1;")
	if err == nil {
		t.Fatal("expected an error with no active connection")
	}
}

func TestCancelQueryWithNothingInFlight(t *testing.T) {
	core := NewCore(nil, llm.NewService(llm.NewMockClient()))
	result := core.CancelQuery()
	if result.Kind != ResultMessage {
		t.Fatalf("Kind = %v, want ResultMessage", result.Kind)
	}
}

func TestSwitchConnectionClearsConversationAndHistory(t *testing.T) {
	store := newTestStore(t)
	core := NewCore(store, llm.NewService(llm.NewMockClient()))
	connectMock(t, core)

	core.conversation.AddUser("hello")
	if _, err := core.HandleInput(context.Background(), "/sql SELECT 1;"); err != nil {
		t.Fatalf("HandleInput: %v", err)
	}

	_, err := core.SwitchConnection(context.Background(), "other", dbgateway.ConnectionConfig{Backend: dbgateway.BackendMock})
	if err != nil {
		t.Fatalf("SwitchConnection: %v", err)
	}

	if core.conversation.Len() != 0 {
		t.Errorf("conversation.Len() = %d, want 0 after switching connections", core.conversation.Len())
	}
	if len(core.InputHistory()) != 0 {
		t.Errorf("expected input history to be cleared after switching connections")
	}
	if core.CurrentConnection() != "other" {
		t.Errorf("CurrentConnection() = %q, want other", core.CurrentConnection())
	}
}
