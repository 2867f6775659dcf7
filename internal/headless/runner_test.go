package headless

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/willibrandon/glance/internal/dbgateway"
	"github.com/willibrandon/glance/internal/llm"
	"github.com/willibrandon/glance/internal/orchestrator"
	"github.com/willibrandon/glance/internal/state"
)

func newTestHandle(t *testing.T) *orchestrator.Handle {
	t.Helper()
	store, err := state.Open(filepath.Join(t.TempDir(), "glance.db"))
	if err != nil {
		t.Fatalf("state.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	core := orchestrator.NewCore(store, llm.NewService(llm.NewMockClient()))
	handle := orchestrator.Spawn(core, 4)
	t.Cleanup(func() { handle.Close() })

	if _, err := handle.SwitchConnection(context.Background(), "test", dbgateway.ConnectionConfig{Backend: dbgateway.BackendMock}); err != nil {
		t.Fatalf("SwitchConnection: %v", err)
	}
	return handle
}

func TestRunnerExecutesTypeAndEnter(t *testing.T) {
	handle := newTestHandle(t)
	runner := NewRunner(handle, Config{})

	events, err := ParseAll("type:/sql SELECT 1;, key:enter")
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}

	result, err := runner.Run(context.Background(), events)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.EventsExecuted != 2 {
		t.Errorf("EventsExecuted = %d, want 2", result.EventsExecuted)
	}
	if result.State.MessageCount != 1 {
		t.Errorf("MessageCount = %d, want 1", result.State.MessageCount)
	}
}

func TestRunnerAssertContains(t *testing.T) {
	handle := newTestHandle(t)
	runner := NewRunner(handle, Config{})

	events, err := ParseAll("type:/sql SELECT 1;, key:enter, assert:contains:rows")
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}

	result, err := runner.Run(context.Background(), events)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.AssertionsPassed != 1 || result.AssertionsFailed != 0 {
		t.Errorf("passed=%d failed=%d, want 1/0: screen=%q", result.AssertionsPassed, result.AssertionsFailed, result.Screen)
	}
}

func TestRunnerAssertStateCompare(t *testing.T) {
	handle := newTestHandle(t)
	runner := NewRunner(handle, Config{})

	events, err := ParseAll("type:/sql SELECT 1;, key:enter, assert:state:message_count>=1")
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}

	result, err := runner.Run(context.Background(), events)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.AssertionsFailed != 0 {
		t.Errorf("AssertionsFailed = %d, want 0", result.AssertionsFailed)
	}
}

func TestRunnerCtrlCStopsEarly(t *testing.T) {
	handle := newTestHandle(t)
	runner := NewRunner(handle, Config{})

	events, err := ParseAll("type:hello, key:ctrl+c, type:never reached")
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}

	result, err := runner.Run(context.Background(), events)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.EventsExecuted != 2 {
		t.Errorf("EventsExecuted = %d, want 2 (stopped at ctrl+c)", result.EventsExecuted)
	}
	if result.State.Running {
		t.Error("Running = true, want false after ctrl+c")
	}
}

func TestRunnerSnapshotCapturesFrame(t *testing.T) {
	handle := newTestHandle(t)
	runner := NewRunner(handle, Config{})

	events, err := ParseAll("type:/sql SELECT 1;, key:enter, snapshot:after-query")
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}

	result, err := runner.Run(context.Background(), events)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Frames) != 1 || result.Frames[0].Event != "after-query" {
		t.Errorf("Frames = %+v", result.Frames)
	}
}

func TestCompareValuesNumeric(t *testing.T) {
	cases := []struct {
		actual, op, expected string
		want                 bool
	}{
		{"5", ">=", "3", true},
		{"5", "<", "3", false},
		{"3", "=", "3", true},
		{"abc", "=", "abc", true},
	}
	for _, c := range cases {
		if got := compareValues(c.actual, c.op, c.expected); got != c.want {
			t.Errorf("compareValues(%q, %q, %q) = %v, want %v", c.actual, c.op, c.expected, got, c.want)
		}
	}
}
