package tui

import (
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/willibrandon/glance/internal/dbgateway"
	"github.com/willibrandon/glance/internal/llm"
	"github.com/willibrandon/glance/internal/orchestrator"
	"github.com/willibrandon/glance/internal/state"
)

func newTestModel(t *testing.T) *Model {
	t.Helper()
	store, err := state.Open(filepath.Join(t.TempDir(), "glance.db"))
	if err != nil {
		t.Fatalf("state.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	core := orchestrator.NewCore(store, llm.NewService(llm.NewMockClient()))
	handle := orchestrator.Spawn(core, 4)
	t.Cleanup(func() { handle.Close() })

	if _, err := handle.SwitchConnection(t.Context(), "test", dbgateway.ConnectionConfig{Backend: dbgateway.BackendMock}); err != nil {
		t.Fatalf("SwitchConnection: %v", err)
	}

	return New(handle, "dark")
}

// typeLine types line into the input and presses Enter, returning the
// command the Enter keypress produced.
func typeLine(m *Model, line string) tea.Cmd {
	for _, r := range line {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return cmd
}

// runCmd runs cmd and returns its message. submit and confirm hand
// back a tea.Batch whose first command is the orchestrator call, so a
// batch is unpacked and its inputResultMsg returned.
func runCmd(cmd tea.Cmd) tea.Msg {
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return msg
	}
	for _, c := range batch {
		if c == nil {
			continue
		}
		if result, ok := c().(inputResultMsg); ok {
			return result
		}
	}
	return msg
}

func TestSubmittingRawSQLQueuesAnAsyncCommand(t *testing.T) {
	m := newTestModel(t)
	cmd := typeLine(m, "/sql SELECT 1;")
	if cmd == nil {
		t.Fatal("expected Update to return a tea.Cmd for the async orchestrator call")
	}
	if !m.busy {
		t.Error("expected busy to be true while the request is in flight")
	}

	msg := runCmd(cmd)
	result, ok := msg.(inputResultMsg)
	if !ok {
		t.Fatalf("cmd() = %T, want inputResultMsg", msg)
	}
	if result.err != nil {
		t.Fatalf("result.err = %v", result.err)
	}

	m.Update(result)
	if m.busy {
		t.Error("expected busy to clear after the result arrives")
	}
	if len(m.transcript) == 0 {
		t.Error("expected the transcript to gain an entry")
	}
}

func TestConfirmationPromptAcceptsYes(t *testing.T) {
	m := newTestModel(t)
	cmd := typeLine(m, "/sql DROP TABLE users;")
	msg := runCmd(cmd).(inputResultMsg)
	m.Update(msg)

	if m.confirming == nil {
		t.Fatal("expected a pending confirmation for a destructive statement")
	}

	confirmCmd := typeLine(m, "y")
	if confirmCmd == nil {
		t.Fatal("expected confirming 'y' to issue a ConfirmQuery command")
	}
	if m.confirming != nil {
		t.Error("expected the pending confirmation to clear once accepted")
	}

	result := runCmd(confirmCmd).(inputResultMsg)
	if result.err != nil {
		t.Fatalf("ConfirmQuery: %v", result.err)
	}
	if result.result.Kind != orchestrator.ResultExecuted {
		t.Fatalf("Kind = %v, want ResultExecuted", result.result.Kind)
	}
}

func TestConfirmationPromptDeclinesOnAnythingElse(t *testing.T) {
	m := newTestModel(t)
	cmd := typeLine(m, "/sql DROP TABLE users;")
	m.Update(runCmd(cmd).(inputResultMsg))

	declineCmd := typeLine(m, "n")
	if declineCmd != nil {
		t.Error("expected declining to not issue any further command")
	}
	if m.confirming != nil {
		t.Error("expected the pending confirmation to clear once declined")
	}
}

func TestCtrlCQuits(t *testing.T) {
	m := newTestModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected Ctrl+C to return tea.Quit")
	}
	if !m.quitting {
		t.Error("expected quitting to be set")
	}
}
