package command

import (
	"strings"
	"testing"
)

func TestFindCommand(t *testing.T) {
	if _, ok := FindCommand("sql"); !ok {
		t.Error("expected to find sql")
	}
	if _, ok := FindCommand("SQL"); !ok {
		t.Error("expected case-insensitive lookup to find SQL")
	}
	if _, ok := FindCommand("quit"); !ok {
		t.Error("expected to find quit")
	}
	if _, ok := FindCommand("exit"); !ok {
		t.Error("expected alias exit to resolve to quit")
	}
	if _, ok := FindCommand("nonexistent"); ok {
		t.Error("expected nonexistent command to not be found")
	}
}

func TestGenerateHelpText(t *testing.T) {
	help := GenerateHelpText()
	for _, want := range []string{"General commands", "/sql", "/quit", "Keyboard shortcuts"} {
		if !strings.Contains(help, want) {
			t.Errorf("help text missing %q", want)
		}
	}
}

func TestCommandsRequiringStateDB(t *testing.T) {
	defs := CommandsRequiringStateDB()
	if !hasName(defs, "connections") || !hasName(defs, "history") {
		t.Error("expected connections and history to require the state db")
	}
	if hasName(defs, "clear") {
		t.Error("clear should not require the state db")
	}
}

func TestCommandsRequiringDB(t *testing.T) {
	defs := CommandsRequiringDB()
	if !hasName(defs, "sql") || !hasName(defs, "schema") {
		t.Error("expected sql and schema to require a live connection")
	}
	if hasName(defs, "help") {
		t.Error("help should not require a live connection")
	}
}

func TestCategoryDisplayName(t *testing.T) {
	if CategoryGeneral.DisplayName() != "General commands" {
		t.Errorf("CategoryGeneral.DisplayName() = %q", CategoryGeneral.DisplayName())
	}
	if CategoryConnection.DisplayName() != "Connection commands" {
		t.Errorf("CategoryConnection.DisplayName() = %q", CategoryConnection.DisplayName())
	}
}

func hasName(defs []Def, name string) bool {
	for _, d := range defs {
		if d.Name == name {
			return true
		}
	}
	return false
}
