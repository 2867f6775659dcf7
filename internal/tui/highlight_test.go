package tui

import "testing"

func TestChromaStyleSelectsByTheme(t *testing.T) {
	if got := chromaStyle("dark"); got != "monokai" {
		t.Errorf("chromaStyle(%q) = %q, want monokai", "dark", got)
	}
	if got := chromaStyle("light"); got != "github" {
		t.Errorf("chromaStyle(%q) = %q, want github", "light", got)
	}
	if got := chromaStyle(""); got != "monokai" {
		t.Errorf("chromaStyle(%q) = %q, want monokai", "", got)
	}
}

func TestHighlightSQLReturnsEmptyForEmptyInput(t *testing.T) {
	if got := highlightSQL("", "dark"); got != "" {
		t.Errorf("highlightSQL(\"\", ...) = %q, want empty", got)
	}
}

func TestHighlightSQLProducesOutputForBothThemes(t *testing.T) {
	const sql = "SELECT 1"
	if got := highlightSQL(sql, "dark"); got == "" {
		t.Error("highlightSQL with dark theme returned empty string")
	}
	if got := highlightSQL(sql, "light"); got == "" {
		t.Error("highlightSQL with light theme returned empty string")
	}
}
