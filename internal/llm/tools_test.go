package llm

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/willibrandon/glance/internal/state"
)

func TestGetToolDefinitions(t *testing.T) {
	defs := GetToolDefinitions()
	if len(defs) != 1 {
		t.Fatalf("len(defs) = %d, want 1", len(defs))
	}
	if defs[0].Name != ListSavedQueriesName {
		t.Errorf("defs[0].Name = %q, want %q", defs[0].Name, ListSavedQueriesName)
	}
}

func TestParseListSavedQueriesInput(t *testing.T) {
	raw := json.RawMessage(`{"connection_name":"prod","tags":["reporting"],"limit":5}`)
	in, err := ParseListSavedQueriesInput(raw)
	if err != nil {
		t.Fatalf("ParseListSavedQueriesInput: %v", err)
	}
	if in.ConnectionName != "prod" || in.Limit != 5 || len(in.Tags) != 1 {
		t.Errorf("unexpected input: %+v", in)
	}
}

func TestParseListSavedQueriesInputEmpty(t *testing.T) {
	in, err := ParseListSavedQueriesInput(nil)
	if err != nil {
		t.Fatalf("ParseListSavedQueriesInput(nil): %v", err)
	}
	if !reflect.DeepEqual(in, ListSavedQueriesInput{}) {
		t.Errorf("expected zero value, got %+v", in)
	}
}

func TestFormatSavedQueriesForLLMRedactsAndFallsBackLabel(t *testing.T) {
	queries := []state.SavedQuery{
		{Name: "active_users", SQL: "SELECT * FROM users WHERE active", ConnectionName: "prod", UsageCount: 3},
		{Name: "global_check", SQL: "SELECT 1", ConnectionName: "", UsageCount: 0},
	}

	out, err := FormatSavedQueriesForLLM(queries)
	if err != nil {
		t.Fatalf("FormatSavedQueriesForLLM: %v", err)
	}
	if !strings.Contains(out, `"connection_label":"prod"`) {
		t.Errorf("expected connection_label prod in %s", out)
	}
	if !strings.Contains(out, `"connection_label":"global"`) {
		t.Errorf("expected global fallback label in %s", out)
	}
	if strings.Contains(out, `"id"`) {
		t.Errorf("expected saved query id to be redacted, got %s", out)
	}
}

func TestFormatSavedQueriesForLLMEmpty(t *testing.T) {
	out, err := FormatSavedQueriesForLLM(nil)
	if err != nil {
		t.Fatalf("FormatSavedQueriesForLLM(nil): %v", err)
	}
	if out != "[]" {
		t.Errorf("FormatSavedQueriesForLLM(nil) = %q, want %q", out, "[]")
	}
}
