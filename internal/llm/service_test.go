package llm

import (
	"context"
	"testing"
)

func TestServiceProcessQueryReturnsSQL(t *testing.T) {
	svc := NewService(NewMockClient())
	conv := NewConversation()
	conv.AddUser("show me all users")

	result, err := svc.ProcessQuery(context.Background(), testSchema(), conv, ToolContext{})
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if result.Kind != ResultSQL {
		t.Fatalf("Kind = %v, want ResultSQL", result.Kind)
	}
	if result.SQL != "SELECT * FROM users;" {
		t.Errorf("SQL = %q", result.SQL)
	}
}

func TestServiceProcessQueryReturnsExplanationWhenNoSQL(t *testing.T) {
	svc := NewService(NewMockClient())
	conv := NewConversation()
	conv.AddUser("what's your favorite color")

	result, err := svc.ProcessQuery(context.Background(), testSchema(), conv, ToolContext{})
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if result.Kind != ResultExplanation {
		t.Fatalf("Kind = %v, want ResultExplanation", result.Kind)
	}
}

func TestServiceProcessQueryRunsToolLoop(t *testing.T) {
	svc := NewService(NewMockClient().WithToolCalls())
	conv := NewConversation()
	conv.AddUser("what saved queries do I have?")

	result, err := svc.ProcessQuery(context.Background(), testSchema(), conv, ToolContext{})
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if result.Kind != ResultExplanation {
		t.Fatalf("Kind = %v, want ResultExplanation after the tool loop resolves", result.Kind)
	}
	if result.Explanation == "" {
		t.Error("expected a non-empty explanation after the tool loop")
	}
}

func TestServiceProcessQueryStreamingFallsBackOnToolCall(t *testing.T) {
	svc := NewService(NewMockClient().WithToolCalls())
	conv := NewConversation()
	conv.AddUser("what saved queries do I have?")

	ch := make(chan StreamChunk, 16)
	result, err := svc.ProcessQueryStreaming(context.Background(), testSchema(), conv, ToolContext{}, ch)
	if err != nil {
		t.Fatalf("ProcessQueryStreaming: %v", err)
	}
	if result.Kind != ResultExplanation {
		t.Fatalf("Kind = %v, want ResultExplanation", result.Kind)
	}

	var sawDone bool
	for chunk := range ch {
		if chunk.Done {
			sawDone = true
		}
	}
	if !sawDone {
		t.Error("expected a terminal Done chunk on the stream")
	}
}

func TestServiceSetClientInvalidatesCache(t *testing.T) {
	svc := NewService(NewMockClient())
	conv := NewConversation()
	conv.AddUser("q")
	_, _ = svc.ProcessQuery(context.Background(), testSchema(), conv, ToolContext{})

	svc.SetClient(NewMockClient())
	if svc.promptCache.valid {
		t.Error("expected SetClient to invalidate the prompt cache")
	}
}

func TestBuildConnectionContextWithNoStateDB(t *testing.T) {
	svc := NewService(NewMockClient())
	ctx := svc.buildConnectionContext(ToolContext{CurrentConnection: "prod"})
	if ctx.Label != "" || ctx.Database != "" {
		t.Errorf("expected an empty context with no state store, got %+v", ctx)
	}
}

func TestExecuteListSavedQueriesWithNoStateDB(t *testing.T) {
	svc := NewService(NewMockClient())
	out, err := svc.executeListSavedQueries(nil, ToolContext{})
	if err != nil {
		t.Fatalf("executeListSavedQueries: %v", err)
	}
	if out != "[]" {
		t.Errorf("out = %q, want empty array", out)
	}
}

func TestExecuteToolUnknownName(t *testing.T) {
	svc := NewService(NewMockClient())
	_, err := svc.executeTool(ToolCall{Name: "delete_everything"}, ToolContext{})
	if err == nil {
		t.Fatal("expected an error for an unknown tool")
	}
}
