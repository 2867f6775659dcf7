package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// mockResponsePair is one custom pattern/response override registered
// on a MockClient.
type mockResponsePair struct {
	pattern  string
	response string
}

// MockClient answers with canned SQL for common phrasings, with no
// network calls and no API key, for local development and tests.
type MockClient struct {
	customResponses   []mockResponsePair
	simulateToolCalls bool
}

// NewMockClient builds a MockClient with the default response
// cascade and no tool-call simulation.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// WithToolCalls enables simulated list_saved_queries tool calls when
// the user's question mentions saved queries.
func (m *MockClient) WithToolCalls() *MockClient {
	m.simulateToolCalls = true
	return m
}

// WithResponse registers a custom response for any input containing
// pattern (case-insensitive), checked before the built-in cascade.
func (m *MockClient) WithResponse(pattern, response string) *MockClient {
	m.customResponses = append(m.customResponses, mockResponsePair{pattern: pattern, response: response})
	return m
}

// Name implements Client.
func (m *MockClient) Name() string { return "mock" }

// Complete implements Client.
func (m *MockClient) Complete(_ context.Context, messages []Message) (Response, error) {
	input := extractUserInput(messages)
	return NewTextResponse(m.mockResponse(input)), nil
}

// CompleteStream implements Client, chunking the mock response into
// groups of 10 characters to simulate incremental delivery.
func (m *MockClient) CompleteStream(ctx context.Context, messages []Message, ch chan<- StreamChunk) error {
	defer close(ch)

	input := extractUserInput(messages)
	full := m.mockResponse(input)

	const chunkSize = 10
	for i := 0; i < len(full); i += chunkSize {
		end := i + chunkSize
		if end > len(full) {
			end = len(full)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ch <- StreamChunk{Content: full[i:end]}:
		}
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case ch <- StreamChunk{Done: true}:
	}
	return nil
}

// CompleteWithTools implements Client, simulating a list_saved_queries
// tool call when enabled and the input asks about saved queries.
func (m *MockClient) CompleteWithTools(ctx context.Context, messages []Message, tools []ToolDefinition) (Response, error) {
	input := strings.ToLower(extractUserInput(messages))
	if m.simulateToolCalls && (strings.Contains(input, "saved quer") || strings.Contains(input, "what queries")) {
		return NewToolCallResponse("", []ToolCall{{
			ID:        "mock_tool_call_1",
			Name:      ListSavedQueriesName,
			Arguments: json.RawMessage("{}"),
		}}), nil
	}
	return CompleteWithToolsFallback(ctx, m, messages, tools)
}

// ContinueWithToolResults implements Client, formatting the first
// tool result's JSON array of saved queries as a markdown list.
func (m *MockClient) ContinueWithToolResults(_ context.Context, _ []Message, results []ToolResult) (Response, error) {
	if len(results) == 0 {
		return NewTextResponse("I don't have any tool results to work with."), nil
	}

	var queries []map[string]any
	if err := json.Unmarshal([]byte(results[0].Content), &queries); err != nil {
		return NewTextResponse("I found some saved queries but couldn't read the details."), nil
	}

	if len(queries) == 0 {
		return NewTextResponse("You don't have any saved queries yet."), nil
	}

	var b strings.Builder
	b.WriteString("Here are your saved queries:\n\n")
	for _, q := range queries {
		name, _ := q["name"].(string)
		desc, _ := q["description"].(string)
		fmt.Fprintf(&b, "- **%s**: %s\n", name, desc)
	}
	return NewTextResponse(strings.TrimSpace(b.String())), nil
}

// extractUserInput returns the content of the most recent user
// message, or "" if there is none.
func extractUserInput(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

// mockResponse picks a canned answer for input, checking custom
// overrides first and falling back to a fixed cascade of common
// phrasings.
func (m *MockClient) mockResponse(input string) string {
	lower := strings.ToLower(input)

	for _, pair := range m.customResponses {
		if strings.Contains(lower, strings.ToLower(pair.pattern)) {
			return pair.response
		}
	}

	switch {
	case strings.Contains(lower, "all users") || strings.Contains(lower, "show users"):
		return sqlFence("SELECT * FROM users;")
	case strings.Contains(lower, "count") && strings.Contains(lower, "orders"):
		return sqlFence("SELECT COUNT(*) FROM orders;")
	case strings.Contains(lower, "count") && strings.Contains(lower, "users"):
		return sqlFence("SELECT COUNT(*) FROM users;")
	case strings.Contains(lower, "orders") && strings.Contains(lower, "user"):
		return sqlFence("SELECT o.* FROM orders o JOIN users u ON o.user_id = u.id;")
	case (strings.Contains(lower, "insert") || strings.Contains(lower, "add")) && strings.Contains(lower, "user"):
		return sqlFence("INSERT INTO users (name, email) VALUES ('example', 'example@example.com');")
	case strings.Contains(lower, "update") && strings.Contains(lower, "user"):
		return sqlFence("UPDATE users SET name = 'example' WHERE id = 1;")
	case strings.Contains(lower, "delete") && strings.Contains(lower, "user"):
		return sqlFence("DELETE FROM users WHERE id = 1;")
	default:
		return "I don't understand that request. Try asking about users or orders, or be more specific about what you'd like to query."
	}
}

func sqlFence(sql string) string {
	return "```sql\n" + sql + "\n```"
}
