package llm

import "context"

// StreamChunk is one piece of an in-progress streamed completion.
type StreamChunk struct {
	Content string
	Done    bool
}

// Client is how the service layer talks to whichever provider is
// configured. CompleteWithTools and ContinueWithToolResults have no
// required behavior of their own: a provider that doesn't support
// function calling can implement them by delegating to Complete (see
// CompleteWithToolsFallback/ContinueWithToolResultsFallback below),
// the way an unused trait default would in a language that has them.
type Client interface {
	// Name identifies the provider, for logging and settings display.
	Name() string

	// Complete sends messages and returns the model's full response.
	Complete(ctx context.Context, messages []Message) (Response, error)

	// CompleteStream sends messages and delivers the response
	// incrementally over ch, closing it when done or on error.
	CompleteStream(ctx context.Context, messages []Message, ch chan<- StreamChunk) error

	// CompleteWithTools sends messages plus the tools the model may
	// call, returning a response that may carry tool calls instead of
	// (or alongside) text.
	CompleteWithTools(ctx context.Context, messages []Message, tools []ToolDefinition) (Response, error)

	// ContinueWithToolResults resumes a conversation after the caller
	// has satisfied the model's tool calls.
	ContinueWithToolResults(ctx context.Context, messages []Message, results []ToolResult) (Response, error)
}

// CompleteWithToolsFallback implements CompleteWithTools for a
// provider with no function-calling support: it ignores tools
// entirely and answers as plain text.
func CompleteWithToolsFallback(ctx context.Context, c Client, messages []Message, _ []ToolDefinition) (Response, error) {
	return c.Complete(ctx, messages)
}

// ContinueWithToolResultsFallback implements ContinueWithToolResults
// for a provider with no function-calling support: it appends the
// tool results as an assistant-visible message and answers as plain
// text.
func ContinueWithToolResultsFallback(ctx context.Context, c Client, messages []Message, results []ToolResult) (Response, error) {
	extended := make([]Message, len(messages), len(messages)+len(results))
	copy(extended, messages)
	for _, r := range results {
		extended = append(extended, NewUserMessage(r.Content))
	}
	return c.Complete(ctx, extended)
}
