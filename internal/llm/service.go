package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/willibrandon/glance/internal/dbgateway"
	"github.com/willibrandon/glance/internal/errs"
	"github.com/willibrandon/glance/internal/state"
)

// ToolContext gives the service's tool handlers just enough access to
// answer a tool call: the state store for saved-query lookups, and
// the name of whatever connection is active so a query can be scoped
// to it. Both are optional; a tool that needs them degrades to an
// unscoped answer when they're absent.
type ToolContext struct {
	StateDB           *state.Store
	CurrentConnection string
}

// ResultKind distinguishes the two shapes a Service can hand back
// once a query finishes.
type ResultKind int

const (
	// ResultSQL carries a generated statement, plus whatever prose the
	// model framed it with.
	ResultSQL ResultKind = iota
	// ResultExplanation carries a plain-text answer with no SQL, e.g.
	// when the model can't answer the question from the schema.
	ResultExplanation
)

// Result is what Service.ProcessQuery returns.
type Result struct {
	Kind        ResultKind
	SQL         string
	Explanation string
}

func sqlResult(sql, explanation string) Result {
	return Result{Kind: ResultSQL, SQL: sql, Explanation: explanation}
}

func explanationResult(text string) Result {
	return Result{Kind: ResultExplanation, Explanation: text}
}

// Service owns a Client and the prompt cache built from it, mediating
// every natural-language query through schema-aware prompting and the
// single list_saved_queries tool glance offers the model.
type Service struct {
	mu          sync.RWMutex
	client      Client
	promptCache *PromptCache
}

// NewService builds a Service around client.
func NewService(client Client) *Service {
	return &Service{client: client, promptCache: NewPromptCache()}
}

// Client returns the service's current provider client.
func (s *Service) Client() Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

// SetClient swaps the provider client, e.g. after /llm provider
// changes the active provider. The prompt cache is invalidated since
// a new provider may render context differently.
func (s *Service) SetClient(client Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = client
	s.promptCache.Invalidate()
}

// InvalidateCache forces the next query to rebuild its system prompt,
// e.g. after the connected database's schema changes.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.promptCache.Invalidate()
}

// ProcessQuery answers one user question against schema and
// conversation, running the list_saved_queries tool loop to
// completion before returning.
func (s *Service) ProcessQuery(ctx context.Context, schema dbgateway.Schema, conversation *Conversation, toolCtx ToolContext) (Result, error) {
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()

	connCtx := s.buildConnectionContext(toolCtx)
	messages := BuildMessagesCached(s.promptCache, schema, conversation, connCtx)

	resp, err := client.CompleteWithTools(ctx, messages, GetToolDefinitions())
	if err != nil {
		return Result{}, errs.Wrap(errs.LLM, "llm.complete", "failed to get a response from the model", err)
	}

	resp, err = s.handleToolCalls(ctx, client, messages, resp, toolCtx)
	if err != nil {
		return Result{}, err
	}

	return s.toResult(resp), nil
}

// ProcessQueryStreaming behaves like ProcessQuery but delivers the
// final answer incrementally over ch. A tool call in the model's
// first response falls back to a non-streaming completion, since the
// caller needs the whole tool-call loop to finish before there's
// anything coherent to stream.
func (s *Service) ProcessQueryStreaming(ctx context.Context, schema dbgateway.Schema, conversation *Conversation, toolCtx ToolContext, ch chan<- StreamChunk) (Result, error) {
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()

	connCtx := s.buildConnectionContext(toolCtx)
	messages := BuildMessagesCached(s.promptCache, schema, conversation, connCtx)

	probe, err := client.CompleteWithTools(ctx, messages, GetToolDefinitions())
	if err == nil && probe.HasToolCalls() {
		resolved, err := s.handleToolCalls(ctx, client, messages, probe, toolCtx)
		if err != nil {
			close(ch)
			return Result{}, err
		}
		ch <- StreamChunk{Content: resolved.Text()}
		ch <- StreamChunk{Done: true}
		close(ch)
		return s.toResult(resolved), nil
	}

	streamErr := client.CompleteStream(ctx, messages, ch)
	if streamErr == nil {
		return s.toResult(NewTextResponse(probe.Text())), nil
	}

	// Streaming failed outright: fall back to the non-streaming path
	// the probe already paid for.
	resp, err := client.Complete(ctx, messages)
	if err != nil {
		return Result{}, errs.Wrap(errs.LLM, "llm.complete", "streaming failed and the fallback completion also failed", err)
	}
	return s.toResult(resp), nil
}

func (s *Service) toResult(resp Response) Result {
	parsed := ParseLLMResponse(resp.Text())
	if parsed.HasSQL() {
		return sqlResult(parsed.SQL, parsed.Text)
	}
	return explanationResult(parsed.Text)
}

// handleToolCalls satisfies every tool call in resp, appends the
// model's original response plus the results to messages, and keeps
// asking the model to continue until it stops requesting tools.
func (s *Service) handleToolCalls(ctx context.Context, client Client, messages []Message, resp Response, toolCtx ToolContext) (Response, error) {
	for resp.HasToolCalls() {
		results := make([]ToolResult, 0, len(resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			content, err := s.executeTool(call, toolCtx)
			if err != nil {
				content = toolErrorJSON(err)
			}
			results = append(results, ToolResult{ToolCallID: call.ID, Content: content})
		}

		if resp.Text() != "" {
			messages = append(messages, NewAssistantMessage(resp.Text()))
		}

		next, err := client.ContinueWithToolResults(ctx, messages, results)
		if err != nil {
			return Response{}, errs.Wrap(errs.LLM, "llm.tool_continue", "failed to continue after tool results", err)
		}
		resp = next
	}
	return resp, nil
}

// executeTool dispatches a single tool call by name.
func (s *Service) executeTool(call ToolCall, toolCtx ToolContext) (string, error) {
	switch call.Name {
	case ListSavedQueriesName:
		return s.executeListSavedQueries(call.Arguments, toolCtx)
	default:
		return "", fmt.Errorf("unknown tool: %s", call.Name)
	}
}

func (s *Service) executeListSavedQueries(raw json.RawMessage, toolCtx ToolContext) (string, error) {
	if toolCtx.StateDB == nil {
		return FormatSavedQueriesForLLM(nil)
	}

	input, err := ParseListSavedQueriesInput(raw)
	if err != nil {
		return "", fmt.Errorf("invalid list_saved_queries arguments: %w", err)
	}

	filter := state.SavedQueryFilter{
		ConnectionName: input.ConnectionName,
		IncludeGlobal:  true,
		Tags:           input.Tags,
		TextSearch:     input.Text,
		Limit:          input.Limit,
	}
	if filter.ConnectionName == "" {
		filter.ConnectionName = toolCtx.CurrentConnection
	}

	queries, err := toolCtx.StateDB.SavedQueries.List(filter)
	if err != nil {
		return "", fmt.Errorf("failed to list saved queries: %w", err)
	}
	return FormatSavedQueriesForLLM(queries)
}

// buildConnectionContext redacts the active connection down to its
// label and database name, the only connection details the model
// should ever see.
func (s *Service) buildConnectionContext(toolCtx ToolContext) ConnectionContext {
	if toolCtx.StateDB == nil || toolCtx.CurrentConnection == "" {
		return ConnectionContext{}
	}

	profile, err := toolCtx.StateDB.Connections.Get(toolCtx.CurrentConnection)
	if err != nil || profile == nil {
		return ConnectionContext{}
	}
	return NewConnectionContext(profile.Name, profile.Database)
}

func toolErrorJSON(err error) string {
	b, marshalErr := json.Marshal(map[string]string{"error": err.Error()})
	if marshalErr != nil {
		return `{"error":"unknown tool error"}`
	}
	return string(b)
}
