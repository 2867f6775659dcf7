package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/willibrandon/glance/internal/errs"
)

// anthropicClient talks to Anthropic's messages API. As with
// openAIClient, the request/response shapes are a minimal subset
// sufficient for message-in, text-out completions; Anthropic's full
// wire format is out of scope here.
type anthropicClient struct {
	model   string
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewAnthropicClient builds a Client against Anthropic's messages API.
func NewAnthropicClient(model, apiKey string) Client {
	return &anthropicClient{
		model:   model,
		apiKey:  apiKey,
		baseURL: "https://api.anthropic.com/v1/messages",
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *anthropicClient) Name() string { return "anthropic" }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
	MaxTokens int                `json:"max_tokens"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

// splitSystemMessage separates glance's leading system message (if
// any) from the rest, since Anthropic's API takes system instructions
// as a dedicated field rather than a message with role "system".
func splitSystemMessage(messages []Message) (system string, rest []anthropicMessage) {
	rest = make([]anthropicMessage, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = m.Content
			continue
		}
		rest = append(rest, anthropicMessage{Role: m.Role.String(), Content: m.Content})
	}
	return system, rest
}

func (c *anthropicClient) Complete(ctx context.Context, messages []Message) (Response, error) {
	system, rest := splitSystemMessage(messages)
	reqBody := anthropicRequest{Model: c.model, System: system, Messages: rest, MaxTokens: 4096}

	var resp anthropicResponse
	if err := c.post(ctx, reqBody, &resp); err != nil {
		return Response{}, err
	}
	if len(resp.Content) == 0 {
		return Response{}, errs.New(errs.LLM, "llm.empty_response", "anthropic returned no content")
	}
	return NewTextResponse(resp.Content[0].Text), nil
}

func (c *anthropicClient) CompleteStream(ctx context.Context, messages []Message, ch chan<- StreamChunk) error {
	defer close(ch)
	resp, err := c.Complete(ctx, messages)
	if err != nil {
		return err
	}
	ch <- StreamChunk{Content: resp.Text()}
	ch <- StreamChunk{Done: true}
	return nil
}

func (c *anthropicClient) CompleteWithTools(ctx context.Context, messages []Message, tools []ToolDefinition) (Response, error) {
	return CompleteWithToolsFallback(ctx, c, messages, tools)
}

func (c *anthropicClient) ContinueWithToolResults(ctx context.Context, messages []Message, results []ToolResult) (Response, error) {
	return ContinueWithToolResultsFallback(ctx, c, messages, results)
}

func (c *anthropicClient) post(ctx context.Context, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errs.Wrap(errs.LLM, "llm.marshal", "failed to encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return errs.Wrap(errs.LLM, "llm.request", "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.http.Do(req)
	if err != nil {
		return errs.Wrap(errs.LLM, "llm.network", "request to anthropic failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.Wrap(errs.LLM, "llm.read_response", "failed to read response body", err)
	}

	if resp.StatusCode >= 400 {
		return errs.New(errs.LLM, "llm.http_error", fmt.Sprintf("anthropic returned %d: %s", resp.StatusCode, string(data)))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return errs.Wrap(errs.LLM, "llm.unmarshal", "failed to decode response", err)
	}
	return nil
}
