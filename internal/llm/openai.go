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

// openAIClient talks to OpenAI's chat completions endpoint, or any
// OpenAI-compatible one (Ollama's included) when baseURL is
// overridden. The wire format here is intentionally minimal: the
// request/response shapes below cover exactly what glance needs
// (message-in, text-out) and are not a faithful rendering of either
// API's full surface.
type openAIClient struct {
	name    string
	model   string
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewOpenAIClient builds a Client against the OpenAI chat completions
// API. baseURL overrides the default endpoint when set, letting the
// same client serve an OpenAI-compatible proxy.
func NewOpenAIClient(model, apiKey, baseURL string) Client {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &openAIClient{
		name:    "openai",
		model:   model,
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *openAIClient) Name() string { return c.name }

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model    string              `json:"model"`
	Messages []openAIChatMessage `json:"messages"`
	Stream   bool                `json:"stream,omitempty"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message openAIChatMessage `json:"message"`
	} `json:"choices"`
}

func toOpenAIMessages(messages []Message) []openAIChatMessage {
	out := make([]openAIChatMessage, len(messages))
	for i, m := range messages {
		out[i] = openAIChatMessage{Role: m.Role.String(), Content: m.Content}
	}
	return out
}

func (c *openAIClient) Complete(ctx context.Context, messages []Message) (Response, error) {
	reqBody := openAIChatRequest{Model: c.model, Messages: toOpenAIMessages(messages)}
	var resp openAIChatResponse
	if err := c.post(ctx, "/chat/completions", reqBody, &resp); err != nil {
		return Response{}, err
	}
	if len(resp.Choices) == 0 {
		return Response{}, errs.New(errs.LLM, "llm.empty_response", fmt.Sprintf("%s returned no choices", c.name))
	}
	return NewTextResponse(resp.Choices[0].Message.Content), nil
}

func (c *openAIClient) CompleteStream(ctx context.Context, messages []Message, ch chan<- StreamChunk) error {
	defer close(ch)
	resp, err := c.Complete(ctx, messages)
	if err != nil {
		return err
	}
	ch <- StreamChunk{Content: resp.Text()}
	ch <- StreamChunk{Done: true}
	return nil
}

func (c *openAIClient) CompleteWithTools(ctx context.Context, messages []Message, tools []ToolDefinition) (Response, error) {
	return CompleteWithToolsFallback(ctx, c, messages, tools)
}

func (c *openAIClient) ContinueWithToolResults(ctx context.Context, messages []Message, results []ToolResult) (Response, error) {
	return ContinueWithToolResultsFallback(ctx, c, messages, results)
}

func (c *openAIClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errs.Wrap(errs.LLM, "llm.marshal", "failed to encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errs.Wrap(errs.LLM, "llm.request", "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errs.Wrap(errs.LLM, "llm.network", fmt.Sprintf("request to %s failed", c.name), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.Wrap(errs.LLM, "llm.read_response", "failed to read response body", err)
	}

	if resp.StatusCode >= 400 {
		return errs.New(errs.LLM, "llm.http_error", fmt.Sprintf("%s returned %d: %s", c.name, resp.StatusCode, string(data)))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return errs.Wrap(errs.LLM, "llm.unmarshal", "failed to decode response", err)
	}
	return nil
}
