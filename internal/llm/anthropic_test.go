package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSplitSystemMessage(t *testing.T) {
	messages := []Message{
		NewSystemMessage("you are glance"),
		NewUserMessage("hi"),
		NewAssistantMessage("hello"),
	}
	system, rest := splitSystemMessage(messages)
	if system != "you are glance" {
		t.Errorf("system = %q", system)
	}
	if len(rest) != 2 {
		t.Fatalf("len(rest) = %d, want 2", len(rest))
	}
	if rest[0].Role != "user" || rest[1].Role != "assistant" {
		t.Errorf("unexpected roles: %+v", rest)
	}
}

func TestAnthropicClientComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "sk-ant-test" {
			t.Errorf("missing or wrong x-api-key header")
		}
		json.NewEncoder(w).Encode(anthropicResponse{
			Content: []struct {
				Text string `json:"text"`
			}{{Text: "```sql\nSELECT 2;\n```"}},
		})
	}))
	defer srv.Close()

	c := &anthropicClient{model: "claude-sonnet-4-20250514", apiKey: "sk-ant-test", baseURL: srv.URL, http: srv.Client()}

	resp, err := c.Complete(context.Background(), []Message{NewUserMessage("ping")})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if ParseLLMResponse(resp.Text()).SQL != "SELECT 2;" {
		t.Errorf("Text() = %q", resp.Text())
	}
}
