package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIClientComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openAIChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "gpt-4o" {
			t.Errorf("model = %q", req.Model)
		}
		json.NewEncoder(w).Encode(openAIChatResponse{
			Choices: []struct {
				Message openAIChatMessage `json:"message"`
			}{{Message: openAIChatMessage{Role: "assistant", Content: "```sql\nSELECT 1;\n```"}}},
		})
	}))
	defer srv.Close()

	c := NewOpenAIClient("gpt-4o", "sk-test", srv.URL)
	resp, err := c.Complete(context.Background(), []Message{NewUserMessage("ping")})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if ParseLLMResponse(resp.Text()).SQL != "SELECT 1;" {
		t.Errorf("Text() = %q", resp.Text())
	}
}

func TestOpenAIClientHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("gpt-4o", "bad-key", srv.URL)
	if _, err := c.Complete(context.Background(), []Message{NewUserMessage("ping")}); err == nil {
		t.Fatal("expected an error on HTTP 401")
	}
}

func TestOpenAIClientCompleteStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openAIChatResponse{
			Choices: []struct {
				Message openAIChatMessage `json:"message"`
			}{{Message: openAIChatMessage{Role: "assistant", Content: "hello"}}},
		})
	}))
	defer srv.Close()

	c := NewOpenAIClient("gpt-4o", "sk-test", srv.URL)
	ch := make(chan StreamChunk)
	go c.CompleteStream(context.Background(), []Message{NewUserMessage("hi")}, ch)

	var full string
	for chunk := range ch {
		full += chunk.Content
	}
	if full != "hello" {
		t.Errorf("reassembled stream = %q", full)
	}
}
