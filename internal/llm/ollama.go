package llm

// NewOllamaClient builds a Client against Ollama's OpenAI-compatible
// /v1/chat/completions endpoint, reusing openAIClient rather than
// duplicating its request/response handling (the same shortcut
// jkaninda-akili__shared.go takes for its own Ollama provider).
func NewOllamaClient(model, baseURL string) Client {
	c := NewOpenAIClient(model, "", baseURL+"/v1").(*openAIClient)
	c.name = "ollama"
	return c
}
