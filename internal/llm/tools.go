package llm

import (
	"encoding/json"

	"github.com/willibrandon/glance/internal/state"
)

// ToolDefinition describes one tool the model may call, in the
// JSON-schema shape every provider's function-calling API expects.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ListSavedQueriesName is the only tool glance currently exposes to
// the model.
const ListSavedQueriesName = "list_saved_queries"

// GetToolDefinitions returns the tools offered to the model on every
// request.
func GetToolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        ListSavedQueriesName,
			Description: "List the user's saved SQL queries, optionally filtered by connection, tags, or text search.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"connection_name": map[string]any{
						"type":        "string",
						"description": "Only return queries saved for this connection. Omit to search the active connection's queries. Global queries are always included.",
					},
					"tags": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "Only return queries carrying all of these tags.",
					},
					"text": map[string]any{
						"type":        "string",
						"description": "Match against the query's name, SQL, or description.",
					},
					"limit": map[string]any{
						"type":        "integer",
						"description": "Maximum number of results to return.",
					},
				},
			},
		},
	}
}

// ListSavedQueriesInput is the decoded argument payload for a
// list_saved_queries tool call.
type ListSavedQueriesInput struct {
	ConnectionName string   `json:"connection_name,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	Text           string   `json:"text,omitempty"`
	Limit          int64    `json:"limit,omitempty"`
}

// ParseListSavedQueriesInput decodes a tool call's raw arguments.
func ParseListSavedQueriesInput(raw json.RawMessage) (ListSavedQueriesInput, error) {
	var in ListSavedQueriesInput
	if len(raw) == 0 {
		return in, nil
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return ListSavedQueriesInput{}, err
	}
	return in, nil
}

// savedQueryOutput is the redacted shape of a SavedQuery handed back
// to the model: no internal id, and the connection given as a label
// (its name, or "global" for a query saved without one).
type savedQueryOutput struct {
	Name            string   `json:"name"`
	SQL             string   `json:"sql"`
	Description     string   `json:"description,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	ConnectionLabel string   `json:"connection_label"`
	LastUsedAt      string   `json:"last_used_at,omitempty"`
	UsageCount      int64    `json:"usage_count"`
}

// FormatSavedQueriesForLLM renders queries as the JSON array a tool
// result hands back to the model.
func FormatSavedQueriesForLLM(queries []state.SavedQuery) (string, error) {
	out := make([]savedQueryOutput, 0, len(queries))
	for _, q := range queries {
		label := q.ConnectionName
		if label == "" {
			label = "global"
		}
		out = append(out, savedQueryOutput{
			Name:            q.Name,
			SQL:             q.SQL,
			Description:     q.Description,
			Tags:            q.Tags,
			ConnectionLabel: label,
			LastUsedAt:      q.LastUsedAt,
			UsageCount:      q.UsageCount,
		})
	}

	b, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
