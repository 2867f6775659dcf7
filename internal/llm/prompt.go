package llm

import (
	"fmt"
	"strings"

	"github.com/willibrandon/glance/internal/dbgateway"
)

// systemPromptTemplate is the instruction set every query-generation
// turn starts from. {schema} is substituted with the connected
// database's schema, formatted for the model.
const systemPromptTemplate = `You are Glance, a PostgreSQL assistant that translates natural-language questions into SQL.

Here is the database schema you're working with:

{schema}

Rules:
- Generate only valid PostgreSQL syntax.
- Return the SQL in a fenced code block tagged sql, with nothing else in the block.
- Limit results to 100 rows unless the user asks for a specific number.
- Never generate DROP DATABASE or any statement that would destroy the database itself.
- If the question can't be answered from this schema, say so plainly instead of guessing at table names.
`

// BuildSystemPrompt substitutes schema's formatted description into
// the system prompt template.
func BuildSystemPrompt(schema dbgateway.Schema) string {
	return strings.Replace(systemPromptTemplate, "{schema}", schema.FormatForLLM(), 1)
}

// BuildMessages prepends a fresh system prompt to conversation's
// messages.
func BuildMessages(schema dbgateway.Schema, conversation *Conversation) []Message {
	messages := make([]Message, 0, conversation.Len()+1)
	messages = append(messages, NewSystemMessage(BuildSystemPrompt(schema)))
	messages = append(messages, conversation.Messages()...)
	return messages
}

// ConnectionContext is the redacted connection info folded into a
// cached system prompt: a label the user recognizes and the database
// name, never host, user, or password.
type ConnectionContext struct {
	Label    string
	Database string
}

// NewConnectionContext builds a ConnectionContext.
func NewConnectionContext(label, database string) ConnectionContext {
	return ConnectionContext{Label: label, Database: database}
}

func (c ConnectionContext) line() string {
	if c.Label == "" && c.Database == "" {
		return ""
	}
	return fmt.Sprintf("\nYou're currently connected to %q (database %q).\n", c.Label, c.Database)
}

// PromptCache remembers the last system prompt built for a given
// schema/connection pair, so a query loop that keeps re-asking
// against the same connection doesn't re-render the schema text (and,
// for a large schema, re-pay its formatting cost) on every turn.
type PromptCache struct {
	schemaHash uint64
	connLabel  string
	connDB     string
	prompt     string
	valid      bool
}

// NewPromptCache builds an empty PromptCache.
func NewPromptCache() *PromptCache {
	return &PromptCache{}
}

// Invalidate forces the next BuildMessagesCached call to rebuild the
// system prompt, regardless of whether the schema or connection
// appear unchanged.
func (c *PromptCache) Invalidate() {
	c.valid = false
}

// BuildMessagesCached behaves like BuildMessages, but reuses the
// cached system prompt when schema and connCtx match what produced
// it last time.
func BuildMessagesCached(cache *PromptCache, schema dbgateway.Schema, conversation *Conversation, connCtx ConnectionContext) []Message {
	hash := schema.ContentHash()

	if !cache.valid || cache.schemaHash != hash || cache.connLabel != connCtx.Label || cache.connDB != connCtx.Database {
		cache.prompt = BuildSystemPrompt(schema) + connCtx.line()
		cache.schemaHash = hash
		cache.connLabel = connCtx.Label
		cache.connDB = connCtx.Database
		cache.valid = true
	}

	messages := make([]Message, 0, conversation.Len()+1)
	messages = append(messages, NewSystemMessage(cache.prompt))
	messages = append(messages, conversation.Messages()...)
	return messages
}
