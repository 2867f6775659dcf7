// Package orchestrator owns the single actor that mediates every
// database connection, LLM call, and state-store write glance makes.
// Everything else (the command router, the safety classifier, the
// database gateway, the LLM service) is a library it calls; this
// package is where those libraries get sequenced into one coherent
// session.
package orchestrator

import (
	"github.com/willibrandon/glance/internal/dbgateway"
	"github.com/willibrandon/glance/internal/safety"
	"github.com/willibrandon/glance/internal/state"
)

// ResultKind says what shape an InputResult carries.
type ResultKind int

const (
	// ResultNone means there's nothing to show: a blank line, a
	// /clear, anything with no user-visible effect.
	ResultNone ResultKind = iota
	// ResultMessage carries plain text for the chat panel: an LLM
	// explanation, a command acknowledgement, or a degraded-gracefully
	// error description.
	ResultMessage
	// ResultConfirmationRequired carries a generated or raw statement
	// that the safety classifier says needs explicit confirmation
	// before it runs.
	ResultConfirmationRequired
	// ResultExecuted carries a statement that ran to completion (or
	// failed outright), along with the history entry it was recorded
	// under.
	ResultExecuted
	// ResultSchema carries the freshly introspected or refreshed
	// schema, formatted for display.
	ResultSchema
	// ResultCancelled means an in-flight execute or complete call was
	// interrupted by CancelQuery (or by a connection switch preempting
	// it) before it produced a normal outcome.
	ResultCancelled
)

// InputResult is everything the front end needs to render the
// outcome of one request, whatever kind it was.
type InputResult struct {
	Kind ResultKind

	Message string
	SQL      string
	Safety   safety.Result

	QueryResult  *dbgateway.QueryResult
	QueryErr     string
	History      *state.HistoryEntry
	SchemaText   string
}

func noneResult() InputResult {
	return InputResult{Kind: ResultNone}
}

func messageResult(text string) InputResult {
	return InputResult{Kind: ResultMessage, Message: text}
}

func confirmationResult(sql string, result safety.Result) InputResult {
	return InputResult{Kind: ResultConfirmationRequired, SQL: sql, Safety: result}
}

func cancelledResult() InputResult {
	return InputResult{Kind: ResultCancelled, Message: "query cancelled"}
}
