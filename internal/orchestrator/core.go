package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/willibrandon/glance/internal/command"
	"github.com/willibrandon/glance/internal/dbgateway"
	"github.com/willibrandon/glance/internal/errs"
	"github.com/willibrandon/glance/internal/llm"
	"github.com/willibrandon/glance/internal/logger"
	"github.com/willibrandon/glance/internal/safety"
	"github.com/willibrandon/glance/internal/state"
)

// maxInputHistory bounds how many previously submitted lines the
// up-arrow recall keeps around.
const maxInputHistory = 200

// Core holds the session state a single Orchestrator actor owns:
// the active connection (if any), its schema, the running
// conversation with the model, and the input recall buffer. It does
// no concurrency of its own; Actor is what serializes access to it.
type Core struct {
	stateDB    *state.Store
	llmService *llm.Service
	classifier *safety.Classifier

	mu sync.Mutex

	connectionName string
	gateway        dbgateway.Gateway
	schema         dbgateway.Schema
	schemaLoaded   bool

	conversation *llm.Conversation
	inputHistory []string

	cancelMu     sync.Mutex
	activeCancel context.CancelFunc
}

// NewCore builds a Core with no active connection. stateDB may be
// nil for a purely in-memory session (tests, headless dry runs).
func NewCore(stateDB *state.Store, llmService *llm.Service) *Core {
	return &Core{
		stateDB:      stateDB,
		llmService:   llmService,
		classifier:   safety.NewClassifier(),
		conversation: llm.NewConversation(),
	}
}

// CurrentConnection returns the name of the active connection, or ""
// if there isn't one.
func (c *Core) CurrentConnection() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectionName
}

// Schema returns the last introspected schema for the active
// connection. It's the zero Schema before any connection is made.
func (c *Core) Schema() dbgateway.Schema {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.schema
}

// HandleInput is the single entry point for one line of chat-panel
// input: a slash command or a natural-language question. It may run
// a query against the active connection, call the LLM, or just
// produce a chat message; ctx bounds however much I/O that requires.
func (c *Core) HandleInput(ctx context.Context, input string) (InputResult, error) {
	cmd := command.Parse(input)
	c.recordInputHistory(input)

	switch cmd.Kind {
	case command.KindNaturalLanguage:
		if cmd.Text == "" {
			return noneResult(), nil
		}
		return c.handleNaturalLanguage(ctx, cmd.Text)

	case command.KindSQL:
		return c.handleRawSQL(cmd.Text, state.SubmittedByUser)

	case command.KindClear:
		c.mu.Lock()
		c.conversation.Clear()
		c.mu.Unlock()
		return noneResult(), nil

	case command.KindSchema:
		return c.handleShowSchema(ctx)

	case command.KindRefreshSchema:
		return c.handleRefreshSchema(ctx)

	case command.KindConnectionsList:
		return c.handleConnectionsList()

	case command.KindConnect:
		return c.handleConnect(ctx, cmd.Text)

	case command.KindConnectionAdd:
		return c.handleConnectionAdd(cmd.ConnectionAdd)

	case command.KindConnectionEdit:
		return c.handleConnectionEdit(cmd.ConnectionEdit)

	case command.KindConnectionDelete:
		return c.handleConnectionDelete(cmd.Text)

	case command.KindHistory:
		return c.handleHistory(cmd.History)

	case command.KindHistoryClear:
		return c.handleHistoryClear()

	case command.KindSaveQuery:
		return c.handleSaveQuery(cmd.SaveQuery)

	case command.KindQueriesList:
		return c.handleQueriesList(cmd.QueriesList)

	case command.KindUseQuery:
		return c.handleUseQuery(cmd.Text)

	case command.KindQueryDelete:
		return c.handleQueryDelete(cmd.Text)

	case command.KindLLMProvider, command.KindLLMModel, command.KindLLMKey:
		return c.handleLLMSetting(cmd)

	case command.KindLLMSettings:
		return c.handleLLMSettingsShow()

	case command.KindHelp:
		return messageResult(command.GenerateHelpText()), nil

	case command.KindDebug:
		warn, errCount := logger.Counts()
		entries := logger.Entries()
		if n := cmd.DebugLines; n >= 0 && n < len(entries) {
			entries = entries[len(entries)-n:]
		}
		lines := []string{fmt.Sprintf("%d warnings, %d errors", warn, errCount)}
		for _, e := range entries {
			lines = append(lines, e.Format())
		}
		return messageResult(strings.Join(lines, "\n")), nil

	case command.KindVim, command.KindQuit:
		// Vim-mode toggling and quitting both return ResultNone with
		// no message; the result does not say which command it was.
		return InputResult{Kind: ResultNone}, nil

	default:
		return messageResult(fmt.Sprintf("unknown command: %s", cmd.Text)), nil
	}
}

func (c *Core) handleNaturalLanguage(ctx context.Context, text string) (InputResult, error) {
	c.mu.Lock()
	c.conversation.AddUser(text)
	schema := c.schema
	conv := c.conversation
	c.mu.Unlock()

	toolCtx := llm.ToolContext{StateDB: c.stateDB, CurrentConnection: c.CurrentConnection()}

	runCtx, done := c.registerCancel(ctx)
	result, err := c.llmService.ProcessQuery(runCtx, schema, conv, toolCtx)
	done()

	if runCtx.Err() == context.Canceled {
		return cancelledResult(), nil
	}
	if err != nil {
		// LLM errors degrade gracefully: the conversation keeps
		// whatever happened so far, and /sql remains usable.
		return messageResult(fmt.Sprintf("the model couldn't answer that: %v", err)), nil
	}

	if result.Kind == llm.ResultExplanation {
		c.mu.Lock()
		c.conversation.AddAssistant(result.Explanation)
		c.mu.Unlock()
		return messageResult(result.Explanation), nil
	}

	c.mu.Lock()
	c.conversation.AddAssistant(result.SQL)
	c.mu.Unlock()

	return c.classifyAndRespond(result.SQL, state.SubmittedByLLM)
}

func (c *Core) handleRawSQL(sql string, by state.SubmittedBy) (InputResult, error) {
	if sql == "" {
		return noneResult(), nil
	}
	return c.classifyAndRespond(sql, by)
}

func (c *Core) classifyAndRespond(sql string, by state.SubmittedBy) (InputResult, error) {
	result := c.classifier.Classify(sql)
	if result.RequiresConfirmation() {
		return confirmationResult(sql, result), nil
	}
	return c.executeSQL(context.Background(), sql, by, nil)
}

// ConfirmQuery runs a statement the front end already confirmed with
// the user, e.g. after a ResultConfirmationRequired round trip.
func (c *Core) ConfirmQuery(ctx context.Context, sql string) (InputResult, error) {
	return c.executeSQL(ctx, sql, state.SubmittedByLLM, nil)
}

func (c *Core) executeSQL(ctx context.Context, sql string, by state.SubmittedBy, savedQueryID *int64) (InputResult, error) {
	c.mu.Lock()
	gw := c.gateway
	connName := c.connectionName
	c.mu.Unlock()

	if gw == nil {
		return InputResult{}, errs.New(errs.Query, "query.no_connection", "no active database connection")
	}

	runCtx, done := c.registerCancel(ctx)
	defer done()

	result, execErr := gw.ExecuteQuery(runCtx, sql)

	status := state.QuerySuccess
	errMsg := ""
	var execMs *int64
	rowCount := result.RowCount

	if execErr != nil {
		status = state.QueryError
		if runCtx.Err() == context.Canceled {
			status = state.QueryCancelled
		}
		errMsg = dbgateway.FormatQueryError(execErr)
	} else {
		ms := result.ExecutionTime.Milliseconds()
		execMs = &ms
	}

	var entry *state.HistoryEntry
	if c.stateDB != nil {
		// History rows reference a saved connection profile; a
		// connection that isn't one is recorded under the synthetic
		// __default__ profile.
		histConn := connName
		if p, err := c.stateDB.Connections.Get(connName); err == nil && p == nil {
			histConn = "__default__"
		}
		id, recErr := c.stateDB.History.Record(histConn, by, sql, status, execMs, &rowCount, errMsg, savedQueryID)
		if recErr == nil {
			entry = &state.HistoryEntry{
				ID: id, ConnectionName: histConn, SubmittedBy: by, SQL: sql,
				Status: status, ExecutionTimeMs: execMs, RowCount: &rowCount,
				ErrorMessage: errMsg, SavedQueryID: savedQueryID,
			}
		} else {
			logger.Warn("failed to record query history", "error", recErr)
		}
		// A failure to record history is logged as a warning but never
		// aborts the query the user actually asked for.
	}

	out := InputResult{Kind: ResultExecuted, SQL: sql, History: entry}
	if execErr != nil {
		out.QueryErr = errMsg
	} else {
		out.QueryResult = &result
	}
	if status == state.QueryCancelled {
		out.Kind = ResultCancelled
		out.Message = "query cancelled"
	}
	return out, nil
}

// registerCancel wraps ctx with a cancel func and publishes it as the
// session's activeCancel so CancelQuery can interrupt whatever I/O
// the caller is about to perform. The returned done func must be
// called exactly once when that I/O finishes, cancelled or not.
func (c *Core) registerCancel(ctx context.Context) (runCtx context.Context, done func()) {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancelMu.Lock()
	c.activeCancel = cancel
	c.cancelMu.Unlock()
	return runCtx, func() {
		c.cancelMu.Lock()
		c.activeCancel = nil
		c.cancelMu.Unlock()
		cancel()
	}
}

// CancelQuery interrupts whatever statement is currently executing
// on this session's gateway. It does no I/O itself and never blocks.
func (c *Core) CancelQuery() InputResult {
	c.cancelMu.Lock()
	cancel := c.activeCancel
	c.cancelMu.Unlock()

	if cancel == nil {
		return messageResult("no query in progress")
	}

	c.mu.Lock()
	gw := c.gateway
	c.mu.Unlock()
	if gw != nil {
		gw.Cancel()
	}
	cancel()
	return cancelledResult()
}

// SwitchConnection atomically replaces the active connection: the
// old gateway and schema cache are dropped, the LLM conversation and
// input history are cleared, and the new connection is established
// and introspected. On failure the previous connection is left
// untouched so the session never ends up half-migrated.
func (c *Core) SwitchConnection(ctx context.Context, name string, cfg dbgateway.ConnectionConfig) (InputResult, error) {
	gw, err := dbgateway.Connect(ctx, cfg)
	if err != nil {
		return InputResult{}, errs.FormatConnectionError(err)
	}

	schema, err := gw.IntrospectSchema(ctx)
	if err != nil {
		gw.Close()
		return InputResult{}, errs.Wrap(errs.Connection, "connection.introspect", "failed to read the schema", err)
	}

	c.mu.Lock()
	old := c.gateway
	c.gateway = gw
	c.schema = schema
	c.schemaLoaded = true
	c.connectionName = name
	c.conversation.Clear()
	c.inputHistory = nil
	c.mu.Unlock()

	if old != nil {
		old.Close()
	}

	if c.stateDB != nil {
		c.stateDB.Connections.Touch(name)
	}

	return InputResult{Kind: ResultSchema, SchemaText: schema.FormatForDisplay()}, nil
}

func (c *Core) handleShowSchema(ctx context.Context) (InputResult, error) {
	c.mu.Lock()
	loaded := c.schemaLoaded
	schema := c.schema
	c.mu.Unlock()
	if !loaded {
		return messageResult("no active connection"), nil
	}
	return InputResult{Kind: ResultSchema, SchemaText: schema.FormatForDisplay()}, nil
}

func (c *Core) handleRefreshSchema(ctx context.Context) (InputResult, error) {
	c.mu.Lock()
	gw := c.gateway
	c.mu.Unlock()
	if gw == nil {
		return messageResult("no active connection"), nil
	}

	schema, err := gw.IntrospectSchema(ctx)
	if err != nil {
		return InputResult{}, errs.Wrap(errs.Connection, "connection.introspect", "failed to refresh the schema", err)
	}

	c.mu.Lock()
	c.schema = schema
	c.schemaLoaded = true
	c.mu.Unlock()
	c.llmService.InvalidateCache()

	return InputResult{Kind: ResultSchema, SchemaText: schema.FormatForDisplay()}, nil
}

func (c *Core) recordInputHistory(input string) {
	if input == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inputHistory = append(c.inputHistory, input)
	if len(c.inputHistory) > maxInputHistory {
		c.inputHistory = c.inputHistory[len(c.inputHistory)-maxInputHistory:]
	}
}

// InputHistory returns the recalled input lines, oldest first.
func (c *Core) InputHistory() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.inputHistory))
	copy(out, c.inputHistory)
	return out
}

// Close releases the active connection, if any.
func (c *Core) Close() error {
	c.mu.Lock()
	gw := c.gateway
	c.gateway = nil
	c.mu.Unlock()
	if gw == nil {
		return nil
	}
	return gw.Close()
}
