// Package tui is glance's front end: a single Bubbletea model that
// renders one scrolling transcript above an input line and forwards every
// keystroke-driven action to the orchestrator's Handle. It never
// calls the database gateway, the LLM service, or the state store
// directly — only internal/orchestrator.Handle, so the render loop
// never blocks on I/O.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	wordwrap "github.com/mitchellh/go-wordwrap"

	"github.com/willibrandon/glance/internal/orchestrator"
)

var (
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	promptStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
)

const defaultWrapWidth = 100

// entry is one line already rendered into the chat transcript.
type entry struct {
	text string
}

// pendingConfirmation holds a statement waiting on a yes/no from the
// user before it runs.
type pendingConfirmation struct {
	sql     string
	warning string
}

// Model is glance's Bubbletea model.
type Model struct {
	handle *orchestrator.Handle

	width, height int
	transcript    []entry
	input         textinput.Model
	viewport      viewport.Model
	busy          bool
	statusLine    string
	confirming    *pendingConfirmation
	quitting      bool
	theme         string
	activeID      orchestrator.RequestId
}

// New builds a Model driving handle. theme selects the SQL syntax
// highlighting palette ("dark" or "light", per config.UIConfig.Theme);
// an empty theme behaves like "dark".
func New(handle *orchestrator.Handle, theme string) *Model {
	ti := textinput.New()
	ti.Placeholder = "ask a question, or /sql ..., or /help"
	ti.Prompt = "glance> "
	ti.PromptStyle = promptStyle
	ti.Focus()

	return &Model{
		handle:     handle,
		statusLine: "no active connection",
		input:      ti,
		viewport:   viewport.New(80, 20),
		theme:      theme,
	}
}

// Init starts the model with no outstanding commands; the front end
// connects explicitly via /connect once the program is running.
func (m *Model) Init() tea.Cmd { return nil }

type inputResultMsg struct {
	result orchestrator.InputResult
	err    error
}

// requestQueuedMsg carries the id the orchestrator assigned to a
// just-submitted request, delivered as soon as it's queued (well
// before inputResultMsg) so Esc can cancel it by id while it's still
// pending or running.
type requestQueuedMsg struct {
	id orchestrator.RequestId
}

// queuedAndResult runs call (a Handle.HandleInput or ConfirmQuery
// invocation) and batches two commands: one that resolves the moment
// the request is queued, one that resolves with its eventual result.
// tea.Batch runs both concurrently, so requestQueuedMsg reaches
// Update long before the blocking call returns.
func queuedAndResult(call func(orchestrator.OnQueued) (orchestrator.InputResult, error)) tea.Cmd {
	queued := make(chan orchestrator.RequestId, 1)

	resultCmd := func() tea.Msg {
		result, err := call(func(id orchestrator.RequestId) { queued <- id })
		return inputResultMsg{result: result, err: err}
	}
	queuedCmd := func() tea.Msg {
		return requestQueuedMsg{id: <-queued}
	}
	return tea.Batch(resultCmd, queuedCmd)
}

func submit(h *orchestrator.Handle, input string) tea.Cmd {
	return queuedAndResult(func(onQueued orchestrator.OnQueued) (orchestrator.InputResult, error) {
		return h.HandleInput(context.Background(), input, onQueued)
	})
}

func confirm(h *orchestrator.Handle, sql string) tea.Cmd {
	return queuedAndResult(func(onQueued orchestrator.OnQueued) (orchestrator.InputResult, error) {
		return h.ConfirmQuery(context.Background(), sql, onQueued)
	})
}

func cancelActive(h *orchestrator.Handle, id orchestrator.RequestId) tea.Cmd {
	return func() tea.Msg {
		h.CancelQuery(context.Background(), id)
		return nil
	}
}

// Update handles a keypress, a window resize, or the async result of
// whatever the last submitted line asked the orchestrator to do.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 3
		m.input.Width = msg.Width - len(m.input.Prompt) - 1
		m.syncViewport()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case requestQueuedMsg:
		m.activeID = msg.id
		return m, nil

	case inputResultMsg:
		m.busy = false
		m.activeID = ""
		m.applyResult(msg.result, msg.err)
		m.syncViewport()
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.quitting = true
		return m, tea.Quit

	case tea.KeyEsc:
		if m.busy && m.activeID != "" {
			return m, cancelActive(m.handle, m.activeID)
		}
		return m, nil

	case tea.KeyEnter:
		return m.handleEnter()

	case tea.KeyPgUp, tea.KeyPgDown, tea.KeyCtrlU, tea.KeyCtrlD:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleEnter() (tea.Model, tea.Cmd) {
	if m.confirming != nil {
		sql := m.confirming.sql
		line := m.input.Value()
		m.input.SetValue("")
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			m.confirming = nil
			m.busy = true
			m.transcript = append(m.transcript, entry{userStyle.Render("confirm> ") + highlightSQL(sql, m.theme)})
			m.syncViewport()
			return m, confirm(m.handle, sql)
		default:
			m.confirming = nil
			m.transcript = append(m.transcript, entry{statusStyle.Render("cancelled")})
			m.syncViewport()
			return m, nil
		}
	}

	line := m.input.Value()
	m.input.SetValue("")
	if strings.TrimSpace(line) == "" {
		return m, nil
	}

	if line == "/quit" || line == "/exit" {
		m.quitting = true
		return m, tea.Quit
	}

	rendered := line
	if sql, ok := strings.CutPrefix(line, "/sql "); ok {
		rendered = highlightSQL(sql, m.theme)
	}
	m.transcript = append(m.transcript, entry{userStyle.Render("> ") + rendered})
	m.busy = true
	m.syncViewport()
	return m, submit(m.handle, line)
}

func (m *Model) applyResult(result orchestrator.InputResult, err error) {
	if err != nil {
		m.transcript = append(m.transcript, entry{errorStyle.Render(err.Error())})
		return
	}

	switch result.Kind {
	case orchestrator.ResultNone:
		return

	case orchestrator.ResultMessage:
		m.transcript = append(m.transcript, entry{assistantStyle.Render(wrap(result.Message))})

	case orchestrator.ResultSchema:
		m.transcript = append(m.transcript, entry{result.SchemaText})

	case orchestrator.ResultConfirmationRequired:
		m.confirming = &pendingConfirmation{sql: result.SQL, warning: result.Safety.StatementLabel()}
		m.transcript = append(m.transcript, entry{
			warnStyle.Render(fmt.Sprintf("%s — run it? [y/N]", result.Safety.StatementLabel())) +
				"\n  " + highlightSQL(result.SQL, m.theme),
		})

	case orchestrator.ResultExecuted:
		m.transcript = append(m.transcript, entry{renderExecuted(result)})

	case orchestrator.ResultCancelled:
		m.transcript = append(m.transcript, entry{statusStyle.Render(result.Message)})
	}
}

func renderExecuted(result orchestrator.InputResult) string {
	if result.QueryErr != "" {
		return errorStyle.Render(wrap(result.QueryErr))
	}
	if result.QueryResult == nil {
		return statusStyle.Render("ok")
	}
	qr := *result.QueryResult
	line := fmt.Sprintf("%s rows in %s", humanize.Comma(qr.RowCount), qr.ExecutionTime.Round(time.Millisecond))
	if warning := qr.TruncationWarning(); warning != "" {
		line += "\n" + warnStyle.Render(warning)
	}
	return assistantStyle.Render(line)
}

// wrap wraps assistant prose to a readable column width; it's a no-op
// on schema trees and highlighted SQL, which already lay themselves
// out deliberately.
func wrap(text string) string {
	return wordwrap.WrapString(text, uint(defaultWrapWidth))
}

// syncViewport re-renders the transcript into the viewport and scrolls
// to the bottom, mirroring how a chat log follows new messages.
func (m *Model) syncViewport() {
	var b strings.Builder
	for i, e := range m.transcript {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(e.text)
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

// View renders the transcript viewport, an optional confirmation
// prompt, and the input line. Table/result grid layout is a front-end
// rendering concern this package leaves to whatever terminal width
// allows; ResultExecuted already carries a formatted
// dbgateway.QueryResult for a fuller renderer to lay out.
func (m *Model) View() string {
	if m.quitting {
		return "goodbye\n"
	}

	var b strings.Builder
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(m.statusLine))
	b.WriteString("\n")

	switch {
	case m.confirming != nil:
		m.input.Prompt = "confirm [y/N]> "
	case m.busy:
		m.input.Prompt = "...> "
	default:
		m.input.Prompt = "glance> "
	}
	b.WriteString(m.input.View())
	return b.String()
}

// SetStatus updates the status line, e.g. after a successful
// /connect, to show the active connection's label.
func (m *Model) SetStatus(text string) {
	m.statusLine = text
}
