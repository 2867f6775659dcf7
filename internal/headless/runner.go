package headless

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/willibrandon/glance/internal/orchestrator"
)

// State is the subset of session state an assertion can inspect.
// Widget-specific fields from the original (focus panel, completion
// popup visibility) don't exist in this front end's flat input-line
// model and are left out rather than faked.
type State struct {
	InputText    string
	MessageCount int
	Running      bool
	IsProcessing bool
}

func (s State) field(name string) (string, bool) {
	switch name {
	case "input_text":
		return s.InputText, true
	case "message_count":
		return strconv.Itoa(s.MessageCount), true
	case "running":
		return strconv.FormatBool(s.Running), true
	case "is_processing":
		return strconv.FormatBool(s.IsProcessing), true
	default:
		return "", false
	}
}

// Frame is a snapshot of the screen taken by a snapshot event.
type Frame struct {
	Number int
	Event  string
	Screen string
}

// Result is the outcome of running a headless script to completion
// or to its first failed assertion under FailFast.
type Result struct {
	Screen           string
	EventsExecuted   int
	Duration         time.Duration
	AssertionsPassed int
	AssertionsFailed int
	State            State
	Frames           []Frame
}

// Config controls how a Runner executes its event stream.
type Config struct {
	FailFast bool
}

// Runner drives an orchestrator.Handle through a parsed event stream,
// accumulating a plain-text "screen" (the transcript so far) that
// assertions check against, in place of a rendered terminal buffer.
type Runner struct {
	handle *orchestrator.Handle
	cfg    Config

	lines   []string
	input   strings.Builder
	running bool
	busy    bool

	assertionsPassed int
	assertionsFailed int
	frames           []Frame
}

// NewRunner builds a Runner driving handle.
func NewRunner(handle *orchestrator.Handle, cfg Config) *Runner {
	return &Runner{handle: handle, cfg: cfg, running: true}
}

// Run executes every event in order, stopping early if cfg.FailFast
// is set and an assertion fails, or if a key:ctrl+c event arrives.
func (r *Runner) Run(ctx context.Context, events []Event) (Result, error) {
	start := time.Now()
	executed := 0

	for _, ev := range events {
		if !r.running {
			break
		}
		if err := r.step(ctx, ev); err != nil {
			return r.result(executed, time.Since(start)), err
		}
		executed++
		if r.cfg.FailFast && r.assertionsFailed > 0 {
			break
		}
	}

	return r.result(executed, time.Since(start)), nil
}

func (r *Runner) step(ctx context.Context, ev Event) error {
	switch ev.Kind {
	case EventType:
		r.input.WriteString(ev.Text)

	case EventKey:
		return r.handleKey(ctx, ev.Key)

	case EventWait:
		select {
		case <-time.After(ev.Wait):
		case <-ctx.Done():
			return ctx.Err()
		}

	case EventResize:
		// No rendering surface to resize; recorded for parity with
		// the DSL but otherwise a no-op.

	case EventSnapshot:
		r.frames = append(r.frames, Frame{Number: len(r.frames), Event: ev.Text, Screen: r.screen()})

	case EventAssert:
		r.checkAssertion(ev.Assertion)
	}
	return nil
}

func (r *Runner) handleKey(ctx context.Context, key string) error {
	switch key {
	case "ctrl+c":
		r.running = false
		return nil

	case "enter", "return":
		line := r.input.String()
		r.input.Reset()
		if strings.TrimSpace(line) == "" {
			return nil
		}
		r.busy = true
		result, err := r.handle.HandleInput(ctx, line, nil)
		r.busy = false
		if err != nil {
			r.lines = append(r.lines, fmt.Sprintf("error: %v", err))
			return nil
		}
		r.lines = append(r.lines, renderResult(result))

	case "backspace", "bs":
		s := r.input.String()
		if len(s) > 0 {
			r.input.Reset()
			r.input.WriteString(s[:len(s)-1])
		}

	case "esc", "escape":
		r.input.Reset()
	}
	return nil
}

func renderResult(result orchestrator.InputResult) string {
	switch result.Kind {
	case orchestrator.ResultMessage:
		return result.Message
	case orchestrator.ResultSchema:
		return result.SchemaText
	case orchestrator.ResultConfirmationRequired:
		return fmt.Sprintf("%s — confirmation required\n%s", result.Safety.StatementLabel(), result.SQL)
	case orchestrator.ResultExecuted:
		if result.QueryErr != "" {
			return result.QueryErr
		}
		if result.QueryResult != nil {
			return fmt.Sprintf("%d rows in %s", result.QueryResult.RowCount, result.QueryResult.ExecutionTime)
		}
		return "ok"
	case orchestrator.ResultCancelled:
		return result.Message
	default:
		return ""
	}
}

func (r *Runner) screen() string {
	return strings.Join(r.lines, "\n")
}

func (r *Runner) state() State {
	return State{
		InputText:    r.input.String(),
		MessageCount: len(r.lines),
		Running:      r.running,
		IsProcessing: r.busy,
	}
}

func (r *Runner) checkAssertion(a Assertion) {
	if r.evalAssertion(a) {
		r.assertionsPassed++
	} else {
		r.assertionsFailed++
	}
}

func (r *Runner) evalAssertion(a Assertion) bool {
	screen := r.screen()
	switch a.Kind {
	case AssertContains:
		return strings.Contains(strings.ToLower(screen), strings.ToLower(a.Text))
	case AssertNotContains:
		return !strings.Contains(strings.ToLower(screen), strings.ToLower(a.Text))
	case AssertMatches:
		re, err := regexp.Compile(a.Text)
		if err != nil {
			return false
		}
		return re.MatchString(screen)
	case AssertStateEquals:
		actual, ok := r.state().field(a.Field)
		return ok && actual == a.Value
	case AssertStateCompare:
		actual, ok := r.state().field(a.Field)
		if !ok {
			return false
		}
		return compareValues(actual, a.Op, a.Value)
	default:
		return false
	}
}

func compareValues(actual, op, expected string) bool {
	a, aErr := strconv.ParseInt(actual, 10, 64)
	e, eErr := strconv.ParseInt(expected, 10, 64)
	if aErr == nil && eErr == nil {
		switch op {
		case ">=":
			return a >= e
		case "<=":
			return a <= e
		case ">":
			return a > e
		case "<":
			return a < e
		case "=", "==":
			return a == e
		}
	}
	if op == "=" || op == "==" {
		return actual == expected
	}
	return false
}

func (r *Runner) result(executed int, d time.Duration) Result {
	return Result{
		Screen:           r.screen(),
		EventsExecuted:   executed,
		Duration:         d,
		AssertionsPassed: r.assertionsPassed,
		AssertionsFailed: r.assertionsFailed,
		State:            r.state(),
		Frames:           r.frames,
	}
}
