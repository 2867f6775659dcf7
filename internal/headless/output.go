package headless

import (
	"encoding/json"
	"fmt"
	"strings"
)

// OutputFormat selects how FormatResult renders a Result.
type OutputFormat int

const (
	OutputText OutputFormat = iota
	OutputJSON
	OutputFrames
)

// ParseOutputFormat maps a --output flag value to an OutputFormat.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	case "frames":
		return OutputFrames, nil
	default:
		return OutputText, fmt.Errorf("unknown output format %q: valid formats are text, json, frames", s)
	}
}

// FormatResult renders a headless Result according to format.
func FormatResult(result Result, format OutputFormat) string {
	switch format {
	case OutputJSON:
		return formatJSON(result)
	case OutputFrames:
		return formatFrames(result)
	default:
		return formatText(result)
	}
}

func formatText(result Result) string {
	var assertions string
	if result.AssertionsPassed > 0 || result.AssertionsFailed > 0 {
		assertions = fmt.Sprintf(" | Assertions: %d passed, %d failed", result.AssertionsPassed, result.AssertionsFailed)
	}
	return fmt.Sprintf("%s\nEvents: %d executed in %dms%s\n",
		result.Screen, result.EventsExecuted, result.Duration.Milliseconds(), assertions)
}

type jsonState struct {
	InputText    string `json:"input_text"`
	MessageCount int    `json:"message_count"`
	Running      bool   `json:"running"`
	IsProcessing bool   `json:"is_processing"`
}

type jsonAssertions struct {
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

type jsonOutput struct {
	Screen         string         `json:"screen"`
	ScreenLines    []string       `json:"screen_lines"`
	EventsExecuted int            `json:"events_executed"`
	DurationMS     int64          `json:"duration_ms"`
	Assertions     jsonAssertions `json:"assertions"`
	State          jsonState      `json:"state"`
}

func formatJSON(result Result) string {
	out := jsonOutput{
		Screen:         result.Screen,
		ScreenLines:    strings.Split(result.Screen, "\n"),
		EventsExecuted: result.EventsExecuted,
		DurationMS:     result.Duration.Milliseconds(),
		Assertions:     jsonAssertions{Passed: result.AssertionsPassed, Failed: result.AssertionsFailed},
		State: jsonState{
			InputText:    result.State.InputText,
			MessageCount: result.State.MessageCount,
			Running:      result.State.Running,
			IsProcessing: result.State.IsProcessing,
		},
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(b) + "\n"
}

func formatFrames(result Result) string {
	var b strings.Builder
	for _, f := range result.Frames {
		fmt.Fprintf(&b, "--- frame %d (%s) ---\n%s\n", f.Number, f.Event, f.Screen)
	}
	if len(result.Frames) == 0 {
		b.WriteString("(no snapshots taken; use snapshot:<name> to capture one)\n")
	}
	return b.String()
}
