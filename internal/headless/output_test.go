package headless

import (
	"strings"
	"testing"
	"time"
)

func TestParseOutputFormat(t *testing.T) {
	cases := map[string]OutputFormat{
		"":      OutputText,
		"text":  OutputText,
		"JSON":  OutputJSON,
		"frames": OutputFrames,
	}
	for input, want := range cases {
		got, err := ParseOutputFormat(input)
		if err != nil {
			t.Fatalf("ParseOutputFormat(%q): %v", input, err)
		}
		if got != want {
			t.Errorf("ParseOutputFormat(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestParseOutputFormatInvalid(t *testing.T) {
	if _, err := ParseOutputFormat("xml"); err == nil {
		t.Error("expected an error for an unsupported format")
	}
}

func TestFormatResultText(t *testing.T) {
	result := Result{Screen: "1 rows in 1ms", EventsExecuted: 2, Duration: 5 * time.Millisecond, AssertionsPassed: 1}
	out := FormatResult(result, OutputText)
	if !strings.Contains(out, "1 rows in 1ms") || !strings.Contains(out, "Events: 2 executed") {
		t.Errorf("got %q", out)
	}
}

func TestFormatResultJSON(t *testing.T) {
	result := Result{
		Screen:         "hello",
		EventsExecuted: 1,
		State:          State{InputText: "", MessageCount: 1, Running: true},
	}
	out := FormatResult(result, OutputJSON)
	if !strings.Contains(out, `"screen": "hello"`) {
		t.Errorf("got %q", out)
	}
	if !strings.Contains(out, `"message_count": 1`) {
		t.Errorf("got %q", out)
	}
}

func TestFormatResultFramesEmpty(t *testing.T) {
	out := FormatResult(Result{}, OutputFrames)
	if !strings.Contains(out, "no snapshots") {
		t.Errorf("got %q", out)
	}
}

func TestFormatResultFramesWithData(t *testing.T) {
	result := Result{Frames: []Frame{{Number: 0, Event: "first", Screen: "abc"}}}
	out := FormatResult(result, OutputFrames)
	if !strings.Contains(out, "frame 0 (first)") || !strings.Contains(out, "abc") {
		t.Errorf("got %q", out)
	}
}
