package headless

import (
	"testing"
	"time"
)

func TestParseOneType(t *testing.T) {
	ev, err := ParseOne("type:select * from users")
	if err != nil {
		t.Fatalf("ParseOne: %v", err)
	}
	if ev.Kind != EventType || ev.Text != "select * from users" {
		t.Errorf("got %+v", ev)
	}
}

func TestParseOneKeyLowercases(t *testing.T) {
	ev, err := ParseOne("key:Enter")
	if err != nil {
		t.Fatalf("ParseOne: %v", err)
	}
	if ev.Kind != EventKey || ev.Key != "enter" {
		t.Errorf("got %+v", ev)
	}
}

func TestParseWaitSuffixes(t *testing.T) {
	cases := map[string]time.Duration{
		"wait:500ms": 500 * time.Millisecond,
		"wait:2s":    2 * time.Second,
		"wait:50":    50 * time.Millisecond,
	}
	for input, want := range cases {
		ev, err := ParseOne(input)
		if err != nil {
			t.Fatalf("ParseOne(%q): %v", input, err)
		}
		if ev.Wait != want {
			t.Errorf("ParseOne(%q).Wait = %v, want %v", input, ev.Wait, want)
		}
	}
}

func TestParseResize(t *testing.T) {
	ev, err := ParseOne("resize:120x40")
	if err != nil {
		t.Fatalf("ParseOne: %v", err)
	}
	if ev.Width != 120 || ev.Height != 40 {
		t.Errorf("got %+v", ev)
	}
}

func TestParseResizeInvalid(t *testing.T) {
	if _, err := ParseOne("resize:120"); err == nil {
		t.Error("expected an error for a missing 'x' separator")
	}
}

func TestParseAssertionContains(t *testing.T) {
	ev, err := ParseOne("assert:contains:hello")
	if err != nil {
		t.Fatalf("ParseOne: %v", err)
	}
	if ev.Assertion.Kind != AssertContains || ev.Assertion.Text != "hello" {
		t.Errorf("got %+v", ev.Assertion)
	}
}

func TestParseAssertionStateEquals(t *testing.T) {
	ev, err := ParseOne("assert:state:running=true")
	if err != nil {
		t.Fatalf("ParseOne: %v", err)
	}
	if ev.Assertion.Kind != AssertStateEquals || ev.Assertion.Field != "running" || ev.Assertion.Value != "true" {
		t.Errorf("got %+v", ev.Assertion)
	}
}

func TestParseAssertionStateCompare(t *testing.T) {
	ev, err := ParseOne("assert:state:message_count>=3")
	if err != nil {
		t.Fatalf("ParseOne: %v", err)
	}
	a := ev.Assertion
	if a.Kind != AssertStateCompare || a.Field != "message_count" || a.Op != ">=" || a.Value != "3" {
		t.Errorf("got %+v", a)
	}
}

func TestParseAssertionUnknownKind(t *testing.T) {
	if _, err := ParseOne("assert:frobnicate:x"); err == nil {
		t.Error("expected an error for an unknown assertion kind")
	}
}

func TestParseOneUnknownEventType(t *testing.T) {
	if _, err := ParseOne("blink:3"); err == nil {
		t.Error("expected an error for an unknown event type")
	}
}

func TestParseOneMissingColon(t *testing.T) {
	if _, err := ParseOne("enter"); err == nil {
		t.Error("expected an error for a missing type:value separator")
	}
}

func TestParseAllSkipsBlankAndCommentLines(t *testing.T) {
	events, err := ParseAll("type:hello\n# a comment\n\nkey:enter")
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(events), events)
	}
}

func TestParseAllSplitsOnCommaWithinALine(t *testing.T) {
	events, err := ParseAll("type:select 1, key:enter, wait:100ms")
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3: %+v", len(events), events)
	}
}
