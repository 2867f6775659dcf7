package dbgateway

import (
	"testing"
	"time"
)

func TestValueDisplay(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{NewNullValue(), "NULL"},
		{NewBoolValue(true), "true"},
		{NewBoolValue(false), "false"},
		{NewIntValue(42), "42"},
		{NewFloatValue(3.5), "3.5"},
		{NewStringValue("hi"), "hi"},
	}
	for _, c := range cases {
		if got := c.v.ToDisplayString(); got != c.want {
			t.Errorf("ToDisplayString() = %q, want %q", got, c.want)
		}
	}
}

func TestValueIsNull(t *testing.T) {
	if !NewNullValue().IsNull() {
		t.Error("expected null value to report IsNull")
	}
	if NewIntValue(0).IsNull() {
		t.Error("zero int should not be null")
	}
}

func TestQueryResultNew(t *testing.T) {
	r := NewQueryResult([]ColumnInfo{{Name: "id", DataType: "int4"}})
	if len(r.Columns) != 1 || !r.IsEmpty() {
		t.Errorf("unexpected result: %+v", r)
	}
}

func TestQueryResultWithData(t *testing.T) {
	r := NewQueryResult(nil).WithData([]Row{{NewIntValue(1)}, {NewIntValue(2)}})
	if r.RowCount != 2 || r.IsEmpty() {
		t.Errorf("unexpected result: %+v", r)
	}
}

func TestQueryResultWithExecutionTime(t *testing.T) {
	r := NewQueryResult(nil).WithExecutionTime(5 * time.Millisecond)
	if r.ExecutionTime != 5*time.Millisecond {
		t.Errorf("unexpected execution time: %v", r.ExecutionTime)
	}
}

func TestTruncationWarning(t *testing.T) {
	total := int64(5000)
	r := QueryResult{RowCount: 1000, TotalRows: &total, WasTruncated: true}
	want := "⚠ Result truncated: showing 1000 of 5000 rows"
	if got := r.TruncationWarning(); got != want {
		t.Errorf("TruncationWarning() = %q, want %q", got, want)
	}
	r2 := QueryResult{RowCount: 3}
	if got := r2.TruncationWarning(); got != "" {
		t.Errorf("expected empty warning, got %q", got)
	}
}
