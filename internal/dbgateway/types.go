package dbgateway

import (
	"fmt"
	"time"
)

// ValueKind discriminates the variant of Value held. Go has no enum
// with payload, so Value carries every field and Kind says which one
// is live.
type ValueKind int

const (
	ValueNull ValueKind = iota
	ValueBool
	ValueInt
	ValueFloat
	ValueString
	ValueBytes
)

// Value is a single cell of a query result, typed loosely enough to
// cover every PostgreSQL scalar this gateway converts.
type Value struct {
	Kind  ValueKind
	Bool  bool
	Int   int64
	Float float64
	Str   string
	Bytes []byte
}

// NewNullValue returns the null value.
func NewNullValue() Value { return Value{Kind: ValueNull} }

// NewBoolValue wraps a bool.
func NewBoolValue(b bool) Value { return Value{Kind: ValueBool, Bool: b} }

// NewIntValue wraps an int64.
func NewIntValue(i int64) Value { return Value{Kind: ValueInt, Int: i} }

// NewFloatValue wraps a float64.
func NewFloatValue(f float64) Value { return Value{Kind: ValueFloat, Float: f} }

// NewStringValue wraps a string.
func NewStringValue(s string) Value { return Value{Kind: ValueString, Str: s} }

// NewBytesValue wraps a byte slice.
func NewBytesValue(b []byte) Value { return Value{Kind: ValueBytes, Bytes: b} }

// IsNull reports whether this value is SQL NULL.
func (v Value) IsNull() bool { return v.Kind == ValueNull }

// ToDisplayString renders the value the way a result grid or an LLM
// prompt wants to see it: "NULL" for null, raw text otherwise.
func (v Value) ToDisplayString() string {
	switch v.Kind {
	case ValueNull:
		return "NULL"
	case ValueBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case ValueInt:
		return fmt.Sprintf("%d", v.Int)
	case ValueFloat:
		return fmt.Sprintf("%g", v.Float)
	case ValueString:
		return v.Str
	case ValueBytes:
		return fmt.Sprintf("\\x%x", v.Bytes)
	default:
		return ""
	}
}

// String implements fmt.Stringer as an alias for ToDisplayString.
func (v Value) String() string { return v.ToDisplayString() }

// ColumnInfo describes one result column.
type ColumnInfo struct {
	Name     string
	DataType string
}

// Row is one row of query results.
type Row []Value

// QueryResult is the outcome of executing a statement.
type QueryResult struct {
	Columns       []ColumnInfo
	Rows          []Row
	ExecutionTime time.Duration
	RowCount      int64
	TotalRows     *int64
	WasTruncated  bool
	RowsAffected  int64
	Message       string
}

// NewQueryResult builds an empty result with the given columns.
func NewQueryResult(columns []ColumnInfo) QueryResult {
	return QueryResult{Columns: columns}
}

// WithData attaches rows and derives RowCount from their length.
func (r QueryResult) WithData(rows []Row) QueryResult {
	r.Rows = rows
	r.RowCount = int64(len(rows))
	return r
}

// WithExecutionTime records how long the statement took to run.
func (r QueryResult) WithExecutionTime(d time.Duration) QueryResult {
	r.ExecutionTime = d
	return r
}

// IsEmpty reports whether the result has no rows.
func (r QueryResult) IsEmpty() bool { return len(r.Rows) == 0 }

// TruncationWarning returns a human-readable note when the result was
// cut off at the row cap, or "" when it wasn't.
func (r QueryResult) TruncationWarning() string {
	if !r.WasTruncated || r.TotalRows == nil {
		return ""
	}
	return fmt.Sprintf("⚠ Result truncated: showing %d of %d rows", r.RowCount, *r.TotalRows)
}
