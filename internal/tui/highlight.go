package tui

import (
	"bytes"

	"github.com/alecthomas/chroma/v2/quick"
)

// chromaStyle maps glance's ui.theme setting onto a Chroma style name.
// "dark" keeps the default monokai palette; "light" switches to a
// style readable on a light terminal background.
func chromaStyle(theme string) string {
	if theme == "light" {
		return "github"
	}
	return "monokai"
}

// highlightSQL applies syntax highlighting to a SQL statement using
// Chroma's PostgreSQL lexer, returning ANSI terminal escapes. It falls
// back to the plain string if highlighting fails for any reason (an
// unrecognized lexer input, an unsupported terminal) rather than
// erroring the whole render.
func highlightSQL(sql, theme string) string {
	if sql == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := quick.Highlight(&buf, sql, "postgresql", "terminal256", chromaStyle(theme)); err != nil {
		return sql
	}
	return buf.String()
}
