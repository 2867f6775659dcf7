package llm

import "strings"

// ParsedResponse splits a model's answer into its prose and the SQL
// statement it proposed, if any.
type ParsedResponse struct {
	Text string
	SQL  string
}

// TextOnly builds a ParsedResponse carrying no SQL.
func TextOnly(text string) ParsedResponse { return ParsedResponse{Text: strings.TrimSpace(text)} }

// WithSQL builds a ParsedResponse carrying both prose and SQL.
func WithSQL(text, sql string) ParsedResponse {
	return ParsedResponse{Text: strings.TrimSpace(text), SQL: strings.TrimSpace(sql)}
}

// HasSQL reports whether a SQL statement was extracted.
func (p ParsedResponse) HasSQL() bool { return p.SQL != "" }

// ParseLLMResponse pulls a SQL statement out of a model response,
// preferring a ```sql fenced block, then falling back to a bare ```
// block with no language specifier. If neither is present, the whole
// trimmed response is returned as text with no SQL.
func ParseLLMResponse(text string) ParsedResponse {
	if sql := extractCodeBlock(text, "sql"); sql != "" {
		return WithSQL(removeCodeBlock(text, "sql"), sql)
	}
	if sql := extractCodeBlock(text, ""); sql != "" {
		return WithSQL(removeCodeBlock(text, ""), sql)
	}
	return TextOnly(text)
}

// extractCodeBlock returns the contents of the first fenced code
// block tagged with lang, or, when lang is "", the first fenced block
// with no language specifier at all. Returns "" if no such block
// exists.
func extractCodeBlock(text, lang string) string {
	start := findFence(text, lang)
	if start == -1 {
		return ""
	}

	bodyStart := start + len("```"+lang)
	if bodyStart < len(text) && text[bodyStart] == '\n' {
		bodyStart++
	}

	end := strings.Index(text[bodyStart:], "```")
	if end == -1 {
		return ""
	}

	return strings.TrimSpace(text[bodyStart : bodyStart+end])
}

// removeCodeBlock strips the first fenced block matching lang out of
// text entirely, returning whatever prose surrounds it.
func removeCodeBlock(text, lang string) string {
	start := findFence(text, lang)
	if start == -1 {
		return strings.TrimSpace(text)
	}

	fenceLen := len("```" + lang)
	rest := text[start+fenceLen:]
	end := strings.Index(rest, "```")
	if end == -1 {
		return strings.TrimSpace(text)
	}

	closeIdx := start + fenceLen + end + len("```")
	return strings.TrimSpace(text[:start] + text[closeIdx:])
}

// findFence locates an opening fence for lang ("" for a bare fence
// with no language specifier), rejecting a match where the fence is
// actually the prefix of a longer language name (e.g. "```sql"
// matching inside "```sqlite").
func findFence(text, lang string) int {
	fence := "```" + lang
	searchFrom := 0
	for {
		idx := strings.Index(text[searchFrom:], fence)
		if idx == -1 {
			return -1
		}
		pos := searchFrom + idx
		after := pos + len(fence)
		if after >= len(text) || !isIdentByte(text[after]) {
			return pos
		}
		searchFrom = pos + 1
	}
}

func isIdentByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
